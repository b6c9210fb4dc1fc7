package leads

import (
	"context"

	"loan-funnel/internal/common/hubspot"
	"loan-funnel/internal/models"
)

// ContactCreator is implemented by *hubspot.CRMClient.
type ContactCreator interface {
	CreateContact(ctx context.Context, contact *hubspot.Contact) (string, error)
}

// CRMSync creates a CRM contact for each new submission.
type CRMSync struct {
	crm ContactCreator
}

func NewCRMSync(crm ContactCreator) *CRMSync {
	return &CRMSync{crm: crm}
}

func (c *CRMSync) Record(ctx context.Context, stage Stage, rec *models.ApplicationRecord) error {
	if stage != StageSubmitted || rec.FormData.Email == "" {
		return nil
	}
	_, err := c.crm.CreateContact(ctx, &hubspot.Contact{
		Email:     rec.FormData.Email,
		FirstName: rec.FormData.FirstName,
		LastName:  rec.FormData.LastName,
		Phone:     rec.FormData.Phone,
		Source:    "NEW",
	})
	return err
}
