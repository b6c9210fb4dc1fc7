package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"loan-funnel/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// Indexer writes one search document per application, keyed by its id.
type Indexer struct {
	client *elasticsearch.Client
	index  string
}

func NewIndexer(client *elasticsearch.Client, index string) *Indexer {
	if index == "" {
		index = "loan-applications"
	}
	return &Indexer{client: client, index: index}
}

// IndexMapping is applied when the lead index is created.
const IndexMapping = `{
  "mappings": {
    "properties": {
      "applicationId":        {"type": "keyword"},
      "stage":                {"type": "keyword"},
      "status":               {"type": "keyword"},
      "loanAmount":           {"type": "double"},
      "loanPurpose":          {"type": "keyword"},
      "employmentStatus":     {"type": "keyword"},
      "propertyStatus":       {"type": "keyword"},
      "educationLevel":       {"type": "keyword"},
      "emailDomain":          {"type": "keyword"},
      "promoSmsConsent":      {"type": "boolean"},
      "verificationAttempts": {"type": "integer"},
      "manualVerification":   {"type": "boolean"},
      "submittedAt":          {"type": "date", "format": "epoch_millis"}
    }
  }
}`

// Document is the indexed form of an application. Contact details other
// than the email domain stay out of the index.
type Document struct {
	ApplicationID        string  `json:"applicationId"`
	Stage                string  `json:"stage"`
	Status               string  `json:"status"`
	LoanAmount           float64 `json:"loanAmount"`
	LoanPurpose          string  `json:"loanPurpose"`
	EmploymentStatus     string  `json:"employmentStatus,omitempty"`
	PropertyStatus       string  `json:"propertyStatus,omitempty"`
	EducationLevel       string  `json:"educationLevel,omitempty"`
	EmailDomain          string  `json:"emailDomain,omitempty"`
	PromoSMSConsent      bool    `json:"promoSmsConsent"`
	VerificationAttempts int     `json:"verificationAttempts"`
	ManualVerification   bool    `json:"manualVerification"`
	SubmittedAt          int64   `json:"submittedAt"`
}

func NewDocument(stage Stage, rec *models.ApplicationRecord) Document {
	f := rec.FormData
	doc := Document{
		ApplicationID:        rec.ApplicationID,
		Stage:                string(stage),
		Status:               string(rec.Status),
		LoanAmount:           f.LoanAmount,
		LoanPurpose:          f.LoanPurpose,
		EmploymentStatus:     f.EmploymentStatus,
		PropertyStatus:       f.PropertyStatus,
		EducationLevel:       f.EducationLevel,
		PromoSMSConsent:      f.PromoSMSConsent,
		VerificationAttempts: rec.VerificationAttempts,
		ManualVerification:   rec.ManualVerification,
		SubmittedAt:          rec.Timestamp,
	}
	if at := strings.LastIndex(f.Email, "@"); at >= 0 {
		doc.EmailDomain = strings.ToLower(f.Email[at+1:])
	}
	return doc
}

func (i *Indexer) Record(ctx context.Context, stage Stage, rec *models.ApplicationRecord) error {
	body, err := json.Marshal(NewDocument(stage, rec))
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	res, err := i.client.Index(
		i.index,
		bytes.NewReader(body),
		i.client.Index.WithContext(ctx),
		i.client.Index.WithDocumentID(rec.ApplicationID),
	)
	if err != nil {
		return fmt.Errorf("index application: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index application: %s", res.Status())
	}
	return nil
}
