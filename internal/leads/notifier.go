package leads

import (
	"context"
	"fmt"
	"time"

	commonaws "loan-funnel/internal/common/aws"
	"loan-funnel/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Notifier emails the applicant through SES when the application is
// received and when it is decided.
type Notifier struct {
	client      commonaws.SESService
	from        string
	blockWindow time.Duration
	contact     string
}

func NewNotifier(client commonaws.SESService, from string, blockWindow time.Duration, contactPhone string) *Notifier {
	if blockWindow <= 0 {
		blockWindow = models.DefaultBlockWindow
	}
	return &Notifier{
		client:      client,
		from:        from,
		blockWindow: blockWindow,
		contact:     contactPhone,
	}
}

func (n *Notifier) Record(ctx context.Context, stage Stage, rec *models.ApplicationRecord) error {
	if rec.FormData.Email == "" {
		return nil
	}

	subject, body, ok := n.compose(stage, rec)
	if !ok {
		return nil
	}

	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.from),
		Destination: &types.Destination{
			ToAddresses: []string{rec.FormData.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (n *Notifier) compose(stage Stage, rec *models.ApplicationRecord) (string, string, bool) {
	name := rec.FormData.FirstName
	if name == "" {
		name = "there"
	}

	switch {
	case stage == StageSubmitted:
		return "We received your loan application",
			fmt.Sprintf("Hi %s,\n\nThanks for applying. Enter the code we texted you to finish verifying your phone number.", name),
			true
	case rec.Status == models.StatusSuccessful:
		return "Your loan application was approved",
			fmt.Sprintf("Hi %s,\n\nGood news: your application was approved. A loan specialist will contact you shortly, or call us at %s.", name, n.contact),
			true
	case rec.Status == models.StatusUnsuccessful:
		retry := rec.BlockExpiresAt(n.blockWindow).UTC().Format("January 2, 2006")
		return "An update on your loan application",
			fmt.Sprintf("Hi %s,\n\nWe were unable to approve your application at this time. You can apply again after %s.", name, retry),
			true
	}
	return "", "", false
}
