package verification

import (
	"context"
	"fmt"
	"strings"

	commonaws "loan-funnel/internal/common/aws"
	apperrors "loan-funnel/internal/common/errors"
	"loan-funnel/internal/common/logger"
	"loan-funnel/internal/common/validation"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// Sender delivers a verification code to a phone number.
type Sender interface {
	SendCode(ctx context.Context, phone, code string) error
}

// SMSSender publishes codes as transactional SMS through SNS.
type SMSSender struct {
	client   commonaws.SNSService
	template string
	senderID string
	logger   logger.Logger
}

func NewSMSSender(client commonaws.SNSService, template, senderID string, log logger.Logger) *SMSSender {
	if template == "" || !strings.Contains(template, "%s") {
		template = "Your verification code is %s"
	}
	return &SMSSender{
		client:   client,
		template: template,
		senderID: senderID,
		logger:   logger.ForComponent(log, "sms"),
	}
}

func (s *SMSSender) SendCode(ctx context.Context, phone, code string) error {
	number, err := validation.NormalizePhone(phone)
	if err != nil {
		return apperrors.NewValidationFailedError(err.Error())
	}

	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(number),
		Message:           aws.String(fmt.Sprintf(s.template, code)),
		MessageAttributes: attrs,
	})
	if err != nil {
		s.logger.Error("sms publish failed", map[string]interface{}{
			"phone": maskPhone(number),
			"error": err,
		})
		return apperrors.NewSMSSendFailedError(err)
	}

	s.logger.Info("verification sms sent", map[string]interface{}{
		"phone":     maskPhone(number),
		"messageId": aws.ToString(out.MessageId),
	})
	return nil
}

// LogSender writes codes to the log instead of sending them. Local development only.
type LogSender struct {
	Logger logger.Logger
}

func (s LogSender) SendCode(_ context.Context, phone, code string) error {
	logger.ForComponent(s.Logger, "sms").Warn("sms disabled, verification code logged", map[string]interface{}{
		"phone": maskPhone(phone),
		"code":  code,
	})
	return nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
