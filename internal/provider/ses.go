package provider

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/leadforge/leadforge/internal/config"
	"github.com/leadforge/leadforge/internal/domain"
	"github.com/leadforge/leadforge/internal/pkg/logger"
)

// SESAdapter sends emails via AWS SES using the SDK v2.
type SESAdapter struct {
	region string
	client *sesv2.Client
}

// NewSESAdapter creates an SES adapter. The SDK client is only initialized
// when static credentials are provided; otherwise the adapter reports
// itself unconfigured and is skipped by the orchestrator.
func NewSESAdapter(cfg config.SESConfig) *SESAdapter {
	adapter := &SESAdapter{region: cfg.Region}

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		)
		if err != nil {
			log.Printf("[SES] Warning: failed to initialize AWS config: %v", err)
		} else {
			adapter.client = sesv2.NewFromConfig(awsCfg)
		}
	}

	return adapter
}

// Name returns "ses".
func (s *SESAdapter) Name() string { return "ses" }

// IsConfigured reports whether the SDK client was initialized.
func (s *SESAdapter) IsConfigured() bool { return s.client != nil }

// MaxRetries returns the adapter retry ceiling. The SDK already retries
// throttling errors internally, so this stays lower than the HTTP adapters.
func (s *SESAdapter) MaxRetries() int { return 2 }

// Send delivers a single message through AWS SES.
func (s *SESAdapter) Send(ctx context.Context, msg *domain.MessageRequest) (*domain.DeliveryResult, error) {
	if s.client == nil {
		return nil, fmt.Errorf("SES client not initialized - check credentials")
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail)),
		Destination:      &types.Destination{ToAddresses: msg.To},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if msg.Text != "" {
		input.Content.Simple.Body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}
	for k, v := range msg.Metadata {
		input.EmailTags = append(input.EmailTags, types.MessageTag{
			Name:  aws.String(k),
			Value: aws.String(v),
		})
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return &domain.DeliveryResult{
			Provider: s.Name(),
			Status:   domain.StatusFailed,
			Error:    err.Error(),
		}, nil
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}

	log.Printf("[SES] Sent to %s (id: %s)", logger.RedactEmail(msg.To[0]), messageID)
	return &domain.DeliveryResult{
		Success:    true,
		MessageID:  messageID,
		Provider:   s.Name(),
		StatusCode: 200,
		Status:     domain.StatusSent,
	}, nil
}
