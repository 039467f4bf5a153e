// Package mail wraps the transactional email provider used by the block
// mailer worker.
package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

const charset = "UTF-8"

// Config holds the SES settings.
type Config struct {
	// Source is the verified sender address.
	Source string

	// Region is the AWS region of the SES account.
	Region string

	// Endpoint overrides the SES endpoint, for local stacks.
	Endpoint string
}

// Sender sends plain-text email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) (messageID string, err error)
}

// SESSender implements Sender on AWS SES.
type SESSender struct {
	client *ses.Client
	source string
}

// NewSESSender builds an SES client from the ambient AWS credentials.
func NewSESSender(ctx context.Context, cfg Config) (*SESSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := ses.NewFromConfig(awsCfg, func(o *ses.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &SESSender{client: client, source: cfg.Source}, nil
}

// Send emails body to the given address and returns the provider's
// message id.
func (s *SESSender) Send(ctx context.Context, to, subject, body string) (string, error) {
	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(s.source),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Charset: aws.String(charset),
				Data:    aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Charset: aws.String(charset),
					Data:    aws.String(body),
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	messageID := ""
	if out.MessageId != nil {
		messageID = *out.MessageId
	}
	return messageID, nil
}
