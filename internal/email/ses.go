package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog"
)

// SESAPI is the subset of the SES v2 client used by SESSender.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig configures an SESSender.
type SESConfig struct {
	From string

	// ConfigSetName is optional.
	ConfigSetName string

	Logger zerolog.Logger
}

// SESSender sends through Amazon SES v2. Credentials come from the AWS
// default chain.
type SESSender struct {
	api           SESAPI
	from          string
	configSetName string
	logger        zerolog.Logger
}

// NewSESSender creates an SESSender from an AWS config.
func NewSESSender(awsCfg aws.Config, cfg SESConfig) *SESSender {
	return NewSESSenderWithAPI(sesv2.NewFromConfig(awsCfg), cfg)
}

// NewSESSenderWithAPI creates an SESSender over a pre-built client.
func NewSESSenderWithAPI(api SESAPI, cfg SESConfig) *SESSender {
	return &SESSender{
		api:           api,
		from:          cfg.From,
		configSetName: cfg.ConfigSetName,
		logger:        cfg.Logger.With().Str("component", "ses").Logger(),
	}
}

// Send implements Sender.
func (s *SESSender) Send(ctx context.Context, e Email) error {
	if e.To == "" {
		return ErrInvalidRecipient
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination: &sestypes.Destination{
			ToAddresses: []string{e.To},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(e.Subject), Charset: aws.String("UTF-8")},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: aws.String(e.Body), Charset: aws.String("UTF-8")},
					Html: &sestypes.Content{Data: aws.String(e.HTML()), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if s.configSetName != "" {
		input.ConfigurationSetName = aws.String(s.configSetName)
	}

	out, err := s.api.SendEmail(ctx, input)
	if err != nil {
		return mapSESError(err)
	}

	s.logger.Debug().Str("recipient", e.To).Str("message_id", aws.ToString(out.MessageId)).Msg("email sent")
	return nil
}

func mapSESError(err error) error {
	var rejected *sestypes.MessageRejected
	if errors.As(err, &rejected) {
		return fmt.Errorf("ses rejected message: %w", err)
	}
	var throttled *sestypes.TooManyRequestsException
	if errors.As(err, &throttled) {
		return fmt.Errorf("ses rate limit exceeded: %w", err)
	}
	var paused *sestypes.SendingPausedException
	if errors.As(err, &paused) {
		return fmt.Errorf("ses sending paused: %w", err)
	}
	return fmt.Errorf("ses: %w", err)
}
