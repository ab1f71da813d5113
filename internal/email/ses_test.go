package email_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alertrix/alertrix/internal/email"
)

type mockSESAPI struct {
	sendEmailFunc func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

func (m *mockSESAPI) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	return m.sendEmailFunc(ctx, params, optFns...)
}

func TestSESSender_Send(t *testing.T) {
	var captured *sesv2.SendEmailInput
	api := &mockSESAPI{
		sendEmailFunc: func(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			captured = params
			return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
		},
	}

	s := email.NewSESSenderWithAPI(api, email.SESConfig{
		From:          "alerts@alertrix.dev",
		ConfigSetName: "alerts",
		Logger:        zerolog.Nop(),
	})

	err := s.Send(context.Background(), email.Email{To: "ops@example.com", Subject: "Heat", Body: "a\nb"})
	require.NoError(t, err)

	assert.Equal(t, "alerts@alertrix.dev", aws.ToString(captured.FromEmailAddress))
	assert.Equal(t, []string{"ops@example.com"}, captured.Destination.ToAddresses)
	assert.Equal(t, "Heat", aws.ToString(captured.Content.Simple.Subject.Data))
	assert.Equal(t, "a\nb", aws.ToString(captured.Content.Simple.Body.Text.Data))
	assert.Equal(t, "<p>a<br>b</p>", aws.ToString(captured.Content.Simple.Body.Html.Data))
	assert.Equal(t, "alerts", aws.ToString(captured.ConfigurationSetName))
}

func TestSESSender_SendErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rejected", &sestypes.MessageRejected{Message: aws.String("bad address")}, "ses rejected message"},
		{"throttled", &sestypes.TooManyRequestsException{Message: aws.String("slow down")}, "ses rate limit exceeded"},
		{"paused", &sestypes.SendingPausedException{Message: aws.String("paused")}, "ses sending paused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockSESAPI{
				sendEmailFunc: func(context.Context, *sesv2.SendEmailInput, ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
					return nil, tt.err
				},
			}
			s := email.NewSESSenderWithAPI(api, email.SESConfig{From: "alerts@alertrix.dev", Logger: zerolog.Nop()})

			err := s.Send(context.Background(), email.Email{To: "ops@example.com"})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestSESSender_RejectsEmptyRecipient(t *testing.T) {
	s := email.NewSESSenderWithAPI(&mockSESAPI{}, email.SESConfig{Logger: zerolog.Nop()})

	assert.ErrorIs(t, s.Send(context.Background(), email.Email{}), email.ErrInvalidRecipient)
}
