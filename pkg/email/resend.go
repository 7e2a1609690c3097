package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
)

// ResendMailer sends email through the Resend HTTP API
type ResendMailer struct {
	client *resend.Client
	from   string
}

// NewResendMailer creates a mailer bound to the given API key
func NewResendMailer(apiKey, fromName, fromEmail string) *ResendMailer {
	from := fromEmail
	if fromName != "" {
		from = fmt.Sprintf("%s <%s>", fromName, fromEmail)
	}
	return &ResendMailer{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	_, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		if isRestriction(err.Error()) {
			return fmt.Errorf("%w: %s", ErrRestricted, err.Error())
		}
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

// Resend reports sandbox and unverified-domain refusals as 403 messages
// with this wording.
func isRestriction(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range []string{
		"verify a domain",
		"domain is not verified",
		"only send testing emails",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
