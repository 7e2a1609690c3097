package email

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"net/textproto"
)

// ErrRestricted is wrapped by mailers when the provider refuses a recipient
// because the sending domain is unverified or the account is in sandbox mode.
var ErrRestricted = errors.New("email provider restricted the recipient")

// Message is one outbound HTML email
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers messages through an email provider
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// EmailConfig holds SMTP configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromName     string
	FromEmail    string
}

// SMTPMailer sends email over SMTP with PLAIN auth
type SMTPMailer struct {
	config   EmailConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(config EmailConfig) *SMTPMailer {
	return &SMTPMailer{config: config, sendMail: smtp.SendMail}
}

// Send delivers msg. net/smtp has no context support so ctx is only checked
// before dialing.
func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)

	err := s.sendMail(addr, auth, s.config.FromEmail, []string{msg.To}, s.buildHTMLEmail(msg))
	if err != nil {
		var protoErr *textproto.Error
		if errors.As(err, &protoErr) && (protoErr.Code == 550 || protoErr.Code == 553) {
			return fmt.Errorf("%w: %s", ErrRestricted, protoErr.Msg)
		}
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// buildHTMLEmail builds an HTML email message
func (s *SMTPMailer) buildHTMLEmail(msg Message) []byte {
	headers := fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=\"UTF-8\"\r\n"+
			"\r\n",
		s.config.FromName,
		s.config.FromEmail,
		msg.To,
		msg.Subject,
	)

	return []byte(headers + msg.HTML)
}
