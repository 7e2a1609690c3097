package email

import (
	"context"
	"errors"
	"net/smtp"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderQuoteSent(t *testing.T) {
	html, err := Render(TemplateQuoteSent, DocumentData{
		BusinessName: "Night Owl Studio",
		ClientName:   "Ada",
		Number:       "Q-00001",
		Title:        "EP mixing",
		Lines:        []LineSummary{{Name: "Mixing", Quantity: "4", Total: "400.00"}},
		AmountDue:    "440.00",
		Currency:     "USD",
		ActionURL:    "https://studio.test/q/abc",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "Q-00001")
	assert.Contains(t, html, "Night Owl Studio")
	assert.Contains(t, html, "https://studio.test/q/abc")
	assert.Contains(t, html, "440.00")
}

func TestRenderEscapesFeedback(t *testing.T) {
	html, err := Render(TemplateRejectionAlert, DocumentData{Feedback: "<script>x</script>"})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := Render("nope", DocumentData{})
	assert.Error(t, err)
}

func TestSMTPMailerWrapsRestriction(t *testing.T) {
	m := NewSMTPMailer(EmailConfig{SMTPHost: "localhost", SMTPPort: 25, FromEmail: "a@b.c"})
	m.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return &textproto.Error{Code: 550, Msg: "sender domain not verified"}
	}

	err := m.Send(context.Background(), Message{To: "x@y.z", Subject: "hi", HTML: "<p>hi</p>"})
	assert.True(t, errors.Is(err, ErrRestricted))
}

func TestSMTPMailerBuildsHeaders(t *testing.T) {
	var sent []byte
	m := NewSMTPMailer(EmailConfig{SMTPHost: "localhost", SMTPPort: 25, FromName: "Studio", FromEmail: "a@b.c"})
	m.sendMail = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		sent = msg
		return nil
	}

	require.NoError(t, m.Send(context.Background(), Message{To: "x@y.z", Subject: "Invoice", HTML: "<p>hi</p>"}))
	assert.True(t, strings.HasPrefix(string(sent), "From: Studio <a@b.c>\r\n"))
	assert.Contains(t, string(sent), "Subject: Invoice\r\n")
}

func TestIsRestriction(t *testing.T) {
	assert.True(t, isRestriction("You can only send testing emails to your own email address"))
	assert.True(t, isRestriction("The studio.test domain is not verified"))
	assert.False(t, isRestriction("rate limit exceeded"))
}
