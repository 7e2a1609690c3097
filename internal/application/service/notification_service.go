package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/config"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/sangkips/studio-billing-api/pkg/email"
	"github.com/sangkips/studio-billing-api/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const notificationModule = "notification_service"

// NotificationService renders billing emails and hands them to the mailer
type NotificationService struct {
	mailer     email.Mailer
	linkBase   string
	adminEmail string
	log        logrus.FieldLogger
}

// NewNotificationService creates a notification service. Client links
// point at the frontend when one is configured.
func NewNotificationService(mailer email.Mailer, cfg *config.Config, log logrus.FieldLogger) *NotificationService {
	base := cfg.App.FrontendURL
	if base == "" {
		base = cfg.App.PublicBaseURL
	}
	return &NotificationService{
		mailer:     mailer,
		linkBase:   strings.TrimRight(base, "/"),
		adminEmail: cfg.Email.AdminEmail,
		log:        log,
	}
}

// QuoteLink is the client-facing page for a quote
func (s *NotificationService) QuoteLink(quoteID uuid.UUID, token string) string {
	return fmt.Sprintf("%s/quotes/%s/view?token=%s", s.linkBase, quoteID, token)
}

// InvoiceLink is the client-facing page for an invoice
func (s *NotificationService) InvoiceLink(invoiceID uuid.UUID, token string) string {
	return fmt.Sprintf("%s/invoices/%s/pay?token=%s", s.linkBase, invoiceID, token)
}

// ContractorFeeLink is the client-facing page for a separately billed batch
func (s *NotificationService) ContractorFeeLink(token string) string {
	return fmt.Sprintf("%s/contractor-fees/%s", s.linkBase, token)
}

// deliver renders and sends one message. Mail errors come back as
// email_restricted or upstream app errors.
func (s *NotificationService) deliver(ctx context.Context, to, subject, template string, data email.DocumentData) error {
	if to == "" {
		return apperror.NewBadRequestError("Recipient has no email address")
	}
	html, err := email.Render(template, data)
	if err != nil {
		return err
	}

	err = s.mailer.Send(ctx, email.Message{To: to, Subject: subject, HTML: html})
	if errors.Is(err, email.ErrRestricted) {
		return apperror.NewEmailRestrictedError(
			"The email provider only allows sending to verified recipients. Verify a sending domain to email clients.", err)
	}
	if err != nil {
		return apperror.NewUpstreamError("Failed to send email", err)
	}
	return nil
}

// bestEffort logs a failed automatic send and reports whether it went out
func (s *NotificationService) bestEffort(funcName string, subjectID uuid.UUID, err error) bool {
	if err == nil {
		return true
	}
	logger.LogWarn(s.log, notificationModule, funcName, "email not sent", subjectID.String(), err)
	return false
}

func baseData(settings *entity.UserSettings, client *entity.Client) email.DocumentData {
	data := email.DocumentData{
		BusinessName: settings.BusinessName,
		Currency:     settings.Currency,
	}
	if client != nil {
		data.ClientName = client.Name
	}
	if settings.InvoiceFooter != nil {
		data.Footer = *settings.InvoiceFooter
	}
	return data
}

func withAmounts(data email.DocumentData, a entity.Amounts) email.DocumentData {
	data.Subtotal = money(a.Subtotal)
	data.TaxAmount = money(a.TaxAmount)
	data.Total = money(a.Total)
	data.AmountDue = money(a.AmountDue)
	return data
}

func clientEmail(client *entity.Client) string {
	if client == nil {
		return ""
	}
	return client.Email
}

// SendQuote emails the quote with its approval link
func (s *NotificationService) SendQuote(ctx context.Context, settings *entity.UserSettings, quote *entity.Quote) error {
	data := withAmounts(baseData(settings, quote.Client), quote.Amounts)
	data.Number = quote.Number
	data.Title = quote.Title
	for _, it := range quote.Items {
		data.Lines = append(data.Lines, email.LineSummary{Name: it.ServiceName, Quantity: it.Quantity.String(), Total: money(it.Total)})
	}
	if quote.ValidUntil != nil {
		data.ValidUntil = quote.ValidUntil.Format("January 2, 2006")
	}
	if quote.ApprovalToken != nil {
		data.ActionURL = s.QuoteLink(quote.ID, *quote.ApprovalToken)
	}

	subject := fmt.Sprintf("Quote %s from %s", quote.Number, settings.BusinessName)
	return s.deliver(ctx, clientEmail(quote.Client), subject, email.TemplateQuoteSent, data)
}

// SendInvoice emails the invoice with its payment link
func (s *NotificationService) SendInvoice(ctx context.Context, settings *entity.UserSettings, invoice *entity.Invoice) error {
	data := withAmounts(baseData(settings, invoice.Client), invoice.Amounts)
	data.Number = invoice.Number
	data.Title = invoice.Title
	for _, it := range invoice.Items {
		data.Lines = append(data.Lines, email.LineSummary{Name: it.ServiceName, Quantity: it.Quantity.String(), Total: money(it.Total)})
	}
	if invoice.DueDate != nil {
		data.DueDate = invoice.DueDate.Format("January 2, 2006")
	}
	if invoice.PaymentToken != nil {
		data.ActionURL = s.InvoiceLink(invoice.ID, *invoice.PaymentToken)
	}

	subject := fmt.Sprintf("Invoice %s from %s", invoice.Number, settings.BusinessName)
	return s.deliver(ctx, clientEmail(invoice.Client), subject, email.TemplateInvoiceSent, data)
}

// SendRejectionAck thanks the client for their feedback
func (s *NotificationService) SendRejectionAck(ctx context.Context, settings *entity.UserSettings, quote *entity.Quote, feedback string) error {
	data := baseData(settings, quote.Client)
	data.Number = quote.Number
	data.Feedback = feedback

	subject := fmt.Sprintf("We received your feedback on quote %s", quote.Number)
	return s.deliver(ctx, clientEmail(quote.Client), subject, email.TemplateRejectionAck, data)
}

// SendRejectionAlert tells the studio admin a quote was declined. Without
// an alert address configured nothing is sent.
func (s *NotificationService) SendRejectionAlert(ctx context.Context, settings *entity.UserSettings, quote *entity.Quote, feedback string) error {
	to := s.adminEmail
	if settings.AdminAlertEmail != nil && *settings.AdminAlertEmail != "" {
		to = *settings.AdminAlertEmail
	}
	if to == "" {
		return nil
	}

	data := withAmounts(baseData(settings, quote.Client), quote.Amounts)
	data.Number = quote.Number
	data.Title = quote.Title
	data.Feedback = feedback

	subject := fmt.Sprintf("Quote %s was declined", quote.Number)
	return s.deliver(ctx, to, subject, email.TemplateRejectionAlert, data)
}

// SendPaymentReceipt confirms a processor payment to the client
func (s *NotificationService) SendPaymentReceipt(ctx context.Context, settings *entity.UserSettings, client *entity.Client, number string, amount decimal.Decimal) error {
	data := baseData(settings, client)
	data.Number = number
	data.Total = money(amount)

	subject := fmt.Sprintf("Payment received for %s", number)
	return s.deliver(ctx, clientEmail(client), subject, email.TemplatePaymentReceipt, data)
}

// SendContractorFeeRequest emails the pay link for a separately billed batch
func (s *NotificationService) SendContractorFeeRequest(ctx context.Context, settings *entity.UserSettings, invoice *entity.Invoice, batch []entity.InvoiceContractor, token string) error {
	data := baseData(settings, invoice.Client)
	data.Number = invoice.Number
	data.Title = invoice.Title

	total := decimal.Zero
	for _, a := range batch {
		name := "Contractor"
		if a.Contractor != nil {
			name = a.Contractor.Name
		}
		qty := "1"
		if a.Hours != nil {
			qty = a.Hours.String() + "h"
		}
		data.Lines = append(data.Lines, email.LineSummary{Name: name, Quantity: qty, Total: money(a.Cost)})
		total = total.Add(a.Cost)
	}
	data.Subtotal = money(total)
	data.TaxAmount = money(decimal.Zero)
	data.AmountDue = money(total)
	data.ActionURL = s.ContractorFeeLink(token)

	subject := fmt.Sprintf("Contractor fees for %s", invoice.Number)
	return s.deliver(ctx, clientEmail(invoice.Client), subject, email.TemplateContractorFeeRequest, data)
}
