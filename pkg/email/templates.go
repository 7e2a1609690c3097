package email

import (
	"bytes"
	"fmt"
	"html/template"
)

// Template names
const (
	TemplateQuoteSent            = "quote_sent"
	TemplateInvoiceSent          = "invoice_sent"
	TemplateRejectionAck         = "rejection_ack"
	TemplateRejectionAlert       = "rejection_alert"
	TemplatePaymentReceipt       = "payment_receipt"
	TemplateContractorFeeRequest = "contractor_fee_request"
)

// LineSummary is one row of an item table rendered in an email
type LineSummary struct {
	Name     string
	Quantity string
	Total    string
}

// DocumentData is merged into every template. Fields a template does not
// use are left empty.
type DocumentData struct {
	BusinessName string
	ClientName   string
	Number       string
	Title        string
	Lines        []LineSummary
	Subtotal     string
	TaxAmount    string
	Total        string
	AmountDue    string
	Currency     string
	DueDate      string
	ValidUntil   string
	ActionURL    string
	Feedback     string
	Footer       string
}

var bodies = map[string]string{
	TemplateQuoteSent:            quoteSentTemplate,
	TemplateInvoiceSent:          invoiceSentTemplate,
	TemplateRejectionAck:         rejectionAckTemplate,
	TemplateRejectionAlert:       rejectionAlertTemplate,
	TemplatePaymentReceipt:       paymentReceiptTemplate,
	TemplateContractorFeeRequest: contractorFeeTemplate,
}

// pages holds one parsed set per template: the shared layout plus its
// own "content" block.
var pages = make(map[string]*template.Template, len(bodies))

func init() {
	for name, body := range bodies {
		t := template.Must(template.New(name).Parse(layoutTemplate))
		template.Must(t.New("content").Parse(body))
		pages[name] = t
	}
}

// Render merges data into the named template
func Render(name string, data DocumentData) (string, error) {
	t, ok := pages[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("failed to render email template: %w", err)
	}
	return buf.String(), nil
}

const layoutTemplate = `{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background-color: #f4f7fa;">
    <table role="presentation" style="width: 100%; border-collapse: collapse;">
        <tr>
            <td style="padding: 40px 0;">
                <table role="presentation" style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 12px; overflow: hidden;">
                    <tr>
                        <td style="background: #1a1a2e; padding: 32px 30px; text-align: center;">
                            <h1 style="color: #ffffff; margin: 0; font-size: 26px; font-weight: 600;">{{.BusinessName}}</h1>
                        </td>
                    </tr>
                    <tr>
                        <td style="padding: 36px 30px; color: #4a5568; font-size: 16px; line-height: 1.6;">
                            {{template "content" .}}
                        </td>
                    </tr>
                    <tr>
                        <td style="background-color: #f8fafc; padding: 24px; text-align: center; border-top: 1px solid #e2e8f0;">
                            <p style="color: #a0aec0; font-size: 13px; margin: 0;">{{if .Footer}}{{.Footer}}{{else}}Sent by {{.BusinessName}}{{end}}</p>
                        </td>
                    </tr>
                </table>
            </td>
        </tr>
    </table>
</body>
</html>{{end}}`

const linesTable = `{{if .Lines}}
<table role="presentation" style="width: 100%; border-collapse: collapse; margin: 0 0 20px 0;">
    {{range .Lines}}<tr>
        <td style="padding: 6px 0; border-bottom: 1px solid #edf2f7;">{{.Name}}</td>
        <td style="padding: 6px 0; border-bottom: 1px solid #edf2f7; text-align: center;">{{.Quantity}}</td>
        <td style="padding: 6px 0; border-bottom: 1px solid #edf2f7; text-align: right;">{{.Total}}</td>
    </tr>{{end}}
</table>
<p style="margin: 0;">Subtotal: {{.Subtotal}} {{.Currency}}</p>
<p style="margin: 0;">Tax: {{.TaxAmount}} {{.Currency}}</p>
{{end}}`

const actionButton = `{{if .ActionURL}}
<table role="presentation" style="margin: 24px auto;">
    <tr>
        <td style="background: #667eea; border-radius: 8px;">
            <a href="{{.ActionURL}}" style="display: inline-block; padding: 14px 28px; color: #ffffff; text-decoration: none; font-weight: 600;">View and pay</a>
        </td>
    </tr>
</table>
<p style="color: #718096; font-size: 13px; word-break: break-all;">{{.ActionURL}}</p>
{{end}}`

const quoteSentTemplate = `<h2 style="color: #1a1a2e; margin: 0 0 16px 0;">Quote {{.Number}}</h2>
<p>Hello {{.ClientName}},</p>
<p>Here is your quote for <strong>{{.Title}}</strong>. It is valid until {{.ValidUntil}}.</p>
` + linesTable + `
<p style="font-size: 18px;"><strong>Total due: {{.AmountDue}} {{.Currency}}</strong></p>
` + actionButton

const invoiceSentTemplate = `<h2 style="color: #1a1a2e; margin: 0 0 16px 0;">Invoice {{.Number}}</h2>
<p>Hello {{.ClientName}},</p>
<p>Your invoice for <strong>{{.Title}}</strong> is ready. Payment is due by {{.DueDate}}.</p>
` + linesTable + `
<p style="font-size: 18px;"><strong>Amount due: {{.AmountDue}} {{.Currency}}</strong></p>
` + actionButton

const rejectionAckTemplate = `<h2 style="color: #1a1a2e; margin: 0 0 16px 0;">We received your feedback</h2>
<p>Hello {{.ClientName}},</p>
<p>Thanks for letting us know about quote {{.Number}}. We will review your comments and get back to you.</p>
{{if .Feedback}}<blockquote style="border-left: 3px solid #cbd5e0; margin: 0; padding-left: 12px;">{{.Feedback}}</blockquote>{{end}}`

const rejectionAlertTemplate = `<h2 style="color: #1a1a2e; margin: 0 0 16px 0;">Quote {{.Number}} was declined</h2>
<p>{{.ClientName}} declined <strong>{{.Title}}</strong> ({{.Total}} {{.Currency}}).</p>
{{if .Feedback}}<p>Their feedback:</p><blockquote style="border-left: 3px solid #cbd5e0; margin: 0; padding-left: 12px;">{{.Feedback}}</blockquote>{{end}}`

const paymentReceiptTemplate = `<h2 style="color: #1a1a2e; margin: 0 0 16px 0;">Payment received</h2>
<p>Hello {{.ClientName}},</p>
<p>We received your payment of <strong>{{.Total}} {{.Currency}}</strong> for {{.Number}}. Thank you!</p>`

const contractorFeeTemplate = `<h2 style="color: #1a1a2e; margin: 0 0 16px 0;">Contractor fees for {{.Number}}</h2>
<p>Hello {{.ClientName}},</p>
<p>The following contractor fees are billed separately from your invoice.</p>
` + linesTable + `
<p style="font-size: 18px;"><strong>Amount due: {{.AmountDue}} {{.Currency}}</strong></p>
` + actionButton
