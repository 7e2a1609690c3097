package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/config"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/sangkips/studio-billing-api/internal/domain/repository"
	"github.com/sangkips/studio-billing-api/internal/infrastructure/cache"
	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/sangkips/studio-billing-api/pkg/pagination"
	"github.com/sangkips/studio-billing-api/pkg/payment"
	"github.com/shopspring/decimal"
)

// PaymentSession is what a client needs to finish paying: a client secret
// for an embedded PaymentIntent, or a hosted checkout URL.
type PaymentSession struct {
	Mode            payment.Mode    `json:"mode"`
	ClientSecret    string          `json:"client_secret,omitempty"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty"`
	CheckoutURL     string          `json:"checkout_url,omitempty"`
	SessionID       string          `json:"session_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	PublishableKey  string          `json:"publishable_key,omitempty"`
}

// PaymentRequest describes a processor payment to open
type PaymentRequest struct {
	Mode        payment.Mode
	Amount      decimal.Decimal
	Currency    string
	Description string
	Email       string
	Metadata    payment.Metadata
	// ReturnPath is used for checkout redirects when no explicit success
	// or cancel URL is configured
	ReturnPath string
}

// PaymentStarter opens PaymentIntents and Checkout Sessions with the
// processor
type PaymentStarter struct {
	gateway payment.Gateway
	cfg     config.StripeConfig
}

// NewPaymentStarter creates a payment starter
func NewPaymentStarter(gateway payment.Gateway, cfg config.StripeConfig) *PaymentStarter {
	return &PaymentStarter{gateway: gateway, cfg: cfg}
}

func gatewayError(err error) error {
	if errors.Is(err, payment.ErrNotConfigured) {
		return apperror.NewUpstreamError("Payment processor is not configured", err)
	}
	return apperror.NewUpstreamError("Failed to create payment", err)
}

// Start opens a payment for the request's amount
func (p *PaymentStarter) Start(ctx context.Context, req PaymentRequest) (*PaymentSession, error) {
	if req.Mode == "" {
		req.Mode = payment.ModePaymentIntent
	}
	req.Metadata.Mode = req.Mode
	session := &PaymentSession{
		Mode:           req.Mode,
		Amount:         req.Amount,
		Currency:       req.Currency,
		PublishableKey: p.cfg.PublishableKey,
	}

	switch req.Mode {
	case payment.ModePaymentIntent:
		intent, err := p.gateway.CreatePaymentIntent(ctx, payment.IntentRequest{
			Amount:       req.Amount,
			Currency:     req.Currency,
			Description:  req.Description,
			ReceiptEmail: req.Email,
			Metadata:     req.Metadata,
		})
		if err != nil {
			return nil, gatewayError(err)
		}
		session.ClientSecret = intent.ClientSecret
		session.PaymentIntentID = intent.ID

	case payment.ModeCheckout:
		success, cancel := p.cfg.SuccessURL, p.cfg.CancelURL
		if success == "" {
			success = req.ReturnPath
		}
		if cancel == "" {
			cancel = req.ReturnPath
		}
		checkout, err := p.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
			Amount:        req.Amount,
			Currency:      req.Currency,
			ProductName:   req.Description,
			CustomerEmail: req.Email,
			SuccessURL:    success,
			CancelURL:     cancel,
			Metadata:      req.Metadata,
		})
		if err != nil {
			return nil, gatewayError(err)
		}
		session.CheckoutURL = checkout.URL
		session.SessionID = checkout.ID

	default:
		return nil, apperror.NewBadRequestError("Unknown payment mode")
	}
	return session, nil
}

// PaymentService handles recorded payments against invoices
type PaymentService struct {
	uow      repository.UnitOfWork
	repos    *repository.Repositories
	payments *PaymentStarter
	cache    *cache.Cache
	now      Clock
}

// NewPaymentService creates a new payment service
func NewPaymentService(uow repository.UnitOfWork, repos *repository.Repositories, payments *PaymentStarter, cache *cache.Cache, now Clock) *PaymentService {
	return &PaymentService{
		uow:      uow,
		repos:    repos,
		payments: payments,
		cache:    cache,
		now:      now,
	}
}

// ListPaymentsInput represents the input for listing payments
type ListPaymentsInput struct {
	UserID     uuid.UUID
	Pagination *pagination.PaginationParams
	Filter     repository.PaymentFilter
}

// ListPayments lists the user's payments
func (s *PaymentService) ListPayments(ctx context.Context, input *ListPaymentsInput) (*pagination.PaginatedResult[entity.Payment], error) {
	payments, total, err := s.repos.Payments.List(ctx, input.UserID, input.Filter, input.Pagination)
	if err != nil {
		return nil, err
	}

	return pagination.NewResult(payments, total, input.Pagination), nil
}

// GetPayment returns one owned payment
func (s *PaymentService) GetPayment(ctx context.Context, userID, id uuid.UUID) (*entity.Payment, error) {
	p, err := s.repos.Payments.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.NewNotFoundError("Payment")
	}
	return p, nil
}

var errInvoiceSettled = apperror.NewConflictError("Invoice is already paid")

// RecordPaymentInput represents an offline payment entered by the admin
type RecordPaymentInput struct {
	UserID    uuid.UUID
	Actor     string
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
	Method    enum.PaymentMethod
	Reference *string
	Status    *enum.PaymentStatus
	Notes     *string
}

// RecordPayment stores a payment and marks the invoice paid once completed
// payments cover the amount due
func (s *PaymentService) RecordPayment(ctx context.Context, input *RecordPaymentInput) (*entity.Payment, error) {
	if !input.Amount.IsPositive() {
		return nil, apperror.NewBadRequestError("Payment amount must be positive")
	}
	if !input.Method.IsValid() {
		return nil, apperror.NewBadRequestError("Invalid payment method")
	}
	status := enum.PaymentStatusCompleted
	if input.Status != nil {
		status = *input.Status
	}

	var paymentID uuid.UUID
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		invoice, err := tx.Invoices.GetForUpdate(ctx, input.UserID, input.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return apperror.NewNotFoundError("Invoice")
		}
		if invoice.Status == enum.InvoiceStatusCancelled {
			return apperror.NewConflictError("Payments cannot be recorded on a cancelled invoice")
		}
		if invoice.Status == enum.InvoiceStatusPaid {
			return errInvoiceSettled
		}

		now := s.now()
		p := &entity.Payment{
			UserID:    input.UserID,
			InvoiceID: invoice.ID,
			Amount:    input.Amount,
			Method:    input.Method,
			Reference: input.Reference,
			Notes:     input.Notes,
		}
		p.SetStatus(status, now)
		if err := tx.Payments.Create(ctx, p); err != nil {
			return err
		}
		paymentID = p.ID

		detail := money(p.Amount) + " via " + string(p.Method) + " (" + p.Status.String() + ")"
		if err := appendActivity(ctx, tx.Activity, entity.SubjectInvoice, invoice.ID, entity.ActionPaymentRecorded, input.Actor, detail, now); err != nil {
			return err
		}
		_, err = settleInvoice(ctx, tx, invoice, input.Actor, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	invalidateAnalytics(ctx, s.cache, input.UserID)
	return s.repos.Payments.GetByID(ctx, input.UserID, paymentID)
}

// UpdatePaymentInput represents the input for updating a payment
type UpdatePaymentInput struct {
	UserID    uuid.UUID
	ID        uuid.UUID
	Actor     string
	Amount    *decimal.Decimal
	Method    *enum.PaymentMethod
	Reference *string
	Status    *enum.PaymentStatus
	Notes     *string
}

// UpdatePayment changes a payment and re-evaluates the invoice's paid state
func (s *PaymentService) UpdatePayment(ctx context.Context, input *UpdatePaymentInput) (*entity.Payment, error) {
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		p, err := tx.Payments.GetByID(ctx, input.UserID, input.ID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperror.NewNotFoundError("Payment")
		}
		invoice, err := tx.Invoices.GetForUpdate(ctx, input.UserID, p.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return apperror.NewNotFoundError("Invoice")
		}
		if invoice.Status == enum.InvoiceStatusPaid && (input.Amount != nil || input.Status != nil) {
			return errInvoiceSettled
		}

		if input.Amount != nil {
			if !input.Amount.IsPositive() {
				return apperror.NewBadRequestError("Payment amount must be positive")
			}
			p.Amount = *input.Amount
		}
		if input.Method != nil {
			if !input.Method.IsValid() {
				return apperror.NewBadRequestError("Invalid payment method")
			}
			p.Method = *input.Method
		}
		if input.Reference != nil {
			p.Reference = input.Reference
		}
		if input.Notes != nil {
			p.Notes = input.Notes
		}
		now := s.now()
		if input.Status != nil {
			p.SetStatus(*input.Status, now)
		}
		if err := tx.Payments.Update(ctx, p); err != nil {
			return err
		}
		_, err = settleInvoice(ctx, tx, invoice, input.Actor, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	invalidateAnalytics(ctx, s.cache, input.UserID)
	return s.repos.Payments.GetByID(ctx, input.UserID, input.ID)
}

// DeletePayment removes a payment record. Payments that settled an invoice
// stay on record.
func (s *PaymentService) DeletePayment(ctx context.Context, userID, id uuid.UUID, actor string) error {
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		p, err := tx.Payments.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if p == nil {
			return apperror.NewNotFoundError("Payment")
		}
		invoice, err := tx.Invoices.GetForUpdate(ctx, userID, p.InvoiceID)
		if err != nil {
			return err
		}
		if invoice != nil && invoice.Status == enum.InvoiceStatusPaid && p.Status == enum.PaymentStatusCompleted {
			return errInvoiceSettled
		}
		if err := tx.Payments.Delete(ctx, userID, id); err != nil {
			return err
		}
		if invoice == nil {
			return nil
		}
		detail := money(p.Amount) + " via " + string(p.Method) + " (" + p.Status.String() + ")"
		return appendActivity(ctx, tx.Activity, entity.SubjectInvoice, invoice.ID, entity.ActionPaymentDeleted, actor, detail, s.now())
	})
	if err != nil {
		return err
	}
	invalidateAnalytics(ctx, s.cache, userID)
	return nil
}

// CreateIntent opens a processor payment for an owned invoice's balance
func (s *PaymentService) CreateIntent(ctx context.Context, userID, invoiceID uuid.UUID, mode payment.Mode) (*PaymentSession, error) {
	invoice, err := s.repos.Invoices.GetByID(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}
	return startInvoicePayment(ctx, s.repos, s.payments, invoice, mode, "")
}

// startInvoicePayment opens a payment for what is left to pay on the
// invoice
func startInvoicePayment(ctx context.Context, repos *repository.Repositories, starter *PaymentStarter, invoice *entity.Invoice, mode payment.Mode, returnPath string) (*PaymentSession, error) {
	if !invoice.Status.IsPayable() {
		return nil, apperror.NewConflictError("Invoice is not awaiting payment")
	}
	balance, err := invoiceBalance(ctx, repos.Payments, invoice)
	if err != nil {
		return nil, err
	}
	if !balance.IsPositive() {
		return nil, apperror.NewConflictError("Invoice has nothing left to pay")
	}

	settings, err := loadSettings(ctx, repos.Settings, invoice.UserID)
	if err != nil {
		return nil, err
	}
	return starter.Start(ctx, PaymentRequest{
		Mode:        mode,
		Amount:      balance,
		Currency:    settings.Currency,
		Description: "Invoice " + invoice.Number + ": " + invoice.Title,
		Email:       clientEmail(invoice.Client),
		Metadata:    payment.Metadata{Kind: payment.KindInvoice, InvoiceID: invoice.ID},
		ReturnPath:  returnPath,
	})
}

func invoiceBalance(ctx context.Context, repo repository.PaymentRepository, invoice *entity.Invoice) (decimal.Decimal, error) {
	paid, err := repo.SumCompleted(ctx, invoice.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return invoice.AmountDue.Sub(paid), nil
}

// settleInvoice marks a payable invoice paid once completed payments cover
// its amount due. The invoice must be locked by the caller.
func settleInvoice(ctx context.Context, tx *repository.Repositories, invoice *entity.Invoice, actor string, now time.Time) (bool, error) {
	if !invoice.Status.IsPayable() || !invoice.AmountDue.IsPositive() {
		return false, nil
	}
	balance, err := invoiceBalance(ctx, tx.Payments, invoice)
	if err != nil {
		return false, err
	}
	if balance.IsPositive() {
		return false, nil
	}
	return true, markInvoicePaid(ctx, tx, invoice, actor, "", now)
}

func markInvoicePaid(ctx context.Context, tx *repository.Repositories, invoice *entity.Invoice, actor, detail string, now time.Time) error {
	invoice.Status = enum.InvoiceStatusPaid
	invoice.PaidDate = &now
	if err := tx.Invoices.Update(ctx, invoice); err != nil {
		return err
	}
	if detail == "" {
		detail = money(invoice.AmountDue)
	}
	return appendActivity(ctx, tx.Activity, entity.SubjectInvoice, invoice.ID, entity.ActionInvoicePaid, actor, detail, now)
}
