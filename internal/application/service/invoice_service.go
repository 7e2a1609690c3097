package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/sangkips/studio-billing-api/internal/domain/repository"
	"github.com/sangkips/studio-billing-api/internal/infrastructure/cache"
	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/sangkips/studio-billing-api/pkg/pagination"
	"github.com/sangkips/studio-billing-api/pkg/payment"
	"github.com/sangkips/studio-billing-api/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// InvoiceService runs the invoice lifecycle
type InvoiceService struct {
	uow      repository.UnitOfWork
	repos    *repository.Repositories
	notifier *NotificationService
	payments *PaymentStarter
	cache    *cache.Cache
	log      logrus.FieldLogger
	now      Clock
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(
	uow repository.UnitOfWork,
	repos *repository.Repositories,
	notifier *NotificationService,
	payments *PaymentStarter,
	cache *cache.Cache,
	log logrus.FieldLogger,
	now Clock,
) *InvoiceService {
	return &InvoiceService{
		uow:      uow,
		repos:    repos,
		notifier: notifier,
		payments: payments,
		cache:    cache,
		log:      log,
		now:      now,
	}
}

var errInvoiceLocked = apperror.NewConflictError("Invoice is paid or cancelled and can no longer be edited")

// CreateInvoiceInput represents the input for creating an invoice
type CreateInvoiceInput struct {
	UserID   uuid.UUID
	Actor    string
	ClientID uuid.UUID
	Title    string
	DueDate  *time.Time
	TaxRate  *decimal.Decimal
	Notes    *string
	Items    []ItemInput
}

// CreateInvoice creates a draft invoice with its initial items
func (s *InvoiceService) CreateInvoice(ctx context.Context, input *CreateInvoiceInput) (*entity.Invoice, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperror.NewBadRequestError("Invoice title is required")
	}
	if input.TaxRate != nil && input.TaxRate.IsNegative() {
		return nil, apperror.NewBadRequestError("Tax rate must not be negative")
	}

	var invoiceID uuid.UUID
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		client, err := tx.Clients.GetByID(ctx, input.UserID, input.ClientID)
		if err != nil {
			return err
		}
		if client == nil {
			return apperror.NewNotFoundError("Client")
		}
		settings, err := loadSettings(ctx, tx.Settings, input.UserID)
		if err != nil {
			return err
		}
		seq, err := tx.Invoices.NextNumber(ctx, input.UserID)
		if err != nil {
			return err
		}

		invoice := &entity.Invoice{
			UserID:   input.UserID,
			ClientID: client.ID,
			Number:   utils.FormatDocumentNumber("INV", seq),
			Title:    title,
			Status:   enum.InvoiceStatusDraft,
			DueDate:  input.DueDate,
			Notes:    input.Notes,
		}
		invoice.TaxRate = settings.DefaultTaxRate
		if input.TaxRate != nil {
			invoice.TaxRate = *input.TaxRate
		}
		if err := tx.Invoices.Create(ctx, invoice); err != nil {
			return err
		}

		for i := range input.Items {
			if _, err := s.addItem(ctx, tx, invoice, input.Items[i], i); err != nil {
				return err
			}
		}
		if err := recomputeInvoice(ctx, tx, invoice); err != nil {
			return err
		}

		invoiceID = invoice.ID
		return appendActivity(ctx, tx.Activity, entity.SubjectInvoice, invoice.ID, entity.ActionInvoiceCreated, input.Actor, invoice.Number, s.now())
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Invoices.GetByID(ctx, input.UserID, invoiceID)
}

// GetInvoice returns an owned invoice, marking it overdue first when its
// due date has passed
func (s *InvoiceService) GetInvoice(ctx context.Context, userID, id uuid.UUID) (*entity.Invoice, error) {
	invoice, err := s.repos.Invoices.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}
	return s.overdueIfDue(ctx, invoice, func() (*entity.Invoice, error) {
		return s.repos.Invoices.GetByID(ctx, userID, id)
	})
}

func (s *InvoiceService) overdueIfDue(ctx context.Context, invoice *entity.Invoice, reload func() (*entity.Invoice, error)) (*entity.Invoice, error) {
	if !invoice.IsOverdueAt(s.now()) {
		return invoice, nil
	}
	if _, err := s.markOverdue(ctx, invoice.ID); err != nil {
		return nil, err
	}
	return reload()
}

func (s *InvoiceService) markOverdue(ctx context.Context, id uuid.UUID) (bool, error) {
	var flipped bool
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		invoice, err := tx.Invoices.FindForUpdate(ctx, id)
		if err != nil || invoice == nil {
			return err
		}
		now := s.now()
		if !invoice.IsOverdueAt(now) {
			return nil
		}
		invoice.Status = enum.InvoiceStatusOverdue
		if err := tx.Invoices.Update(ctx, invoice); err != nil {
			return err
		}
		flipped = true
		detail := "due " + invoice.DueDate.Format(time.DateOnly)
		return appendActivity(ctx, tx.Activity, entity.SubjectInvoice, invoice.ID, entity.ActionInvoiceOverdue, entity.ActorSystem, detail, now)
	})
	return flipped, err
}

// MarkOverdue sweeps sent invoices past their due date. A nil userID
// sweeps every studio.
func (s *InvoiceService) MarkOverdue(ctx context.Context, userID *uuid.UUID) (int, error) {
	due, err := s.repos.Invoices.ListOverdue(ctx, userID, s.now())
	if err != nil {
		return 0, err
	}

	count := 0
	for _, inv := range due {
		flipped, err := s.markOverdue(ctx, inv.ID)
		if err != nil {
			return count, err
		}
		if flipped {
			count++
		}
	}
	return count, nil
}

// ListInvoicesInput represents the input for listing invoices
type ListInvoicesInput struct {
	UserID     uuid.UUID
	Pagination *pagination.PaginationParams
	Filter     repository.InvoiceFilter
}

// ListInvoices lists invoices after marking any that are overdue
func (s *InvoiceService) ListInvoices(ctx context.Context, input *ListInvoicesInput) (*pagination.PaginatedResult[entity.Invoice], error) {
	if _, err := s.MarkOverdue(ctx, &input.UserID); err != nil {
		return nil, err
	}

	invoices, total, err := s.repos.Invoices.List(ctx, input.UserID, input.Filter, input.Pagination)
	if err != nil {
		return nil, err
	}

	return pagination.NewResult(invoices, total, input.Pagination), nil
}

// UpdateInvoiceInput represents the input for updating an invoice header
type UpdateInvoiceInput struct {
	UserID   uuid.UUID
	ID       uuid.UUID
	ClientID *uuid.UUID
	Title    *string
	DueDate  *time.Time
	TaxRate  *decimal.Decimal
	Notes    *string
}

// UpdateInvoice updates header fields. A tax rate change recomputes totals.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, input *UpdateInvoiceInput) (*entity.Invoice, error) {
	return s.mutate(ctx, input.UserID, input.ID, func(tx *repository.Repositories, invoice *entity.Invoice) error {
		if input.ClientID != nil {
			client, err := tx.Clients.GetByID(ctx, input.UserID, *input.ClientID)
			if err != nil {
				return err
			}
			if client == nil {
				return apperror.NewNotFoundError("Client")
			}
			invoice.ClientID = client.ID
		}
		if input.Title != nil {
			title := strings.TrimSpace(*input.Title)
			if title == "" {
				return apperror.NewBadRequestError("Invoice title is required")
			}
			invoice.Title = title
		}
		if input.DueDate != nil {
			invoice.DueDate = input.DueDate
		}
		if input.TaxRate != nil {
			if input.TaxRate.IsNegative() {
				return apperror.NewBadRequestError("Tax rate must not be negative")
			}
			invoice.TaxRate = *input.TaxRate
		}
		if input.Notes != nil {
			invoice.Notes = input.Notes
		}
		return nil
	})
}

// DeleteInvoice deletes a draft or cancelled invoice
func (s *InvoiceService) DeleteInvoice(ctx context.Context, userID, id uuid.UUID) error {
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		invoice, err := tx.Invoices.GetForUpdate(ctx, userID, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return apperror.NewNotFoundError("Invoice")
		}
		if invoice.Status != enum.InvoiceStatusDraft && invoice.Status != enum.InvoiceStatusCancelled {
			return apperror.NewConflictError("Only draft or cancelled invoices can be deleted")
		}
		return tx.Invoices.Delete(ctx, userID, id)
	})
	if err == nil {
		invalidateAnalytics(ctx, s.cache, userID)
	}
	return err
}

func (s *InvoiceService) mutate(ctx context.Context, userID, id uuid.UUID, fn func(tx *repository.Repositories, invoice *entity.Invoice) error) (*entity.Invoice, error) {
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		invoice, err := tx.Invoices.GetForUpdate(ctx, userID, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return apperror.NewNotFoundError("Invoice")
		}
		if invoice.Status.IsTerminal() {
			return errInvoiceLocked
		}
		if err := fn(tx, invoice); err != nil {
			return err
		}
		if err := recomputeInvoice(ctx, tx, invoice); err != nil {
			return err
		}
		_, err = settleInvoice(ctx, tx, invoice, entity.ActorSystem, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	invalidateAnalytics(ctx, s.cache, userID)
	return s.repos.Invoices.GetByID(ctx, userID, id)
}

func recomputeInvoice(ctx context.Context, tx *repository.Repositories, invoice *entity.Invoice) error {
	items, err := tx.Invoices.ListItems(ctx, invoice.ID)
	if err != nil {
		return err
	}
	contractors, err := tx.Invoices.ListContractors(ctx, invoice.ID)
	if err != nil {
		return err
	}
	invoice.Recompute(items, contractors)
	return tx.Invoices.Update(ctx, invoice)
}

func (s *InvoiceService) addItem(ctx context.Context, tx *repository.Repositories, invoice *entity.Invoice, in ItemInput, nextSort int) (*entity.InvoiceItem, error) {
	if err := prefillFromTemplate(ctx, tx.Templates, invoice.UserID, &in); err != nil {
		return nil, err
	}
	if in.ContractorID != nil {
		if _, err := loadOwnedContractor(ctx, tx.Contractors, invoice.UserID, *in.ContractorID); err != nil {
			return nil, err
		}
	}
	f, err := in.fields(nextSort)
	if err != nil {
		return nil, err
	}

	item := &entity.InvoiceItem{
		InvoiceID:         invoice.ID,
		ServiceName:       f.ServiceName,
		Description:       f.Description,
		Quantity:          f.Quantity,
		UnitPrice:         f.UnitPrice,
		Total:             f.Total,
		Taxable:           f.Taxable,
		ContractorID:      in.ContractorID,
		ServiceTemplateID: in.ServiceTemplateID,
		SortOrder:         f.SortOrder,
	}
	return item, tx.Invoices.CreateItem(ctx, item)
}

// AddItem adds a line item and recomputes the invoice totals
func (s *InvoiceService) AddItem(ctx context.Context, userID, invoiceID uuid.UUID, in ItemInput) (*entity.Invoice, error) {
	return s.mutate(ctx, userID, invoiceID, func(tx *repository.Repositories, invoice *entity.Invoice) error {
		existing, err := tx.Invoices.ListItems(ctx, invoice.ID)
		if err != nil {
			return err
		}
		_, err = s.addItem(ctx, tx, invoice, in, len(existing))
		return err
	})
}

// UpdateItem changes a line item and recomputes the invoice totals
func (s *InvoiceService) UpdateItem(ctx context.Context, userID, invoiceID, itemID uuid.UUID, patch ItemPatch) (*entity.Invoice, error) {
	return s.mutate(ctx, userID, invoiceID, func(tx *repository.Repositories, invoice *entity.Invoice) error {
		item, err := tx.Invoices.GetItem(ctx, invoice.ID, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return apperror.NewNotFoundError("Invoice item")
		}

		f, err := patch.apply(lineFields{
			ServiceName: item.ServiceName,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
			Taxable:     item.Taxable,
			SortOrder:   item.SortOrder,
		})
		if err != nil {
			return err
		}
		item.ServiceName = f.ServiceName
		item.Description = f.Description
		item.Quantity = f.Quantity
		item.UnitPrice = f.UnitPrice
		item.Total = f.Total
		item.Taxable = f.Taxable
		item.SortOrder = f.SortOrder
		return tx.Invoices.UpdateItem(ctx, item)
	})
}

// DeleteItem removes a line item and recomputes the invoice totals
func (s *InvoiceService) DeleteItem(ctx context.Context, userID, invoiceID, itemID uuid.UUID) (*entity.Invoice, error) {
	return s.mutate(ctx, userID, invoiceID, func(tx *repository.Repositories, invoice *entity.Invoice) error {
		item, err := tx.Invoices.GetItem(ctx, invoice.ID, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return apperror.NewNotFoundError("Invoice item")
		}
		return tx.Invoices.DeleteItem(ctx, invoice.ID, itemID)
	})
}

// AssignContractor adds a contractor to the invoice
func (s *InvoiceService) AssignContractor(ctx context.Context, userID, invoiceID uuid.UUID, in AssignmentInput) (*entity.Invoice, error) {
	return s.mutate(ctx, userID, invoiceID, func(tx *repository.Repositories, invoice *entity.Invoice) error {
		contractor, err := loadOwnedContractor(ctx, tx.Contractors, userID, in.ContractorID)
		if err != nil {
			return err
		}
		existing, err := tx.Invoices.GetContractor(ctx, invoice.ID, contractor.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.NewConflictError("Contractor is already assigned to this invoice")
		}

		f, err := in.fields(contractor)
		if err != nil {
			return err
		}
		return tx.Invoices.CreateContractor(ctx, &entity.InvoiceContractor{
			InvoiceID:      invoice.ID,
			ContractorID:   contractor.ID,
			Skills:         f.Skills,
			RateType:       f.RateType,
			Rate:           f.Rate,
			Hours:          f.Hours,
			Cost:           f.Cost,
			IncludeInTotal: f.IncludeInTotal,
		})
	})
}

// UpdateAssignment changes a contractor assignment. Separately billed
// assignments are frozen.
func (s *InvoiceService) UpdateAssignment(ctx context.Context, userID, invoiceID, contractorID uuid.UUID, patch AssignmentPatch) (*entity.Invoice, error) {
	return s.mutate(ctx, userID, invoiceID, func(tx *repository.Repositories, invoice *entity.Invoice) error {
		a, err := tx.Invoices.GetContractor(ctx, invoice.ID, contractorID)
		if err != nil {
			return err
		}
		if a == nil || a.Contractor == nil {
			return apperror.NewNotFoundError("Contractor assignment")
		}
		if a.BilledSeparately {
			return apperror.NewConflictError("Contractor fee is billed separately and can no longer be edited")
		}

		f, err := patch.apply(assignmentFields{
			Skills:         a.Skills,
			RateType:       a.RateType,
			Rate:           a.Rate,
			Hours:          a.Hours,
			Cost:           a.Cost,
			IncludeInTotal: a.IncludeInTotal,
		}, a.Contractor)
		if err != nil {
			return err
		}
		a.Skills = f.Skills
		a.RateType = f.RateType
		a.Rate = f.Rate
		a.Hours = f.Hours
		a.Cost = f.Cost
		a.IncludeInTotal = f.IncludeInTotal
		return tx.Invoices.UpdateContractor(ctx, a)
	})
}

// RemoveContractor removes a contractor assignment from the invoice
func (s *InvoiceService) RemoveContractor(ctx context.Context, userID, invoiceID, contractorID uuid.UUID) (*entity.Invoice, error) {
	return s.mutate(ctx, userID, invoiceID, func(tx *repository.Repositories, invoice *entity.Invoice) error {
		a, err := tx.Invoices.GetContractor(ctx, invoice.ID, contractorID)
		if err != nil {
			return err
		}
		if a == nil {
			return apperror.NewNotFoundError("Contractor assignment")
		}
		if a.BilledSeparately {
			return apperror.NewConflictError("Contractor fee is billed separately and cannot be removed")
		}
		return tx.Invoices.DeleteContractor(ctx, invoice.ID, contractorID)
	})
}

// SendInvoiceInput represents the input for sending an invoice
type SendInvoiceInput struct {
	UserID  uuid.UUID
	ID      uuid.UUID
	Actor   string
	DueDate *time.Time
}

// InvoiceSendResult reports the sent invoice and whether the email went out
type InvoiceSendResult struct {
	Invoice   *entity.Invoice `json:"invoice"`
	EmailSent bool            `json:"email_sent"`
}

// SendInvoice issues a draft invoice or resends a sent or overdue one
func (s *InvoiceService) SendInvoice(ctx context.Context, input *SendInvoiceInput) (*InvoiceSendResult, error) {
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		invoice, err := tx.Invoices.GetForUpdate(ctx, input.UserID, input.ID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return apperror.NewNotFoundError("Invoice")
		}
		if !invoice.Status.CanTransitionTo(enum.InvoiceStatusSent) {
			return apperror.NewConflictError("Invoice cannot be sent while " + invoice.Status.String())
		}

		settings, err := loadSettings(ctx, tx.Settings, input.UserID)
		if err != nil {
			return err
		}
		now := s.now()

		dueDate := input.DueDate
		if dueDate == nil {
			dueDate = invoice.DueDate
		}
		if dueDate == nil {
			d := daysFrom(now, settings.PaymentTermsDays)
			dueDate = &d
		}

		if invoice.PaymentToken == nil {
			token, err := utils.GeneratePossessionToken()
			if err != nil {
				return err
			}
			invoice.PaymentToken = &token
		}
		invoice.DueDate = dueDate
		invoice.Status = enum.InvoiceStatusSent
		if invoice.IsOverdueAt(now) {
			invoice.Status = enum.InvoiceStatusOverdue
		}
		if invoice.IssuedAt == nil {
			invoice.IssuedAt = &now
		}
		if err := tx.Invoices.Update(ctx, invoice); err != nil {
			return err
		}

		detail := "due " + dueDate.Format(time.DateOnly)
		return appendActivity(ctx, tx.Activity, entity.SubjectInvoice, invoice.ID, entity.ActionInvoiceSent, input.Actor, detail, now)
	})
	if err != nil {
		return nil, err
	}
	invalidateAnalytics(ctx, s.cache, input.UserID)

	invoice, err := s.repos.Invoices.GetByID(ctx, input.UserID, input.ID)
	if err != nil {
		return nil, err
	}
	result := &InvoiceSendResult{Invoice: invoice}

	settings, err := loadSettings(ctx, s.repos.Settings, input.UserID)
	if err != nil {
		return nil, err
	}
	if settings.EmailNotifications {
		result.EmailSent = s.notifier.bestEffort("SendInvoice", invoice.ID, s.notifier.SendInvoice(ctx, settings, invoice))
	}
	return result, nil
}

// EmailInvoice re-sends the invoice email without changing state
func (s *InvoiceService) EmailInvoice(ctx context.Context, userID, id uuid.UUID) error {
	invoice, err := s.GetInvoice(ctx, userID, id)
	if err != nil {
		return err
	}
	if invoice.PaymentToken == nil {
		return apperror.NewConflictError("Invoice has not been sent yet")
	}
	settings, err := loadSettings(ctx, s.repos.Settings, userID)
	if err != nil {
		return err
	}
	return s.notifier.SendInvoice(ctx, settings, invoice)
}

// CancelInvoice cancels an invoice that is not yet paid
func (s *InvoiceService) CancelInvoice(ctx context.Context, userID, id uuid.UUID, actor, reason string) (*entity.Invoice, error) {
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		invoice, err := tx.Invoices.GetForUpdate(ctx, userID, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return apperror.NewNotFoundError("Invoice")
		}
		if !invoice.Status.CanTransitionTo(enum.InvoiceStatusCancelled) {
			return apperror.NewConflictError("Invoice cannot be cancelled while " + invoice.Status.String())
		}

		now := s.now()
		invoice.Status = enum.InvoiceStatusCancelled
		invoice.CancelledAt = &now
		if err := tx.Invoices.Update(ctx, invoice); err != nil {
			return err
		}
		return appendActivity(ctx, tx.Activity, entity.SubjectInvoice, invoice.ID, entity.ActionInvoiceCancelled, actor, strings.TrimSpace(reason), now)
	})
	if err != nil {
		return nil, err
	}
	invalidateAnalytics(ctx, s.cache, userID)
	return s.repos.Invoices.GetByID(ctx, userID, id)
}

// Activity returns the invoice's activity log, oldest first
func (s *InvoiceService) Activity(ctx context.Context, userID, id uuid.UUID) ([]entity.ActivityEntry, error) {
	if _, err := s.GetInvoice(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.repos.Activity.List(ctx, entity.SubjectInvoice, id)
}

func (s *InvoiceService) invoiceByToken(ctx context.Context, id uuid.UUID, token string) (*entity.Invoice, error) {
	if token == "" {
		return nil, apperror.NewNotFoundError("Invoice")
	}
	invoice, err := s.repos.Invoices.GetByPaymentToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if invoice == nil || invoice.ID != id {
		return nil, apperror.NewNotFoundError("Invoice")
	}
	return s.overdueIfDue(ctx, invoice, func() (*entity.Invoice, error) {
		return s.repos.Invoices.GetByPaymentToken(ctx, token)
	})
}

// PublicInvoice is what a client sees through their payment link
type PublicInvoice struct {
	Invoice  *entity.Invoice
	Balance  decimal.Decimal
	Settings *entity.UserSettings
}

// GetPublicInvoice returns the invoice behind a payment token
func (s *InvoiceService) GetPublicInvoice(ctx context.Context, id uuid.UUID, token string) (*PublicInvoice, error) {
	invoice, err := s.invoiceByToken(ctx, id, token)
	if err != nil {
		return nil, err
	}
	balance, err := invoiceBalance(ctx, s.repos.Payments, invoice)
	if err != nil {
		return nil, err
	}
	settings, err := loadSettings(ctx, s.repos.Settings, invoice.UserID)
	if err != nil {
		return nil, err
	}
	return &PublicInvoice{Invoice: invoice, Balance: decimal.Max(balance, decimal.Zero), Settings: settings}, nil
}

// StartPayment opens a processor payment for the outstanding balance
func (s *InvoiceService) StartPayment(ctx context.Context, id uuid.UUID, token string, mode payment.Mode) (*PaymentSession, error) {
	invoice, err := s.invoiceByToken(ctx, id, token)
	if err != nil {
		return nil, err
	}
	return startInvoicePayment(ctx, s.repos, s.payments, invoice, mode, s.notifier.InvoiceLink(invoice.ID, token))
}
