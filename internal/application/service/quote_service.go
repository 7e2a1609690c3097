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

// QuoteService runs the quote lifecycle: drafting, totals, sending,
// expiry, client rejection and payment sessions.
type QuoteService struct {
	uow      repository.UnitOfWork
	repos    *repository.Repositories
	notifier *NotificationService
	payments *PaymentStarter
	cache    *cache.Cache
	log      logrus.FieldLogger
	now      Clock
}

// NewQuoteService creates a new quote service
func NewQuoteService(
	uow repository.UnitOfWork,
	repos *repository.Repositories,
	notifier *NotificationService,
	payments *PaymentStarter,
	cache *cache.Cache,
	log logrus.FieldLogger,
	now Clock,
) *QuoteService {
	return &QuoteService{
		uow:      uow,
		repos:    repos,
		notifier: notifier,
		payments: payments,
		cache:    cache,
		log:      log,
		now:      now,
	}
}

var errQuoteLocked = apperror.NewConflictError("Quote is approved or rejected and can no longer be edited")

// CreateQuoteInput represents the input for creating a quote
type CreateQuoteInput struct {
	UserID     uuid.UUID
	Actor      string
	ClientID   uuid.UUID
	Title      string
	ValidUntil *time.Time
	TaxRate    *decimal.Decimal
	Notes      *string
	Items      []ItemInput
}

// CreateQuote creates a draft quote with its initial items
func (s *QuoteService) CreateQuote(ctx context.Context, input *CreateQuoteInput) (*entity.Quote, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperror.NewBadRequestError("Quote title is required")
	}
	if input.TaxRate != nil && input.TaxRate.IsNegative() {
		return nil, apperror.NewBadRequestError("Tax rate must not be negative")
	}

	var quoteID uuid.UUID
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

		seq, err := tx.Quotes.NextNumber(ctx, input.UserID)
		if err != nil {
			return err
		}

		quote := &entity.Quote{
			UserID:     input.UserID,
			ClientID:   client.ID,
			Number:     utils.FormatDocumentNumber("Q", seq),
			Title:      title,
			Status:     enum.QuoteStatusDraft,
			ValidUntil: input.ValidUntil,
			Notes:      input.Notes,
		}
		quote.TaxRate = settings.DefaultTaxRate
		if input.TaxRate != nil {
			quote.TaxRate = *input.TaxRate
		}
		if err := tx.Quotes.Create(ctx, quote); err != nil {
			return err
		}

		for i := range input.Items {
			if _, err := s.addItem(ctx, tx, quote, input.Items[i], i); err != nil {
				return err
			}
		}
		if err := recomputeQuote(ctx, tx, quote); err != nil {
			return err
		}

		quoteID = quote.ID
		return appendActivity(ctx, tx.Activity, entity.SubjectQuote, quote.ID, entity.ActionQuoteCreated, input.Actor, quote.Number, s.now())
	})
	if err != nil {
		return nil, err
	}

	return s.repos.Quotes.GetByID(ctx, input.UserID, quoteID)
}

// GetQuote returns an owned quote, expiring it first when its validity
// has passed
func (s *QuoteService) GetQuote(ctx context.Context, userID, id uuid.UUID) (*entity.Quote, error) {
	quote, err := s.repos.Quotes.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, apperror.NewNotFoundError("Quote")
	}
	return s.expireIfDue(ctx, quote, func() (*entity.Quote, error) {
		return s.repos.Quotes.GetByID(ctx, userID, id)
	})
}

func (s *QuoteService) expireIfDue(ctx context.Context, quote *entity.Quote, reload func() (*entity.Quote, error)) (*entity.Quote, error) {
	if !quote.IsExpiredAt(s.now()) {
		return quote, nil
	}
	if _, err := s.expire(ctx, quote.ID); err != nil {
		return nil, err
	}
	return reload()
}

// expire flips one sent quote past its validity to expired
func (s *QuoteService) expire(ctx context.Context, id uuid.UUID) (bool, error) {
	var expired bool
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		quote, err := tx.Quotes.FindForUpdate(ctx, id)
		if err != nil || quote == nil {
			return err
		}
		now := s.now()
		if !quote.IsExpiredAt(now) {
			return nil
		}
		if err := markQuoteExpired(ctx, tx, quote, now); err != nil {
			return err
		}
		expired = true
		return nil
	})
	return expired, err
}

func markQuoteExpired(ctx context.Context, tx *repository.Repositories, quote *entity.Quote, now time.Time) error {
	quote.Status = enum.QuoteStatusExpired
	if err := tx.Quotes.Update(ctx, quote); err != nil {
		return err
	}
	detail := "valid until " + quote.ValidUntil.Format(time.DateOnly)
	return appendActivity(ctx, tx.Activity, entity.SubjectQuote, quote.ID, entity.ActionQuoteExpired, entity.ActorSystem, detail, now)
}

// ExpireQuotes sweeps sent quotes whose validity has passed. A nil userID
// sweeps every studio.
func (s *QuoteService) ExpireQuotes(ctx context.Context, userID *uuid.UUID) (int, error) {
	due, err := s.repos.Quotes.ListExpired(ctx, userID, s.now())
	if err != nil {
		return 0, err
	}

	count := 0
	for _, q := range due {
		expired, err := s.expire(ctx, q.ID)
		if err != nil {
			return count, err
		}
		if expired {
			count++
		}
	}
	return count, nil
}

// ListQuotesInput represents the input for listing quotes
type ListQuotesInput struct {
	UserID     uuid.UUID
	Pagination *pagination.PaginationParams
	Filter     repository.QuoteFilter
}

// ListQuotes lists quotes after expiring any that are due
func (s *QuoteService) ListQuotes(ctx context.Context, input *ListQuotesInput) (*pagination.PaginatedResult[entity.Quote], error) {
	if _, err := s.ExpireQuotes(ctx, &input.UserID); err != nil {
		return nil, err
	}

	quotes, total, err := s.repos.Quotes.List(ctx, input.UserID, input.Filter, input.Pagination)
	if err != nil {
		return nil, err
	}

	return pagination.NewResult(quotes, total, input.Pagination), nil
}

// UpdateQuoteInput represents the input for updating a quote header
type UpdateQuoteInput struct {
	UserID     uuid.UUID
	ID         uuid.UUID
	ClientID   *uuid.UUID
	Title      *string
	ValidUntil *time.Time
	TaxRate    *decimal.Decimal
	Notes      *string
}

// UpdateQuote updates header fields. A tax rate change recomputes totals.
func (s *QuoteService) UpdateQuote(ctx context.Context, input *UpdateQuoteInput) (*entity.Quote, error) {
	return s.mutate(ctx, input.UserID, input.ID, func(tx *repository.Repositories, quote *entity.Quote) error {
		if input.ClientID != nil {
			client, err := tx.Clients.GetByID(ctx, input.UserID, *input.ClientID)
			if err != nil {
				return err
			}
			if client == nil {
				return apperror.NewNotFoundError("Client")
			}
			quote.ClientID = client.ID
		}
		if input.Title != nil {
			title := strings.TrimSpace(*input.Title)
			if title == "" {
				return apperror.NewBadRequestError("Quote title is required")
			}
			quote.Title = title
		}
		if input.ValidUntil != nil {
			quote.ValidUntil = input.ValidUntil
		}
		if input.TaxRate != nil {
			if input.TaxRate.IsNegative() {
				return apperror.NewBadRequestError("Tax rate must not be negative")
			}
			quote.TaxRate = *input.TaxRate
		}
		if input.Notes != nil {
			quote.Notes = input.Notes
		}
		return nil
	})
}

// DeleteQuote deletes a quote that has not been approved
func (s *QuoteService) DeleteQuote(ctx context.Context, userID, id uuid.UUID) error {
	return s.uow.Do(ctx, func(tx *repository.Repositories) error {
		quote, err := tx.Quotes.GetForUpdate(ctx, userID, id)
		if err != nil {
			return err
		}
		if quote == nil {
			return apperror.NewNotFoundError("Quote")
		}
		if quote.Status == enum.QuoteStatusApproved {
			return apperror.NewConflictError("Approved quotes cannot be deleted")
		}
		return tx.Quotes.Delete(ctx, userID, id)
	})
}

// mutate locks the quote header, applies fn and recomputes totals in one
// transaction
func (s *QuoteService) mutate(ctx context.Context, userID, id uuid.UUID, fn func(tx *repository.Repositories, quote *entity.Quote) error) (*entity.Quote, error) {
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		quote, err := tx.Quotes.GetForUpdate(ctx, userID, id)
		if err != nil {
			return err
		}
		if quote == nil {
			return apperror.NewNotFoundError("Quote")
		}
		if quote.Status.IsTerminal() {
			return errQuoteLocked
		}
		if now := s.now(); quote.IsExpiredAt(now) {
			if err := markQuoteExpired(ctx, tx, quote, now); err != nil {
				return err
			}
		}
		if err := fn(tx, quote); err != nil {
			return err
		}
		return recomputeQuote(ctx, tx, quote)
	})
	if err != nil {
		return nil, err
	}
	invalidateAnalytics(ctx, s.cache, userID)
	return s.repos.Quotes.GetByID(ctx, userID, id)
}

func recomputeQuote(ctx context.Context, tx *repository.Repositories, quote *entity.Quote) error {
	items, err := tx.Quotes.ListItems(ctx, quote.ID)
	if err != nil {
		return err
	}
	contractors, err := tx.Quotes.ListContractors(ctx, quote.ID)
	if err != nil {
		return err
	}
	quote.Recompute(items, contractors)
	return tx.Quotes.Update(ctx, quote)
}

func (s *QuoteService) addItem(ctx context.Context, tx *repository.Repositories, quote *entity.Quote, in ItemInput, nextSort int) (*entity.QuoteItem, error) {
	if err := prefillFromTemplate(ctx, tx.Templates, quote.UserID, &in); err != nil {
		return nil, err
	}
	if in.ContractorID != nil {
		if _, err := loadOwnedContractor(ctx, tx.Contractors, quote.UserID, *in.ContractorID); err != nil {
			return nil, err
		}
	}
	f, err := in.fields(nextSort)
	if err != nil {
		return nil, err
	}

	item := &entity.QuoteItem{
		QuoteID:           quote.ID,
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
	return item, tx.Quotes.CreateItem(ctx, item)
}

// AddItem adds a line item and recomputes the quote totals
func (s *QuoteService) AddItem(ctx context.Context, userID, quoteID uuid.UUID, in ItemInput) (*entity.Quote, error) {
	return s.mutate(ctx, userID, quoteID, func(tx *repository.Repositories, quote *entity.Quote) error {
		existing, err := tx.Quotes.ListItems(ctx, quote.ID)
		if err != nil {
			return err
		}
		_, err = s.addItem(ctx, tx, quote, in, len(existing))
		return err
	})
}

// UpdateItem changes a line item and recomputes the quote totals
func (s *QuoteService) UpdateItem(ctx context.Context, userID, quoteID, itemID uuid.UUID, patch ItemPatch) (*entity.Quote, error) {
	return s.mutate(ctx, userID, quoteID, func(tx *repository.Repositories, quote *entity.Quote) error {
		item, err := tx.Quotes.GetItem(ctx, quote.ID, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return apperror.NewNotFoundError("Quote item")
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
		return tx.Quotes.UpdateItem(ctx, item)
	})
}

// DeleteItem removes a line item and recomputes the quote totals
func (s *QuoteService) DeleteItem(ctx context.Context, userID, quoteID, itemID uuid.UUID) (*entity.Quote, error) {
	return s.mutate(ctx, userID, quoteID, func(tx *repository.Repositories, quote *entity.Quote) error {
		item, err := tx.Quotes.GetItem(ctx, quote.ID, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return apperror.NewNotFoundError("Quote item")
		}
		return tx.Quotes.DeleteItem(ctx, quote.ID, itemID)
	})
}

func quoteAssignmentFields(a *entity.QuoteContractor) assignmentFields {
	return assignmentFields{
		Skills:         a.Skills,
		RateType:       a.RateType,
		Rate:           a.Rate,
		Hours:          a.Hours,
		Cost:           a.Cost,
		IncludeInTotal: a.IncludeInTotal,
	}
}

// AssignContractor adds a contractor to the quote
func (s *QuoteService) AssignContractor(ctx context.Context, userID, quoteID uuid.UUID, in AssignmentInput) (*entity.Quote, error) {
	return s.mutate(ctx, userID, quoteID, func(tx *repository.Repositories, quote *entity.Quote) error {
		contractor, err := loadOwnedContractor(ctx, tx.Contractors, userID, in.ContractorID)
		if err != nil {
			return err
		}
		existing, err := tx.Quotes.GetContractor(ctx, quote.ID, contractor.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.NewConflictError("Contractor is already assigned to this quote")
		}

		f, err := in.fields(contractor)
		if err != nil {
			return err
		}
		return tx.Quotes.CreateContractor(ctx, &entity.QuoteContractor{
			QuoteID:        quote.ID,
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

// UpdateAssignment changes a contractor assignment on the quote
func (s *QuoteService) UpdateAssignment(ctx context.Context, userID, quoteID, contractorID uuid.UUID, patch AssignmentPatch) (*entity.Quote, error) {
	return s.mutate(ctx, userID, quoteID, func(tx *repository.Repositories, quote *entity.Quote) error {
		a, err := tx.Quotes.GetContractor(ctx, quote.ID, contractorID)
		if err != nil {
			return err
		}
		if a == nil || a.Contractor == nil {
			return apperror.NewNotFoundError("Contractor assignment")
		}

		f, err := patch.apply(quoteAssignmentFields(a), a.Contractor)
		if err != nil {
			return err
		}
		a.Skills = f.Skills
		a.RateType = f.RateType
		a.Rate = f.Rate
		a.Hours = f.Hours
		a.Cost = f.Cost
		a.IncludeInTotal = f.IncludeInTotal
		return tx.Quotes.UpdateContractor(ctx, a)
	})
}

// RemoveContractor removes a contractor assignment from the quote
func (s *QuoteService) RemoveContractor(ctx context.Context, userID, quoteID, contractorID uuid.UUID) (*entity.Quote, error) {
	return s.mutate(ctx, userID, quoteID, func(tx *repository.Repositories, quote *entity.Quote) error {
		a, err := tx.Quotes.GetContractor(ctx, quote.ID, contractorID)
		if err != nil {
			return err
		}
		if a == nil {
			return apperror.NewNotFoundError("Contractor assignment")
		}
		return tx.Quotes.DeleteContractor(ctx, quote.ID, contractorID)
	})
}

// SendQuoteInput represents the input for sending a quote
type SendQuoteInput struct {
	UserID     uuid.UUID
	ID         uuid.UUID
	Actor      string
	ValidUntil *time.Time
}

// QuoteSendResult reports the sent quote and whether the email went out
type QuoteSendResult struct {
	Quote     *entity.Quote `json:"quote"`
	EmailSent bool          `json:"email_sent"`
}

// SendQuote moves a draft, sent or expired quote to sent with a validity
// date in the future and emails the client. The email is best-effort.
func (s *QuoteService) SendQuote(ctx context.Context, input *SendQuoteInput) (*QuoteSendResult, error) {
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		quote, err := tx.Quotes.GetForUpdate(ctx, input.UserID, input.ID)
		if err != nil {
			return err
		}
		if quote == nil {
			return apperror.NewNotFoundError("Quote")
		}

		now := s.now()
		if quote.IsExpiredAt(now) {
			if err := markQuoteExpired(ctx, tx, quote, now); err != nil {
				return err
			}
		}
		if !quote.Status.CanTransitionTo(enum.QuoteStatusSent) {
			return apperror.NewConflictError("Quote cannot be sent while " + quote.Status.String())
		}

		settings, err := loadSettings(ctx, tx.Settings, input.UserID)
		if err != nil {
			return err
		}

		validUntil := input.ValidUntil
		if validUntil == nil {
			if quote.ValidUntil != nil && quote.ValidUntil.After(now) {
				validUntil = quote.ValidUntil
			} else {
				d := daysFrom(now, settings.QuoteValidityDays)
				validUntil = &d
			}
		}
		if !validUntil.After(now) {
			return apperror.NewBadRequestError("Valid until must be in the future")
		}

		action := entity.ActionQuoteSent
		if quote.Status != enum.QuoteStatusDraft {
			action = entity.ActionQuoteResent
		}
		if quote.ApprovalToken == nil {
			token, err := utils.GeneratePossessionToken()
			if err != nil {
				return err
			}
			quote.ApprovalToken = &token
		}
		quote.Status = enum.QuoteStatusSent
		quote.ValidUntil = validUntil
		quote.SentAt = &now
		if err := tx.Quotes.Update(ctx, quote); err != nil {
			return err
		}

		detail := "valid until " + validUntil.Format(time.DateOnly)
		return appendActivity(ctx, tx.Activity, entity.SubjectQuote, quote.ID, action, input.Actor, detail, now)
	})
	if err != nil {
		return nil, err
	}
	invalidateAnalytics(ctx, s.cache, input.UserID)

	quote, err := s.repos.Quotes.GetByID(ctx, input.UserID, input.ID)
	if err != nil {
		return nil, err
	}
	result := &QuoteSendResult{Quote: quote}

	settings, err := loadSettings(ctx, s.repos.Settings, input.UserID)
	if err != nil {
		return nil, err
	}
	if settings.EmailNotifications {
		result.EmailSent = s.notifier.bestEffort("SendQuote", quote.ID, s.notifier.SendQuote(ctx, settings, quote))
	}
	return result, nil
}

// EmailQuote re-sends the quote email without changing state. Mail errors
// are returned to the caller.
func (s *QuoteService) EmailQuote(ctx context.Context, userID, id uuid.UUID) error {
	quote, err := s.GetQuote(ctx, userID, id)
	if err != nil {
		return err
	}
	if quote.ApprovalToken == nil {
		return apperror.NewConflictError("Quote has not been sent yet")
	}
	settings, err := loadSettings(ctx, s.repos.Settings, userID)
	if err != nil {
		return err
	}
	return s.notifier.SendQuote(ctx, settings, quote)
}

// Activity returns the quote's activity log, oldest first
func (s *QuoteService) Activity(ctx context.Context, userID, id uuid.UUID) ([]entity.ActivityEntry, error) {
	if _, err := s.GetQuote(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.repos.Activity.List(ctx, entity.SubjectQuote, id)
}

// quoteByToken resolves a client possession token. Any mismatch is
// reported as not found.
func (s *QuoteService) quoteByToken(ctx context.Context, id uuid.UUID, token string) (*entity.Quote, error) {
	if token == "" {
		return nil, apperror.NewNotFoundError("Quote")
	}
	quote, err := s.repos.Quotes.GetByApprovalToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if quote == nil || quote.ID != id {
		return nil, apperror.NewNotFoundError("Quote")
	}
	return s.expireIfDue(ctx, quote, func() (*entity.Quote, error) {
		return s.repos.Quotes.GetByApprovalToken(ctx, token)
	})
}

// PublicQuote is what a client sees through their approval link
type PublicQuote struct {
	Quote    *entity.Quote
	Settings *entity.UserSettings
}

// GetPublicQuote returns the quote behind a possession token
func (s *QuoteService) GetPublicQuote(ctx context.Context, id uuid.UUID, token string) (*PublicQuote, error) {
	quote, err := s.quoteByToken(ctx, id, token)
	if err != nil {
		return nil, err
	}
	settings, err := loadSettings(ctx, s.repos.Settings, quote.UserID)
	if err != nil {
		return nil, err
	}
	return &PublicQuote{Quote: quote, Settings: settings}, nil
}

// RejectQuoteInput represents a client's rejection
type RejectQuoteInput struct {
	ID       uuid.UUID
	Token    string
	Feedback string
}

// RejectionResult reports the rejected quote and which emails went out
type RejectionResult struct {
	Quote     *entity.Quote `json:"-"`
	AckSent   bool          `json:"acknowledgment_sent"`
	AlertSent bool          `json:"admin_alert_sent"`
}

// RejectQuote records the client declining a sent quote. With feedback
// the client gets an acknowledgment and the studio an alert, each
// best-effort.
func (s *QuoteService) RejectQuote(ctx context.Context, input *RejectQuoteInput) (*RejectionResult, error) {
	quote, err := s.quoteByToken(ctx, input.ID, input.Token)
	if err != nil {
		return nil, err
	}
	feedback := strings.TrimSpace(input.Feedback)

	err = s.uow.Do(ctx, func(tx *repository.Repositories) error {
		locked, err := tx.Quotes.FindForUpdate(ctx, quote.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return apperror.NewNotFoundError("Quote")
		}
		if locked.Status != enum.QuoteStatusSent {
			return apperror.NewConflictError("Quote can no longer be rejected")
		}

		now := s.now()
		locked.Status = enum.QuoteStatusRejected
		locked.RejectedAt = &now
		if feedback != "" {
			locked.RejectionReason = &feedback
		}
		if err := tx.Quotes.Update(ctx, locked); err != nil {
			return err
		}
		return appendActivity(ctx, tx.Activity, entity.SubjectQuote, locked.ID, entity.ActionQuoteRejected, entity.ActorClient, feedback, now)
	})
	if err != nil {
		return nil, err
	}
	invalidateAnalytics(ctx, s.cache, quote.UserID)

	quote, err = s.repos.Quotes.GetByID(ctx, quote.UserID, quote.ID)
	if err != nil {
		return nil, err
	}
	result := &RejectionResult{Quote: quote}
	if feedback == "" {
		return result, nil
	}

	settings, err := loadSettings(ctx, s.repos.Settings, quote.UserID)
	if err != nil {
		return nil, err
	}
	if settings.EmailNotifications {
		result.AckSent = s.notifier.bestEffort("RejectionAck", quote.ID, s.notifier.SendRejectionAck(ctx, settings, quote, feedback))
		result.AlertSent = s.notifier.bestEffort("RejectionAlert", quote.ID, s.notifier.SendRejectionAlert(ctx, settings, quote, feedback))
	}
	return result, nil
}

// SubmitFeedback rejects the quote with a required message
func (s *QuoteService) SubmitFeedback(ctx context.Context, input *RejectQuoteInput) (*RejectionResult, error) {
	if strings.TrimSpace(input.Feedback) == "" {
		return nil, apperror.NewBadRequestError("Feedback message is required")
	}
	return s.RejectQuote(ctx, input)
}

// StartPayment opens a processor payment for a sent quote. Approval
// happens only when the processor confirms the payment.
func (s *QuoteService) StartPayment(ctx context.Context, id uuid.UUID, token string, mode payment.Mode) (*PaymentSession, error) {
	quote, err := s.quoteByToken(ctx, id, token)
	if err != nil {
		return nil, err
	}
	if quote.Status != enum.QuoteStatusSent {
		return nil, apperror.NewConflictError("Quote is not awaiting payment")
	}
	if !quote.AmountDue.IsPositive() {
		return nil, apperror.NewConflictError("Quote has nothing to pay")
	}

	settings, err := loadSettings(ctx, s.repos.Settings, quote.UserID)
	if err != nil {
		return nil, err
	}
	return s.payments.Start(ctx, PaymentRequest{
		Mode:        mode,
		Amount:      quote.AmountDue,
		Currency:    settings.Currency,
		Description: "Quote " + quote.Number + ": " + quote.Title,
		Email:       clientEmail(quote.Client),
		Metadata:    payment.Metadata{Kind: payment.KindQuote, QuoteID: quote.ID},
		ReturnPath:  s.notifier.QuoteLink(quote.ID, token),
	})
}

// ConvertInput represents the input for converting a quote to an invoice
type ConvertInput struct {
	UserID uuid.UUID
	ID     uuid.UUID
	Actor  string
}

// ConvertToInvoice copies an approved quote into a new draft invoice
func (s *QuoteService) ConvertToInvoice(ctx context.Context, input *ConvertInput) (*entity.Invoice, error) {
	var invoiceID uuid.UUID
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		quote, err := tx.Quotes.GetForUpdate(ctx, input.UserID, input.ID)
		if err != nil {
			return err
		}
		if quote == nil {
			return apperror.NewNotFoundError("Quote")
		}
		if quote.Status != enum.QuoteStatusApproved {
			return apperror.NewConflictError("Only approved quotes can be converted")
		}
		if quote.ConvertedInvoiceID != nil {
			return apperror.NewConflictError("Quote was already converted to an invoice")
		}

		items, err := tx.Quotes.ListItems(ctx, quote.ID)
		if err != nil {
			return err
		}
		assignments, err := tx.Quotes.ListContractors(ctx, quote.ID)
		if err != nil {
			return err
		}
		seq, err := tx.Invoices.NextNumber(ctx, input.UserID)
		if err != nil {
			return err
		}

		invoice := &entity.Invoice{
			UserID:   quote.UserID,
			ClientID: quote.ClientID,
			QuoteID:  &quote.ID,
			Number:   utils.FormatDocumentNumber("INV", seq),
			Title:    quote.Title,
			Status:   enum.InvoiceStatusDraft,
			Notes:    quote.Notes,
		}
		invoice.TaxRate = quote.TaxRate
		if err := tx.Invoices.Create(ctx, invoice); err != nil {
			return err
		}

		for _, it := range items {
			if err := tx.Invoices.CreateItem(ctx, &entity.InvoiceItem{
				InvoiceID:         invoice.ID,
				ServiceName:       it.ServiceName,
				Description:       it.Description,
				Quantity:          it.Quantity,
				UnitPrice:         it.UnitPrice,
				Total:             it.Total,
				Taxable:           it.Taxable,
				ContractorID:      it.ContractorID,
				ServiceTemplateID: it.ServiceTemplateID,
				SortOrder:         it.SortOrder,
			}); err != nil {
				return err
			}
		}
		for _, a := range assignments {
			if err := tx.Invoices.CreateContractor(ctx, &entity.InvoiceContractor{
				InvoiceID:      invoice.ID,
				ContractorID:   a.ContractorID,
				Skills:         a.Skills,
				RateType:       a.RateType,
				Rate:           a.Rate,
				Hours:          a.Hours,
				Cost:           a.Cost,
				IncludeInTotal: a.IncludeInTotal,
			}); err != nil {
				return err
			}
		}
		if err := recomputeInvoice(ctx, tx, invoice); err != nil {
			return err
		}

		quote.ConvertedInvoiceID = &invoice.ID
		if err := tx.Quotes.Update(ctx, quote); err != nil {
			return err
		}

		now := s.now()
		if err := appendActivity(ctx, tx.Activity, entity.SubjectQuote, quote.ID, entity.ActionQuoteConverted, input.Actor, invoice.Number, now); err != nil {
			return err
		}
		invoiceID = invoice.ID
		return appendActivity(ctx, tx.Activity, entity.SubjectInvoice, invoice.ID, entity.ActionInvoiceCreated, input.Actor, "from quote "+quote.Number, now)
	})
	if err != nil {
		return nil, err
	}
	invalidateAnalytics(ctx, s.cache, input.UserID)
	return s.repos.Invoices.GetByID(ctx, input.UserID, invoiceID)
}
