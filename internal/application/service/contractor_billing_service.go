package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/sangkips/studio-billing-api/internal/domain/repository"
	"github.com/sangkips/studio-billing-api/internal/infrastructure/cache"
	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/sangkips/studio-billing-api/pkg/payment"
	"github.com/sangkips/studio-billing-api/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const contractorBillingModule = "contractor_billing_service"

// ContractorBillingService carves contractor fees out of an invoice into
// their own payable batch
type ContractorBillingService struct {
	uow      repository.UnitOfWork
	repos    *repository.Repositories
	notifier *NotificationService
	payments *PaymentStarter
	cache    *cache.Cache
	log      logrus.FieldLogger
	now      Clock
}

// NewContractorBillingService creates a new contractor billing service
func NewContractorBillingService(
	uow repository.UnitOfWork,
	repos *repository.Repositories,
	notifier *NotificationService,
	payments *PaymentStarter,
	cache *cache.Cache,
	log logrus.FieldLogger,
	now Clock,
) *ContractorBillingService {
	return &ContractorBillingService{
		uow:      uow,
		repos:    repos,
		notifier: notifier,
		payments: payments,
		cache:    cache,
		log:      log,
		now:      now,
	}
}

// BillingResult reports a separately billed batch
type BillingResult struct {
	Token     string      `json:"token"`
	Processed []uuid.UUID `json:"processed"`
	Skipped   []uuid.UUID `json:"skipped"`
	EmailSent bool        `json:"email_sent"`
	PayURL    string      `json:"pay_url"`
}

// BillSeparately moves one contractor fee out of the invoice total
func (s *ContractorBillingService) BillSeparately(ctx context.Context, userID, invoiceID, contractorID uuid.UUID, actor string) (*BillingResult, error) {
	return s.bill(ctx, userID, invoiceID, []uuid.UUID{contractorID}, actor, true)
}

// BulkBillSeparately moves every eligible listed fee into one batch with a
// shared token. Ineligible members are skipped.
func (s *ContractorBillingService) BulkBillSeparately(ctx context.Context, userID, invoiceID uuid.UUID, contractorIDs []uuid.UUID, actor string) (*BillingResult, error) {
	if len(contractorIDs) == 0 {
		return nil, apperror.NewBadRequestError("At least one contractor is required")
	}
	return s.bill(ctx, userID, invoiceID, contractorIDs, actor, false)
}

func (s *ContractorBillingService) bill(ctx context.Context, userID, invoiceID uuid.UUID, contractorIDs []uuid.UUID, actor string, strict bool) (*BillingResult, error) {
	result := &BillingResult{Processed: []uuid.UUID{}, Skipped: []uuid.UUID{}}

	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		invoice, err := tx.Invoices.GetForUpdate(ctx, userID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return apperror.NewNotFoundError("Invoice")
		}
		if invoice.Status.IsTerminal() {
			return errInvoiceLocked
		}

		token, err := utils.GeneratePossessionToken()
		if err != nil {
			return err
		}
		now := s.now()

		var names []string
		total := decimal.Zero
		seen := make(map[uuid.UUID]struct{}, len(contractorIDs))
		for _, id := range contractorIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			a, err := tx.Invoices.GetContractor(ctx, invoice.ID, id)
			if err != nil {
				return err
			}
			if strict && a == nil {
				return apperror.NewNotFoundError("Contractor assignment")
			}
			if a == nil || !a.CanBillSeparately() {
				if strict {
					return apperror.NewConflictError("Contractor fee is not included in the invoice total or is already billed separately")
				}
				s.log.WithFields(logrus.Fields{
					"module":        contractorBillingModule,
					"invoice_id":    invoice.ID,
					"contractor_id": id,
				}).Warn("skipping contractor not eligible for separate billing")
				result.Skipped = append(result.Skipped, id)
				continue
			}

			a.BilledSeparately = true
			a.ContractorFeePaymentToken = &token
			a.BilledSeparatelyAt = &now
			if err := tx.Invoices.UpdateContractor(ctx, a); err != nil {
				return err
			}
			result.Processed = append(result.Processed, id)
			total = total.Add(a.Cost)
			if a.Contractor != nil {
				names = append(names, a.Contractor.Name)
			}
		}
		if len(result.Processed) == 0 {
			return apperror.NewConflictError("None of the contractors can be billed separately")
		}

		if err := recomputeInvoice(ctx, tx, invoice); err != nil {
			return err
		}

		result.Token = token
		detail := money(total)
		if len(names) > 0 {
			detail = strings.Join(names, ", ") + ": " + detail
		}
		if err := appendActivity(ctx, tx.Activity, entity.SubjectInvoice, invoice.ID, entity.ActionContractorBilledApart, actor, detail, now); err != nil {
			return err
		}
		_, err = settleInvoice(ctx, tx, invoice, actor, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	invalidateAnalytics(ctx, s.cache, userID)
	result.PayURL = s.notifier.ContractorFeeLink(result.Token)

	invoice, err := s.repos.Invoices.GetByID(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	batch, err := s.repos.Invoices.ListContractorsByFeeToken(ctx, result.Token)
	if err != nil {
		return nil, err
	}
	settings, err := loadSettings(ctx, s.repos.Settings, userID)
	if err != nil {
		return nil, err
	}
	if settings.EmailNotifications {
		sendErr := s.notifier.SendContractorFeeRequest(ctx, settings, invoice, batch, result.Token)
		result.EmailSent = s.notifier.bestEffort("SendContractorFeeRequest", invoice.ID, sendErr)
	}
	return result, nil
}

// FeeBatch is a separately billed group of contractor fees as shown to the
// client
type FeeBatch struct {
	Invoice     *entity.Invoice
	Contractors []entity.InvoiceContractor
	Total       decimal.Decimal
	Paid        bool
	Settings    *entity.UserSettings
}

func (s *ContractorBillingService) batch(ctx context.Context, token string) (*FeeBatch, error) {
	if token == "" {
		return nil, apperror.NewNotFoundError("Contractor fee")
	}
	members, err := s.repos.Invoices.ListContractorsByFeeToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, apperror.NewNotFoundError("Contractor fee")
	}

	b := &FeeBatch{Contractors: members, Total: decimal.Zero, Paid: true}
	for _, m := range members {
		b.Total = b.Total.Add(m.Cost)
		if m.FeePaidAt == nil {
			b.Paid = false
		}
	}

	invoice, err := s.repos.Invoices.FindByID(ctx, members[0].InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Contractor fee")
	}
	b.Invoice = invoice
	b.Settings, err = loadSettings(ctx, s.repos.Settings, invoice.UserID)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetFeeBatch returns the batch behind a contractor fee token
func (s *ContractorBillingService) GetFeeBatch(ctx context.Context, token string) (*FeeBatch, error) {
	return s.batch(ctx, token)
}

// StartPayment opens a processor payment for an unpaid fee batch
func (s *ContractorBillingService) StartPayment(ctx context.Context, token string, mode payment.Mode) (*PaymentSession, error) {
	b, err := s.batch(ctx, token)
	if err != nil {
		return nil, err
	}
	if b.Paid {
		return nil, apperror.NewConflictError("Contractor fees are already paid")
	}
	if b.Invoice.Status == enum.InvoiceStatusCancelled {
		return nil, apperror.NewConflictError("Invoice is cancelled")
	}
	if !b.Total.IsPositive() {
		return nil, apperror.NewConflictError("Contractor fees have nothing to pay")
	}

	return s.payments.Start(ctx, PaymentRequest{
		Mode:        mode,
		Amount:      b.Total,
		Currency:    b.Settings.Currency,
		Description: "Contractor fees for " + b.Invoice.Number,
		Email:       clientEmail(b.Invoice.Client),
		Metadata:    payment.Metadata{Kind: payment.KindContractorFee, InvoiceID: b.Invoice.ID, FeeToken: token},
		ReturnPath:  s.notifier.ContractorFeeLink(token),
	})
}
