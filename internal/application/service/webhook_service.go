package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/sangkips/studio-billing-api/internal/domain/repository"
	"github.com/sangkips/studio-billing-api/internal/infrastructure/cache"
	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/sangkips/studio-billing-api/pkg/logger"
	"github.com/sangkips/studio-billing-api/pkg/payment"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const webhookModule = "webhook_service"

const (
	webhookLockTTL  = 30 * time.Second
	webhookLockWait = 5 * time.Second
)

// WebhookResult is the acknowledgment returned to the processor
type WebhookResult struct {
	EventID   string `json:"event_id"`
	Type      string `json:"type"`
	Outcome   string `json:"outcome"`
	Duplicate bool   `json:"duplicate"`
}

// receipt is a confirmation email to send after the transaction commits
type receipt struct {
	userID uuid.UUID
	client *entity.Client
	number string
	amount decimal.Decimal
}

// WebhookService reconciles processor events with quotes, invoices and
// contractor fees. Every event is applied at most once.
type WebhookService struct {
	uow      repository.UnitOfWork
	repos    *repository.Repositories
	verifier *payment.Verifier
	notifier *NotificationService
	cache    *cache.Cache
	log      logrus.FieldLogger
	now      Clock
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	uow repository.UnitOfWork,
	repos *repository.Repositories,
	verifier *payment.Verifier,
	notifier *NotificationService,
	cache *cache.Cache,
	log logrus.FieldLogger,
	now Clock,
) *WebhookService {
	return &WebhookService{
		uow:      uow,
		repos:    repos,
		verifier: verifier,
		notifier: notifier,
		cache:    cache,
		log:      log,
		now:      now,
	}
}

// HandleStripe verifies and applies one processor event. Only a bad
// signature is reported as an error; every verified event is acknowledged.
func (s *WebhookService) HandleStripe(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	ev, err := s.verifier.Verify(payload, signature)
	if errors.Is(err, payment.ErrNotConfigured) {
		return nil, apperror.NewUpstreamError("Webhook secret is not configured", err)
	}
	if err != nil {
		logger.LogWarn(s.log, webhookModule, "HandleStripe", "rejected webhook", nil, err)
		return nil, apperror.NewBadRequestError("Invalid webhook signature")
	}

	log := s.log.WithFields(logrus.Fields{"module": webhookModule, "event_id": ev.ID, "type": ev.Type})
	result := &WebhookResult{EventID: ev.ID, Type: ev.Type, Outcome: entity.WebhookOutcomeIgnored}

	md, actionable := s.classify(ev, log)
	if actionable {
		release, err := s.cache.Lock(ctx, lockKey(md), webhookLockTTL, webhookLockWait)
		if err != nil {
			log.WithError(err).Warn("proceeding without webhook lock")
		}
		defer release()
	}

	var rc *receipt
	var ownerID uuid.UUID
	err = s.uow.Do(ctx, func(tx *repository.Repositories) error {
		seen, err := tx.WebhookEvents.Exists(ctx, ev.ID)
		if err != nil {
			return err
		}
		if seen {
			result.Duplicate = true
			return nil
		}

		if actionable {
			result.Outcome, rc, ownerID, err = s.apply(ctx, tx, ev, md, log)
			if err != nil {
				return err
			}
		}
		return tx.WebhookEvents.Record(ctx, &entity.ProcessedWebhookEvent{
			EventID:     ev.ID,
			Type:        ev.Type,
			Outcome:     result.Outcome,
			ProcessedAt: s.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	if result.Duplicate {
		log.Info("webhook already processed")
		return result, nil
	}

	log.WithField("outcome", result.Outcome).Info("webhook processed")
	if ownerID != uuid.Nil {
		invalidateAnalytics(ctx, s.cache, ownerID)
	}
	if rc != nil {
		s.sendReceipt(ctx, rc)
	}
	return result, nil
}

// classify decides whether a verified event should touch any document
func (s *WebhookService) classify(ev *payment.Event, log logrus.FieldLogger) (payment.Metadata, bool) {
	if ev.Payment == nil {
		return payment.Metadata{}, false
	}
	if ev.Type == payment.EventCheckoutCompleted && !ev.Payment.Paid {
		return payment.Metadata{}, false
	}

	md, err := ev.Payment.Metadata()
	if err != nil {
		log.WithError(err).Warn("ignoring event with unrecognised metadata")
		return payment.Metadata{}, false
	}
	// checkout payments are settled by checkout.session.completed; the
	// underlying intent's success event carries the same metadata
	if ev.Type == payment.EventPaymentSucceeded && md.Mode == payment.ModeCheckout {
		return md, false
	}
	return md, true
}

func lockKey(md payment.Metadata) string {
	switch md.Kind {
	case payment.KindQuote:
		return "webhook:quote:" + md.QuoteID.String()
	case payment.KindContractorFee:
		return "webhook:fee:" + md.FeeToken
	default:
		return "webhook:invoice:" + md.InvoiceID.String()
	}
}

func (s *WebhookService) apply(ctx context.Context, tx *repository.Repositories, ev *payment.Event, md payment.Metadata, log logrus.FieldLogger) (string, *receipt, uuid.UUID, error) {
	if ev.Type == payment.EventPaymentFailed {
		if md.Kind != payment.KindInvoice {
			return entity.WebhookOutcomeIgnored, nil, uuid.Nil, nil
		}
		outcome, owner, err := s.invoiceFailed(ctx, tx, ev.Payment, md)
		return outcome, nil, owner, err
	}

	switch md.Kind {
	case payment.KindQuote:
		return s.approveQuote(ctx, tx, ev.Payment, md, log)
	case payment.KindInvoice:
		return s.payInvoice(ctx, tx, ev.Payment, md, log)
	case payment.KindContractorFee:
		return s.payContractorFee(ctx, tx, ev.Payment, md, log)
	}
	return entity.WebhookOutcomeIgnored, nil, uuid.Nil, nil
}

func (s *WebhookService) approveQuote(ctx context.Context, tx *repository.Repositories, obj *payment.PaymentObject, md payment.Metadata, log logrus.FieldLogger) (string, *receipt, uuid.UUID, error) {
	quote, err := tx.Quotes.FindForUpdate(ctx, md.QuoteID)
	if err != nil {
		return "", nil, uuid.Nil, err
	}
	if quote == nil {
		log.WithField("quote_id", md.QuoteID).Warn("quote for payment not found")
		return entity.WebhookOutcomeNotFound, nil, uuid.Nil, nil
	}
	now := s.now()
	if quote.IsExpiredAt(now) {
		if err := markQuoteExpired(ctx, tx, quote, now); err != nil {
			return "", nil, uuid.Nil, err
		}
	}
	if quote.Status != enum.QuoteStatusSent {
		log.WithFields(logrus.Fields{"quote_id": quote.ID, "status": quote.Status.String()}).
			Warn("payment confirmed for a quote that is not awaiting approval")
		return entity.WebhookOutcomeConflict, nil, quote.UserID, nil
	}

	quote.Status = enum.QuoteStatusApproved
	quote.ApprovedAt = &now
	if err := tx.Quotes.Update(ctx, quote); err != nil {
		return "", nil, uuid.Nil, err
	}
	detail := money(obj.Amount) + " via " + string(md.Mode)
	if err := appendActivity(ctx, tx.Activity, entity.SubjectQuote, quote.ID, entity.ActionQuoteApproved, entity.ActorStripe, detail, now); err != nil {
		return "", nil, uuid.Nil, err
	}

	client, err := tx.Clients.GetByID(ctx, quote.UserID, quote.ClientID)
	if err != nil {
		return "", nil, uuid.Nil, err
	}
	return entity.WebhookOutcomeApplied, &receipt{userID: quote.UserID, client: client, number: quote.Number, amount: obj.Amount}, quote.UserID, nil
}

func processorRef(obj *payment.PaymentObject) string {
	if obj.PaymentIntentID != "" {
		return obj.PaymentIntentID
	}
	return obj.ObjectID
}

func (s *WebhookService) payInvoice(ctx context.Context, tx *repository.Repositories, obj *payment.PaymentObject, md payment.Metadata, log logrus.FieldLogger) (string, *receipt, uuid.UUID, error) {
	invoice, err := tx.Invoices.FindForUpdate(ctx, md.InvoiceID)
	if err != nil {
		return "", nil, uuid.Nil, err
	}
	if invoice == nil {
		log.WithField("invoice_id", md.InvoiceID).Warn("invoice for payment not found")
		return entity.WebhookOutcomeNotFound, nil, uuid.Nil, nil
	}

	ref := processorRef(obj)
	existing, err := tx.Payments.GetByProcessorID(ctx, ref)
	if err != nil {
		return "", nil, uuid.Nil, err
	}
	if existing != nil && existing.Status == enum.PaymentStatusCompleted {
		return entity.WebhookOutcomeIgnored, nil, invoice.UserID, nil
	}
	if !invoice.Status.IsPayable() {
		log.WithFields(logrus.Fields{"invoice_id": invoice.ID, "status": invoice.Status.String()}).
			Warn("payment confirmed for an invoice that is not awaiting payment")
		return entity.WebhookOutcomeConflict, nil, invoice.UserID, nil
	}

	now := s.now()
	p := existing
	if p == nil {
		p = &entity.Payment{
			UserID:             invoice.UserID,
			InvoiceID:          invoice.ID,
			Method:             enum.PaymentMethodStripe,
			ProcessorPaymentID: &ref,
		}
	}
	p.Amount = obj.Amount
	p.SetStatus(enum.PaymentStatusCompleted, now)
	if existing == nil {
		err = tx.Payments.Create(ctx, p)
	} else {
		err = tx.Payments.Update(ctx, p)
	}
	if err != nil {
		return "", nil, uuid.Nil, err
	}

	detail := money(p.Amount) + " via " + string(md.Mode)
	if err := appendActivity(ctx, tx.Activity, entity.SubjectInvoice, invoice.ID, entity.ActionPaymentRecorded, entity.ActorStripe, detail, now); err != nil {
		return "", nil, uuid.Nil, err
	}
	if _, err := settleInvoice(ctx, tx, invoice, entity.ActorStripe, now); err != nil {
		return "", nil, uuid.Nil, err
	}

	client, err := tx.Clients.GetByID(ctx, invoice.UserID, invoice.ClientID)
	if err != nil {
		return "", nil, uuid.Nil, err
	}
	return entity.WebhookOutcomeApplied, &receipt{userID: invoice.UserID, client: client, number: invoice.Number, amount: p.Amount}, invoice.UserID, nil
}

func (s *WebhookService) payContractorFee(ctx context.Context, tx *repository.Repositories, obj *payment.PaymentObject, md payment.Metadata, log logrus.FieldLogger) (string, *receipt, uuid.UUID, error) {
	invoice, err := tx.Invoices.FindForUpdate(ctx, md.InvoiceID)
	if err != nil {
		return "", nil, uuid.Nil, err
	}
	members, err := tx.Invoices.ListContractorsByFeeToken(ctx, md.FeeToken)
	if err != nil {
		return "", nil, uuid.Nil, err
	}
	if invoice == nil || len(members) == 0 || members[0].InvoiceID != invoice.ID {
		log.WithField("invoice_id", md.InvoiceID).Warn("contractor fee batch for payment not found")
		return entity.WebhookOutcomeNotFound, nil, uuid.Nil, nil
	}

	now := s.now()
	updated := 0
	for i := range members {
		if members[i].FeePaidAt != nil {
			continue
		}
		members[i].FeePaidAt = &now
		if err := tx.Invoices.UpdateContractor(ctx, &members[i]); err != nil {
			return "", nil, uuid.Nil, err
		}
		updated++
	}
	if updated == 0 {
		log.WithField("invoice_id", invoice.ID).Warn("contractor fees already paid")
		return entity.WebhookOutcomeConflict, nil, invoice.UserID, nil
	}

	detail := money(obj.Amount) + " for " + pluralize(updated, "contractor")
	if err := appendActivity(ctx, tx.Activity, entity.SubjectInvoice, invoice.ID, entity.ActionContractorFeePaid, entity.ActorStripe, detail, now); err != nil {
		return "", nil, uuid.Nil, err
	}

	client, err := tx.Clients.GetByID(ctx, invoice.UserID, invoice.ClientID)
	if err != nil {
		return "", nil, uuid.Nil, err
	}
	number := "contractor fees on " + invoice.Number
	return entity.WebhookOutcomeApplied, &receipt{userID: invoice.UserID, client: client, number: number, amount: obj.Amount}, invoice.UserID, nil
}

func (s *WebhookService) invoiceFailed(ctx context.Context, tx *repository.Repositories, obj *payment.PaymentObject, md payment.Metadata) (string, uuid.UUID, error) {
	invoice, err := tx.Invoices.FindForUpdate(ctx, md.InvoiceID)
	if err != nil {
		return "", uuid.Nil, err
	}
	if invoice == nil {
		return entity.WebhookOutcomeNotFound, uuid.Nil, nil
	}

	now := s.now()
	ref := processorRef(obj)
	p := &entity.Payment{
		UserID:             invoice.UserID,
		InvoiceID:          invoice.ID,
		Amount:             obj.Amount,
		Method:             enum.PaymentMethodStripe,
		ProcessorPaymentID: &ref,
	}
	if obj.FailureMessage != "" {
		msg := obj.FailureMessage
		p.Notes = &msg
	}
	p.SetStatus(enum.PaymentStatusFailed, now)
	if err := tx.Payments.Create(ctx, p); err != nil {
		return "", uuid.Nil, err
	}

	detail := money(obj.Amount)
	if obj.FailureMessage != "" {
		detail += ": " + obj.FailureMessage
	}
	if err := appendActivity(ctx, tx.Activity, entity.SubjectInvoice, invoice.ID, entity.ActionPaymentFailed, entity.ActorStripe, detail, now); err != nil {
		return "", uuid.Nil, err
	}
	return entity.WebhookOutcomeApplied, invoice.UserID, nil
}

func (s *WebhookService) sendReceipt(ctx context.Context, rc *receipt) {
	settings, err := loadSettings(ctx, s.repos.Settings, rc.userID)
	if err != nil {
		logger.LogWarn(s.log, webhookModule, "sendReceipt", "settings unavailable", rc.userID.String(), err)
		return
	}
	if !settings.EmailNotifications || rc.client == nil {
		return
	}
	s.notifier.bestEffort("SendPaymentReceipt", rc.userID, s.notifier.SendPaymentReceipt(ctx, settings, rc.client, rc.number, rc.amount))
}

func pluralize(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
