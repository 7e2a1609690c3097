package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	domainRepo "github.com/sangkips/studio-billing-api/internal/domain/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *gorm.DB) domainRepo.ReportRepository {
	return &reportRepository{db: db}
}

// RevenueByMonth buckets completed payments by the month they were
// processed. Months in range with no payments are returned as zero rows.
func (r *reportRepository) RevenueByMonth(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domainRepo.MonthlyRevenue, error) {
	var rows []struct {
		Amount      decimal.Decimal
		ProcessedAt time.Time
	}
	err := r.db.WithContext(ctx).Model(&entity.Payment{}).
		Select("amount, processed_at").
		Scopes(OwnedBy(userID)).
		Where("status = ? AND processed_at >= ? AND processed_at < ?", enum.PaymentStatusCompleted, from, to).
		Order("processed_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byMonth := make(map[string]*domainRepo.MonthlyRevenue)
	var results []domainRepo.MonthlyRevenue
	start := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	for m := start; m.Before(to); m = m.AddDate(0, 1, 0) {
		results = append(results, domainRepo.MonthlyRevenue{Month: m.Format("2006-01"), Revenue: decimal.Zero})
	}
	for i := range results {
		byMonth[results[i].Month] = &results[i]
	}

	for _, row := range rows {
		bucket, ok := byMonth[row.ProcessedAt.UTC().Format("2006-01")]
		if !ok {
			continue
		}
		bucket.Revenue = bucket.Revenue.Add(row.Amount)
		bucket.PaymentCount++
	}
	return results, nil
}

func (r *reportRepository) Outstanding(ctx context.Context, userID uuid.UUID) ([]domainRepo.OutstandingInvoice, error) {
	var rows []struct {
		InvoiceID  uuid.UUID
		Number     string
		ClientName string
		Status     enum.InvoiceStatus
		DueDate    *time.Time
		AmountDue  decimal.Decimal
		Paid       decimal.Decimal
	}

	err := r.db.WithContext(ctx).Raw(`
		SELECT
			i.id AS invoice_id,
			i.number AS number,
			c.name AS client_name,
			i.status AS status,
			i.due_date AS due_date,
			i.amount_due AS amount_due,
			COALESCE((
				SELECT SUM(p.amount) FROM payments p
				WHERE p.invoice_id = i.id AND p.status = ? AND p.deleted_at IS NULL
			), 0) AS paid
		FROM invoices i
		JOIN clients c ON c.id = i.client_id
		WHERE i.user_id = ? AND i.status IN ? AND i.deleted_at IS NULL
		ORDER BY i.due_date ASC, i.number ASC
	`, int(enum.PaymentStatusCompleted), userID,
		[]int{int(enum.InvoiceStatusSent), int(enum.InvoiceStatusOverdue)}).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	results := make([]domainRepo.OutstandingInvoice, 0, len(rows))
	for _, row := range rows {
		results = append(results, domainRepo.OutstandingInvoice{
			InvoiceID:  row.InvoiceID,
			Number:     row.Number,
			ClientName: row.ClientName,
			Status:     row.Status.String(),
			DueDate:    row.DueDate,
			AmountDue:  row.AmountDue,
			Paid:       row.Paid,
			Balance:    row.AmountDue.Sub(row.Paid),
		})
	}
	return results, nil
}

func (r *reportRepository) RevenueByClient(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domainRepo.ClientRevenue, error) {
	var results []domainRepo.ClientRevenue

	err := r.db.WithContext(ctx).Raw(`
		SELECT
			c.id AS client_id,
			c.name AS client_name,
			COUNT(i.id) AS invoice_count,
			COALESCE(SUM(i.amount_due), 0) AS billed,
			COALESCE((
				SELECT SUM(p.amount) FROM payments p
				JOIN invoices inv ON inv.id = p.invoice_id
				WHERE inv.client_id = c.id AND p.status = ? AND p.deleted_at IS NULL
					AND p.processed_at >= ? AND p.processed_at < ?
			), 0) AS collected
		FROM clients c
		JOIN invoices i ON i.client_id = c.id
		WHERE c.user_id = ? AND c.deleted_at IS NULL
			AND i.deleted_at IS NULL AND i.status NOT IN ?
			AND i.created_at >= ? AND i.created_at < ?
		GROUP BY c.id, c.name
		ORDER BY billed DESC
	`, int(enum.PaymentStatusCompleted), from, to,
		userID, []int{int(enum.InvoiceStatusDraft), int(enum.InvoiceStatusCancelled)}, from, to).
		Scan(&results).Error

	return results, err
}

func (r *reportRepository) ContractorEarnings(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domainRepo.ContractorEarnings, error) {
	var results []domainRepo.ContractorEarnings

	err := r.db.WithContext(ctx).Raw(`
		SELECT
			ct.id AS contractor_id,
			ct.name AS contractor_name,
			COUNT(ic.id) AS assignments,
			COALESCE(SUM(ic.cost), 0) AS total_cost,
			COALESCE(SUM(CASE WHEN ic.billed_separately = ? THEN ic.cost ELSE 0 END), 0) AS billed_separately
		FROM invoice_contractors ic
		JOIN invoices i ON i.id = ic.invoice_id
		JOIN contractors ct ON ct.id = ic.contractor_id
		WHERE i.user_id = ? AND i.deleted_at IS NULL AND i.status <> ?
			AND i.created_at >= ? AND i.created_at < ?
		GROUP BY ct.id, ct.name
		ORDER BY total_cost DESC
	`, true, userID, int(enum.InvoiceStatusCancelled), from, to).
		Scan(&results).Error

	return results, err
}

func (r *reportRepository) statusCounts(ctx context.Context, model interface{}, userID uuid.UUID) ([]domainRepo.StatusCount, error) {
	var results []domainRepo.StatusCount
	err := r.db.WithContext(ctx).Model(model).
		Select("status, COUNT(*) AS count").
		Scopes(OwnedBy(userID)).
		Group("status").
		Order("status ASC").
		Scan(&results).Error
	return results, err
}

func (r *reportRepository) QuoteStatusCounts(ctx context.Context, userID uuid.UUID) ([]domainRepo.StatusCount, error) {
	return r.statusCounts(ctx, &entity.Quote{}, userID)
}

func (r *reportRepository) InvoiceStatusCounts(ctx context.Context, userID uuid.UUID) ([]domainRepo.StatusCount, error) {
	return r.statusCounts(ctx, &entity.Invoice{}, userID)
}

func (r *reportRepository) CollectedBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var sum struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&entity.Payment{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Scopes(OwnedBy(userID)).
		Where("status = ? AND processed_at >= ? AND processed_at < ?", enum.PaymentStatusCompleted, from, to).
		Scan(&sum).Error
	return sum.Total, err
}
