package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/sangkips/studio-billing-api/internal/domain/repository"
	"github.com/sangkips/studio-billing-api/internal/infrastructure/cache"
	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/sangkips/studio-billing-api/pkg/export"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Report types
const (
	ReportRevenue     = "revenue"
	ReportOutstanding = "outstanding"
	ReportClients     = "clients"
	ReportContractors = "contractors"
)

const analyticsTTL = 60 * time.Second

// ReportService builds reports and the dashboard analytics
type ReportService struct {
	reports repository.ReportRepository
	cache   *cache.Cache
	log     logrus.FieldLogger
	now     Clock
}

// NewReportService creates a new report service
func NewReportService(reports repository.ReportRepository, cache *cache.Cache, log logrus.FieldLogger, now Clock) *ReportService {
	return &ReportService{
		reports: reports,
		cache:   cache,
		log:     log,
		now:     now,
	}
}

// ReportInput selects a report and its date range. Zero dates default to
// the last twelve calendar months.
type ReportInput struct {
	UserID uuid.UUID
	Type   string
	From   time.Time
	To     time.Time
}

// Report is a computed report with its spreadsheet rendering
type Report struct {
	Type  string       `json:"type"`
	From  time.Time    `json:"from"`
	To    time.Time    `json:"to"`
	Rows  interface{}  `json:"rows"`
	table export.Table `json:"-"`
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// BuildReport runs the requested report
func (s *ReportService) BuildReport(ctx context.Context, input *ReportInput) (*Report, error) {
	now := s.now()
	from, to := input.From, input.To
	if to.IsZero() {
		to = monthStart(now).AddDate(0, 1, 0)
	}
	if from.IsZero() {
		from = monthStart(to.AddDate(0, -12, 0))
	}
	if !from.Before(to) {
		return nil, apperror.NewBadRequestError("Report start must be before its end")
	}

	r := &Report{Type: input.Type, From: from, To: to}
	switch input.Type {
	case ReportRevenue:
		rows, err := s.reports.RevenueByMonth(ctx, input.UserID, from, to)
		if err != nil {
			return nil, err
		}
		r.Rows = rows
		r.table = export.Table{Title: "Revenue", Headers: []string{"Month", "Revenue", "Payments"}}
		for _, row := range rows {
			r.table.Rows = append(r.table.Rows, []interface{}{row.Month, row.Revenue.InexactFloat64(), row.PaymentCount})
		}

	case ReportOutstanding:
		rows, err := s.reports.Outstanding(ctx, input.UserID)
		if err != nil {
			return nil, err
		}
		r.Rows = rows
		r.table = export.Table{Title: "Outstanding", Headers: []string{"Invoice", "Client", "Status", "Due date", "Amount due", "Paid", "Balance"}}
		for _, row := range rows {
			due := ""
			if row.DueDate != nil {
				due = row.DueDate.Format(time.DateOnly)
			}
			r.table.Rows = append(r.table.Rows, []interface{}{
				row.Number, row.ClientName, row.Status, due,
				row.AmountDue.InexactFloat64(), row.Paid.InexactFloat64(), row.Balance.InexactFloat64(),
			})
		}

	case ReportClients:
		rows, err := s.reports.RevenueByClient(ctx, input.UserID, from, to)
		if err != nil {
			return nil, err
		}
		r.Rows = rows
		r.table = export.Table{Title: "Clients", Headers: []string{"Client", "Invoices", "Billed", "Collected"}}
		for _, row := range rows {
			r.table.Rows = append(r.table.Rows, []interface{}{row.ClientName, row.InvoiceCount, row.Billed.InexactFloat64(), row.Collected.InexactFloat64()})
		}

	case ReportContractors:
		rows, err := s.reports.ContractorEarnings(ctx, input.UserID, from, to)
		if err != nil {
			return nil, err
		}
		r.Rows = rows
		r.table = export.Table{Title: "Contractors", Headers: []string{"Contractor", "Assignments", "Total cost", "Billed separately"}}
		for _, row := range rows {
			r.table.Rows = append(r.table.Rows, []interface{}{row.ContractorName, row.Assignments, row.TotalCost.InexactFloat64(), row.BilledSeparately.InexactFloat64()})
		}

	default:
		return nil, apperror.NewBadRequestError("Unknown report type")
	}
	return r, nil
}

// WriteExcel renders the report as an xlsx workbook
func (s *ReportService) WriteExcel(w io.Writer, r *Report) error {
	return export.WriteExcel(w, r.table)
}

// Analytics is the dashboard summary
type Analytics struct {
	QuotesByStatus   map[string]int64 `json:"quotes_by_status"`
	InvoicesByStatus map[string]int64 `json:"invoices_by_status"`
	RevenueThisMonth decimal.Decimal  `json:"revenue_this_month"`
	OutstandingTotal decimal.Decimal  `json:"outstanding_total"`
	// ConversionRate is the percentage of decided quotes that were approved
	ConversionRate decimal.Decimal `json:"conversion_rate"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

func analyticsKey(userID uuid.UUID) string {
	return "analytics:" + userID.String()
}

// invalidateAnalytics drops the cached dashboard after a money-changing
// write
func invalidateAnalytics(ctx context.Context, c *cache.Cache, userID uuid.UUID) {
	c.Invalidate(ctx, analyticsKey(userID))
}

// GetAnalytics returns the dashboard summary, served from cache for up to
// a minute when redis is available
func (s *ReportService) GetAnalytics(ctx context.Context, userID uuid.UUID) (*Analytics, error) {
	key := analyticsKey(userID)
	var cached Analytics
	hit, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("analytics cache read failed")
	}
	if hit {
		return &cached, nil
	}

	a, err := s.computeAnalytics(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, key, a, analyticsTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("analytics cache write failed")
	}
	return a, nil
}

func (s *ReportService) computeAnalytics(ctx context.Context, userID uuid.UUID) (*Analytics, error) {
	now := s.now()
	a := &Analytics{
		QuotesByStatus:   map[string]int64{},
		InvoicesByStatus: map[string]int64{},
		OutstandingTotal: decimal.Zero,
		ConversionRate:   decimal.Zero,
		GeneratedAt:      now,
	}

	quoteCounts, err := s.reports.QuoteStatusCounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	var approved, decided int64
	for _, c := range quoteCounts {
		status := enum.QuoteStatus(c.Status)
		a.QuotesByStatus[status.String()] = c.Count
		switch status {
		case enum.QuoteStatusApproved:
			approved += c.Count
			decided += c.Count
		case enum.QuoteStatusRejected, enum.QuoteStatusExpired:
			decided += c.Count
		}
	}
	if decided > 0 {
		a.ConversionRate = decimal.NewFromInt(approved).Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(decided)).Round(1)
	}

	invoiceCounts, err := s.reports.InvoiceStatusCounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, c := range invoiceCounts {
		a.InvoicesByStatus[enum.InvoiceStatus(c.Status).String()] = c.Count
	}

	start := monthStart(now)
	a.RevenueThisMonth, err = s.reports.CollectedBetween(ctx, userID, start, start.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}

	outstanding, err := s.reports.Outstanding(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, o := range outstanding {
		a.OutstandingTotal = a.OutstandingTotal.Add(o.Balance)
	}
	return a, nil
}
