package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/sangkips/studio-billing-api/internal/domain/repository"
	"github.com/sangkips/studio-billing-api/internal/domain/totals"
	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/shopspring/decimal"
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

// SystemClock is the wall clock in UTC
func SystemClock() time.Time {
	return time.Now().UTC()
}

func appendActivity(ctx context.Context, repo repository.ActivityRepository, subjectType string, subjectID uuid.UUID, action, actor, detail string, at time.Time) error {
	return repo.Append(ctx, &entity.ActivityEntry{
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Action:      action,
		Actor:       actor,
		Detail:      detail,
		CreatedAt:   at,
	})
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func daysFrom(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, days)
}

// ItemInput is a line item to add to a quote or invoice. A nil Total is
// filled with Quantity × UnitPrice. A nil Taxable takes the template
// default, or true without a template.
type ItemInput struct {
	ServiceName       string
	Description       *string
	Quantity          decimal.Decimal
	UnitPrice         decimal.Decimal
	Total             *decimal.Decimal
	Taxable           *bool
	ContractorID      *uuid.UUID
	ServiceTemplateID *uuid.UUID
	SortOrder         *int
}

// ItemPatch changes selected fields of an existing line item
type ItemPatch struct {
	ServiceName *string
	Description *string
	Quantity    *decimal.Decimal
	UnitPrice   *decimal.Decimal
	Total       *decimal.Decimal
	Taxable     *bool
	SortOrder   *int
}

// lineFields is the editable part shared by quote and invoice items
type lineFields struct {
	ServiceName string
	Description *string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
	Taxable     bool
	SortOrder   int
}

func (in ItemInput) fields(nextSort int) (lineFields, error) {
	if in.ServiceName == "" {
		return lineFields{}, apperror.NewBadRequestError("Service name is required")
	}
	if in.Quantity.IsNegative() || in.UnitPrice.IsNegative() {
		return lineFields{}, apperror.NewBadRequestError("Quantity and unit price must not be negative")
	}
	sort := nextSort
	if in.SortOrder != nil {
		sort = *in.SortOrder
	}
	taxable := true
	if in.Taxable != nil {
		taxable = *in.Taxable
	}
	return lineFields{
		ServiceName: in.ServiceName,
		Description: in.Description,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		Total:       totals.LineTotal(in.Quantity, in.UnitPrice, in.Total),
		Taxable:     taxable,
		SortOrder:   sort,
	}, nil
}

// apply merges the patch. Changing quantity or price without an explicit
// total re-derives the total.
func (p ItemPatch) apply(f lineFields) (lineFields, error) {
	if p.ServiceName != nil {
		if *p.ServiceName == "" {
			return f, apperror.NewBadRequestError("Service name is required")
		}
		f.ServiceName = *p.ServiceName
	}
	if p.Description != nil {
		f.Description = p.Description
	}
	if p.Quantity != nil {
		f.Quantity = *p.Quantity
	}
	if p.UnitPrice != nil {
		f.UnitPrice = *p.UnitPrice
	}
	if f.Quantity.IsNegative() || f.UnitPrice.IsNegative() {
		return f, apperror.NewBadRequestError("Quantity and unit price must not be negative")
	}
	switch {
	case p.Total != nil:
		f.Total = *p.Total
	case p.Quantity != nil || p.UnitPrice != nil:
		f.Total = f.Quantity.Mul(f.UnitPrice)
	}
	if p.Taxable != nil {
		f.Taxable = *p.Taxable
	}
	if p.SortOrder != nil {
		f.SortOrder = *p.SortOrder
	}
	return f, nil
}

// AssignmentInput assigns a contractor to a quote or invoice. Unset rate
// fields fall back to the contractor's defaults; a nil Cost is derived
// from rate and hours.
type AssignmentInput struct {
	ContractorID   uuid.UUID
	Skills         []string
	RateType       *enum.PricingMode
	Rate           *decimal.Decimal
	Hours          *decimal.Decimal
	Cost           *decimal.Decimal
	IncludeInTotal *bool
}

// AssignmentPatch changes selected fields of an assignment
type AssignmentPatch struct {
	Skills         []string
	RateType       *enum.PricingMode
	Rate           *decimal.Decimal
	Hours          *decimal.Decimal
	Cost           *decimal.Decimal
	IncludeInTotal *bool
}

// assignmentFields is the editable part shared by quote and invoice
// assignments
type assignmentFields struct {
	Skills         []string
	RateType       enum.PricingMode
	Rate           decimal.Decimal
	Hours          *decimal.Decimal
	Cost           decimal.Decimal
	IncludeInTotal bool
}

func checkSkills(contractor *entity.Contractor, skills []string) error {
	known := make(map[string]struct{}, len(contractor.Skills))
	for _, s := range contractor.Skills {
		known[s] = struct{}{}
	}
	for _, s := range skills {
		if _, ok := known[s]; !ok {
			return apperror.NewBadRequestError("Contractor does not have skill " + s)
		}
	}
	return nil
}

func (in AssignmentInput) fields(contractor *entity.Contractor) (assignmentFields, error) {
	f := assignmentFields{
		Skills:         in.Skills,
		RateType:       contractor.PricingMode,
		Rate:           contractor.DefaultRate(),
		Hours:          in.Hours,
		IncludeInTotal: true,
	}
	if f.Skills == nil {
		f.Skills = []string{}
	}
	if in.RateType != nil {
		if !in.RateType.IsValid() {
			return f, apperror.NewBadRequestError("Invalid rate type")
		}
		f.RateType = *in.RateType
		if in.Rate == nil {
			if f.RateType == enum.PricingModeFlat {
				f.Rate = contractor.FlatRate
			} else {
				f.Rate = contractor.HourlyRate
			}
		}
	}
	if in.Rate != nil {
		f.Rate = *in.Rate
	}
	if in.IncludeInTotal != nil {
		f.IncludeInTotal = *in.IncludeInTotal
	}
	if err := checkSkills(contractor, f.Skills); err != nil {
		return f, err
	}
	return f.priced(in.Cost)
}

func (p AssignmentPatch) apply(f assignmentFields, contractor *entity.Contractor) (assignmentFields, error) {
	if p.Skills != nil {
		if err := checkSkills(contractor, p.Skills); err != nil {
			return f, err
		}
		f.Skills = p.Skills
	}
	if p.RateType != nil {
		if !p.RateType.IsValid() {
			return f, apperror.NewBadRequestError("Invalid rate type")
		}
		f.RateType = *p.RateType
	}
	if p.Rate != nil {
		f.Rate = *p.Rate
	}
	if p.Hours != nil {
		f.Hours = p.Hours
	}
	if p.IncludeInTotal != nil {
		f.IncludeInTotal = *p.IncludeInTotal
	}
	return f.priced(p.Cost)
}

func (f assignmentFields) priced(manual *decimal.Decimal) (assignmentFields, error) {
	if f.Rate.IsNegative() || (f.Hours != nil && f.Hours.IsNegative()) || (manual != nil && manual.IsNegative()) {
		return f, apperror.NewBadRequestError("Rates, hours and costs must not be negative")
	}
	if f.RateType == enum.PricingModeFlat {
		f.Hours = nil
	}
	f.Cost = totals.RoundMoney(totals.AssignmentCost(f.RateType == enum.PricingModeHourly, f.Rate, f.Hours, manual))
	return f, nil
}

func loadOwnedContractor(ctx context.Context, repo repository.ContractorRepository, userID, id uuid.UUID) (*entity.Contractor, error) {
	contractor, err := repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if contractor == nil {
		return nil, apperror.NewNotFoundError("Contractor")
	}
	return contractor, nil
}
