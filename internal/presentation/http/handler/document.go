package handler

import (
	"github.com/sangkips/studio-billing-api/internal/application/service"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/dto/request"
	"github.com/sangkips/studio-billing-api/pkg/payment"
)

// Request to service conversions shared by the quote and invoice handlers

func itemInput(r request.ItemRequest) service.ItemInput {
	return service.ItemInput{
		ServiceName:       r.ServiceName,
		Description:       r.Description,
		Quantity:          r.Quantity,
		UnitPrice:         r.UnitPrice,
		Total:             r.Total,
		Taxable:           r.Taxable,
		ContractorID:      r.ContractorID,
		ServiceTemplateID: r.ServiceTemplateID,
		SortOrder:         r.SortOrder,
	}
}

func itemInputs(rs []request.ItemRequest) []service.ItemInput {
	out := make([]service.ItemInput, 0, len(rs))
	for _, r := range rs {
		out = append(out, itemInput(r))
	}
	return out
}

func itemPatch(r request.UpdateItemRequest) service.ItemPatch {
	return service.ItemPatch{
		ServiceName: r.ServiceName,
		Description: r.Description,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		Total:       r.Total,
		Taxable:     r.Taxable,
		SortOrder:   r.SortOrder,
	}
}

func pricingMode(s *string) *enum.PricingMode {
	if s == nil {
		return nil
	}
	m := enum.PricingMode(*s)
	return &m
}

func assignmentInput(r request.AssignmentRequest) service.AssignmentInput {
	return service.AssignmentInput{
		ContractorID:   r.ContractorID,
		Skills:         r.Skills,
		RateType:       pricingMode(r.RateType),
		Rate:           r.Rate,
		Hours:          r.Hours,
		Cost:           r.Cost,
		IncludeInTotal: r.IncludeInTotal,
	}
}

func assignmentPatch(r request.UpdateAssignmentRequest) service.AssignmentPatch {
	return service.AssignmentPatch{
		Skills:         r.Skills,
		RateType:       pricingMode(r.RateType),
		Rate:           r.Rate,
		Hours:          r.Hours,
		Cost:           r.Cost,
		IncludeInTotal: r.IncludeInTotal,
	}
}

func paymentMode(s string) payment.Mode {
	if s == string(payment.ModeCheckout) {
		return payment.ModeCheckout
	}
	return payment.ModePaymentIntent
}
