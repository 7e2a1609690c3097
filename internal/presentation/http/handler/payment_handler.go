package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/application/service"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/sangkips/studio-billing-api/internal/domain/repository"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/dto/request"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/dto/response"
	"github.com/sangkips/studio-billing-api/pkg/pagination"
)

// PaymentHandler handles payment-related HTTP requests
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func parsePaymentStatus(s *string) (*enum.PaymentStatus, error) {
	if s == nil {
		return nil, nil
	}
	status, err := enum.ParsePaymentStatus(*s)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// List handles listing payments
// @Summary List Payments
// @Tags payments
// @Security BearerAuth
// @Produce json
// @Param invoice_id query string false "Invoice filter"
// @Param status query string false "pending, completed or failed"
// @Success 200 {object} response.APIResponse
// @Router /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req request.PaymentFilterRequest
	if !bindQuery(c, &req) {
		return
	}

	var filter repository.PaymentFilter
	if req.InvoiceID != "" {
		invoiceID, err := uuid.Parse(req.InvoiceID)
		if err != nil {
			response.BadRequest(c, "Invalid invoice ID")
			return
		}
		filter.InvoiceID = &invoiceID
	}
	if req.Status != "" {
		status, err := parsePaymentStatus(&req.Status)
		if err != nil {
			response.BadRequest(c, "Invalid status filter")
			return
		}
		filter.Status = status
	}

	result, err := h.paymentService.ListPayments(c.Request.Context(), &service.ListPaymentsInput{
		UserID:     userID,
		Pagination: pagination.Params(req.Page, req.PerPage),
		Filter:     filter,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Page(c, "Payments retrieved successfully", result)
}

func (h *PaymentHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "payment")
	if !ok {
		return
	}

	p, err := h.paymentService.GetPayment(c.Request.Context(), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment retrieved successfully", p)
}

// Create records an offline payment against an invoice
// @Summary Record Payment
// @Tags payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Replays return the first response"
// @Param request body request.RecordPaymentRequest true "Payment data"
// @Success 201 {object} response.APIResponse
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req request.RecordPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	status, err := parsePaymentStatus(req.Status)
	if err != nil {
		response.BadRequest(c, "Invalid payment status")
		return
	}

	p, err := h.paymentService.RecordPayment(c.Request.Context(), &service.RecordPaymentInput{
		UserID:    userID,
		Actor:     actor(c),
		InvoiceID: req.InvoiceID,
		Amount:    req.Amount,
		Method:    enum.PaymentMethod(req.Method),
		Reference: req.Reference,
		Status:    status,
		Notes:     req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Payment recorded successfully", p)
}

func (h *PaymentHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "payment")
	if !ok {
		return
	}

	var req request.UpdatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	status, err := parsePaymentStatus(req.Status)
	if err != nil {
		response.BadRequest(c, "Invalid payment status")
		return
	}

	input := &service.UpdatePaymentInput{
		UserID:    userID,
		ID:        id,
		Actor:     actor(c),
		Amount:    req.Amount,
		Reference: req.Reference,
		Status:    status,
		Notes:     req.Notes,
	}
	if req.Method != nil {
		m := enum.PaymentMethod(*req.Method)
		input.Method = &m
	}

	p, err := h.paymentService.UpdatePayment(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment updated successfully", p)
}

func (h *PaymentHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "payment")
	if !ok {
		return
	}

	if err := h.paymentService.DeletePayment(c.Request.Context(), userID, id, actor(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment deleted successfully", nil)
}

type createIntentRequest struct {
	InvoiceID uuid.UUID `json:"invoice_id" binding:"required"`
	Mode      string    `json:"mode" binding:"omitempty,oneof=payment_intent checkout"`
}

// CreateIntent starts a processor payment for an owned invoice
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createIntentRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.paymentService.CreateIntent(c.Request.Context(), userID, req.InvoiceID, paymentMode(req.Mode))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment started", session)
}
