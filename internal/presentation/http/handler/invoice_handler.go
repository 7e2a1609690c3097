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

// InvoiceHandler handles invoice-related HTTP requests
type InvoiceHandler struct {
	invoiceService *service.InvoiceService
	billingService *service.ContractorBillingService
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoiceService *service.InvoiceService, billingService *service.ContractorBillingService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService, billingService: billingService}
}

// List handles listing invoices
// @Summary List Invoices
// @Description Sent invoices past their due date are marked overdue first.
// @Tags invoices
// @Security BearerAuth
// @Produce json
// @Param status query string false "draft, sent, paid, overdue or cancelled"
// @Success 200 {object} response.APIResponse
// @Router /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req request.DocumentFilterRequest
	if !bindQuery(c, &req) {
		return
	}

	filter := repository.InvoiceFilter{Search: req.Search}
	if req.Status != "" {
		status, err := enum.ParseInvoiceStatus(req.Status)
		if err != nil {
			response.BadRequest(c, "Invalid status filter")
			return
		}
		filter.Status = &status
	}
	if req.ClientID != "" {
		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			response.BadRequest(c, "Invalid client ID")
			return
		}
		filter.ClientID = &clientID
	}

	result, err := h.invoiceService.ListInvoices(c.Request.Context(), &service.ListInvoicesInput{
		UserID:     userID,
		Pagination: pagination.Params(req.Page, req.PerPage),
		Filter:     filter,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Page(c, "Invoices retrieved successfully", result)
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice retrieved successfully", invoice)
}

// Create handles creating a draft invoice from scratch
func (h *InvoiceHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req request.CreateInvoiceRequest
	if !bindJSON(c, &req) {
		return
	}
	dueDate, err := request.ParseDate(req.DueDate)
	if err != nil {
		badDate(c, "due_date")
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), &service.CreateInvoiceInput{
		UserID:   userID,
		Actor:    actor(c),
		ClientID: req.ClientID,
		Title:    req.Title,
		DueDate:  dueDate,
		TaxRate:  req.TaxRate,
		Notes:    req.Notes,
		Items:    itemInputs(req.Items),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Invoice created successfully", invoice)
}

func (h *InvoiceHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}

	var req request.UpdateDocumentRequest
	if !bindJSON(c, &req) {
		return
	}
	dueDate, err := request.ParseDate(req.DueDate)
	if err != nil {
		badDate(c, "due_date")
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), &service.UpdateInvoiceInput{
		UserID:   userID,
		ID:       id,
		ClientID: req.ClientID,
		Title:    req.Title,
		DueDate:  dueDate,
		TaxRate:  req.TaxRate,
		Notes:    req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice updated successfully", invoice)
}

// Delete removes a draft or cancelled invoice
func (h *InvoiceHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}

	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice deleted successfully", nil)
}

// AddItem adds a line item and returns the recomputed invoice
// @Summary Add Invoice Item
// @Tags invoices
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param request body request.ItemRequest true "Item data"
// @Success 201 {object} response.APIResponse
// @Router /invoices/{id}/items [post]
func (h *InvoiceHandler) AddItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}

	var req request.ItemRequest
	if !bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.AddItem(c.Request.Context(), userID, id, itemInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Item added successfully", invoice)
}

func (h *InvoiceHandler) UpdateItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}
	itemID, ok := paramUUID(c, "itemId", "item")
	if !ok {
		return
	}

	var req request.UpdateItemRequest
	if !bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.UpdateItem(c.Request.Context(), userID, id, itemID, itemPatch(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Item updated successfully", invoice)
}

func (h *InvoiceHandler) DeleteItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}
	itemID, ok := paramUUID(c, "itemId", "item")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.DeleteItem(c.Request.Context(), userID, id, itemID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Item deleted successfully", invoice)
}

// AssignContractor adds a contractor assignment
func (h *InvoiceHandler) AssignContractor(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}

	var req request.AssignmentRequest
	if !bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.AssignContractor(c.Request.Context(), userID, id, assignmentInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Contractor assigned successfully", invoice)
}

func (h *InvoiceHandler) UpdateAssignment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}
	contractorID, ok := paramUUID(c, "contractorId", "contractor")
	if !ok {
		return
	}

	var req request.UpdateAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.UpdateAssignment(c.Request.Context(), userID, id, contractorID, assignmentPatch(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Assignment updated successfully", invoice)
}

func (h *InvoiceHandler) RemoveContractor(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}
	contractorID, ok := paramUUID(c, "contractorId", "contractor")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.RemoveContractor(c.Request.Context(), userID, id, contractorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Contractor removed successfully", invoice)
}

// Send issues the invoice and emails the payment link
// @Summary Send Invoice
// @Tags invoices
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param request body request.SendRequest false "Optional due_date override"
// @Success 200 {object} response.APIResponse
// @Router /invoices/{id}/send [post]
func (h *InvoiceHandler) Send(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}

	var req request.SendRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	dueDate, err := request.ParseDate(req.DueDate)
	if err != nil {
		badDate(c, "due_date")
		return
	}

	result, err := h.invoiceService.SendInvoice(c.Request.Context(), &service.SendInvoiceInput{
		UserID:  userID,
		ID:      id,
		Actor:   actor(c),
		DueDate: dueDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice sent successfully", result)
}

func (h *InvoiceHandler) Email(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}

	if err := h.invoiceService.EmailInvoice(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice emailed successfully", nil)
}

func (h *InvoiceHandler) Cancel(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}

	var req request.CancelInvoiceRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.CancelInvoice(c.Request.Context(), userID, id, actor(c), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice cancelled", invoice)
}

func (h *InvoiceHandler) Activity(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}

	entries, err := h.invoiceService.Activity(c.Request.Context(), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Activity retrieved successfully", entries)
}

// MarkOverdue sweeps the user's sent invoices whose due date has passed
func (h *InvoiceHandler) MarkOverdue(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	n, err := h.invoiceService.MarkOverdue(c.Request.Context(), &userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Overdue invoices updated", gin.H{"overdue": n})
}

// BillSeparately moves one contractor's fee off the invoice onto its own
// payment link
// @Summary Bill Contractor Separately
// @Tags invoices
// @Security BearerAuth
// @Produce json
// @Param id path string true "Invoice ID"
// @Param contractorId path string true "Contractor ID"
// @Success 200 {object} response.APIResponse
// @Router /invoices/{id}/contractors/{contractorId}/bill-separately [post]
func (h *InvoiceHandler) BillSeparately(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}
	contractorID, ok := paramUUID(c, "contractorId", "contractor")
	if !ok {
		return
	}

	result, err := h.billingService.BillSeparately(c.Request.Context(), userID, id, contractorID, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Contractor billed separately", result)
}

// BulkBillSeparately bills every eligible listed contractor under one token
func (h *InvoiceHandler) BulkBillSeparately(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}

	var req request.BillSeparatelyRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.billingService.BulkBillSeparately(c.Request.Context(), userID, id, req.ContractorIDs, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Contractors billed separately", result)
}

// Public returns the client-facing view of an invoice
// @Summary Public Invoice
// @Tags public
// @Produce json
// @Param id path string true "Invoice ID"
// @Param token query string true "Payment token"
// @Success 200 {object} response.APIResponse
// @Router /invoices/{id}/public [get]
func (h *InvoiceHandler) Public(c *gin.Context) {
	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}

	pi, err := h.invoiceService.GetPublicInvoice(c.Request.Context(), id, c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice retrieved successfully", response.NewPublicInvoiceView(pi))
}

// PaymentIntent starts a payment of the invoice's remaining balance
func (h *InvoiceHandler) PaymentIntent(c *gin.Context) {
	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}

	var req request.PaymentIntentRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.invoiceService.StartPayment(c.Request.Context(), id, req.Token, paymentMode(req.Mode))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment started", session)
}

// FeeBatch returns a separately billed contractor batch by its token
// @Summary Contractor Fee Batch
// @Tags public
// @Produce json
// @Param token path string true "Contractor fee token"
// @Success 200 {object} response.APIResponse
// @Router /contractor-fees/{token} [get]
func (h *InvoiceHandler) FeeBatch(c *gin.Context) {
	batch, err := h.billingService.GetFeeBatch(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Contractor fees retrieved successfully", response.NewFeeBatchView(batch))
}

func (h *InvoiceHandler) FeePaymentIntent(c *gin.Context) {
	var req request.PaymentIntentRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	session, err := h.billingService.StartPayment(c.Request.Context(), c.Param("token"), paymentMode(req.Mode))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment started", session)
}
