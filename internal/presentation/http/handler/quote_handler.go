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

// QuoteHandler handles quote-related HTTP requests
type QuoteHandler struct {
	quoteService *service.QuoteService
}

// NewQuoteHandler creates a new quote handler
func NewQuoteHandler(quoteService *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService}
}

// List handles listing quotes
// @Summary List Quotes
// @Description Get quotes with pagination and filtering. Sent quotes past their validity are expired first.
// @Tags quotes
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page number"
// @Param per_page query int false "Items per page"
// @Param search query string false "Search term"
// @Param status query string false "draft, sent, approved, rejected or expired"
// @Param client_id query string false "Client filter"
// @Success 200 {object} response.APIResponse
// @Router /quotes [get]
func (h *QuoteHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req request.DocumentFilterRequest
	if !bindQuery(c, &req) {
		return
	}

	filter := repository.QuoteFilter{Search: req.Search}
	if req.Status != "" {
		status, err := enum.ParseQuoteStatus(req.Status)
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

	result, err := h.quoteService.ListQuotes(c.Request.Context(), &service.ListQuotesInput{
		UserID:     userID,
		Pagination: pagination.Params(req.Page, req.PerPage),
		Filter:     filter,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Page(c, "Quotes retrieved successfully", result)
}

// Get handles getting a single quote with its items and contractors
func (h *QuoteHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "quote")
	if !ok {
		return
	}

	quote, err := h.quoteService.GetQuote(c.Request.Context(), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Quote retrieved successfully", quote)
}

// Create handles creating a draft quote
// @Summary Create Quote
// @Tags quotes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body request.CreateQuoteRequest true "Quote data"
// @Success 201 {object} response.APIResponse
// @Router /quotes [post]
func (h *QuoteHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req request.CreateQuoteRequest
	if !bindJSON(c, &req) {
		return
	}
	validUntil, err := request.ParseDate(req.ValidUntil)
	if err != nil {
		badDate(c, "valid_until")
		return
	}

	quote, err := h.quoteService.CreateQuote(c.Request.Context(), &service.CreateQuoteInput{
		UserID:     userID,
		Actor:      actor(c),
		ClientID:   req.ClientID,
		Title:      req.Title,
		ValidUntil: validUntil,
		TaxRate:    req.TaxRate,
		Notes:      req.Notes,
		Items:      itemInputs(req.Items),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Quote created successfully", quote)
}

// Update handles editing the quote header
func (h *QuoteHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "quote")
	if !ok {
		return
	}

	var req request.UpdateDocumentRequest
	if !bindJSON(c, &req) {
		return
	}
	validUntil, err := request.ParseDate(req.ValidUntil)
	if err != nil {
		badDate(c, "valid_until")
		return
	}

	quote, err := h.quoteService.UpdateQuote(c.Request.Context(), &service.UpdateQuoteInput{
		UserID:     userID,
		ID:         id,
		ClientID:   req.ClientID,
		Title:      req.Title,
		ValidUntil: validUntil,
		TaxRate:    req.TaxRate,
		Notes:      req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Quote updated successfully", quote)
}

func (h *QuoteHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "quote")
	if !ok {
		return
	}

	if err := h.quoteService.DeleteQuote(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Quote deleted successfully", nil)
}

// AddItem adds a line item and returns the recomputed quote
// @Summary Add Quote Item
// @Tags quotes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body request.ItemRequest true "Item data"
// @Success 201 {object} response.APIResponse
// @Router /quotes/{id}/items [post]
func (h *QuoteHandler) AddItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "quote")
	if !ok {
		return
	}

	var req request.ItemRequest
	if !bindJSON(c, &req) {
		return
	}

	quote, err := h.quoteService.AddItem(c.Request.Context(), userID, id, itemInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Item added successfully", quote)
}

func (h *QuoteHandler) UpdateItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "quote")
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

	quote, err := h.quoteService.UpdateItem(c.Request.Context(), userID, id, itemID, itemPatch(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Item updated successfully", quote)
}

func (h *QuoteHandler) DeleteItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "quote")
	if !ok {
		return
	}
	itemID, ok := paramUUID(c, "itemId", "item")
	if !ok {
		return
	}

	quote, err := h.quoteService.DeleteItem(c.Request.Context(), userID, id, itemID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Item deleted successfully", quote)
}

// AssignContractor adds a contractor assignment
func (h *QuoteHandler) AssignContractor(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "quote")
	if !ok {
		return
	}

	var req request.AssignmentRequest
	if !bindJSON(c, &req) {
		return
	}

	quote, err := h.quoteService.AssignContractor(c.Request.Context(), userID, id, assignmentInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Contractor assigned successfully", quote)
}

func (h *QuoteHandler) UpdateAssignment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "quote")
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

	quote, err := h.quoteService.UpdateAssignment(c.Request.Context(), userID, id, contractorID, assignmentPatch(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Assignment updated successfully", quote)
}

func (h *QuoteHandler) RemoveContractor(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "quote")
	if !ok {
		return
	}
	contractorID, ok := paramUUID(c, "contractorId", "contractor")
	if !ok {
		return
	}

	quote, err := h.quoteService.RemoveContractor(c.Request.Context(), userID, id, contractorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Contractor removed successfully", quote)
}

// Send moves the quote to sent and emails the approval link
// @Summary Send Quote
// @Tags quotes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body request.SendRequest false "Optional valid_until override"
// @Success 200 {object} response.APIResponse
// @Router /quotes/{id}/send [post]
func (h *QuoteHandler) Send(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "quote")
	if !ok {
		return
	}

	var req request.SendRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	validUntil, err := request.ParseDate(req.ValidUntil)
	if err != nil {
		badDate(c, "valid_until")
		return
	}

	result, err := h.quoteService.SendQuote(c.Request.Context(), &service.SendQuoteInput{
		UserID:     userID,
		ID:         id,
		Actor:      actor(c),
		ValidUntil: validUntil,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Quote sent successfully", result)
}

// Email resends the quote email without changing its state
func (h *QuoteHandler) Email(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "quote")
	if !ok {
		return
	}

	if err := h.quoteService.EmailQuote(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Quote emailed successfully", nil)
}

func (h *QuoteHandler) Activity(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "quote")
	if !ok {
		return
	}

	entries, err := h.quoteService.Activity(c.Request.Context(), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Activity retrieved successfully", entries)
}

// Convert turns an approved quote into a draft invoice
// @Summary Convert Quote
// @Tags quotes
// @Security BearerAuth
// @Produce json
// @Param id path string true "Quote ID"
// @Success 201 {object} response.APIResponse
// @Router /quotes/{id}/convert [post]
func (h *QuoteHandler) Convert(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "quote")
	if !ok {
		return
	}

	invoice, err := h.quoteService.ConvertToInvoice(c.Request.Context(), &service.ConvertInput{
		UserID: userID,
		ID:     id,
		Actor:  actor(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Quote converted to invoice", invoice)
}

// Expire sweeps the user's sent quotes whose validity has passed
func (h *QuoteHandler) Expire(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	n, err := h.quoteService.ExpireQuotes(c.Request.Context(), &userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Expired quotes updated", gin.H{"expired": n})
}

// Public returns the client-facing view of a quote
// @Summary Public Quote
// @Tags public
// @Produce json
// @Param id path string true "Quote ID"
// @Param token query string true "Approval token"
// @Success 200 {object} response.APIResponse
// @Router /quotes/{id}/public [get]
func (h *QuoteHandler) Public(c *gin.Context) {
	id, ok := paramUUID(c, "id", "quote")
	if !ok {
		return
	}

	pq, err := h.quoteService.GetPublicQuote(c.Request.Context(), id, c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Quote retrieved successfully", response.NewPublicQuoteView(pq))
}

// Reject is the client's decline of a sent quote
func (h *QuoteHandler) Reject(c *gin.Context) {
	h.decline(c, false)
}

// Feedback is a decline that carries a message and notifies both sides
func (h *QuoteHandler) Feedback(c *gin.Context) {
	h.decline(c, true)
}

func (h *QuoteHandler) decline(c *gin.Context, withFeedback bool) {
	id, ok := paramUUID(c, "id", "quote")
	if !ok {
		return
	}

	var req request.RejectQuoteRequest
	if !bindJSON(c, &req) {
		return
	}

	input := &service.RejectQuoteInput{ID: id, Token: req.Token, Feedback: req.Feedback}
	var (
		result *service.RejectionResult
		err    error
	)
	if withFeedback {
		result, err = h.quoteService.SubmitFeedback(c.Request.Context(), input)
	} else {
		result, err = h.quoteService.RejectQuote(c.Request.Context(), input)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Quote rejected", result)
}

// PaymentIntent starts a card payment that approves the quote on success
func (h *QuoteHandler) PaymentIntent(c *gin.Context) {
	id, ok := paramUUID(c, "id", "quote")
	if !ok {
		return
	}

	var req request.PaymentIntentRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.quoteService.StartPayment(c.Request.Context(), id, req.Token, paymentMode(req.Mode))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment started", session)
}
