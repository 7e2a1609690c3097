package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/studio-billing-api/internal/application/service"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/dto/request"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/dto/response"
	"github.com/sangkips/studio-billing-api/pkg/pagination"
)

// ContractorHandler handles contractor-related HTTP requests
type ContractorHandler struct {
	contractorService *service.ContractorService
}

// NewContractorHandler creates a new contractor handler
func NewContractorHandler(contractorService *service.ContractorService) *ContractorHandler {
	return &ContractorHandler{contractorService: contractorService}
}

// List handles listing contractors
// @Summary List Contractors
// @Tags contractors
// @Security BearerAuth
// @Produce json
// @Param active query bool false "Only active contractors"
// @Success 200 {object} response.APIResponse
// @Router /contractors [get]
func (h *ContractorHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var filter request.ContractorFilterRequest
	if !bindQuery(c, &filter) {
		return
	}

	result, err := h.contractorService.ListContractors(c.Request.Context(), userID,
		pagination.Params(filter.Page, filter.PerPage), filter.Search, filter.ActiveOnly)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Page(c, "Contractors retrieved successfully", result)
}

// Get handles getting a single contractor
func (h *ContractorHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "contractor")
	if !ok {
		return
	}

	contractor, err := h.contractorService.GetContractor(c.Request.Context(), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Contractor retrieved successfully", contractor)
}

// Create handles creating a contractor
func (h *ContractorHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req request.CreateContractorRequest
	if !bindJSON(c, &req) {
		return
	}

	contractor, err := h.contractorService.CreateContractor(c.Request.Context(), &service.CreateContractorInput{
		UserID:      userID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		PricingMode: enum.PricingMode(req.PricingMode),
		HourlyRate:  req.HourlyRate,
		FlatRate:    req.FlatRate,
		Skills:      req.Skills,
		Active:      req.Active,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Contractor created successfully", contractor)
}

// Update handles updating a contractor
func (h *ContractorHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "contractor")
	if !ok {
		return
	}

	var req request.UpdateContractorRequest
	if !bindJSON(c, &req) {
		return
	}

	input := &service.UpdateContractorInput{
		UserID:     userID,
		ID:         id,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		HourlyRate: req.HourlyRate,
		FlatRate:   req.FlatRate,
		Skills:     req.Skills,
		Active:     req.Active,
	}
	if req.PricingMode != nil {
		mode := enum.PricingMode(*req.PricingMode)
		input.PricingMode = &mode
	}

	contractor, err := h.contractorService.UpdateContractor(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Contractor updated successfully", contractor)
}

// Delete handles deleting a contractor
func (h *ContractorHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "contractor")
	if !ok {
		return
	}

	if err := h.contractorService.DeleteContractor(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Contractor deleted successfully", nil)
}
