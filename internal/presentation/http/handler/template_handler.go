package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/application/service"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/dto/request"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/dto/response"
)

// TemplateHandler handles service template HTTP requests
type TemplateHandler struct {
	templateService *service.ServiceTemplateService
}

// NewTemplateHandler creates a new service template handler
func NewTemplateHandler(templateService *service.ServiceTemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

// List returns the user's templates plus the shared catalogue
func (h *TemplateHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	templates, err := h.templateService.ListTemplates(c.Request.Context(), userID, c.Query("category"), c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Service templates retrieved successfully", templates)
}

func (h *TemplateHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "template")
	if !ok {
		return
	}

	tmpl, err := h.templateService.GetTemplate(c.Request.Context(), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Service template retrieved successfully", tmpl)
}

func (h *TemplateHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req request.TemplateRequest
	if !bindJSON(c, &req) {
		return
	}

	tmpl, err := h.templateService.CreateTemplate(c.Request.Context(), templateInput(userID, &req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Service template created successfully", tmpl)
}

func (h *TemplateHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "template")
	if !ok {
		return
	}

	var req request.TemplateRequest
	if !bindJSON(c, &req) {
		return
	}

	input := templateInput(userID, &req)
	input.ID = id
	tmpl, err := h.templateService.UpdateTemplate(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Service template updated successfully", tmpl)
}

func (h *TemplateHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "template")
	if !ok {
		return
	}

	if err := h.templateService.DeleteTemplate(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Service template deleted successfully", nil)
}

func templateInput(userID uuid.UUID, req *request.TemplateRequest) *service.TemplateInput {
	return &service.TemplateInput{
		UserID:         userID,
		Name:           req.Name,
		Category:       req.Category,
		Description:    req.Description,
		BasePrice:      req.BasePrice,
		DefaultTaxable: req.DefaultTaxable,
	}
}
