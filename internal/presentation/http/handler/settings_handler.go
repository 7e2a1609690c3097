package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/studio-billing-api/internal/application/service"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/dto/request"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/dto/response"
)

// SettingsHandler handles settings-related HTTP requests
type SettingsHandler struct {
	settingsService *service.SettingsService
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// GetSettings retrieves user settings, creating the defaults on first use
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	settings, err := h.settingsService.GetSettings(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Settings retrieved successfully", settings)
}

// UpdateSettings updates the fields present in the body
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req request.UpdateSettingsRequest
	if !bindJSON(c, &req) {
		return
	}

	settings, err := h.settingsService.UpdateSettings(c.Request.Context(), &service.UpdateSettingsInput{
		UserID:             userID,
		BusinessName:       req.BusinessName,
		BusinessEmail:      req.BusinessEmail,
		BusinessPhone:      req.BusinessPhone,
		BusinessAddress:    req.BusinessAddress,
		Currency:           req.Currency,
		DefaultTaxRate:     req.DefaultTaxRate,
		QuoteValidityDays:  req.QuoteValidityDays,
		PaymentTermsDays:   req.PaymentTermsDays,
		InvoiceFooter:      req.InvoiceFooter,
		EmailNotifications: req.EmailNotifications,
		AdminAlertEmail:    req.AdminAlertEmail,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Settings updated successfully", settings)
}
