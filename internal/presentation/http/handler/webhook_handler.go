package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/studio-billing-api/internal/application/service"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/dto/response"
)

// Stripe caps event payloads well below this
const maxWebhookBody = 64 << 10

// WebhookHandler receives payment processor callbacks
type WebhookHandler struct {
	webhookService *service.WebhookService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhookService *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// Stripe verifies the Stripe-Signature header over the raw body and
// applies the event. Every verified event is acknowledged with 200 so the
// processor stops retrying.
// @Summary Stripe Webhook
// @Tags webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Signature header"
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.APIResponse
// @Router /webhooks/stripe [post]
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "Unable to read webhook body")
		return
	}

	result, err := h.webhookService.HandleStripe(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Webhook received", result)
}
