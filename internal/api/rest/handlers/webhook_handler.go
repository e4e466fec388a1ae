package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sitegrid/commerce-service/internal/domain"
	"github.com/sitegrid/commerce-service/internal/service"
	"github.com/sitegrid/commerce-service/pkg/logger"
)

// stripeSignatureHeader заголовок с подписью доставки Stripe
const stripeSignatureHeader = "Stripe-Signature"

// WebhookHandler обработчик для вебхуков
type WebhookHandler struct {
	service service.WebhookService
	log     *logger.Logger
}

// NewWebhookHandler создает новый обработчик вебхуков
func NewWebhookHandler(svc service.WebhookService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: svc,
		log:     log,
	}
}

// HandleStripeWebhook обрабатывает вебхуки от Stripe.
// Тело читается сырым: подпись считается по байтам запроса как он пришел.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.log.Error("Failed to read webhook body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read webhook body"})
		return
	}

	err = h.service.HandleEvent(c.Request.Context(), payload, c.GetHeader(stripeSignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSignature):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to verify webhook signature"})
		case errors.Is(err, domain.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed event payload"})
		default:
			// Провайдер повторит доставку, обработка идемпотентна
			h.log.Error("Failed to process webhook event: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process webhook event"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
