package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sitegrid/commerce-service/internal/domain"
	"github.com/sitegrid/commerce-service/internal/middleware"
	"github.com/sitegrid/commerce-service/internal/service"
	"github.com/sitegrid/commerce-service/pkg/logger"
	"github.com/sitegrid/commerce-service/pkg/req"
)

// CheckoutHandler обработчик для инициации оплаты
type CheckoutHandler struct {
	service service.CheckoutService
	log     *logger.Logger
	zlog    *zap.Logger
}

// NewCheckoutHandler создает новый обработчик инициации оплаты
func NewCheckoutHandler(svc service.CheckoutService, log *logger.Logger) *CheckoutHandler {
	zlog, err := zap.NewProduction()
	if err != nil {
		zlog = zap.NewNop()
	}

	return &CheckoutHandler{
		service: svc,
		log:     log,
		zlog:    zlog,
	}
}

// CreateCheckout создает Checkout сессию для выбранной цены
func (h *CheckoutHandler) CreateCheckout(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing caller identity"})
		return
	}

	body, err := req.HandleBody[domain.CheckoutRequest](c.Writer, c.Request, h.zlog)
	if err != nil {
		// Ответ об ошибке уже записан
		return
	}

	resp, err := h.service.CreateCheckout(c.Request.Context(), identity, *body)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnauthenticated):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated"})
		case errors.Is(err, domain.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrExternalServiceUnavailable):
			h.log.Error("Checkout session creation failed upstream: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider unavailable"})
		default:
			h.log.Error("Failed to create checkout: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout"})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}
