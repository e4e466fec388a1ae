package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sitegrid/commerce-service/internal/service"
	"github.com/sitegrid/commerce-service/pkg/logger"
)

// OrderHandler обработчик для заказов
type OrderHandler struct {
	service service.CheckoutService
	log     *logger.Logger
}

// NewOrderHandler создает новый обработчик заказов
func NewOrderHandler(svc service.CheckoutService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		log:     log,
	}
}

// GetOrdersByOrg возвращает заказы организации
func (h *OrderHandler) GetOrdersByOrg(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("orgId"))
	if err != nil {
		h.log.Warn("Invalid org ID format: %s", c.Param("orgId"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid org ID format"})
		return
	}

	orders, err := h.service.ListOrdersByOrg(c.Request.Context(), orgID)
	if err != nil {
		h.log.Error("Failed to get orders for org %s: %v", orgID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get orders"})
		return
	}

	c.JSON(http.StatusOK, orders)
}
