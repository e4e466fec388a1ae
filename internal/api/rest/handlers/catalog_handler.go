package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sitegrid/commerce-service/internal/domain"
	"github.com/sitegrid/commerce-service/internal/service"
	"github.com/sitegrid/commerce-service/pkg/logger"
)

// CatalogHandler обработчик для каталога продуктов
type CatalogHandler struct {
	service service.CatalogService
	log     *logger.Logger
}

// NewCatalogHandler создает новый обработчик каталога
func NewCatalogHandler(svc service.CatalogService, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: svc,
		log:     log,
	}
}

// Sync запускает проход синхронизации каталога из Stripe
func (h *CatalogHandler) Sync(c *gin.Context) {
	result, err := h.service.Sync(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrExternalServiceUnavailable) {
			h.log.Error("Catalog sync failed upstream: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider unavailable"})
			return
		}
		h.log.Error("Failed to sync catalog: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync catalog"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetProducts возвращает продукты локального зеркала каталога
func (h *CatalogHandler) GetProducts(c *gin.Context) {
	products, err := h.service.ListProducts(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to get products: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get products"})
		return
	}

	c.JSON(http.StatusOK, products)
}

// GetProductPrices возвращает цены продукта
func (h *CatalogHandler) GetProductPrices(c *gin.Context) {
	productID := c.Param("id")

	prices, err := h.service.ListPricesByProduct(c.Request.Context(), productID)
	if err != nil {
		h.log.Error("Failed to get prices for product %s: %v", productID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get prices"})
		return
	}

	c.JSON(http.StatusOK, prices)
}
