package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sitegrid/commerce-service/internal/api/rest/handlers"
	restmiddleware "github.com/sitegrid/commerce-service/internal/api/rest/middleware"
	"github.com/sitegrid/commerce-service/internal/middleware"
	"github.com/sitegrid/commerce-service/internal/service"
	"github.com/sitegrid/commerce-service/pkg/logger"
)

// RouterDeps зависимости маршрутизатора
type RouterDeps struct {
	Checkout service.CheckoutService
	Catalog  service.CatalogService
	Webhook  service.WebhookService
	Auth     *middleware.JWTMiddleware
	Registry *prometheus.Registry
	Log      *logger.Logger
}

// SetupRouter настраивает маршрутизатор Gin с маршрутами и middleware
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Подключение middleware
	r.Use(restmiddleware.LoggerMiddleware(deps.Log))
	r.Use(gin.Recovery())

	// Endpoint для проверки работоспособности сервиса
	r.GET("/health", handlers.HealthCheck)

	// Prometheus метрики
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	// Инициализация обработчиков
	checkoutHandler := handlers.NewCheckoutHandler(deps.Checkout, deps.Log)
	catalogHandler := handlers.NewCatalogHandler(deps.Catalog, deps.Log)
	orderHandler := handlers.NewOrderHandler(deps.Checkout, deps.Log)
	webhookHandler := handlers.NewWebhookHandler(deps.Webhook, deps.Log)

	v1 := r.Group("/api/v1")
	{
		// Инициация оплаты
		v1.POST("/checkout", deps.Auth.RequireAuth(), checkoutHandler.CreateCheckout)

		// Каталог
		products := v1.Group("/products")
		{
			products.GET("", catalogHandler.GetProducts)
			products.GET("/:id/prices", catalogHandler.GetProductPrices)
		}
		v1.POST("/catalog/sync", deps.Auth.RequireAuth(), catalogHandler.Sync)

		// Заказы организации
		v1.GET("/orgs/:orgId/orders", deps.Auth.RequireAuth(), orderHandler.GetOrdersByOrg)
	}

	// Вебхуки на корневом уровне роутера
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/stripe", webhookHandler.HandleStripeWebhook)
	}

	return r
}
