package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sitegrid/commerce-service/config"
	"github.com/sitegrid/commerce-service/internal/api/rest"
	"github.com/sitegrid/commerce-service/internal/kafka"
	"github.com/sitegrid/commerce-service/internal/kafka/producer"
	"github.com/sitegrid/commerce-service/internal/metrics"
	"github.com/sitegrid/commerce-service/internal/middleware"
	"github.com/sitegrid/commerce-service/internal/repository"
	"github.com/sitegrid/commerce-service/internal/repository/postgres"
	"github.com/sitegrid/commerce-service/internal/service"
	"github.com/sitegrid/commerce-service/internal/stripe"
	"github.com/sitegrid/commerce-service/pkg/logger"
)

var log *logger.Logger

func init() {
	// Загружаем переменные окружения
	if err := godotenv.Load(); err != nil {
		// Пропускаем ошибку, если .env файл не найден
	}

	log = logger.New(logger.ParseLevel(os.Getenv("LOG_LEVEL")))
}

func main() {
	// Загрузка конфигурации; без обязательных секретов сервис не стартует
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализация Prometheus
	promRegistry := prometheus.NewRegistry()
	commerceMetrics := metrics.NewCommerceMetrics(promRegistry, log)

	// Подключение к базе данных
	dbPool, err := postgres.NewConnection(ctx, cfg.Database.GetDSN(), log)
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	orderRepo := repository.NewPostgresOrderRepository(dbPool, log)

	var catalogRepo repository.CatalogRepository = repository.NewPostgresCatalogRepository(dbPool, log)
	if cfg.Redis.Enabled {
		cache, err := repository.NewRedisCacheRepository(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis: %v", err)
		}
		catalogRepo = repository.NewCachedCatalogRepository(catalogRepo, cache, log)
	}

	// Инициализация Kafka продюсера
	orderProducer := producer.NewNopOrderProducer()
	if cfg.Kafka.Enabled {
		kafkaConfig := kafka.NewConfig(cfg.Kafka.Brokers)
		saramaConfig := kafka.NewSaramaConfig(kafkaConfig, log)

		kafkaProducer, err := sarama.NewSyncProducer(kafkaConfig.Brokers, saramaConfig)
		if err != nil {
			log.Fatal("Failed to create Kafka producer: %v", err)
		}
		orderProducer = producer.NewKafkaOrderProducer(kafkaProducer, log)
	}
	defer orderProducer.Close()

	// Stripe клиент и сервисы
	stripeClient := stripe.NewClient(cfg.Stripe.APIKey, log)

	catalogService := service.NewCatalogService(catalogRepo, stripeClient, commerceMetrics, log)
	checkoutService := service.NewCheckoutService(catalogRepo, orderRepo, stripeClient, orderProducer, commerceMetrics, cfg.App.BaseURL, log)
	webhookService := service.NewWebhookService(orderRepo, orderProducer, commerceMetrics, cfg.Stripe.WebhookSecret, log)

	authMiddleware := middleware.NewJWTMiddleware(log, &middleware.DefaultTokenValidator{
		Secret: []byte(cfg.Auth.JWTSecret),
	})

	// Установка режима Gin
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Настройка маршрутизатора
	router := rest.SetupRouter(rest.RouterDeps{
		Checkout: checkoutService,
		Catalog:  catalogService,
		Webhook:  webhookService,
		Auth:     authMiddleware,
		Registry: promRegistry,
		Log:      log,
	})

	// Создание и запуск HTTP сервера
	server := rest.NewServer(router, cfg, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
