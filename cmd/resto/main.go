package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/tably/resto-core/internal/auth"
	"github.com/tably/resto-core/internal/inventory"
	inventoryHTTP "github.com/tably/resto-core/internal/inventory/delivery/http"
	inventoryDomain "github.com/tably/resto-core/internal/inventory/domain"
	"github.com/tably/resto-core/internal/notify"
	"github.com/tably/resto-core/internal/notify/events"
	"github.com/tably/resto-core/internal/notify/realtime"
	"github.com/tably/resto-core/internal/notify/webhook"
	"github.com/tably/resto-core/internal/order"
	orderHTTP "github.com/tably/resto-core/internal/order/delivery/http"
	orderDomain "github.com/tably/resto-core/internal/order/domain"
	"github.com/tably/resto-core/pkg/database"
	"github.com/tably/resto-core/pkg/logger"
	"github.com/tably/resto-core/pkg/tracing"
)

func main() {
	// Initialize logger
	serviceName := getEnv("OTEL_SERVICE_NAME", "resto-core")
	isDevelopment := getEnv("ENVIRONMENT", "development") == "development"
	logger.Init(serviceName, isDevelopment)

	logLevel := getEnv("LOG_LEVEL", "info")
	logger.SetLevel(logLevel)

	logger.Logger.Info().
		Str("service", serviceName).
		Str("environment", getEnv("ENVIRONMENT", "development")).
		Str("log_level", logLevel).
		Msg("Starting resto-core service")

	// Initialize tracer
	tp, err := tracing.InitTracer(serviceName)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize tracer")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(ctx, tp); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
		}
	}()

	// Load database configuration
	dbConfig := database.Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "restodb"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Connect to database
	db, err := database.NewGormConnection(dbConfig)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}
	defer sqlDB.Close()

	// Dedicated pool for the /health probe so liveness checks never contend
	// with request traffic.
	healthDB, err := database.NewPostgresConnection(dbConfig)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to open health check connection")
	}
	defer healthDB.Close()

	// Run migrations
	if err := db.AutoMigrate(
		&orderDomain.Order{},
		&inventoryDomain.InventoryItem{},
		&inventoryDomain.StockMovement{},
		&inventoryDomain.Recipe{},
		&inventoryDomain.RecipeIngredient{},
	); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Logger.Info().Msg("Database initialized successfully")

	// Redis client for cross-instance realtime fan-out
	var redisClient *redis.Client
	if redisAddr := getEnv("REDIS_ADDR", ""); redisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Logger.Fatal().Err(err).Str("addr", redisAddr).Msg("Failed to connect to redis")
		}
		defer redisClient.Close()
		logger.Logger.Info().Str("addr", redisAddr).Msg("Redis connected")
	} else {
		logger.Logger.Warn().Msg("REDIS_ADDR not set, realtime updates stay in-process")
	}
	hub := realtime.NewHub(redisClient)

	// Kafka publisher for durable order events
	brokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	publisher, err := events.NewPublisher(brokers)
	if err != nil {
		logger.Logger.Fatal().Err(err).Strs("brokers", brokers).Msg("Failed to initialize Kafka publisher")
	}
	defer publisher.Close()

	// Partner webhook client; disabled unless WEBHOOK_URL is set
	webhookClient := webhook.NewClient(webhook.Config{
		URL:    getEnv("WEBHOOK_URL", ""),
		APIKey: getEnv("WEBHOOK_API_KEY", ""),
	})
	if !webhookClient.Configured() {
		logger.Logger.Warn().Msg("WEBHOOK_URL not set, partner webhook disabled")
	}

	notifier := notify.NewNotifier(hub, publisher, webhookClient)

	// Initialize handlers with Wire DI
	engine, err := inventory.InitializeEngine(db)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize deduction engine")
	}

	orderHandler, err := order.InitializeHTTPHandler(db, notifier, engine, hub)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize order handler")
	}

	inventoryHandler, err := inventory.InitializeHTTPHandler(db)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize inventory handler")
	}

	// Kafka consumer keeps the realtime hub fed on instances that did not
	// handle the originating request.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumerGroup := getEnv("KAFKA_CONSUMER_GROUP", "")
	if consumerGroup != "" {
		consumer, err := events.NewConsumer(brokers, consumerGroup, []string{events.TopicOrderEvents})
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to initialize Kafka consumer")
		}
		defer consumer.Close()

		relay := func(ctx context.Context, event events.OrderEvent) error {
			hub.PublishLocal(ctx, realtime.Update{
				EventType:      event.EventType,
				OrderID:        event.OrderID,
				OrderNumber:    event.OrderNumber,
				RestaurantID:   event.RestaurantID,
				Status:         event.Status,
				PreviousStatus: event.PreviousStatus,
				PaymentStatus:  event.PaymentStatus,
				Timestamp:      event.Timestamp,
			})
			return nil
		}
		for _, eventType := range []string{
			events.EventTypeOrderCreated,
			events.EventTypeOrderUpdated,
			events.EventTypeStatusChanged,
			events.EventTypePaymentStatusChanged,
			events.EventTypeOrderCancelled,
		} {
			consumer.RegisterHandler(eventType, events.SkipSelf(publisher.InstanceID(), relay))
		}

		if err := consumer.Start(ctx); err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to start Kafka consumer")
		}
	}

	// Start HTTP server
	httpPort := getEnv("HTTP_PORT", "8080")
	jwtSecret := getEnv("JWT_SECRET", "dev-secret")
	go startHTTPServer(orderHandler, inventoryHandler, healthDB, httpPort, jwtSecret)

	<-ctx.Done()
	logger.Logger.Info().Msg("Shutting down server...")
}

func startHTTPServer(
	orderHandler *orderHTTP.OrderHandler,
	inventoryHandler *inventoryHTTP.InventoryHandler,
	db *sql.DB,
	port string,
	jwtSecret string,
) {
	// Setup router
	router := mux.NewRouter()

	// Register routes
	orderHandler.RegisterRoutes(router)
	inventoryHandler.RegisterRoutes(router)

	// Health check endpoint
	orderHandler.RegisterHealthCheck(router, db)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Middleware chain: tracing -> logging -> auth. Probe endpoints stay open.
	authMiddleware := auth.NewMiddleware(jwtSecret)
	router.Use(
		mux.MiddlewareFunc(orderHTTP.TracingMiddleware),
		mux.MiddlewareFunc(orderHTTP.LoggingMiddleware),
		mux.MiddlewareFunc(skipAuthFor(authMiddleware.Handler, "/health", "/metrics")),
	)

	// CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	logger.Logger.Info().
		Str("port", port).
		Str("metrics_endpoint", "/metrics").
		Msg("HTTP server started")

	if err := http.ListenAndServe(":"+port, c.Handler(router)); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
	}
}

func skipAuthFor(authHandler func(http.Handler) http.Handler, openPaths ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		authed := authHandler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range openPaths {
				if r.URL.Path == path {
					next.ServeHTTP(w, r)
					return
				}
			}
			authed.ServeHTTP(w, r)
		})
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
