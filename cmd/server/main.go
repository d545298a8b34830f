package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/corepay/transfer-saga-service/internal/adapter/cache/redis"
	"github.com/corepay/transfer-saga-service/internal/adapter/httpapi"
	ledgerhttp "github.com/corepay/transfer-saga-service/internal/adapter/ledger/http"
	"github.com/corepay/transfer-saga-service/internal/adapter/messaging/rabbitmq"
	"github.com/corepay/transfer-saga-service/internal/adapter/repository/postgres"
	"github.com/corepay/transfer-saga-service/internal/config"
	"github.com/corepay/transfer-saga-service/internal/usecase/idempotency"
	"github.com/corepay/transfer-saga-service/internal/usecase/intake"
	"github.com/corepay/transfer-saga-service/internal/usecase/query"
	"github.com/corepay/transfer-saga-service/internal/usecase/saga"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, relying on environment")
	}

	cfg := config.Load()

	// 1. Durable transfer store
	db, err := postgres.NewDB(postgres.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := postgres.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	transferRepo := postgres.NewTransferRepository(db)

	// 2. Ephemeral idempotency cache
	redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
	idempotencyCache := redis.NewCache(redisClient)

	// 3. Event publisher
	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange, log)
	if err != nil {
		log.Fatalf("Failed to connect to rabbitmq: %v", err)
	}
	defer publisher.Close()

	// 4. External account ledger
	ledger := ledgerhttp.NewClient(cfg.LedgerBaseURL)

	// 5. Services
	guard := idempotency.NewGuard(idempotencyCache, transferRepo, log)
	guard.TTL = cfg.IdempotencyTTL

	orchestrator := saga.NewOrchestrator(ledger, log)
	orchestrator.MaxAttempts = cfg.SagaMaxAttempts
	orchestrator.RetryBase = cfg.SagaRetryBase

	intakeService := intake.NewService(guard, transferRepo, orchestrator, publisher, log)
	queryService := query.NewService(transferRepo)

	// 6. HTTP surface
	router := gin.New()
	router.Use(gin.Recovery())

	handler := httpapi.NewHandler(intakeService, queryService, log)
	handler.Register(router)

	server := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	go func() {
		log.Infof("transfer service listening on %s", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	waitForShutdown(server, log)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(server *http.Server, log *logrus.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Infof("Received signal: %v. Shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("Forced shutdown: %v", err)
	}

	log.Info("server stopped")
}
