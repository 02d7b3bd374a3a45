package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Adapters
	redisCache "github.com/garala-cf/garala/internal/adapter/cache/redis"
	"github.com/garala-cf/garala/internal/adapter/email"
	grpcAdapter "github.com/garala-cf/garala/internal/adapter/grpc"
	natsAdapter "github.com/garala-cf/garala/internal/adapter/messaging/nats"
	memoryRepo "github.com/garala-cf/garala/internal/adapter/repository/memory"
	mongoRepo "github.com/garala-cf/garala/internal/adapter/repository/mongodb"
	postgresRepo "github.com/garala-cf/garala/internal/adapter/repository/postgres"
	"github.com/garala-cf/garala/internal/adapter/storage/s3"

	"github.com/garala-cf/garala/internal/config"
	"github.com/garala-cf/garala/internal/domain"
	"github.com/garala-cf/garala/internal/handler"
	"github.com/garala-cf/garala/internal/router"
	"github.com/garala-cf/garala/internal/usecase"

	// Platform
	"github.com/garala-cf/garala/internal/platform/logger"
	"github.com/garala-cf/garala/internal/platform/metrics"
	"github.com/garala-cf/garala/internal/platform/tracer"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// 1. Initialize Logger (LOG_LEVEL, LOG_FORMAT, LOG_OUTPUT_FILE)
	appLogger := logger.NewLogger()
	defer func() { _ = appLogger.Sync() }()

	// 2. Load Configuration
	cfg, err := config.LoadConfig(appLogger)
	if err != nil {
		appLogger.Fatal("Failed to load configuration", zap.Error(err))
	}
	appLogger.Info("Application starting...",
		zap.String("service_name", cfg.ServiceName),
		zap.String("store_driver", cfg.StoreDriver))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize OpenTelemetry Tracer
	tp, err := tracer.InitTracer(ctx, cfg.ServiceName, cfg.OTExporterOTLPEndpoint, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := tp.Shutdown(ctxShutdown); err != nil {
			appLogger.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	metricsManager := metrics.NewMetricsManager(cfg.ServiceName)

	// 4. Open the store
	store, err := openStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			appLogger.Error("Error closing store", zap.Error(err))
		}
	}()

	// 5. NATS broker for domain events and live feeds
	var (
		publisher usecase.EventPublisher
		broker    *natsAdapter.Broker
	)
	if cfg.NATSURL != "" {
		broker, err = natsAdapter.NewBroker(cfg.NATSURL, appLogger, cfg.ServiceName)
		if err != nil {
			appLogger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer broker.Close()
		publisher = metrics.InstrumentPublisher(broker, metricsManager)
	} else {
		appLogger.Warn("NATS_URL not set: domain events and live feeds are disabled.")
	}

	// 6. Optional adapters
	var imageStorage usecase.ImageStorage
	if cfg.MinioConfigured() {
		st, err := s3.NewStorage(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize image storage", zap.Error(err))
		}
		imageStorage = st
	} else {
		appLogger.Info("MinIO not configured: listing image uploads are disabled.")
	}

	var notifier usecase.Notifier
	if cfg.SMTPConfigured() {
		mailer := email.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPSenderEmail, cfg.PublicURL, appLogger)
		go mailer.Run(ctx)
		notifier = mailer
	} else {
		appLogger.Info("SMTP not configured: new conversation emails are disabled.")
	}

	var preferences *usecase.PreferencesUsecase
	if cfg.RedisAddr != "" {
		redisClient, err := redisCache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer redisClient.Close()
		preferences = usecase.NewPreferencesUsecase(redisCache.NewPreferencesStore(redisClient), cfg.StoreTimeout, appLogger)
	} else {
		appLogger.Info("REDIS_ADDR not set: preferences are disabled.")
	}

	// 7. Initialize Usecases
	conversationUC := usecase.NewConversationUsecase(store, publisher, notifier, cfg.StoreTimeout, appLogger)
	messageUC := usecase.NewMessageUsecase(store, publisher, cfg.StoreTimeout, appLogger)
	reviewUC := usecase.NewReviewUsecase(store, publisher, cfg.StoreTimeout, appLogger)
	listingUC := usecase.NewListingUsecase(store, imageStorage, publisher, cfg.StoreTimeout, appLogger)
	profileUC := usecase.NewProfileUsecase(store, cfg.StoreTimeout, appLogger)

	// 8. HTTP handlers and router
	handlers := router.Handlers{
		Listings:      handler.NewListingHandler(listingUC, metricsManager, appLogger),
		Reviews:       handler.NewReviewHandler(reviewUC, metricsManager, appLogger),
		Conversations: handler.NewConversationHandler(conversationUC, messageUC, metricsManager, appLogger),
		Profiles:      handler.NewProfileHandler(profileUC, preferences, metricsManager, appLogger),
	}
	if broker != nil {
		handlers.Health = handler.NewHealthHandler(store.Ping, broker, appLogger)
		handlers.Live = handler.NewLiveHandler(messageUC, broker, cfg.AllowedOrigins, metricsManager, appLogger)
	} else {
		handlers.Health = handler.NewHealthHandler(store.Ping, nil, appLogger)
	}
	httpServer := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: router.New(router.Options{
			ServiceName:    cfg.ServiceName,
			JWTSecret:      cfg.JWTSecret,
			AllowedOrigins: cfg.AllowedOrigins,
		}, handlers, metricsManager, appLogger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 9. Start servers
	grpcSrv, healthServer := grpcAdapter.NewHealthServer(appLogger, cfg.ServiceName)
	grpcLis, err := net.Listen("tcp", ":"+cfg.GRPCHealthPort)
	if err != nil {
		appLogger.Fatal("Failed to listen for gRPC", zap.String("port", cfg.GRPCHealthPort), zap.Error(err))
	}
	go func() {
		appLogger.Info("Starting gRPC health server", zap.String("port", cfg.GRPCHealthPort))
		if err := grpcSrv.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			appLogger.Fatal("gRPC server Serve error", zap.Error(err))
		}
	}()

	var metricsServer *http.Server
	if cfg.PrometheusMetricsPort != "" {
		metricsServer = metrics.NewMetricsServer(cfg.PrometheusMetricsPort, metricsManager.Registry)
		go func() {
			if err := metrics.StartMetricsServer(metricsServer, appLogger); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLogger.Error("Prometheus metrics server failed", zap.Error(err))
			}
		}()
	}

	httpLis, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		appLogger.Fatal("Failed to listen for HTTP", zap.String("addr", httpServer.Addr), zap.Error(err))
	}
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("addr", httpServer.Addr))
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	healthServer.SetServingStatus(cfg.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	// 10. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	healthServer.SetServingStatus(cfg.ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctxShutdown); err != nil {
			appLogger.Error("Metrics server shutdown failed", zap.Error(err))
		}
	}
	grpcSrv.GracefulStop()
	cancel()

	appLogger.Info("Application shutting down...")
}

// openStore connects the configured backend and returns it behind the
// repository interfaces.
func openStore(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (*domain.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := postgresRepo.Connect(ctx, cfg.PostgresDSN, appLogger)
		if err != nil {
			return nil, err
		}
		if err := postgresRepo.Migrate(ctx, db, appLogger); err != nil {
			db.Close()
			return nil, err
		}
		return postgresRepo.NewStore(db), nil
	case config.StoreDriverMongo:
		client, err := mongoRepo.Connect(ctx, cfg.MongoURI, appLogger)
		if err != nil {
			return nil, err
		}
		store, err := mongoRepo.NewStore(ctx, client, client.Database(cfg.MongoDatabase), appLogger)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return store, nil
	case config.StoreDriverMemory:
		appLogger.Warn("Using the in-memory store: data is lost on restart.")
		return memoryRepo.NewStore().Repositories(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
