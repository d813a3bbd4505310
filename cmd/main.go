// @title Organization App API
// @version 1.0
// @description Bakery order board: events (customer orders) and the product catalog.
// @BasePath /

//go:generate swag init -g cmd/main.go -o docs

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/KarenYumi/OrganizationApp/internal/audit"
	"github.com/KarenYumi/OrganizationApp/internal/config"
	httpapi "github.com/KarenYumi/OrganizationApp/internal/http"
	"github.com/KarenYumi/OrganizationApp/internal/messaging"
	"github.com/KarenYumi/OrganizationApp/internal/repository"
	"github.com/KarenYumi/OrganizationApp/internal/service"
	"github.com/KarenYumi/OrganizationApp/internal/telemetry"

	_ "github.com/KarenYumi/OrganizationApp/docs"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	ctx := context.Background()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName, version)
	if err != nil {
		logger.Fatal("Failed to init tracer provider", zap.Error(err))
	}
	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.Telemetry.ServiceName, version)
	if err != nil {
		logger.Fatal("Failed to init meter provider", zap.Error(err))
	}
	storeMetrics, err := telemetry.NewStoreMetrics()
	if err != nil {
		logger.Fatal("Failed to create store metrics", zap.Error(err))
	}

	storeOpts := []repository.Option{repository.WithMetrics(storeMetrics)}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("Failed to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		storeOpts = append(storeOpts, repository.WithLocker(repository.NewRedisLocker(rdb, cfg.Redis.KeyPrefix, cfg.Redis.LockTTL)))
		logger.Info("Using redis write locks", zap.String("addr", cfg.Redis.Addr))
	}

	events, err := repository.NewFileEvents(cfg.Storage.EventsFile, storeOpts...)
	if err != nil {
		logger.Fatal("Failed to open events store", zap.Error(err))
	}
	products, err := repository.NewFileProducts(cfg.Storage.ProductsFile, storeOpts...)
	if err != nil {
		logger.Fatal("Failed to open products store", zap.Error(err))
	}

	opts := httpapi.Options{
		ResponseDelay: cfg.Server.ResponseDelay,
		Metrics:       metricsHandler,
	}
	notifiers := []service.ChangeNotifier{service.NewLogNotifier(logger)}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := messaging.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		notifiers = append(notifiers, producer)
		logger.Info("Publishing changes to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	if cfg.MongoDB.URI != "" {
		auditor, err := audit.Connect(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.Collection, cfg.Telemetry.ServiceName)
		if err != nil {
			logger.Warn("Failed to connect to mongodb, continuing without audit log", zap.Error(err))
		} else {
			defer auditor.Close(context.Background())
			notifiers = append(notifiers, auditor)
			opts.History = auditor
		}
	}

	eventsSvc := service.NewEventService(events, logger, notifiers...)
	productsSvc := service.NewProductService(products)

	srv := httpapi.NewServer(eventsSvc, productsSvc, logger, opts)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: otelhttp.NewHandler(srv.Engine(), "organization-api"),
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	if err := shutdownMeter(shutdownCtx); err != nil {
		logger.Warn("meter provider shutdown", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Warn("tracer provider shutdown", zap.Error(err))
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	if cfg.Encoding != "" {
		zc.Encoding = cfg.Encoding
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}
