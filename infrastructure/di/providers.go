package di

import (
	"context"
	"fmt"
	"net/http"

	"todo-backend/application/ports"
	"todo-backend/infrastructure/config"
	"todo-backend/infrastructure/persistence/decorators"
	"todo-backend/infrastructure/persistence/dynamodb"
	"todo-backend/infrastructure/persistence/memory"
	"todo-backend/infrastructure/persistence/sqlite"
	"todo-backend/interfaces/http/rest"
	pkgerrors "todo-backend/pkg/errors"
	"todo-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// BackingStore is the undecorated record store selected by configuration.
type BackingStore ports.Store

// ProvideLogLevel creates the level shared by the logger and the config watcher
func ProvideLogLevel(cfg *config.Config) (zap.AtomicLevel, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	return zap.NewAtomicLevelAt(level), nil
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = level

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}

	return logger.With(zap.String("service", "todo-backend")), nil
}

// ProvideTracerProvider exports spans over OTLP when tracing is enabled and
// hands out a no-op tracer otherwise.
func ProvideTracerProvider(cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	if !cfg.EnableTracing {
		return observability.NoopTracerProvider(), func() {}, nil
	}

	tp, err := observability.InitTracing(observability.TracingConfig{
		ServiceName: "todo-backend",
		Environment: cfg.Environment,
		Version:     "1.0",
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideTracer returns the service tracer
func ProvideTracer(tp *observability.TracerProvider) trace.Tracer {
	return tp.Tracer()
}

// ProvideMetrics creates the Prometheus collector, or nil when metrics are off
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector("todo")
}

// ProvideBackingStore opens the store named by STORE_DRIVER
func ProvideBackingStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (BackingStore, func(), error) {
	var store ports.Store

	switch cfg.StoreDriver {
	case config.DriverMemory:
		store = memory.NewStore()

	case config.DriverSQLite:
		s, err := sqlite.NewStore(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		store = s

	case config.DriverDynamoDB:
		s, err := newDynamoDBStore(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		store = s

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	logger.Info("Record store opened", zap.String("driver", cfg.StoreDriver))

	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close record store", zap.Error(err))
		}
	}
	return store, cleanup, nil
}

func newDynamoDBStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*dynamodb.Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})

	store := dynamodb.NewStore(client, cfg.TodosTable, cfg.TagsTable, logger)
	if cfg.CreateTables {
		if err := store.EnsureTables(ctx); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// ProvideStore wraps the backing store with timeouts, tracing, metrics and a
// circuit breaker.
func ProvideStore(
	inner BackingStore,
	cfg *config.Config,
	tracer trace.Tracer,
	metrics *observability.Collector,
	logger *zap.Logger,
) *decorators.ResilientStore {
	breakerCfg := decorators.DefaultConfig()
	breakerCfg.Name = cfg.StoreDriver
	breakerCfg.Timeout = cfg.StoreTimeout
	breakerCfg.MinRequests = cfg.BreakerMinRequests
	breakerCfg.FailureRatio = cfg.BreakerFailureRatio
	breakerCfg.Interval = cfg.BreakerInterval
	breakerCfg.OpenTimeout = cfg.BreakerOpenTimeout

	return decorators.NewResilientStore(inner, breakerCfg, tracer, metrics, logger)
}

// ProvideErrorHandler creates the HTTP error renderer. Error causes are
// included in responses only in development.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideRouterConfig extracts the HTTP settings from the configuration
func ProvideRouterConfig(cfg *config.Config) rest.RouterConfig {
	return rest.RouterConfig{
		EnableCORS:     cfg.EnableCORS,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}
}

// ProvideHTTPHandler builds the routed handler
func ProvideHTTPHandler(router *rest.Router) http.Handler {
	return router.Setup()
}
