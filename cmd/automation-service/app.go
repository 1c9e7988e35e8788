package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	"teamflow/internal/automation"
	"teamflow/internal/config"
	"teamflow/internal/constants"
	"teamflow/internal/engine"
	"teamflow/internal/logger"
	"teamflow/internal/outbound"
	"teamflow/internal/tasks"
	"teamflow/pkg/bootstrap"
	"teamflow/pkg/health"
	"teamflow/pkg/logging"
	"teamflow/pkg/metrics"
	"teamflow/pkg/middleware"
	"teamflow/pkg/ratelimit"
	"teamflow/pkg/tracing"
)

const serviceName = "automation-service"

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redis          *redis.Client
	repo           automation.Repository
	dispatcher     *engine.Dispatcher
	eventHandler   *engine.EventHandler
	scanner        *engine.Scanner
	watermarks     engine.WatermarkStore
	tracerProvider *tracing.TracerProvider
	router         *gin.Engine
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(serviceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	a.initEngine()

	if err := a.InitBroker(serviceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterEngineMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterCircuitBreakerMetrics()
	if a.Config.API.RateLimit.Enabled {
		metrics.RegisterAPIMetrics()
	}

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds,
	}

	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db

	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redis = rdb
	return nil
}

func (a *App) initEngine() {
	a.repo = automation.NewRepository(a.db)

	if a.redis != nil {
		a.watermarks = engine.NewRedisWatermarkStore(a.redis)
	} else {
		a.Logger.Warnw("Redis not configured, using in-memory due-date watermarks")
		a.watermarks = engine.NewMemoryWatermarkStore()
	}

	store := tasks.NewStore(a.db)
	effects := engine.Effects{
		Tasks:    store,
		Comments: store,
		Notifier: store,
		Email:    outbound.NewEmailSender(a.Config.Engine.Email, a.Logger),
		Webhooks: outbound.NewWebhookCaller(a.Config.Engine.Webhook, a.Config.CircuitBreaker, a.Logger),
	}

	executor := engine.NewExecutor(effects, a.Logger)
	recorder := engine.NewRecorder(a.repo, a.Logger)
	a.dispatcher = engine.NewDispatcher(a.repo, executor, recorder, a.Logger)
	a.eventHandler = engine.NewEventHandler(a.dispatcher, a.Logger)

	if a.Config.Engine.Scanner.Enabled {
		interval := a.Config.Engine.Scanner.Interval
		if interval <= 0 {
			interval = constants.DefaultScanInterval
		}
		ttl := a.Config.Engine.Scanner.WatermarkTTL
		if ttl <= 0 {
			ttl = constants.DefaultWatermarkTTL
		}
		a.scanner = engine.NewScanner(a.repo, store, a.watermarks, a.dispatcher, interval, ttl, a.Logger)
	}
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(serviceName))
	}

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.Config.API.RateLimit.Enabled {
		rateLimitConfig := ratelimit.DefaultConfig()
		if a.Config.API.RateLimit.RPS > 0 {
			rateLimitConfig.RPS = a.Config.API.RateLimit.RPS
		}
		if a.Config.API.RateLimit.Burst > 0 {
			rateLimitConfig.Burst = a.Config.API.RateLimit.Burst
		}
		router.Use(ratelimit.RateLimitMiddleware(rateLimitConfig))
		a.Logger.Infow("Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	svc := automation.NewService(a.repo, a.Logger,
		automation.WithWatermarkEvictor(a.watermarks),
	)
	handler := automation.NewHandler(svc, a.Logger)
	handler.RegisterRoutes(router)

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	if a.redis != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redis))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.router = router
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	topic := a.Config.Broker.Kafka.TaskEventTopic
	if topic == "" {
		topic = constants.DefaultTaskEventTopic
	}
	g.Go(func() error {
		consumeCtx := logging.WithServiceName(gCtx, serviceName)
		a.Logger.InfowCtx(consumeCtx, "Starting task event consumer", "topic", topic)
		return a.Consumer.Consume(gCtx, topic, a.eventHandler.Handle)
	})

	if a.scanner != nil {
		g.Go(func() error {
			a.scanner.Start(gCtx)
			return nil
		})
	}

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, serviceName)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down automation service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			serverCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(serverCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, a.db)...)
		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
