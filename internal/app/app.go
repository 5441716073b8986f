package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vadim/neo-dm/internal/config"
	httpcontroller "github.com/vadim/neo-dm/internal/controller/http"
	"github.com/vadim/neo-dm/internal/database"
	"github.com/vadim/neo-dm/internal/domain/messaging/dao"
	"github.com/vadim/neo-dm/internal/domain/messaging/policy"
	"github.com/vadim/neo-dm/internal/domain/messaging/service"
	"github.com/vadim/neo-dm/internal/domain/presence"
	"github.com/vadim/neo-dm/internal/domain/presence/scheduler"
	"github.com/vadim/neo-dm/internal/httpx/auth"
	"github.com/vadim/neo-dm/internal/httpx/ratelimit"
	"github.com/vadim/neo-dm/internal/metrics"
	"github.com/vadim/neo-dm/internal/notify"
	"github.com/vadim/neo-dm/internal/storage"
)

// App is the main application container
type App struct {
	cfg        config.Config
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	// Infrastructure; pool, redis and storage are nil when disabled
	pool    *pgxpool.Pool
	redis   *redis.Client
	storage *storage.S3Storage
	metrics *metrics.Metrics

	typing          *presence.Store
	typingLimiter   *ratelimit.Pool
	messagingPolicy *policy.Policy

	// Sweeper for expired typing entries
	sweeper *scheduler.Scheduler
}

// NewApp creates and initializes the application
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Initialize router with middleware
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	app := &App{
		cfg:    cfg,
		router: r,
		logger: logger,
	}

	// Initialize infrastructure
	if err := app.initInfrastructure(ctx); err != nil {
		app.closeInfrastructure()
		return nil, fmt.Errorf("initializing infrastructure: %w", err)
	}

	// Initialize domain layers
	if err := app.initDomains(ctx); err != nil {
		app.closeInfrastructure()
		return nil, fmt.Errorf("initializing domains: %w", err)
	}

	// Register routes
	if err := app.registerRoutes(); err != nil {
		app.closeInfrastructure()
		return nil, fmt.Errorf("registering routes: %w", err)
	}

	// Initialize HTTP server
	app.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Initialize typing sweeper
	app.sweeper = scheduler.New(
		sweepers{app.typing, limiterSweeper{app.typingLimiter}},
		app.metrics,
		scheduler.Config{Interval: cfg.Typing.SweepInterval},
		logger,
	)

	return app, nil
}

// initInfrastructure initializes infrastructure components (DB, Redis, S3)
func (a *App) initInfrastructure(ctx context.Context) error {
	a.metrics = metrics.New()

	if a.cfg.Database.PostgresDSN != "" {
		pool, err := database.NewPostgresPool(ctx, database.PoolConfig{
			DSN:          a.cfg.Database.PostgresDSN,
			MaxConns:     a.cfg.Database.MaxConns,
			MinConns:     a.cfg.Database.MinConns,
			ConnLifetime: a.cfg.Database.ConnLifetime,
		})
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		a.pool = pool

		if a.cfg.Database.Migrate {
			if err := database.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("migrating postgres: %w", err)
			}
		}
	} else {
		a.logger.Warn("DATABASE_URL is empty, using in-memory stores")
	}

	if a.cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("connecting to redis: %w", err)
		}
		a.redis = client
	}

	if a.cfg.S3.Enabled {
		s3Storage, err := storage.NewS3Storage(storage.S3Config{
			Endpoint:        a.cfg.S3.Endpoint,
			AccessKeyID:     a.cfg.S3.AccessKeyID,
			SecretAccessKey: a.cfg.S3.SecretAccessKey,
			Bucket:          a.cfg.S3.Bucket,
			Region:          a.cfg.S3.Region,
			PublicURL:       a.cfg.S3.PublicURL,
			KeyPrefix:       a.cfg.S3.KeyPrefix,
		})
		if err != nil {
			return fmt.Errorf("creating s3 storage: %w", err)
		}
		a.storage = s3Storage
	}

	return nil
}

// initDomains initializes domain layers (DAO, Service, Policy)
func (a *App) initDomains(ctx context.Context) error {
	var (
		convRepo service.ConversationRepository
		msgRepo  service.MessageRepository
		users    service.UserDirectory
	)
	if a.pool != nil {
		timeout := a.cfg.Database.QueryTimeout
		convRepo = dao.NewConversationPostgres(a.pool, timeout)
		msgRepo = dao.NewMessagePostgres(a.pool, timeout)
		users = dao.NewUserPostgres(a.pool, timeout)
	} else {
		convRepo = dao.NewConversationMemory()
		msgRepo = dao.NewMessageMemory()
		users = dao.NewUserMemory(parseDevUsers(a.cfg.Messaging.DevUsers)...)
	}

	photoBaseURL := a.cfg.Messaging.PhotoBaseURL
	if photoBaseURL == "" && a.storage != nil {
		photoBaseURL = a.storage.PublicURL()
	}

	svc := service.New(convRepo, msgRepo, users,
		service.WithRules(service.Rules{
			EditWindow:       a.cfg.Messaging.EditWindow,
			DeleteWindow:     a.cfg.Messaging.DeleteWindow,
			MaxMessageLength: a.cfg.Messaging.MaxMessageLength,
		}),
		service.WithPhotoBaseURL(photoBaseURL),
	)

	// Typing presence
	var backend presence.Backend = presence.NewMemoryBackend()
	if a.cfg.Typing.UseRedis() {
		if a.redis == nil {
			return errors.New("typing backend redis requires REDIS_ENABLED=true")
		}
		backend = presence.NewRedisBackend(a.redis, "")
	}
	a.typing = presence.NewStore(backend, a.cfg.Typing.TTL)
	a.typingLimiter = ratelimit.NewPool(a.cfg.Typing.RateLimit, a.cfg.Typing.RateBurst)

	// New-message notifications
	var notifier policy.Notifier = notify.NewLogNotifier(a.logger)
	if a.redis != nil {
		notifier = notify.NewRedisNotifier(a.redis, a.cfg.Redis.ChannelPrefix)
	}

	a.messagingPolicy = policy.New(svc, a.typing, notifier, a.metrics,
		policy.PageConfig{
			DefaultLimit: a.cfg.Messaging.DefaultPageSize,
			MaxLimit:     a.cfg.Messaging.MaxPageSize,
		},
		a.logger,
	)

	a.logger.Info("messaging initialized",
		"postgres", a.pool != nil,
		"redis", a.redis != nil,
		"typing_backend", a.cfg.Typing.Backend,
		"s3", a.storage != nil,
	)
	return nil
}

// registerRoutes registers all HTTP routes
func (a *App) registerRoutes() error {
	// Health check
	a.router.Get("/healthz", a.healthHandler)
	a.router.Get("/readyz", a.readyHandler)
	a.router.Handle("/metrics", a.metrics.Handler())

	// Swagger UI documentation
	swaggerHandler, err := httpcontroller.NewSwaggerHandler("Direct Messaging API", OpenAPISpec)
	if err != nil {
		return err
	}
	swaggerHandler.RegisterRoutes(a.router)

	typingLimit := a.typingLimiter.Middleware(func(r *http.Request) string {
		return auth.CallerID(r.Context())
	})

	// API v1
	a.router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.RequireCaller)

		msgHandler := httpcontroller.NewMessagingHandler(a.messagingPolicy, typingLimit, a.logger)
		msgHandler.RegisterRoutes(r)

		if a.storage != nil {
			uploadHandler := httpcontroller.NewUploadHandler(&uploaderAdapter{a.storage}, a.cfg.S3.MaxUploadBytes, a.logger)
			uploadHandler.RegisterRoutes(r)
		}
	})

	return nil
}

// healthHandler handles health check requests
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// readyHandler reports whether every configured dependency answers
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	ready := true
	check := func(name string, ping func(context.Context) error) {
		if err := ping(ctx); err != nil {
			checks[name] = err.Error()
			ready = false
			return
		}
		checks[name] = "ok"
	}

	if a.pool != nil {
		check("postgres", a.pool.Ping)
	}
	if a.redis != nil {
		check("redis", func(ctx context.Context) error { return a.redis.Ping(ctx).Err() })
	}
	if a.storage != nil {
		check("s3", a.storage.Ping)
	}
	check("typing", a.typing.Ping)

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "checks": checks})
}

// Run starts the application and blocks until shutdown signal
func (a *App) Run(ctx context.Context) error {
	a.sweeper.Start(ctx)

	// Channel to receive errors from server
	errCh := make(chan error, 1)

	// Start HTTP server in goroutine
	go func() {
		a.logger.Info("starting HTTP server", "addr", a.cfg.Server.Address())
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		a.sweeper.Stop()
		a.closeInfrastructure()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}

	// Graceful shutdown
	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	a.sweeper.Stop()

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := a.httpServer.Shutdown(shutdownCtx)
	a.closeInfrastructure()
	if err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

// Handler returns the root HTTP handler
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) closeInfrastructure() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("closing redis", "error", err)
		}
		a.redis = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}
