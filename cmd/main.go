package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/mstgnz/gobuckaroo/handler"
	"github.com/mstgnz/gobuckaroo/infra/auth"
	"github.com/mstgnz/gobuckaroo/infra/config"
	"github.com/mstgnz/gobuckaroo/infra/logger"
	"github.com/mstgnz/gobuckaroo/infra/middle"
	"github.com/mstgnz/gobuckaroo/infra/opensearch"
	"github.com/mstgnz/gobuckaroo/infra/response"
	"github.com/mstgnz/gobuckaroo/provider"
	"github.com/mstgnz/gobuckaroo/router"
	v1 "github.com/mstgnz/gobuckaroo/router/v1"

	// Import for side-effect registration
	_ "github.com/mstgnz/gobuckaroo/provider/buckaroo"
)

var version = "dev"

func main() {
	// .env is optional; the real environment wins
	_ = godotenv.Load(".env")

	cfg, err := config.LoadAppConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// gobuckaroo token <tenant> prints an API token and exits
	if len(os.Args) > 1 && os.Args[1] == "token" {
		os.Exit(issueToken(cfg, os.Args[2:]))
	}

	openSearchLogger := initOpenSearch(cfg)
	logger.InitGlobalLogger(openSearchLogger, cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := openStorage(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open configuration storage", err)
	}

	var db *sql.DB
	driver := "memory"
	configStore := config.NewGatewayConfigStore(nil)
	if storage != nil {
		defer storage.Close()
		db, driver = storage.DB(), storage.Driver()
		configStore = config.NewGatewayConfigStore(storage)
	}

	if configStore.LoadFromEnv(cfg) {
		logger.Info("Buckaroo configuration loaded from environment", logger.LogContext{
			TenantID: config.DefaultTenant,
			Provider: "buckaroo",
		})
	}

	exchangeLoggers, searcher := initExchangeLogging(ctx, db, driver, openSearchLogger)

	service := provider.NewPaymentService(provider.DefaultRegistry, configStore,
		provider.WithExchangeLogger(exchangeLoggers))

	jwtService := auth.NewJWTService(cfg.JWTSecret, auth.DefaultExpiry)
	rateLimiter := middle.NewRateLimiter(cfg.RateLimitPerMinute)
	defer rateLimiter.Close()

	validate := config.App().Validator

	handlers := v1.Handlers{
		Payment:   handler.NewPaymentHandler(service, validate),
		Config:    handler.NewConfigHandler(configStore, provider.DefaultRegistry, service),
		RateLimit: handler.NewTenantRateLimitHandler(rateLimiter),
		Auth:      handler.NewAuthHandler(jwtService, validate),
	}
	if searcher != nil {
		handlers.Logs = handler.NewLogsHandler(searcher)
		handlers.Analytics = handler.NewAnalyticsHandler(searcher)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(middle.PanicRecoveryMiddleware())
	r.Use(middle.RequestLoggingMiddleware())
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middle.SecurityHeadersMiddleware())
	r.Use(middle.RequestValidationMiddleware())

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Origin", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300, // Preflight cache time (second)
	}))

	router.Routes(r, router.Options{
		Handlers: handlers,
		Health: handler.NewHealthHandler(handler.HealthOptions{
			DB:          db,
			Driver:      driver,
			Service:     service,
			Registry:    provider.DefaultRegistry,
			OpenSearch:  openSearchLogger != nil,
			Environment: cfg.Environment,
			Version:     version,
		}),
		TokenValidator: jwtService,
		RateLimiter:    rateLimiter,
		WebhookIPs:     cfg.WebhookIPWhitelist,
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "Not Found", nil)
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", err)
		}
	}()

	logger.Info("API is running", logger.LogContext{
		Fields: map[string]any{"port": cfg.Port, "storage": driver, "environment": cfg.Environment},
	})

	<-ctx.Done()
	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", err)
	}
}

func issueToken(cfg *config.AppConfig, args []string) int {
	if len(args) != 1 || args[0] == "" {
		fmt.Fprintln(os.Stderr, "usage: gobuckaroo token <tenant>")
		return 2
	}
	if os.Getenv("JWT_SECRET") == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET must be set; a generated secret would not match the server's")
		return 1
	}

	token, err := auth.NewJWTService(cfg.JWTSecret, auth.DefaultExpiry).GenerateToken(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(token)
	return 0
}

func initOpenSearch(cfg *config.AppConfig) *opensearch.Logger {
	if !cfg.EnableLogging {
		return nil
	}

	client, err := opensearch.NewClient(opensearch.Config{
		URL:      cfg.OpenSearchURL,
		Username: cfg.OpenSearchUser,
		Password: cfg.OpenSearchPass,
		Enabled:  true,
	})
	if err != nil {
		// the global logger does not exist yet
		fmt.Fprintf(os.Stderr, "OpenSearch unavailable, continuing without it: %v\n", err)
		return nil
	}
	return opensearch.NewLogger(client)
}

// openStorage returns nil for the memory driver
func openStorage(ctx context.Context, cfg *config.AppConfig) (*config.SQLStorage, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		return config.NewPostgresStorage(ctx, cfg.DatabaseURL)
	case config.DriverSQLite:
		return config.NewSQLiteStorage(cfg.SQLitePath)
	default:
		return nil, nil
	}
}

// initExchangeLogging records exchanges in the database and OpenSearch when
// available. Searches prefer OpenSearch.
func initExchangeLogging(ctx context.Context, db *sql.DB, driver string, openSearchLogger *opensearch.Logger) (provider.MultiExchangeLogger, provider.ExchangeSearcher) {
	var (
		loggers  provider.MultiExchangeLogger
		searcher provider.ExchangeSearcher
	)

	if db != nil {
		dbLogger, err := provider.NewDBExchangeLogger(db, driver)
		if err == nil {
			err = dbLogger.EnsureSchema(ctx)
		}
		if err != nil {
			logger.Error("Database exchange log disabled", err)
		} else {
			loggers = append(loggers, dbLogger)
			searcher = dbLogger
		}
	}

	if openSearchLogger != nil {
		osLogger := provider.NewOpenSearchExchangeLogger(openSearchLogger)
		loggers = append(loggers, osLogger)
		searcher = osLogger
	}

	return loggers, searcher
}
