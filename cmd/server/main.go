package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/bizledger/internal/handler"
	"github.com/yourorg/bizledger/internal/infrastructure/logger"
	"github.com/yourorg/bizledger/internal/infrastructure/redis"
	"github.com/yourorg/bizledger/internal/inventory"
	"github.com/yourorg/bizledger/internal/observability/metrics"
	"github.com/yourorg/bizledger/internal/observability/tracing"
	"github.com/yourorg/bizledger/internal/reliability/circuitbreaker"
	"github.com/yourorg/bizledger/internal/repository"
	"github.com/yourorg/bizledger/internal/security/audit"
	"github.com/yourorg/bizledger/internal/security/auth"
	"github.com/yourorg/bizledger/internal/security/middleware"
	"github.com/yourorg/bizledger/internal/security/ratelimit"
	"github.com/yourorg/bizledger/internal/service"
	"github.com/yourorg/bizledger/internal/stockfeed"
	"github.com/yourorg/bizledger/pkg/config"
	"github.com/yourorg/bizledger/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is required")
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting BizLedger server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op unless an OTLP endpoint is configured)
	shutdownTracing, err := tracing.Init(ctx, log, "bizledger", cfg.Environment)
	if err != nil {
		log.Warn("tracing disabled", slog.String("error", err.Error()))
		shutdownTracing = func(context.Context) error { return nil }
	}

	// 4. Initialize Redis client (token revocation denylist)
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// 5. Initialize Postgres and run migrations
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	}, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Migrate(ctx); err != nil {
		log.Error("migrations failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Initialize repositories
	db := pool.GetDB()
	userRepo := repository.NewPostgresUserRepository(db, log)
	contactRepo := repository.NewPostgresContactRepository(db, log)
	productRepo := repository.NewPostgresProductRepository(db, log)
	transactionRepo := repository.NewPostgresTransactionRepository(db, log)

	// 7. Initialize the stock feed hub and the inventory ledger
	hub := stockfeed.NewHub()
	ledger := inventory.NewLedger(productRepo, hub, log, cfg.StockRetryAttempts)

	// 8. Initialize security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "bizledger")
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimit, cfg.RateLimitWindow)
	auditLogger := audit.NewLogger(log)
	revocationBreaker := circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
	revocationBreaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		log.Warn("revocation check breaker state changed",
			slog.Int("from", int(from)), slog.Int("to", int(to)))
	})

	// 9. Initialize services
	authService := service.NewAuthService(userRepo, tokenManager, redisClient, cfg.TokenTTL, log)
	contactService := service.NewContactService(contactRepo, log)
	productService := service.NewProductService(productRepo, ledger, log)
	transactionService := service.NewTransactionService(transactionRepo, contactRepo, productRepo, ledger, auditLogger, log)

	// 10. Initialize handlers
	authHandler := handler.NewAuthHandler(authService, log)
	contactHandler := handler.NewContactHandler(contactService, log)
	productHandler := handler.NewProductHandler(productService, log)
	transactionHandler := handler.NewTransactionHandler(transactionService, log)
	stockFeedHandler := handler.NewStockFeedHandler(hub, log, cfg.CORSAllowedOrigins)
	healthHandler := handler.NewHealthHandler(
		handler.PingerFunc(pool.Health),
		handler.PingerFunc(redisClient.Ping),
		log,
	)

	// 11. Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/v1/auth/logout", authHandler.Logout)

	mux.HandleFunc("POST /api/v1/contacts", contactHandler.Create)
	mux.HandleFunc("GET /api/v1/contacts", contactHandler.List)
	mux.HandleFunc("GET /api/v1/contacts/{id}", contactHandler.Get)
	mux.HandleFunc("PUT /api/v1/contacts/{id}", contactHandler.Update)
	mux.HandleFunc("DELETE /api/v1/contacts/{id}", contactHandler.Delete)

	mux.HandleFunc("POST /api/v1/products", productHandler.Create)
	mux.HandleFunc("GET /api/v1/products", productHandler.List)
	mux.HandleFunc("GET /api/v1/products/{id}", productHandler.Get)
	mux.HandleFunc("PUT /api/v1/products/{id}", productHandler.Update)
	mux.HandleFunc("DELETE /api/v1/products/{id}", productHandler.Delete)
	mux.HandleFunc("PATCH /api/v1/products/{id}/stock", productHandler.AdjustStock)

	mux.HandleFunc("POST /api/v1/transactions", transactionHandler.Create)
	mux.HandleFunc("GET /api/v1/transactions", transactionHandler.List)
	mux.HandleFunc("GET /api/v1/transactions/{id}", transactionHandler.Get)
	mux.HandleFunc("PUT /api/v1/transactions/{id}", transactionHandler.Update)
	mux.HandleFunc("DELETE /api/v1/transactions/{id}", transactionHandler.Delete)

	mux.Handle("GET /ws/inventory", stockFeedHandler)

	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> tracing -> metrics -> JWT -> rate limit ->
	// audit -> CORS. JWT runs before rate limiting and audit so both see the
	// resolved business.
	rootHandler := withRequestID(
		otelhttp.NewHandler(
			metrics.HTTPMetricsMiddleware(
				middleware.JWTMiddleware(tokenManager, redisClient, revocationBreaker, log)(
					middleware.RateLimitMiddleware(rateLimiter, log)(
						middleware.AuditMiddleware(auditLogger)(handlerWithCORS),
					),
				),
			),
			"bizledger.http",
		),
		log,
	)

	// 12. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimit),
		slog.Duration("rate_limit_window", cfg.RateLimitWindow),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	rateLimiter.Stop()
	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
