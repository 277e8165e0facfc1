package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/HammerMeetNail/pairup/internal/config"
	"github.com/HammerMeetNail/pairup/internal/database"
	"github.com/HammerMeetNail/pairup/internal/handlers"
	"github.com/HammerMeetNail/pairup/internal/logging"
	"github.com/HammerMeetNail/pairup/internal/middleware"
	"github.com/HammerMeetNail/pairup/internal/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	// Initialize logger
	logger := logging.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Unknown log level; using info", map[string]interface{}{"value": cfg.Server.LogLevel})
		level = logging.LevelInfo
	}
	logger.SetLevel(level)
	logging.SetDefaultLevel(level)

	logger.Info("Starting pairup server...", map[string]interface{}{
		"env": cfg.Server.Environment,
	})

	ctx := context.Background()

	// Connect to PostgreSQL
	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(ctx, cfg.Database.DSN(), database.PoolOptions{
		MaxConns: int32(cfg.Database.MaxConns),
	})
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Run migrations
	migrator, err := database.NewMigrator(cfg.Database.DSN(), "migrations")
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Apply(logger); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()

	// Connect to Redis
	logger.Info("Connecting to Redis", map[string]interface{}{
		"addr": cfg.Redis.Addr(),
	})
	redisDB, err := database.NewRedisDB(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()
	logger.Info("Connected to Redis")

	// Initialize services
	dbAdapter := services.NewPoolAdapter(db.Pool)
	redisAdapter := services.NewRedisAdapter(redisDB.Client)

	userService := services.NewUserService(dbAdapter)
	sessionService := services.NewSessionService(redisAdapter, userService)
	ledger := services.NewLedger()
	likeCounter := services.NewLikeCounter(dbAdapter)
	matchService := services.NewMatchService(dbAdapter, ledger, likeCounter)
	matchService.SetLogger(logger)
	interactionService := services.NewInteractionService(dbAdapter, userService, ledger, matchService)
	invitationService := services.NewInvitationService(dbAdapter, matchService)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	sessionHandler := handlers.NewSessionHandler(sessionService, cfg.Server.Secure)
	interactionHandler := handlers.NewInteractionHandler(interactionService)
	matchHandler := handlers.NewMatchHandler(matchService)
	invitationHandler := handlers.NewInvitationHandler(invitationService)
	likesHandler := handlers.NewLikesHandler(likeCounter)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(sessionService)
	csrfMiddleware := middleware.NewCSRFMiddleware(cfg.Server.Secure)
	securityHeaders := middleware.NewSecurityHeaders(cfg.Server.Secure)
	requestLogger := middleware.NewRequestLogger(logger)

	interactionLimiter := middleware.NewRateLimiter(
		rateLimitStore(cfg.RateLimit, redisDB.Client),
		cfg.RateLimit.Requests,
		cfg.RateLimit.Window,
		"ratelimit:interactions:",
		middleware.UserOrIPKey,
	)
	if !cfg.RateLimit.Enabled {
		logger.Warn("Interaction rate limiting disabled")
	}

	requireAuth := authMiddleware.RequireAuth

	// Set up router
	mux := http.NewServeMux()

	// Health endpoints (no auth, no rate limit)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)

	// CSRF token endpoint
	mux.HandleFunc("GET /api/csrf", csrfMiddleware.GetToken)

	// Session endpoints
	mux.Handle("GET /api/auth/me", requireAuth(http.HandlerFunc(sessionHandler.Me)))
	mux.HandleFunc("POST /api/auth/logout", sessionHandler.Logout)

	// Interaction endpoints
	mux.Handle("POST /api/interactions", requireAuth(interactionLimiter.Middleware(http.HandlerFunc(interactionHandler.Submit))))
	mux.Handle("GET /api/interactions", requireAuth(http.HandlerFunc(interactionHandler.List)))

	// Match endpoints
	mux.Handle("GET /api/matches", requireAuth(http.HandlerFunc(matchHandler.List)))
	mux.Handle("GET /api/matches/{id}", requireAuth(http.HandlerFunc(matchHandler.Get)))
	mux.Handle("DELETE /api/matches/{id}", requireAuth(http.HandlerFunc(matchHandler.Deactivate)))

	// Invitation endpoints
	mux.Handle("POST /api/invitations", requireAuth(http.HandlerFunc(invitationHandler.Create)))
	mux.Handle("GET /api/invitations", requireAuth(http.HandlerFunc(invitationHandler.List)))
	mux.Handle("GET /api/invitations/{id}", requireAuth(http.HandlerFunc(invitationHandler.Get)))
	mux.Handle("PUT /api/invitations/{id}/status", requireAuth(http.HandlerFunc(invitationHandler.UpdateStatus)))

	// Like history
	mux.Handle("GET /api/likes/history", requireAuth(http.HandlerFunc(likesHandler.History)))

	// Build middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = authMiddleware.Authenticate(handler)
	handler = csrfMiddleware.Protect(handler)
	handler = corsHandler(cfg.CORS).Handler(handler)
	handler = securityHeaders.Apply(handler)
	handler = requestLogger.Apply(handler)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

// rateLimitStore returns nil when limiting is disabled, which makes the
// limiter pass every request through.
func rateLimitStore(cfg config.RateLimitConfig, client *redis.Client) middleware.RateStore {
	if !cfg.Enabled || client == nil {
		return nil
	}
	return middleware.NewRedisRateStore(client)
}

func corsHandler(cfg config.CORSConfig) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-CSRF-Token", "X-Request-ID"},
		ExposedHeaders:   []string{"X-CSRF-Token", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
	})
}
