// Package main is the entrypoint for the Quillchat API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/quillchat/quillchat/internal/auth"
	"github.com/quillchat/quillchat/internal/cache"
	"github.com/quillchat/quillchat/internal/config"
	"github.com/quillchat/quillchat/internal/handler"
	"github.com/quillchat/quillchat/internal/metrics"
	"github.com/quillchat/quillchat/internal/middleware"
	"github.com/quillchat/quillchat/internal/repository"
	"github.com/quillchat/quillchat/internal/responder"
	"github.com/quillchat/quillchat/internal/server"
	"github.com/quillchat/quillchat/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	ollamaResponder, err := responder.NewOllama(cfg.OllamaHost, cfg.OllamaModel)
	if err != nil {
		logger.Error("failed to create responder", "error", err)
		os.Exit(1)
	}
	logger.Info("responder configured", "host", cfg.OllamaHost, "model", cfg.OllamaModel)

	// Initialize services
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL, cfg.TokenLeeway)
	metricsRecorder := metrics.NewNoop()
	authService := service.NewAuthService(repo, tokens)
	chatService := service.NewChatService(repo, repo, ollamaResponder, cfg.ResponderTimeout, logger, metricsRecorder)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	authHandler := handler.NewAuthHandler(authService, logger)
	chatHandler := handler.NewChatHandler(chatService, logger)

	r := setupRouter(healthHandler, authHandler, chatHandler, tokens, repo, cacheClient, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	healthHandler *handler.HealthHandler,
	authHandler *handler.AuthHandler,
	chatHandler *handler.ChatHandler,
	tokens *auth.TokenService,
	repo *repository.Repository,
	cacheClient *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment: cfg.IsDevelopment(),
	}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	if origins := cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		corsCfg := middleware.DefaultCORSConfig()
		corsCfg.AllowedOrigins = origins
		r.Use(middleware.CORS(corsCfg))
	}

	// Health endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	authCfg := middleware.AuthConfig{
		Logger: logger,
		Tokens: tokens,
		Users:  repo,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:       logger,
		Cache:        cacheClient,
		APIEnabled:   cfg.RateLimitAPIEnabled,
		APIRPM:       cfg.RateLimitAPIRPM,
		APIBurst:     cfg.RateLimitAPIBurst,
		LoginEnabled: cfg.RateLimitLoginEnabled,
		LoginRPM:     cfg.RateLimitLoginRPM,
		LoginBurst:   cfg.RateLimitLoginBurst,
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Credential endpoints run unauthenticated, behind the per-IP limiter
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimitLogin(rateLimitCfg))
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		// Everything else requires a bearer token
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))
			r.Use(middleware.RateLimitAPI(rateLimitCfg))

			r.Get("/me", authHandler.Me)
			r.Patch("/me", authHandler.UpdateMe)

			r.Route("/chat", func(r chi.Router) {
				r.Post("/", chatHandler.Create)
				r.Get("/", chatHandler.List)
				r.Get("/{id}", chatHandler.Get)
				r.Post("/{id}", chatHandler.Send)
				r.Patch("/{id}", chatHandler.Rename)
				r.Delete("/{id}", chatHandler.Delete)
			})
		})
	})

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
