// Package main is the entrypoint for the recipe API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/recipebox/recipebox/internal/auth"
	"github.com/recipebox/recipebox/internal/config"
	"github.com/recipebox/recipebox/internal/handler"
	"github.com/recipebox/recipebox/internal/media"
	"github.com/recipebox/recipebox/internal/metrics"
	"github.com/recipebox/recipebox/internal/middleware"
	"github.com/recipebox/recipebox/internal/ratelimit"
	"github.com/recipebox/recipebox/internal/repository"
	"github.com/recipebox/recipebox/internal/server"
	"github.com/recipebox/recipebox/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if cfg.AutoMigrate {
		if err := repository.Migrate(cfg.DatabaseURL()); err != nil {
			logger.Error(
				"failed to apply migrations",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL())),
			)
			os.Exit(1)
		}
		logger.Info("database migrations applied")
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL())
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL())),
			slog.String("database_url", redactURL(cfg.DatabaseURL())),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	deps := routerDeps{
		store:    repo,
		uploader: media.Disabled{},
		verifier: auth.NewVerifier(cfg.JWTSecret(), nil),
		recorder: metrics.NewInMemory(),
		ready:    []handler.Dependency{{Name: "postgres", Checker: repo}},
	}

	if cfg.MediaEnabled() {
		mediaCfg := media.Config{
			Endpoint:  cfg.MediaEndpoint,
			AccessKey: cfg.MediaAccessKey,
			SecretKey: cfg.MediaSecretKey,
			Bucket:    cfg.MediaBucket,
			PublicURL: cfg.MediaPublicURL,
			Folder:    cfg.MediaFolder,
		}
		client, err := media.NewClient(ctx, mediaCfg)
		if err != nil {
			logger.Error("failed to connect to media host",
				slog.String("error", err.Error()),
				slog.String("endpoint", cfg.MediaEndpoint),
			)
			repo.Close()
			os.Exit(1)
		}
		uploader := media.NewUploader(client, mediaCfg)
		deps.uploader = uploader
		deps.ready = append(deps.ready, handler.Dependency{Name: "media", Checker: uploader})
		logger.Info("connected to media host", "bucket", cfg.MediaBucket)
	} else {
		logger.Warn("media host not configured, image uploads disabled")
		deps.ready = append(deps.ready, handler.Dependency{Name: "media"})
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimitActive() {
		limiter, err = ratelimit.New(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Warn(
				"failed to connect to Redis, rate limiting disabled",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
		} else {
			logger.Info("connected to Redis")
		}
	}
	if limiter != nil {
		deps.limiter = limiter
		deps.ready = append(deps.ready, handler.Dependency{Name: "redis", Checker: limiter})
	} else {
		deps.ready = append(deps.ready, handler.Dependency{Name: "redis"})
	}

	r := setupRouter(deps, cfg, logger)

	srv := server.New(r, server.Config{
		Port:            cfg.Port,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	if limiter != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return limiter.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.Port,
		"env", cfg.AppEnv,
		"media_enabled", cfg.MediaEnabled(),
		"rate_limit", limiter != nil,
	)

	if err := srv.Run(ctx); err != nil {
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
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// routerDeps collects what the router needs. A nil limiter disables
// rate limiting.
type routerDeps struct {
	store    service.RecipeStore
	uploader service.ImageUploader
	verifier middleware.TokenVerifier
	limiter  middleware.RateChecker
	recorder *metrics.InMemoryRecorder
	ready    []handler.Dependency
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	recipeService := service.NewRecipeService(deps.store, deps.uploader, deps.recorder, logger)

	h := handler.New()
	healthHandler := handler.NewHealthHandler(deps.ready...)
	recipeHandler := handler.NewRecipeHandler(recipeService, logger)
	metricsHandler := handler.NewMetricsHandler(deps.recorder)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetAllowedOrigins()

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(corsCfg))

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.Get("/health", healthHandler.Health)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	authCfg := middleware.AuthConfig{
		Logger:   logger,
		Verifier: deps.verifier,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:         logger,
		Limiter:        deps.limiter,
		Enabled:        deps.limiter != nil && cfg.RateLimitEnabled,
		WritePerMinute: cfg.RateLimitWritePerMinute,
		WriteBurst:     cfg.RateLimitWriteBurst,
		ReadRPS:        cfg.RateLimitReadRPS,
		ReadBurst:      cfg.RateLimitReadBurst,
	}

	r.Route("/recipe", func(r chi.Router) {
		// Reads are public
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitIP(rateLimitCfg))
			r.Get("/", recipeHandler.List)
			r.Get("/{id}", recipeHandler.Get)
		})

		// Writes need a verified caller
		r.Group(func(r chi.Router) {
			r.Use(middleware.MaxBodySize(cfg.MaxUploadSize))
			r.Use(middleware.Auth(authCfg))
			r.Use(middleware.RateLimitCaller(rateLimitCfg))
			r.Post("/", recipeHandler.Create)
			r.Put("/{id}", recipeHandler.Update)
			r.Patch("/{id}", recipeHandler.Update)
			r.Delete("/{id}", recipeHandler.Delete)
		})
	})

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

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

	query := parsed.Query()
	if query.Has("password") {
		query.Set("password", "redacted")
		parsed.RawQuery = query.Encode()
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
