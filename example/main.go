// Command example runs a small pastebin, upload and chat site on pie.
//
// Configuration comes from the environment, .env and config.yaml:
//
//	ADDR=:8080 SECRET_KEY=change-me SESSION_STORE=redis REDIS_URL=redis://localhost:6379/0 go run ./example
package main

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/pie"
	"github.com/dmitrymomot/pie/middlewares"
	"github.com/dmitrymomot/pie/pkg/cache"
	"github.com/dmitrymomot/pie/pkg/config"
	"github.com/dmitrymomot/pie/pkg/db"
	"github.com/dmitrymomot/pie/pkg/logger"
	"github.com/dmitrymomot/pie/pkg/redis"
	"github.com/dmitrymomot/pie/pkg/session"
	"github.com/dmitrymomot/pie/pkg/storage"
)

//go:embed templates static
var assets embed.FS

type settings struct {
	Addr         string        `env:"ADDR" envDefault:":8080"`
	SecretKey    string        `env:"SECRET_KEY"`
	SessionStore string        `env:"SESSION_STORE" envDefault:"memory"` // memory, redis or postgres
	SessionSweep string        `env:"SESSION_SWEEP" envDefault:"@every 10m"`
	RateLimit    int           `env:"RATE_LIMIT" envDefault:"120"`
	AllowOrigins []string      `env:"CORS_ORIGINS" envSeparator:","`
	MaxBodySize  int64         `env:"MAX_BODY_SIZE" envDefault:"33554432"`
	ShutdownWait time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Log     logger.Config
	DB      db.Config
	Redis   redis.Config
	Storage storage.Config
}

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	var cfg settings
	if err := config.Load(&cfg, config.WithYAMLFile("config.yaml")); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.Log, middlewares.RequestIDExtractor())
	ctx := context.Background()

	backend, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}

	files, err := openStorage(cfg.Storage)
	if err != nil {
		return err
	}

	limiter, err := middlewares.RateLimit(cfg.RateLimit,
		middlewares.WithRefill(cfg.RateLimit, time.Minute),
		middlewares.WithRateLimitStore(backend.limits),
	)
	if err != nil {
		return err
	}

	routes := middlewares.NewRouter().
		Get("/api/pastes/{id}", "api_paste").
		Delete("/api/pastes/{id}", "delete_paste")

	cors := []middlewares.CORSOption{}
	if len(cfg.AllowOrigins) > 0 {
		cors = append(cors, middlewares.WithAllowOrigins(cfg.AllowOrigins...), middlewares.WithAllowCredentials())
	}

	opts := []pie.Option{
		pie.WithLogger(log),
		pie.WithMaxBodySize(cfg.MaxBodySize),
		pie.WithRenderer(renderer()),
		pie.WithStorage(files),
		pie.WithCookieOptions(pie.WithCookieSecret(cfg.SecretKey)),
		pie.WithHTTPMiddleware(middleware.RealIP, middleware.CleanPath),
		pie.WithMiddleware(
			middlewares.RequestID(),
			middlewares.AccessLog(),
			middlewares.CORS(cors...),
			limiter,
			middlewares.CSRF(),
			middlewares.Sanitize("body"),
			routes,
		),
		pie.WithStaticFiles("/static", assets, "static"),
		pie.WithHealthChecks(backend.checks...),
		pie.WithErrorHandler(errorPage),
	}
	opts = append(opts, backend.options...)

	app, err := pie.New(newSite(), opts...)
	if err != nil {
		return err
	}

	runOpts := append([]pie.RunOption{
		pie.Logger(log),
		pie.ShutdownTimeout(cfg.ShutdownWait),
	}, backend.shutdown...)
	return app.Run(cfg.Addr, runOpts...)
}

// backend holds what the chosen session store contributes to the app.
type backend struct {
	limits   cache.Cache[middlewares.RateBucket]
	options  []pie.Option
	checks   []pie.HealthOption
	shutdown []pie.RunOption
}

func openBackend(ctx context.Context, cfg settings, log *slog.Logger) (*backend, error) {
	switch cfg.SessionStore {
	case "memory":
		return &backend{
			limits:  cache.NewMemory[middlewares.RateBucket](),
			options: []pie.Option{pie.WithSessionSweep(cfg.SessionSweep)},
		}, nil

	case "redis":
		client, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		return &backend{
			limits:   cache.NewRedis[middlewares.RateBucket](client, nil, cache.WithPrefix("ratelimit")),
			options:  []pie.Option{pie.WithSessionStore(session.NewRedisStore(client))},
			checks:   []pie.HealthOption{pie.WithReadinessCheck("redis", redis.Healthcheck(client))},
			shutdown: []pie.RunOption{pie.ShutdownHook(redis.Shutdown(client))},
		}, nil

	case "postgres":
		pool, err := db.Connect(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := db.Migrate(ctx, pool, session.Migrations, "migrations", cfg.DB.MigrationsTable, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return &backend{
			limits: cache.NewMemory[middlewares.RateBucket](),
			options: []pie.Option{
				pie.WithSessionStore(session.NewPostgresStore(pool)),
				pie.WithSessionSweep(cfg.SessionSweep),
			},
			checks:   []pie.HealthOption{pie.WithReadinessCheck("postgres", db.Healthcheck(pool))},
			shutdown: []pie.RunOption{pie.ShutdownHook(db.Shutdown(pool))},
		}, nil

	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}

func openStorage(cfg storage.Config) (pie.Storage, error) {
	if cfg.Bucket == "" {
		return storage.NewMemory("/files"), nil
	}
	s3, err := storage.NewS3(cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	return s3, nil
}

func errorPage(r *pie.Request, err *pie.HTTPError) *pie.Response {
	html, renderErr := r.Render("error.html", err)
	if renderErr != nil {
		return nil
	}
	return pie.Reply(err.Code, html)
}
