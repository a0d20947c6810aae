package bootstrap

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/plunoo/biskakenauto-sub000/pkg/config"
	"github.com/plunoo/biskakenauto-sub000/pkg/db"
	"github.com/plunoo/biskakenauto-sub000/pkg/instance"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
	"github.com/plunoo/biskakenauto-sub000/pkg/migrate"
	"github.com/plunoo/biskakenauto-sub000/pkg/redis"
)

// RedisMode says what a binary does when Redis cannot be reached.
type RedisMode int

const (
	// RedisSkip never dials Redis.
	RedisSkip RedisMode = iota
	// RedisOptional logs the failure and continues with a nil client.
	RedisOptional
	// RedisRequired fails Open.
	RedisRequired
)

// RuntimeOptions selects which clients Open dials.
type RuntimeOptions struct {
	Service string
	Redis   RedisMode
	// DevMigrations applies pending migrations when the env allows it.
	DevMigrations bool
}

// Runtime is the infrastructure a binary opens before wiring services.
type Runtime struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	Redis  *redis.Client
}

// NewLogger builds the process logger from loaded config.
func NewLogger(cfg *config.Config, service string) *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: service,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Static:      map[string]string{"env": cfg.App.Env, "instance": instance.ID()},
	})
}

// Open loads .env and config, then dials the database and, depending on
// opts.Redis, Redis. Clients opened before a failure are closed.
func Open(ctx context.Context, opts RuntimeOptions) (*Runtime, error) {
	dotenvErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = opts.Service

	rt := &Runtime{Config: cfg, Logger: NewLogger(cfg, opts.Service)}
	if dotenvErr != nil {
		rt.Logger.Debug(ctx, ".env file not found, relying on environment")
	}

	rt.DB, err = db.New(ctx, cfg.DB, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if opts.DevMigrations {
		if err := migrate.MaybeRunDev(ctx, cfg, rt.Logger, rt.DB); err != nil {
			rt.Close()
			return nil, fmt.Errorf("dev migrations: %w", err)
		}
	}

	if opts.Redis == RedisSkip {
		return rt, nil
	}
	rt.Redis, err = redis.New(ctx, cfg.Redis, rt.Logger)
	if err != nil {
		if opts.Redis == RedisRequired {
			rt.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		rt.Logger.Warn(rt.Logger.WithField(ctx, "error", err.Error()), "redis unavailable; continuing without it")
		rt.Redis = nil
	}
	return rt, nil
}

// Services wires the domain layer on top of the runtime's clients.
func (rt *Runtime) Services(reg prometheus.Registerer) (*Services, error) {
	return NewServices(Params{
		Config:   rt.Config,
		Logger:   rt.Logger,
		DB:       rt.DB,
		Redis:    rt.Redis,
		Registry: reg,
	})
}

// Close releases every client Open dialed. It is safe to call twice.
func (rt *Runtime) Close() {
	ctx := context.Background()
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			rt.Logger.Error(ctx, "error closing redis", err)
		}
		rt.Redis = nil
	}
	if rt.DB != nil {
		if err := rt.DB.Close(); err != nil {
			rt.Logger.Error(ctx, "error closing database", err)
		}
		rt.DB = nil
	}
}
