package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/plunoo/biskakenauto-sub000/internal/bootstrap"
	"github.com/plunoo/biskakenauto-sub000/internal/cron"
	"github.com/plunoo/biskakenauto-sub000/pkg/config"
	"github.com/plunoo/biskakenauto-sub000/pkg/db"
	"github.com/plunoo/biskakenauto-sub000/pkg/instance"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
	"github.com/plunoo/biskakenauto-sub000/pkg/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Open(ctx, bootstrap.RuntimeOptions{
		Service:       "cron-worker",
		Redis:         bootstrap.RedisRequired,
		DevMigrations: true,
	})
	if err != nil {
		logger.New(logger.Options{ServiceName: "cron-worker"}).Error(ctx, "failed to start cron worker", err)
		os.Exit(1)
	}
	defer rt.Close()
	logg := rt.Logger

	fail := func(msg string, err error) {
		logg.Error(ctx, msg, err)
		rt.Close()
		os.Exit(1)
	}

	services, err := rt.Services(prometheus.DefaultRegisterer)
	if err != nil {
		fail("failed to wire services", err)
	}
	registry, err := buildRegistry(rt.Config, logg, rt.DB, services)
	if err != nil {
		fail("failed to register cron jobs", err)
	}
	lock, err := cron.NewRedisLock(rt.Redis, rt.Redis.LockKey("cron-worker"), instance.ID(), 0)
	if err != nil {
		fail("failed to create cron lock", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronMetrics(prometheus.DefaultRegisterer),
		Interval:   rt.Config.Cron.Interval,
		JobTimeout: rt.Config.Cron.JobTimeout,
	})
	if err != nil {
		fail("failed to create cron service", err)
	}

	ctx = logg.WithField(ctx, "jobs", registry.Len())
	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fail("cron worker stopped unexpectedly", err)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, services *bootstrap.Services) (*cron.Registry, error) {
	overdue, err := cron.NewInvoiceOverdueJob(cron.InvoiceOverdueJobParams{Invoices: services.Invoices})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		DB:         dbClient,
		Repository: services.Outbox,
		Retention:  cfg.Cron.OutboxRetention,
		Batch:      cfg.Cron.PruneBatch,
	})
	if err != nil {
		return nil, err
	}
	jobs := []cron.Job{overdue, retention}

	if services.Gateway != nil {
		expiry, err := cron.NewPaymentAttemptExpiryJob(cron.PaymentAttemptExpiryJobParams{
			Gateway: services.Gateway,
			TTL:     cfg.Cron.AttemptTTL,
		})
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, expiry)
	} else {
		logg.Warn(context.Background(), "paystack not configured; payment attempt expiry not scheduled")
	}

	registry := cron.NewRegistry()
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
