package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plunoo/biskakenauto-sub000/internal/bootstrap"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
	"github.com/plunoo/biskakenauto-sub000/pkg/metrics"
	"github.com/plunoo/biskakenauto-sub000/pkg/outbox"
	"github.com/plunoo/biskakenauto-sub000/pkg/outbox/registry"
	"github.com/plunoo/biskakenauto-sub000/pkg/outbox/relay"
	"github.com/plunoo/biskakenauto-sub000/pkg/pubsub"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Open(ctx, bootstrap.RuntimeOptions{
		Service:       "outbox-publisher",
		Redis:         bootstrap.RedisSkip,
		DevMigrations: true,
	})
	if err != nil {
		logger.New(logger.Options{ServiceName: "outbox-publisher"}).Error(ctx, "failed to start outbox publisher", err)
		os.Exit(1)
	}
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger

	fail := func(msg string, err error) {
		logg.Error(ctx, msg, err)
		rt.Close()
		os.Exit(1)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		fail("failed to bootstrap pubsub", err)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		fail("failed to build event registry", err)
	}

	sender := relay.NewTopicSender(pubsubClient)
	defer sender.Stop()

	promRegistry := prometheus.NewRegistry()
	conn := rt.DB.DB()
	publisher, err := relay.New(relay.Params{
		Options:     relay.OptionsFrom(cfg.Outbox),
		Logger:      logg,
		DB:          rt.DB,
		Store:       outbox.NewRepository(conn),
		DeadLetters: outbox.NewDLQRepository(conn),
		Resolver:    eventRegistry,
		Sender:      sender,
		Metrics:     metrics.NewOutboxMetrics(promRegistry),
		Probes:      map[string]relay.Pinger{"database": rt.DB, "pubsub": pubsubClient},
	})
	if err != nil {
		fail("failed to create outbox relay", err)
	}

	metricsServer := serveMetrics(ctx, logg, ":"+cfg.App.Port, promRegistry)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logg.Info(logg.WithField(ctx, "topics", eventRegistry.Topics()), "starting outbox publisher")
	if err := publisher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fail("outbox publisher stopped unexpectedly", err)
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

// serveMetrics exposes the publisher's registry; the process has no other
// HTTP surface.
func serveMetrics(ctx context.Context, logg *logger.Logger, addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	return srv
}
