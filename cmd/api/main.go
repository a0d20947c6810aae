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
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/plunoo/biskakenauto-sub000/api/routes"
	"github.com/plunoo/biskakenauto-sub000/internal/bootstrap"
	"github.com/plunoo/biskakenauto-sub000/pkg/env"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Open(ctx, bootstrap.RuntimeOptions{
		Service:       "api",
		Redis:         bootstrap.RedisRequired,
		DevMigrations: true,
	})
	if err != nil {
		logger.New(logger.Options{ServiceName: "api"}).Error(ctx, "failed to start api", err)
		os.Exit(1)
	}
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := rt.Services(registry)
	if err != nil {
		logg.Error(ctx, "failed to wire services", err)
		rt.Close()
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx = logg.WithFields(ctx, map[string]any{"addr": addr, "paystack": cfg.Paystack.Configured()})
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, rt.DB, rt.Redis, services, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	logg.Info(ctx, "api server listening")

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			rt.Close()
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server stopped")
	}
}
