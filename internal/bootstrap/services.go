// Package bootstrap composes the domain services shared by the api, cron
// worker and operator CLI binaries.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/plunoo/biskakenauto-sub000/internal/customers"
	"github.com/plunoo/biskakenauto-sub000/internal/documents"
	"github.com/plunoo/biskakenauto-sub000/internal/gateway"
	"github.com/plunoo/biskakenauto-sub000/internal/inventory"
	"github.com/plunoo/biskakenauto-sub000/internal/invoices"
	"github.com/plunoo/biskakenauto-sub000/internal/ledger"
	"github.com/plunoo/biskakenauto-sub000/internal/payments"
	paystackwebhook "github.com/plunoo/biskakenauto-sub000/internal/webhooks/paystack"
	"github.com/plunoo/biskakenauto-sub000/pkg/config"
	"github.com/plunoo/biskakenauto-sub000/pkg/db"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
	"github.com/plunoo/biskakenauto-sub000/pkg/metrics"
	"github.com/plunoo/biskakenauto-sub000/pkg/outbox"
	"github.com/plunoo/biskakenauto-sub000/pkg/outbox/idempotency"
	"github.com/plunoo/biskakenauto-sub000/pkg/paystack"
	"github.com/plunoo/biskakenauto-sub000/pkg/redis"
)

// Services is the wired domain layer. Gateway is nil when no Paystack
// secret is configured.
type Services struct {
	Inventory   inventory.Service
	Invoices    invoices.Service
	Payments    payments.Service
	Gateway     gateway.Service
	Reconciler  *paystackwebhook.Service
	Outbox      *outbox.Repository
	DeadLetters *outbox.DLQRepository
	Webhooks    *metrics.WebhookMetrics
}

// Params carries the shared infrastructure clients.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Redis    *redis.Client
	Registry prometheus.Registerer
}

func NewServices(p Params) (*Services, error) {
	if p.Config == nil || p.Logger == nil || p.DB == nil {
		return nil, fmt.Errorf("config, logger and database are required")
	}
	cfg := p.Config
	conn := p.DB.DB()

	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, p.Logger)
	customerRepo := customers.NewRepository(conn)
	invoiceRepo := invoices.NewRepository(conn)

	eventLedger, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return nil, err
	}

	stock, err := inventory.NewService(inventory.NewRepository(conn), p.DB, emitter)
	if err != nil {
		return nil, err
	}

	invoiceSvc, err := invoices.NewService(invoices.ServiceParams{
		Repository:   invoiceRepo,
		TxRunner:     p.DB,
		Inventory:    stock,
		Customers:    customerRepo,
		Ledger:       eventLedger,
		Outbox:       emitter,
		Renderer:     documents.NewPDFRenderer(documents.DefaultShop, cfg.Paystack.Currency),
		Logger:       p.Logger,
		NumberPrefix: cfg.Invoices.NumberPrefix,
	})
	if err != nil {
		return nil, err
	}

	paymentSvc, err := payments.NewService(payments.ServiceParams{
		Repository: payments.NewRepository(conn),
		Invoices:   invoiceRepo,
		Customers:  customerRepo,
		Ledger:     eventLedger,
		Outbox:     emitter,
		TxRunner:   p.DB,
		Metrics:    metrics.NewPaymentMetrics(p.Registry),
		Logger:     p.Logger,
	})
	if err != nil {
		return nil, err
	}

	webhookMetrics := metrics.NewWebhookMetrics(p.Registry)
	attempts := gateway.NewAttemptRepository(conn)
	reconcilerParams := paystackwebhook.ServiceParams{
		Applied:  paystackwebhook.NewAppliedRepository(conn),
		Attempts: attempts,
		Payments: paymentSvc,
		TxRunner: p.DB,
		Metrics:  webhookMetrics,
		Logger:   p.Logger,
	}
	if p.Redis != nil {
		guard, err := idempotency.NewGuard(p.Redis, cfg.Webhooks.IdempotencyTTL)
		if err != nil {
			return nil, err
		}
		reconcilerParams.Guard = guard
	}
	reconciler, err := paystackwebhook.NewService(reconcilerParams)
	if err != nil {
		return nil, err
	}

	services := &Services{
		Inventory:   stock,
		Invoices:    invoiceSvc,
		Payments:    paymentSvc,
		Reconciler:  reconciler,
		Outbox:      outboxRepo,
		DeadLetters: outbox.NewDLQRepository(conn),
		Webhooks:    webhookMetrics,
	}

	if !cfg.Paystack.Configured() {
		p.Logger.Warn(context.Background(), "paystack secret not configured; gateway disabled")
		return services, nil
	}
	client, err := paystack.NewClient(cfg.Paystack, paystack.WithObserver(metrics.NewGatewayMetrics(p.Registry)))
	if err != nil {
		return nil, err
	}
	gatewayParams := gateway.ServiceParams{
		Processor:   client,
		Attempts:    attempts,
		Invoices:    invoiceRepo,
		Customers:   customerRepo,
		Applier:     reconciler,
		Logger:      p.Logger,
		EmailHost:   cfg.Invoices.FallbackEmailHost,
		CallbackURL: cfg.Paystack.CallbackURL,
	}
	if p.Redis != nil {
		gatewayParams.Limiter = p.Redis
	}
	gw, err := gateway.NewService(gatewayParams)
	if err != nil {
		return nil, err
	}
	services.Gateway = gw
	return services, nil
}
