package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plunoo/biskakenauto-sub000/api/controllers"
	webhookcontrollers "github.com/plunoo/biskakenauto-sub000/api/controllers/webhooks"
	"github.com/plunoo/biskakenauto-sub000/api/middleware"
	"github.com/plunoo/biskakenauto-sub000/internal/bootstrap"
	"github.com/plunoo/biskakenauto-sub000/pkg/config"
	"github.com/plunoo/biskakenauto-sub000/pkg/db"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
	"github.com/plunoo/biskakenauto-sub000/pkg/redis"
)

var (
	writeRoles = []enums.UserRole{enums.RoleAdmin, enums.RoleManager, enums.RoleStaff}
	adminRoles = []enums.UserRole{enums.RoleAdmin, enums.RoleManager}
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	services *bootstrap.Services,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	deps := map[string]controllers.Pinger{"db": dbP}
	var limiter middleware.WindowLimiter
	if redisClient != nil {
		deps["redis"] = redisClient
		limiter = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Use(middleware.RateLimit(limiter, "webhook", cfg.App.WebhookRateRPM, logg))
		r.Post("/paystack", webhookcontrollers.PaystackWebhook(services.Reconciler, cfg.Paystack, services.Webhooks, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(limiter, "api", cfg.App.RateLimitRPM, logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", controllers.InvoiceList(services.Invoices, logg))
			r.Get("/overdue", controllers.InvoiceListOverdue(services.Invoices, logg))
			r.Get("/number/{number}", controllers.InvoiceGetByNumber(services.Invoices, logg))
			r.With(middleware.RequireRole(logg, writeRoles...)).Post("/", controllers.InvoiceCreate(services.Invoices, cfg.FeatureFlags.SendOnCreateDefault, logg))

			r.Route("/{invoiceId}", func(r chi.Router) {
				r.Get("/", controllers.InvoiceGet(services.Invoices, logg))
				r.Get("/pdf", controllers.InvoicePDF(services.Invoices, logg))
				r.Get("/events", controllers.InvoiceHistory(services.Invoices, logg))
				r.Get("/payments", controllers.PaymentList(services.Payments, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, writeRoles...))
					r.Patch("/", controllers.InvoiceUpdate(services.Invoices, logg))
					r.Post("/send", controllers.InvoiceSend(services.Invoices, logg))
					r.Post("/cancel", controllers.InvoiceCancel(services.Invoices, logg))
					r.Post("/reminder", controllers.InvoiceSendReminder(services.Invoices, logg))
					r.Post("/payments", controllers.PaymentRecord(services.Payments, logg))
					r.Post("/paystack/initialize", controllers.GatewayInitiate(services.Gateway, logg))
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, adminRoles...))
					r.Post("/restock", controllers.InvoiceRestock(services.Invoices, logg))
					r.Delete("/", controllers.InvoiceDelete(services.Invoices, logg))
				})
			})
		})

		r.Route("/payments/paystack", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, writeRoles...))
			r.Post("/verify/{reference}", controllers.GatewayVerify(services.Gateway, logg))
		})

		r.Route("/parts", func(r chi.Router) {
			r.Get("/", controllers.PartList(services.Inventory, logg))
			r.Get("/low-stock", controllers.PartLowStock(services.Inventory, logg))
			r.Get("/{partId}", controllers.PartGet(services.Inventory, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, adminRoles...))
				r.Post("/", controllers.PartCreate(services.Inventory, logg))
				r.Patch("/{partId}", controllers.PartUpdate(services.Inventory, logg))
				r.Delete("/{partId}", controllers.PartDelete(services.Inventory, logg))
				r.Post("/{partId}/adjust", controllers.PartAdjust(services.Inventory, logg))
			})
		})
	})

	return r
}
