package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/plunoo/biskakenauto-sub000/api/responses"
	"github.com/plunoo/biskakenauto-sub000/internal/gateway"
	paystackwebhook "github.com/plunoo/biskakenauto-sub000/internal/webhooks/paystack"
	"github.com/plunoo/biskakenauto-sub000/pkg/config"
	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
	"github.com/plunoo/biskakenauto-sub000/pkg/metrics"
	"github.com/plunoo/biskakenauto-sub000/pkg/paystack"
)

const maxWebhookBody = 1 << 20

type PaystackWebhookService interface {
	HandleEvent(ctx context.Context, event paystackwebhook.Event) (*gateway.ApplyResult, error)
}

// PaystackWebhook authenticates and reconciles Paystack deliveries. Every
// request is rejected when no secret key is configured. Permanent business
// outcomes are acknowledged with 200 so the gateway stops retrying; transient
// failures surface as 5xx.
func PaystackWebhook(svc PaystackWebhookService, cfg config.PaystackConfig, m *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if !cfg.Configured() || !paystack.VerifySignature(cfg.SecretKey, payload, r.Header.Get(paystack.SignatureHeader)) {
			m.IncEvent("unknown", "signature_rejected")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeAuthenticity, "invalid webhook signature").WithReason(pkgerrors.ReasonSignatureMismatch))
			return
		}

		event, err := paystackwebhook.Decode(payload)
		if err != nil {
			m.IncEvent("unknown", "malformed")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.HandleEvent(ctx, event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil && result != nil {
			ctx = logg.WithReference(ctx, result.Reference)
			logg.Info(logg.WithField(ctx, "outcome", string(result.Outcome)), "paystack webhook processed")
		}
		responses.WriteSuccess(w, result)
	}
}
