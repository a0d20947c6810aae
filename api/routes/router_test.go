package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/plunoo/biskakenauto-sub000/internal/bootstrap"
	"github.com/plunoo/biskakenauto-sub000/internal/inventory"
	"github.com/plunoo/biskakenauto-sub000/internal/invoices"
	pkgAuth "github.com/plunoo/biskakenauto-sub000/pkg/auth"
	"github.com/plunoo/biskakenauto-sub000/pkg/config"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
	"github.com/plunoo/biskakenauto-sub000/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

// Unstubbed methods panic; routing tests only reach the ones below.
type stubInvoices struct {
	invoices.Service
}

func (stubInvoices) List(context.Context, invoices.ListFilter) (*invoices.ListResult, error) {
	return &invoices.ListResult{Invoices: []invoices.InvoiceDTO{}}, nil
}

func (stubInvoices) Get(_ context.Context, id uuid.UUID) (*invoices.InvoiceDTO, error) {
	return &invoices.InvoiceDTO{ID: id}, nil
}

func (stubInvoices) History(context.Context, uuid.UUID, ...enums.InvoiceEventType) ([]invoices.EventDTO, error) {
	return []invoices.EventDTO{}, nil
}

func (stubInvoices) Delete(context.Context, uuid.UUID, pkgAuth.Actor) error {
	return nil
}

type stubInventory struct {
	inventory.Service
}

func (stubInventory) ListParts(context.Context, inventory.ListFilter) ([]inventory.PartDTO, error) {
	return []inventory.PartDTO{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "biskaken"},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	services := &bootstrap.Services{
		Invoices:  stubInvoices{},
		Inventory: stubInventory{},
	}
	return NewRouter(cfg, logg, stubPinger{}, (*redis.Client)(nil), services, prometheus.NewRegistry())
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), time.Hour, uuid.New(), role)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(router http.Handler, method, target, token string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestAPIRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	resp := serve(router, http.MethodGet, "/api/v1/invoices", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestViewerCanReadButNotWrite(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	token := buildToken(t, cfg, enums.RoleViewer)

	if resp := serve(router, http.MethodGet, "/api/v1/invoices", token, nil); resp.Code != http.StatusOK {
		t.Fatalf("expected viewer list 200 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/api/v1/invoices/"+uuid.NewString(), token, nil); resp.Code != http.StatusOK {
		t.Fatalf("expected viewer get 200 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/api/v1/invoices/"+uuid.NewString()+"/events?type=invoice_paid,payment_recorded", token, nil); resp.Code != http.StatusOK {
		t.Fatalf("expected viewer history 200 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/api/v1/invoices/"+uuid.NewString()+"/events?type=bogus", token, nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected unknown event type 400 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/api/v1/parts", token, nil); resp.Code != http.StatusOK {
		t.Fatalf("expected viewer parts 200 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodPost, "/api/v1/invoices", token, strings.NewReader(`{}`)); resp.Code != http.StatusForbidden {
		t.Fatalf("expected viewer create 403 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodPost, "/api/v1/invoices/"+uuid.NewString()+"/payments", token, strings.NewReader(`{}`)); resp.Code != http.StatusForbidden {
		t.Fatalf("expected viewer payment 403 got %d", resp.Code)
	}
}

func TestDestructiveRoutesRequireAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	id := uuid.NewString()

	staff := buildToken(t, cfg, enums.RoleStaff)
	if resp := serve(router, http.MethodDelete, "/api/v1/invoices/"+id, staff, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("expected staff delete 403 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodPost, "/api/v1/parts/"+id+"/adjust", staff, strings.NewReader(`{}`)); resp.Code != http.StatusForbidden {
		t.Fatalf("expected staff adjust 403 got %d", resp.Code)
	}

	admin := buildToken(t, cfg, enums.RoleAdmin)
	if resp := serve(router, http.MethodDelete, "/api/v1/invoices/"+id, admin, nil); resp.Code != http.StatusNoContent {
		t.Fatalf("expected admin delete 204 got %d", resp.Code)
	}
}

func TestGatewayRoutesWithoutPaystack(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	staff := buildToken(t, cfg, enums.RoleStaff)

	resp := serve(router, http.MethodPost, "/api/v1/invoices/"+uuid.NewString()+"/paystack/initialize", staff, strings.NewReader(`{"provider":"mtn"}`))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with gateway disabled got %d", resp.Code)
	}
}

func TestWebhookSkipsJWTButRequiresSignature(t *testing.T) {
	router := newTestRouter(testConfig())
	resp := serve(router, http.MethodPost, "/api/v1/webhooks/paystack", "", strings.NewReader(`{"event":"charge.success"}`))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unsigned webhook got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "SIGNATURE_MISMATCH") {
		t.Fatalf("expected signature reason, got %s", resp.Body.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(testConfig())
	if resp := serve(router, http.MethodGet, "/health/live", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("expected live 200 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/health/ready", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("expected ready 200 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/metrics", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("expected metrics 200 got %d", resp.Code)
	}
}
