package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/plunoo/biskakenauto-sub000/pkg/auth"
	"github.com/plunoo/biskakenauto-sub000/pkg/config"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "biskaken"}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejections(t *testing.T) {
	expired, err := auth.MintAccessToken(testJWT, time.Now().Add(-3*time.Hour), time.Hour, uuid.New(), enums.RoleStaff)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	foreign := mintTestToken(t, config.JWTConfig{Secret: testJWT.Secret, Issuer: "someone-else"}, enums.RoleAdmin)

	cases := []struct {
		name    string
		header  string
		message string
	}{
		{"no header", "", "missing bearer token"},
		{"basic scheme", "Basic dXNlcjpwYXNz", "missing bearer token"},
		{"garbage", "Bearer invalid", "invalid token"},
		{"foreign issuer", "Bearer " + foreign, "invalid token"},
		{"expired", "Bearer " + expired, "token expired"},
	}
	handler := Auth(testJWT, nil)(okHandler())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			if resp.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401 got %d", resp.Code)
			}
			if !strings.Contains(resp.Body.String(), tc.message) {
				t.Fatalf("expected %q in body %s", tc.message, resp.Body.String())
			}
		})
	}
}

func TestAuthSeedsActor(t *testing.T) {
	token := mintTestToken(t, testJWT, enums.RoleStaff)

	var actor auth.Actor
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if actor.UserID == nil || actor.Role != enums.RoleStaff {
		t.Fatalf("unexpected actor %+v", actor)
	}
	if actor.IsAdmin() {
		t.Fatalf("staff must not be admin")
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, enums.RoleAdmin, enums.RoleManager)(okHandler())

	cases := []struct {
		role enums.UserRole
		want int
	}{
		{enums.RoleAdmin, http.StatusOK},
		{enums.RoleManager, http.StatusOK},
		{enums.RoleStaff, http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithActor(req.Context(), uuid.NewString(), tc.role))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("role %q: expected %d got %d", tc.role, tc.want, resp.Code)
		}
	}
}

func TestActorFromContextWithoutAuth(t *testing.T) {
	actor := ActorFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	if actor.UserID != nil || actor.Role != "" {
		t.Fatalf("expected system actor, got %+v", actor)
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, role enums.UserRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now(), time.Hour, uuid.New(), role)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
