package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
)

type sampleBody struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
	Method   string `json:"method" validate:"omitempty,oneof=CASH CARD"`
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"oil","quantity":1,"colour":"red"}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyReportsFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":0,"method":"CHEQUE"}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["name"] != "is required" {
		t.Fatalf("unexpected name message %q", details["name"])
	}
	if details["quantity"] != "must be greater than 0" {
		t.Fatalf("unexpected quantity message %q", details["quantity"])
	}
	if details["method"] != "must be one of CASH CARD" {
		t.Fatalf("unexpected method message %q", details["method"])
	}
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		value string
		ok    bool
	}{
		{id.String(), true},
		{"not-a-uuid", false},
		{"", false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rc := chi.NewRouteContext()
		rc.URLParams.Add("invoiceId", tc.value)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

		got, err := ParseUUIDParam(req, "invoiceId")
		if tc.ok && (err != nil || got != id) {
			t.Fatalf("value %q: expected %s got %s err %v", tc.value, id, got, err)
		}
		if !tc.ok && !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("value %q: expected validation error, got %v", tc.value, err)
		}
	}
}

func TestParseQueryIntBounds(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	if _, err := ParseQueryInt(req, "limit", 20, 1, 100); err == nil {
		t.Fatal("expected out of range error")
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	got, err := ParseQueryInt(req, "limit", 20, 1, 100)
	if err != nil || got != 20 {
		t.Fatalf("expected default 20, got %d err %v", got, err)
	}
}

func TestDecodeJSONBodyRejectsTrailingData(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"oil","quantity":1}{"name":"x"}`))
	var body sampleBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	if typed := pkgerrors.As(err); typed == nil || typed.Message() != "request body required" {
		t.Fatalf("expected body required error, got %v", err)
	}
}

func TestNestedFieldPaths(t *testing.T) {
	type line struct {
		Quantity int `json:"quantity" validate:"gt=0"`
	}
	type order struct {
		Title string `json:"title" validate:"required,notblank"`
		Items []line `json:"items" validate:"required,min=1,dive"`
	}
	err := Struct(context.Background(), order{Title: "   ", Items: []line{{Quantity: 0}}})
	details, _ := pkgerrors.As(err).Details().(map[string]string)
	if details["title"] != "must not be blank" {
		t.Fatalf("unexpected title message %q (%v)", details["title"], details)
	}
	if details["items[0].quantity"] != "must be greater than 0" {
		t.Fatalf("unexpected nested message (%v)", details)
	}
}

func TestCleanTextIsRuneSafe(t *testing.T) {
	if got := CleanText("  brake pads  ", 0); got != "brake pads" {
		t.Fatalf("expected trimmed, got %q", got)
	}
	if got := CleanText("Ɔdɛɛfoɔ", 3); got != "Ɔdɛ" {
		t.Fatalf("expected 3 runes, got %q", got)
	}
}
