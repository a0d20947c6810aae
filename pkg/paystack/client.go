// Package paystack is a minimal client for the Paystack endpoints used to
// collect invoice payments: mobile money charges, hosted card checkout and
// transaction verification.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/plunoo/biskakenauto-sub000/pkg/config"
	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
)

const (
	defaultBaseURL        = "https://api.paystack.co"
	defaultCurrency       = "GHS"
	defaultTimeout        = 15 * time.Second
	responseReadLimit     = 1 << 20
	errorBodyLimit  int64 = 1024
	tracerName            = "github.com/plunoo/biskakenauto-sub000/pkg/paystack"
)

var errSecretRequired = errors.New("paystack secret key is required")

// Observer receives the duration and outcome of every call.
type Observer interface {
	Observe(operation, outcome string, d time.Duration)
}

// Client calls the Paystack REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	currency   string
	timeout    time.Duration
	observer   Observer
	tracer     trace.Tracer
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL points the client at a different API host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout bounds each call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithObserver records call latency.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient builds a client from configuration.
func NewClient(cfg config.PaystackConfig, opts ...Option) (*Client, error) {
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errSecretRequired
	}
	client := &Client{
		httpClient: &http.Client{},
		baseURL:    defaultBaseURL,
		secretKey:  secret,
		currency:   defaultCurrency,
		timeout:    defaultTimeout,
		tracer:     otel.Tracer(tracerName),
	}
	if cfg.BaseURL != "" {
		client.baseURL = cfg.BaseURL
	}
	if cfg.Currency != "" {
		client.currency = cfg.Currency
	}
	if cfg.Timeout > 0 {
		client.timeout = cfg.Timeout
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Currency is the ISO code every charge is raised in.
func (c *Client) Currency() string {
	return c.currency
}

// ChargeMobileMoney starts a mobile money debit (POST /charge).
func (c *Client) ChargeMobileMoney(ctx context.Context, req MobileMoneyChargeRequest) (*ChargeResult, error) {
	amount, err := ToMinorUnits(req.Amount)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"email":     req.Email,
		"amount":    amount,
		"currency":  c.currency,
		"reference": req.Reference,
		"mobile_money": map[string]string{
			"phone":    req.Phone,
			"provider": req.Provider,
		},
		"metadata": req.Metadata,
	}
	var out envelope[chargeData]
	raw, err := c.do(ctx, "charge", http.MethodPost, "charge", body, &out)
	if err != nil {
		return nil, err
	}
	return &ChargeResult{
		Reference:   firstNonEmpty(out.Data.Reference, req.Reference),
		Status:      out.Data.Status,
		DisplayText: out.Data.DisplayText,
		RawResponse: raw,
	}, nil
}

// InitializeTransaction creates a hosted checkout (POST /transaction/initialize).
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*ChargeResult, error) {
	amount, err := ToMinorUnits(req.Amount)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"email":     req.Email,
		"amount":    amount,
		"currency":  c.currency,
		"reference": req.Reference,
		"metadata":  req.Metadata,
	}
	if len(req.Channels) > 0 {
		body["channels"] = req.Channels
	}
	if req.CallbackURL != "" {
		body["callback_url"] = req.CallbackURL
	}
	var out envelope[chargeData]
	raw, err := c.do(ctx, "initialize", http.MethodPost, "transaction/initialize", body, &out)
	if err != nil {
		return nil, err
	}
	return &ChargeResult{
		Reference:        firstNonEmpty(out.Data.Reference, req.Reference),
		Status:           StatusPending,
		AuthorizationURL: out.Data.AuthorizationURL,
		AccessCode:       out.Data.AccessCode,
		RawResponse:      raw,
	}, nil
}

// Verify fetches the authoritative state of a transaction
// (GET /transaction/verify/{reference}).
func (c *Client) Verify(ctx context.Context, reference string) (*Transaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}
	var out envelope[TransactionData]
	if _, err := c.do(ctx, "verify", http.MethodGet, "transaction/verify/"+url.PathEscape(reference), nil, &out); err != nil {
		return nil, err
	}
	tx := out.Data.Transaction()
	if tx.Reference == "" {
		tx.Reference = reference
	}
	return &tx, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, body any, out any) (raw string, err error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "paystack."+operation, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.method", method), attribute.String("paystack.path", path)))
	started := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = strings.ToLower(string(pkgerrors.As(err).Code()))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if c.observer != nil {
			c.observer.Observe(operation, outcome, time.Since(started))
		}
		span.End()
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal paystack request")
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paystack request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError(ctx, err, operation)
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
	if err != nil {
		return "", transportError(ctx, err, operation)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", pkgerrors.Wrap(pkgerrors.CodeGateway,
			fmt.Errorf("status %d: %s", resp.StatusCode, gatewayMessage(data)),
			fmt.Sprintf("paystack %s failed", operation),
		).WithDetails(map[string]any{"status": resp.StatusCode, "message": gatewayMessage(data)})
	}

	var head struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode paystack response")
	}
	if !head.Status {
		return "", pkgerrors.New(pkgerrors.CodeGateway, fmt.Sprintf("paystack %s rejected: %s", operation, head.Message)).
			WithDetails(map[string]any{"message": head.Message})
	}
	if err := json.Unmarshal(data, out); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode paystack response")
	}
	return string(data), nil
}

func transportError(ctx context.Context, err error, operation string) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return pkgerrors.Wrap(pkgerrors.CodeGatewayTimeout, err, fmt.Sprintf("paystack %s timed out", operation))
	}
	return pkgerrors.Wrap(pkgerrors.CodeGateway, err, fmt.Sprintf("paystack %s request failed", operation))
}

func gatewayMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	if int64(len(body)) > errorBodyLimit {
		body = body[:errorBodyLimit]
	}
	return strings.TrimSpace(string(body))
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
