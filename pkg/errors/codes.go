package errors

import "net/http"

// Code is the stable, client-visible error class. It decides the HTTP
// status and how much of the error leaves the process.
type Code string

const (
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeAuthenticity   Code = "AUTHENTICITY_ERROR"
	CodeForbidden      Code = "FORBIDDEN"
	CodeNotFound       Code = "NOT_FOUND"
	CodeConflict       Code = "CONFLICT"
	CodeStateConflict  Code = "STATE_CONFLICT"
	CodeIdempotency    Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit      Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal       Code = "INTERNAL_ERROR"
	CodeDependency     Code = "DEPENDENCY_ERROR"
	CodeGateway        Code = "GATEWAY_ERROR"
	CodeGatewayTimeout Code = "GATEWAY_TIMEOUT"
)

// Reason narrows a Code to the exact business rule that failed. Clients
// switch on it to render a precise message.
type Reason string

const (
	ReasonInsufficientStock        Reason = "INSUFFICIENT_STOCK"
	ReasonPartNotFound             Reason = "PART_NOT_FOUND"
	ReasonCustomerNotFound         Reason = "CUSTOMER_NOT_FOUND"
	ReasonJobNotFound              Reason = "JOB_NOT_FOUND"
	ReasonJobMismatch              Reason = "JOB_MISMATCH"
	ReasonInvoiceNotFound          Reason = "INVOICE_NOT_FOUND"
	ReasonAmountExceedsOutstanding Reason = "AMOUNT_EXCEEDS_OUTSTANDING"
	ReasonAlreadyPaid              Reason = "ALREADY_PAID"
	ReasonInvoiceCancelled         Reason = "INVOICE_CANCELLED"
	ReasonImmutable                Reason = "IMMUTABLE"
	ReasonTotalBelowPaid           Reason = "TOTAL_BELOW_PAID"
	ReasonInvalidTransition        Reason = "INVALID_TRANSITION"
	ReasonHasPayments              Reason = "HAS_PAYMENTS"
	ReasonAlreadyRestocked         Reason = "ALREADY_RESTOCKED"
	ReasonPartInUse                Reason = "PART_IN_USE"
	ReasonPricing                  Reason = "SELLING_PRICE_NOT_ABOVE_COST"
	ReasonConcurrentUpdate         Reason = "CONCURRENT_UPDATE"
	ReasonSignatureMismatch        Reason = "SIGNATURE_MISMATCH"
	ReasonUnknownReference         Reason = "UNKNOWN_REFERENCE"
	ReasonDuplicateReference       Reason = "DUPLICATE_REFERENCE"
	ReasonInvalidMethod            Reason = "INVALID_PAYMENT_METHOD"
)

// Metadata is the transport policy for a Code. ExposeMessage lets the
// error's own message replace PublicMessage in the response body.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	ExposeMessage  bool
}

// caller faults: never retryable, message shown as written.
func caller(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: public, DetailsAllowed: details, ExposeMessage: true}
}

// server faults: retryable, generic message unless opted in.
func server(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, Retryable: true, PublicMessage: public, DetailsAllowed: details}
}

func (m Metadata) exposing(on bool) Metadata {
	m.ExposeMessage = on
	return m
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    caller(http.StatusBadRequest, "validation failed", true),
	CodeUnauthorized:  caller(http.StatusUnauthorized, "authentication required", false),
	CodeAuthenticity:  caller(http.StatusUnauthorized, "request authenticity could not be verified", false).exposing(false),
	CodeForbidden:     caller(http.StatusForbidden, "access denied", false),
	CodeNotFound:      caller(http.StatusNotFound, "resource not found", true),
	CodeConflict:      caller(http.StatusConflict, "conflict detected", true),
	CodeStateConflict: caller(http.StatusUnprocessableEntity, "state transition disallowed", true),
	CodeIdempotency:   caller(http.StatusConflict, "idempotency key reused", true),
	CodeRateLimit:     caller(http.StatusTooManyRequests, "rate limit exceeded", false),

	CodeInternal:       server(http.StatusInternalServerError, "internal server error", false),
	CodeDependency:     server(http.StatusServiceUnavailable, "dependency unavailable", true),
	CodeGateway:        server(http.StatusBadGateway, "payment gateway error", true).exposing(true),
	CodeGatewayTimeout: server(http.StatusGatewayTimeout, "payment gateway timed out", false),
}

// MetadataFor falls back to the internal policy for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}
