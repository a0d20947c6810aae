package enums

import "slices"

// PaymentAttemptStatus tracks a gateway-initiated payment attempt.
type PaymentAttemptStatus string

const (
	AttemptPending   PaymentAttemptStatus = "PENDING"
	AttemptSucceeded PaymentAttemptStatus = "SUCCEEDED"
	AttemptFailed    PaymentAttemptStatus = "FAILED"
	AttemptRejected  PaymentAttemptStatus = "REJECTED"
	AttemptExpired   PaymentAttemptStatus = "EXPIRED"
)

var validPaymentAttemptStatuses = []PaymentAttemptStatus{
	AttemptPending,
	AttemptSucceeded,
	AttemptFailed,
	AttemptRejected,
	AttemptExpired,
}

// String implements fmt.Stringer.
func (p PaymentAttemptStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentAttemptStatus.
func (p PaymentAttemptStatus) IsValid() bool {
	return slices.Contains(validPaymentAttemptStatuses, p)
}

// ParsePaymentAttemptStatus converts raw input into a PaymentAttemptStatus.
func ParsePaymentAttemptStatus(value string) (PaymentAttemptStatus, error) {
	return parse(value, validPaymentAttemptStatuses, "payment attempt status")
}
