package enums

import "slices"

// ReferenceOutcome records what happened the first time a gateway reference was reconciled.
type ReferenceOutcome string

const (
	ReferenceApplied  ReferenceOutcome = "APPLIED"
	ReferenceRejected ReferenceOutcome = "REJECTED"
)

var validReferenceOutcomes = []ReferenceOutcome{
	ReferenceApplied,
	ReferenceRejected,
}

// String implements fmt.Stringer.
func (r ReferenceOutcome) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReferenceOutcome.
func (r ReferenceOutcome) IsValid() bool {
	return slices.Contains(validReferenceOutcomes, r)
}

// ParseReferenceOutcome converts raw input into a ReferenceOutcome.
func ParseReferenceOutcome(value string) (ReferenceOutcome, error) {
	return parse(value, validReferenceOutcomes, "reference outcome")
}
