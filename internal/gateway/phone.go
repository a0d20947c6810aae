package gateway

import (
	"fmt"
	"strings"
	"unicode"

	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
)

const ghanaCountryCode = "233"

// NormalizePhone converts a Ghanaian number into +233XXXXXXXXX. A leading 0
// is replaced by the country code and a bare subscriber number gains it.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case strings.HasPrefix(digits, "0"):
		digits = ghanaCountryCode + digits[1:]
	case !strings.HasPrefix(digits, ghanaCountryCode):
		digits = ghanaCountryCode + digits
	}
	if len(digits) != len(ghanaCountryCode)+9 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid mobile money number %q", raw))
	}
	return "+" + digits, nil
}

// FallbackEmail derives a placeholder address for payers known only by phone.
func FallbackEmail(phone, host string) string {
	return strings.TrimPrefix(phone, "+") + "@" + host
}
