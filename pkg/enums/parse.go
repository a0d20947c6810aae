package enums

import (
	"fmt"
	"slices"
)

// parse accepts value only when it spells a member of valid exactly.
func parse[T ~string](value string, valid []T, kind string) (T, error) {
	if v := T(value); slices.Contains(valid, v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, value)
}
