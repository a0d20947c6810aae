package paystack

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexMetadata decodes metadata whether Paystack echoes it back as an
// object, a JSON encoded string, or an empty value.
type FlexMetadata Metadata

func (m *FlexMetadata) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) || bytes.Equal(trimmed, []byte("0")) {
		*m = FlexMetadata{}
		return nil
	}
	if trimmed[0] == '"' {
		unquoted, err := strconv.Unquote(string(trimmed))
		if err != nil {
			return err
		}
		trimmed = []byte(unquoted)
	}
	var out Metadata
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return err
	}
	*m = FlexMetadata(out)
	return nil
}
