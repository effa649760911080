package bridge

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/nerrad567/gray-logic-automation/internal/types"
)

// Payload field names.
const (
	fieldState   = "state"
	fieldCommand = "command"
)

// decodeValue extracts a state or command value from an MQTT payload.
// A JSON object must carry field; any other payload is taken as the bare
// value.
func decodeValue(payload []byte, field string) (any, error) {
	raw := strings.TrimSpace(string(payload))
	if raw == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}

	if !gjson.Valid(raw) {
		return types.Parse(raw), nil
	}

	result := gjson.Parse(raw)
	if result.IsObject() {
		result = result.Get(field)
		if !result.Exists() {
			return nil, fmt.Errorf("%w: missing %q field", ErrInvalidPayload, field)
		}
	}
	return valueOf(result)
}

func valueOf(r gjson.Result) (any, error) {
	switch r.Type {
	case gjson.Number:
		return r.Float(), nil
	case gjson.True:
		return types.On, nil
	case gjson.False:
		return types.Off, nil
	case gjson.String:
		return types.Parse(r.String()), nil
	case gjson.Null:
		return types.Null, nil
	default:
		return nil, fmt.Errorf("%w: unsupported value %s", ErrInvalidPayload, r.Raw)
	}
}
