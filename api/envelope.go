package api

import (
	"encoding/json"
	"strings"

	"github.com/irdesk/go-client/internal/utils"
)

// The backend may signal an application error inside an otherwise
// successful transport response: a JSON body carrying error === 1 plus a
// message. Every response body is decoded through this envelope before it
// is treated as success.
type envelope struct {
	Error   errorFlag   `json:"error"`
	Message flexMessage `json:"message"`
	Status  string      `json:"status"`
}

// errorFlag accepts the backend's loose encodings of the in-band error
// marker: 1, true, or "1".
type errorFlag bool

func (f *errorFlag) UnmarshalJSON(raw []byte) error {
	switch strings.TrimSpace(string(raw)) {
	case "1", "true", `"1"`, `"true"`:
		*f = true
	default:
		*f = false
	}
	return nil
}

// flexMessage accepts a single message string or a validation-error array,
// which is joined into one readable string.
type flexMessage string

func (m *flexMessage) UnmarshalJSON(raw []byte) error {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		*m = flexMessage(asString)
		return nil
	}

	var asSlice []any
	if err := json.Unmarshal(raw, &asSlice); err == nil {
		*m = flexMessage(strings.Join(utils.ToStringSlice(asSlice), ", "))
		return nil
	}

	*m = ""
	return nil
}

// decodeEnvelope inspects body for the in-band error convention. It only
// attempts the decode for JSON objects; arrays and scalars cannot carry the
// marker.
func decodeEnvelope(body []byte) (env envelope, ok bool) {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return envelope{}, false
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return envelope{}, false
	}
	return env, true
}
