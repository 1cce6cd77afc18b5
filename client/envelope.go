package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Envelope is the normalized result of every API call. Exactly one contract
// holds regardless of transport outcome: callers check Success (or Err) and
// nothing else. HTTP-level failures are folded into the envelope rather than
// returned as Go errors.
type Envelope struct {
	Success bool            `json:"success"`
	Status  int             `json:"status,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// APIError is the error form of a failed envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("credosafe: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("credosafe: %s", e.Message)
}

// Err returns nil for a successful envelope, or an *APIError describing the
// failure.
func (e *Envelope) Err() error {
	if e.Success {
		return nil
	}
	msg := e.Error
	if msg == "" {
		msg = e.Message
	}
	if msg == "" {
		msg = "request failed"
	}
	return &APIError{Status: e.Status, Message: msg}
}

// Decode unmarshals the envelope's data payload into target. Decoding a
// failed envelope returns its error instead.
func (e *Envelope) Decode(target any) error {
	if err := e.Err(); err != nil {
		return err
	}
	if target == nil || len(e.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Data, target); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// statusMessages provide human-readable fallbacks for common failure codes
// when the body carries no message of its own. A server-supplied message
// always wins so callers see entity-specific text ("Voucher not found").
var statusMessages = map[int]string{
	http.StatusUnauthorized:    "Your session has expired. Please sign in again.",
	http.StatusForbidden:       "You do not have permission to perform this action.",
	http.StatusNotFound:        "The requested resource was not found.",
	http.StatusTooManyRequests: "Too many requests. Please wait a moment and try again.",
}

// normalize maps a raw HTTP response body onto the single envelope contract:
//
//   - 2xx body carrying a "success" field passes through unchanged
//   - 2xx body without one is wrapped as {success:true, data:body}
//   - non-2xx becomes {success:false, status, error} with the error derived
//     from message | error | body text
//
// It never fails: malformed bodies degrade to a text fallback.
func normalize(status int, contentType string, body []byte) *Envelope {
	isJSON := strings.Contains(contentType, "application/json") && gjson.ValidBytes(body)

	if status >= 200 && status < 400 {
		if isJSON {
			parsed := gjson.ParseBytes(body)
			if parsed.Get("success").Exists() {
				env := &Envelope{Status: status}
				if err := json.Unmarshal(body, env); err == nil {
					env.Status = status
					return env
				}
			}
		}
		env := &Envelope{Success: true, Status: status}
		if isJSON {
			env.Data = json.RawMessage(append([]byte(nil), body...))
		} else if len(body) > 0 {
			raw, _ := json.Marshal(string(body))
			env.Data = raw
		}
		return env
	}

	msg := deriveError(status, body, isJSON)
	return &Envelope{Success: false, Status: status, Error: msg}
}

func deriveError(status int, body []byte, isJSON bool) string {
	if isJSON {
		parsed := gjson.ParseBytes(body)
		if m := parsed.Get("message"); m.Exists() && m.String() != "" {
			return m.String()
		}
		if m := parsed.Get("error"); m.Exists() && m.String() != "" {
			return m.String()
		}
	}
	if override, ok := statusMessages[status]; ok {
		return override
	}
	if status >= 500 {
		return "The server encountered an error. Please try again later."
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		if len(text) > 256 {
			text = text[:256] + "...(truncated)"
		}
		return text
	}
	return fmt.Sprintf("request failed with status %d", status)
}

// networkFailure wraps a transport-level error (dial, timeout, cancellation)
// as an envelope with status 0.
func networkFailure(err error) *Envelope {
	return &Envelope{Success: false, Status: 0, Error: err.Error()}
}
