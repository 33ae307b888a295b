package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is returned when the PIM API answers with a 4xx or 5xx status.
// Body holds the decoded JSON payload when the response was JSON, otherwise the raw text.
type APIError struct {
	StatusCode int
	Body       any
	Method     string
	URL        string
	RequestID  string
}

func (e *APIError) Error() string {
	body := e.BodyString()
	if body == "" {
		return fmt.Sprintf("API request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, body)
}

// BodyString renders the response body verbatim: JSON bodies are re-encoded compactly
func (e *APIError) BodyString() string {
	switch body := e.Body.(type) {
	case nil:
		return ""
	case string:
		return body
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Sprintf("%v", body)
		}
		return string(data)
	}
}

// Message extracts a human readable message from the common Azure error envelopes
func (e *APIError) Message() string {
	obj, ok := e.Body.(map[string]any)
	if !ok {
		return ""
	}

	switch inner := obj["error"].(type) {
	case string:
		return inner
	case map[string]any:
		if msg, ok := inner["message"].(string); ok {
			return msg
		}
		if code, ok := inner["code"].(string); ok {
			return code
		}
	}
	if msg, ok := obj["message"].(string); ok {
		return msg
	}
	return ""
}

// IsAuthorizationFailure reports whether the API rejected the caller's credential or permissions
func (e *APIError) IsAuthorizationFailure() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// TransportError is returned when no HTTP response was received at all
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to execute request %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a successful response does not have the expected shape
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s from response: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
