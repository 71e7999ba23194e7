package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	networkErrorMessage    = "Network error: Unable to connect to server"
	unexpectedErrorMessage = "An unexpected error occurred"
	maxErrorBodyBytes      = 1 << 20
)

type ErrorKind int

const (
	KindNetwork ErrorKind = iota
	KindClient
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// APIError is the single error shape returned by the transport. StatusCode
// is 0 when no HTTP response was received.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *APIError) IsClientError() bool {
	return e != nil && e.StatusCode >= 400 && e.StatusCode < 500
}

func (e *APIError) IsServerError() bool {
	return e != nil && e.StatusCode >= 500
}

func (e *APIError) IsRetryable() bool {
	return e != nil && (e.StatusCode == 0 || e.IsServerError())
}

func (e *APIError) Kind() ErrorKind {
	switch {
	case e == nil || e.StatusCode == 0:
		return KindNetwork
	case e.IsServerError():
		return KindServer
	default:
		return KindClient
	}
}

func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Message returns the user-facing text for err: the normalized backend
// detail for API errors, err.Error() otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Message
	}
	return err.Error()
}

func newNetworkError(err error) *APIError {
	return &APIError{StatusCode: 0, Message: networkErrorMessage, Err: err}
}

func newUnexpectedError(err error) *APIError {
	return &APIError{StatusCode: 0, Message: unexpectedErrorMessage, Err: err}
}

func decodeAPIError(resp *http.Response) error {
	message := statusText(resp.StatusCode)
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err == nil {
		if detail, ok := errorDetail(data); ok {
			message = detail
		}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

func errorDetail(data []byte) (string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || !json.Valid(data) {
		return "", false
	}
	var payload errorPayload
	if err := json.Unmarshal(data, &payload); err == nil && len(payload.Detail) > 0 && string(payload.Detail) != "null" {
		var text string
		if err := json.Unmarshal(payload.Detail, &text); err == nil {
			return text, true
		}
		var entries []json.RawMessage
		if err := json.Unmarshal(payload.Detail, &entries); err == nil {
			msgs := make([]string, 0, len(entries))
			for _, raw := range entries {
				var entry validationEntry
				_ = json.Unmarshal(raw, &entry)
				msgs = append(msgs, entry.Msg)
			}
			return strings.Join(msgs, ", "), true
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return "", false
	}
	return compact.String(), true
}

func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", code)
}
