package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a client failure.
type Kind int

const (
	// KindTransport means no response was obtained at all.
	KindTransport Kind = iota + 1
	// KindShape means the response body was not a JSON object.
	KindShape
	// KindDeclared means a 2xx body carried a truthy "error" field.
	KindDeclared
	// KindStatus means the server answered with a non-2xx status.
	KindStatus
	// KindConfig marks invalid client configuration.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindShape:
		return "shape"
	case KindDeclared:
		return "declared"
	case KindStatus:
		return "status"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Messages produced by the client when the server supplies none.
const (
	MessageNetworkError       = "Network Error"
	MessageUnexpectedResponse = "Unexpected API response."
	MessageGeneric            = "API Error"
)

// Sentinel errors for construction problems.
var (
	ErrNoBaseURL     = errors.New("apiclient: base URL is required")
	ErrNilTokenStore = errors.New("apiclient: token store is required")
)

// Error is the single error shape returned by every Client operation.
// Response is never nil so callers can inspect it without checking.
type Error struct {
	Kind       Kind
	Message    string
	Response   Payload
	Request    RequestInfo
	StatusCode int
	Cause      error
}

func newError(kind Kind, message string, response Payload, req RequestInfo) *Error {
	if response == nil {
		response = Payload{}
	}
	return &Error{
		Kind:     kind,
		Message:  message,
		Response: response,
		Request:  req,
	}
}

// Error implements error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Request.Method == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s: %s", e.Request.Method, e.Request.URL, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches another *Error of the same Kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Forbidden reports whether the failure is an authorization denial, either
// as an HTTP 403 or as a numeric status field inside the body.
func (e *Error) Forbidden() bool {
	if e == nil {
		return false
	}
	if e.StatusCode == http.StatusForbidden {
		return true
	}
	switch s := e.Response["status"].(type) {
	case float64:
		return int(s) == http.StatusForbidden
	case int:
		return s == http.StatusForbidden
	case string:
		return s == "403"
	}
	return false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
