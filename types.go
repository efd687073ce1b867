package apiclient

import (
	"context"
	"io"
	"net/http"
	"time"
)

// HTTP verbs understood by the client. The backend only distinguishes GET
// and POST on the wire; PATCH and DELETE travel as POST with a _method field.
const (
	MethodGet    = http.MethodGet
	MethodPost   = http.MethodPost
	MethodPatch  = http.MethodPatch
	MethodDelete = http.MethodDelete
)

// RequestTimeout bounds every call made through the transport.
const RequestTimeout = 20 * time.Second

// Params holds request parameters. Values must be JSON-compatible.
type Params map[string]any

// Headers holds request header overrides.
type Headers map[string]string

// Doer is the transport collaborator. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Middleware wraps the transport call for cross-cutting concerns.
type Middleware func(req *http.Request, next Doer) (*http.Response, error)

// DoerFunc adapts a function to the Doer interface.
type DoerFunc func(*http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// TokenStore persists the single credential attached to outgoing requests.
// An empty string stands for "no token".
type TokenStore interface {
	Token() string
	SetToken(token string)
}

// Cache is the read-through cache collaborator. Eviction is entirely up to
// the implementation.
type Cache interface {
	Get(ctx context.Context, key string) (Payload, bool)
	Set(ctx context.Context, key string, value Payload)
}

// RequestOptions tweaks a single call.
type RequestOptions struct {
	// Cache enables the read-through cache. Only honored for GET.
	Cache bool
	// Headers override the client's default headers for this call.
	Headers Headers
	// Files switches a non-GET body to multipart/form-data.
	Files []FormFile
}

// FormFile is one file part of a multipart body.
type FormFile struct {
	Field       string
	Filename    string
	ContentType string
	Content     io.Reader
}

// RequestInfo describes a dispatched request. It is built fresh for every
// call and attached to errors for diagnostics.
type RequestInfo struct {
	Method  string
	URL     string
	Params  Params
	Headers Headers
}
