package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxBodySize = 10 * 1024 * 1024

// Client talks to a backend API that only understands GET and POST. It
// injects the stored credential, spoofs other verbs, validates response
// shape, serves opt-in GET requests from a read-through cache and turns
// every failure into an *Error. It is safe for concurrent use.
//
// There is no retry, no request coalescing and no circuit breaking: each
// call makes at most one transport attempt.
type Client struct {
	baseURL         string
	tokens          TokenStore
	headers         Headers
	httpClient      Doer
	middleware      []Middleware
	cache           Cache
	errors          *errorReporter
	metrics         *MetricsCollector
	logger          logrus.FieldLogger
	requestIDGen    func() string
	validationError error
}

// New constructs a Client for the API rooted at baseURL. A best effort
// validation is performed; call IsValid / ValidationError for errors.
func New(baseURL string, tokens TokenStore, options ...Option) *Client {
	silent := logrus.New()
	silent.SetOutput(io.Discard)

	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		headers: Headers{},
		httpClient: &http.Client{
			Timeout: RequestTimeout,
		},
		errors:       &errorReporter{},
		logger:       silent,
		requestIDGen: uuid.NewString,
	}

	for _, option := range options {
		option(client)
	}
	client.errors.metrics = client.metrics

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// URL joins the base URL and endpoint.
func (c *Client) URL(endpoint string) string {
	return c.baseURL + "/" + endpoint
}

// AuthToken returns the token currently attached to requests.
func (c *Client) AuthToken() string {
	return c.tokens.Token()
}

// SetAuthToken replaces the stored token. An empty token clears it.
func (c *Client) SetAuthToken(token string) {
	c.tokens.SetToken(token)
}

// Get performs a GET. Passing cache=true serves repeated identical calls
// from the cache without touching the network.
func (c *Client) Get(ctx context.Context, endpoint string, params Params, cache bool) (Payload, error) {
	return c.Request(ctx, MethodGet, endpoint, params, &RequestOptions{Cache: cache})
}

// Post performs a POST with a form-encoded body.
func (c *Client) Post(ctx context.Context, endpoint string, data Params) (Payload, error) {
	return c.Request(ctx, MethodPost, endpoint, data, nil)
}

// Patch performs a PATCH, sent as a POST carrying _method=PATCH.
func (c *Client) Patch(ctx context.Context, endpoint string, data Params) (Payload, error) {
	return c.Request(ctx, MethodPatch, endpoint, data, nil)
}

// Delete performs a DELETE, sent as a POST carrying _method=DELETE.
func (c *Client) Delete(ctx context.Context, endpoint string, data Params) (Payload, error) {
	return c.Request(ctx, MethodDelete, endpoint, data, nil)
}

// Request is the single entry point behind Get, Post, Patch and Delete.
// data is copied before use and never modified.
func (c *Client) Request(ctx context.Context, method, endpoint string, data Params, opts *RequestOptions) (Payload, error) {
	if c.validationError != nil {
		return nil, c.validationError
	}
	if opts == nil {
		opts = &RequestOptions{}
	}

	start := time.Now()
	method = strings.ToUpper(method)
	target := c.URL(endpoint)

	params := make(Params, len(data)+2)
	for k, v := range data {
		params[k] = v
	}

	useCache := method == MethodGet && opts.Cache && c.cache != nil

	headers := make(Headers, len(c.headers)+len(opts.Headers))
	for k, v := range c.headers {
		headers[k] = v
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	if method != MethodGet && method != MethodPost {
		params["_method"] = method
		method = MethodPost
	}

	if token := c.tokens.Token(); token != "" {
		if _, exists := params["token"]; !exists {
			if method == MethodGet {
				params["token"] = token
			} else {
				target += querySeparator(target) + "token=" + url.QueryEscape(token)
			}
		}
	}

	info := RequestInfo{Method: method, URL: target, Params: params, Headers: headers}
	logger := c.logger.WithFields(logrus.Fields{
		"request_id": c.requestIDGen(),
		"method":     method,
		"url":        target,
	})

	c.metrics.RecordRequestStart(method, endpoint)
	defer c.metrics.RecordRequestEnd(method, endpoint)

	jsonParams, err := encodeParams(params)
	if err != nil {
		apiErr := newError(KindConfig, fmt.Sprintf("invalid params: %v", err), nil, info)
		apiErr.Cause = err
		return nil, c.fail(logger, apiErr, endpoint)
	}
	logger = logger.WithField("params", jsonParams)

	var cacheKey string
	if useCache {
		if cacheKey, err = Signature(method, target, params); err != nil {
			apiErr := newError(KindConfig, fmt.Sprintf("invalid params: %v", err), nil, info)
			apiErr.Cause = err
			return nil, c.fail(logger, apiErr, endpoint)
		}
		if cached, ok := c.cache.Get(ctx, cacheKey); ok && cached != nil {
			logger.Debug("cached result")
			c.metrics.RecordCacheHit(endpoint)
			c.metrics.RecordRequest(method, endpoint, http.StatusOK, time.Since(start))
			return cached.Clone(), nil
		}
		c.metrics.RecordCacheMiss(endpoint)
	}

	logger.Debug("request")
	payload, status, apiErr := c.dispatch(ctx, info, opts.Files)
	duration := time.Since(start)
	c.metrics.RecordRequest(method, endpoint, status, duration)
	logger.WithField("duration", duration).Debug("request completed")

	if apiErr != nil {
		return nil, c.fail(logger, apiErr, endpoint)
	}

	if useCache {
		c.cache.Set(ctx, cacheKey, payload.Clone())
		if mem, ok := c.cache.(*InMemoryCache); ok {
			c.metrics.RecordCacheSize("default", mem.Len())
		}
	}

	return payload, nil
}

// dispatch performs the single transport attempt and classifies the result.
func (c *Client) dispatch(ctx context.Context, info RequestInfo, files []FormFile) (Payload, int, *Error) {
	budget := requestBudget(ctx, time.Now())
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	reqURL := info.URL
	var body io.Reader
	var contentType string

	switch {
	case info.Method == MethodGet:
		if q := formValues(info.Params).Encode(); q != "" {
			reqURL += querySeparator(reqURL) + q
		}
	case len(files) > 0:
		r, ct, err := multipartBody(info.Params, files)
		if err != nil {
			apiErr := newError(KindConfig, fmt.Sprintf("invalid multipart body: %v", err), nil, info)
			apiErr.Cause = err
			return nil, 0, apiErr
		}
		body, contentType = r, ct
	default:
		body = strings.NewReader(formValues(info.Params).Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, info.Method, reqURL, body)
	if err != nil {
		apiErr := newError(KindTransport, err.Error(), nil, info)
		apiErr.Cause = err
		return nil, 0, apiErr
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range info.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.executeMiddleware(req)
	if err != nil {
		apiErr := newError(KindTransport, transportMessage(err, budget), nil, info)
		apiErr.Cause = err
		return nil, 0, apiErr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		apiErr := newError(KindTransport, transportMessage(err, budget), nil, info)
		apiErr.Cause = err
		apiErr.StatusCode = resp.StatusCode
		return nil, resp.StatusCode, apiErr
	}

	var obj map[string]any
	decodeErr := json.Unmarshal(raw, &obj)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := fmt.Sprintf("Request failed with status code %d", resp.StatusCode)
		if decodeErr == nil && obj != nil {
			if v, ok := obj["error"]; ok {
				message = ""
				if truthy(v) {
					message = Payload(obj).String("error")
				}
			}
		}
		if message == "" {
			message = MessageGeneric
		}
		var response Payload
		if decodeErr == nil {
			response = Payload(obj)
		}
		apiErr := newError(KindStatus, message, response, info)
		apiErr.StatusCode = resp.StatusCode
		return nil, resp.StatusCode, apiErr
	}

	if decodeErr != nil || obj == nil {
		apiErr := newError(KindShape, MessageUnexpectedResponse, nil, info)
		apiErr.StatusCode = resp.StatusCode
		apiErr.Cause = decodeErr
		return nil, resp.StatusCode, apiErr
	}

	payload := Payload(obj)
	if message, ok := payload.errorField(); ok {
		apiErr := newError(KindDeclared, message, payload, info)
		apiErr.StatusCode = resp.StatusCode
		return nil, resp.StatusCode, apiErr
	}

	return payload, resp.StatusCode, nil
}

// fail logs, counts and reports a normalized error before it is returned.
func (c *Client) fail(logger logrus.FieldLogger, err *Error, endpoint string) error {
	logger.WithFields(logrus.Fields{
		"kind":        err.Kind.String(),
		"status_code": err.StatusCode,
		"response":    err.Response,
	}).Error(err.Message)
	c.metrics.RecordError(err.Kind, err.Request.Method, endpoint)
	c.errors.report(err)
	return err
}

func (c *Client) executeMiddleware(req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return c.httpClient.Do(req)
	}

	var current Doer = c.httpClient

	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = DoerFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}

	return current.Do(req)
}

// requestBudget is the time a dispatch started at start may take: the fixed
// RequestTimeout, or less when the caller's own deadline comes first.
func requestBudget(parent context.Context, start time.Time) time.Duration {
	if deadline, ok := parent.Deadline(); ok {
		if remaining := deadline.Sub(start); remaining < RequestTimeout {
			return remaining.Round(time.Millisecond)
		}
	}
	return RequestTimeout
}

func transportMessage(err error, budget time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("timeout of %dms exceeded", budget.Milliseconds())
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("timeout of %dms exceeded", budget.Milliseconds())
	}
	if errors.Is(err, context.Canceled) {
		return "Request aborted"
	}
	return MessageNetworkError
}

func querySeparator(u string) string {
	if strings.Contains(u, "?") {
		return "&"
	}
	return "?"
}
