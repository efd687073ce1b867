package apiclient

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Option represents a configuration option
type Option func(*Client)

// WithHeaders sets the default headers sent with every request.
func WithHeaders(headers Headers) Option {
	return func(c *Client) {
		c.headers = make(Headers, len(headers))
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithCache sets the read-through cache collaborator.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithInMemoryCache enables the built-in in-memory cache.
func WithInMemoryCache(ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = NewInMemoryCache(ttl)
	}
}

// WithReporter sets the monitoring collaborator.
func WithReporter(reporter Reporter) Option {
	return func(c *Client) {
		c.errors.reporter = reporter
	}
}

// WithHTTPClient sets the transport collaborator.
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithMiddleware adds middleware around the transport call.
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics enables Prometheus metrics collection on the default registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		c.requestIDGen = gen
	}
}

// ValidateConfiguration validates the client configuration and returns an error if invalid
func (c *Client) ValidateConfiguration() error {
	var errors []string

	errors = append(errors, c.validateBaseURL()...)

	if c.tokens == nil {
		errors = append(errors, ErrNilTokenStore.Error())
	}
	if c.httpClient == nil {
		errors = append(errors, "http client must not be nil")
	}
	if c.logger == nil {
		errors = append(errors, "logger must not be nil")
	}
	for i, m := range c.middleware {
		if m == nil {
			errors = append(errors, fmt.Sprintf("middleware at index %d is nil", i))
		}
	}
	for k := range c.headers {
		if strings.TrimSpace(k) == "" {
			errors = append(errors, "header names must not be empty")
			break
		}
	}

	if len(errors) > 0 {
		return &Error{
			Kind:     KindConfig,
			Message:  "configuration validation failed",
			Response: Payload{},
			Cause:    fmt.Errorf("validation errors: %v", errors),
		}
	}

	return nil
}

func (c *Client) validateBaseURL() []string {
	if c.baseURL == "" {
		return []string{ErrNoBaseURL.Error()}
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return []string{fmt.Sprintf("invalid base URL: %v", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []string{"base URL scheme must be http or https"}
	}
	return nil
}
