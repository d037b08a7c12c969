package middlewares

import (
	"github.com/google/uuid"

	"github.com/dmitrymomot/treeserve/internal"
	"github.com/dmitrymomot/treeserve/pkg/logger"
)

// RequestIDKey is the request state key holding the request ID.
const RequestIDKey = "requestId"

// DefaultRequestIDHeaders are the incoming headers trusted as a request ID, in priority order.
var DefaultRequestIDHeaders = []string{"X-Request-ID", "X-Correlation-ID"}

// RequestIDConfig configures RequestID.
type RequestIDConfig struct {
	Headers        []string
	Generator      func() string
	ResponseHeader string // empty disables the echo
}

// RequestIDOption configures RequestIDConfig.
type RequestIDOption func(*RequestIDConfig)

// WithRequestIDHeaders replaces the trusted incoming headers.
func WithRequestIDHeaders(headers ...string) RequestIDOption {
	return func(cfg *RequestIDConfig) { cfg.Headers = headers }
}

// WithRequestIDGenerator replaces uuid.NewString as the ID source.
func WithRequestIDGenerator(gen func() string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		if gen != nil {
			cfg.Generator = gen
		}
	}
}

// WithRequestIDResponseHeader renames the echoed response header.
func WithRequestIDResponseHeader(header string) RequestIDOption {
	return func(cfg *RequestIDConfig) { cfg.ResponseHeader = header }
}

// RequestID tags every request with an ID: the first trusted header that is
// set, or a fresh UUID. The ID is stored under RequestIDKey and echoed back.
func RequestID(opts ...RequestIDOption) internal.MiddlewareFunc {
	cfg := RequestIDConfig{
		Headers:        DefaultRequestIDHeaders,
		Generator:      uuid.NewString,
		ResponseHeader: "X-Request-ID",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	sources := make([]internal.ExtractorSource, 0, len(cfg.Headers))
	for _, h := range cfg.Headers {
		sources = append(sources, internal.FromHeader(h))
	}
	incoming := internal.NewExtractor(sources...)

	return func(c internal.Context, next internal.Next) (any, error) {
		id, ok := incoming.Extract(c)
		if !ok {
			id = cfg.Generator()
		}

		c.Set(RequestIDKey, id)
		if cfg.ResponseHeader != "" {
			c.SetHeader(cfg.ResponseHeader, id)
		}
		return next()
	}
}

// GetRequestID returns the ID assigned by RequestID, or "".
func GetRequestID(c internal.Context) string {
	id, _ := c.Get(RequestIDKey).(string)
	return id
}

// RequestIDExtractor adds "request_id" to records logged with a request context.
func RequestIDExtractor() logger.ContextExtractor {
	return internal.ContextValueExtractor(RequestIDKey, "request_id")
}
