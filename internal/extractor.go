package internal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/treeserve/pkg/logger"
)

// ExtractorSource extracts a value from the request context.
// Returns the value and true if found, or ("", false) if not present.
type ExtractorSource = func(Context) (string, bool)

// Extractor tries multiple sources in order and returns the first match.
type Extractor struct {
	sources []ExtractorSource
}

// NewExtractor creates an Extractor that tries the given sources in order.
func NewExtractor(sources ...ExtractorSource) Extractor {
	return Extractor{sources: sources}
}

// Extract iterates sources in order and returns the first non-empty value.
func (e Extractor) Extract(c Context) (string, bool) {
	for _, src := range e.sources {
		if v, ok := src(c); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// FromHeader returns a source that reads from a request header.
func FromHeader(name string) ExtractorSource {
	return func(c Context) (string, bool) {
		return nonEmpty(c.Header(name))
	}
}

// FromQuery returns a source that reads from a query parameter.
func FromQuery(name string) ExtractorSource {
	return func(c Context) (string, bool) {
		return nonEmpty(c.Query(name))
	}
}

// FromParam returns a source that reads from a URL parameter.
func FromParam(name string) ExtractorSource {
	return func(c Context) (string, bool) {
		return nonEmpty(c.Param(name))
	}
}

// FromContextValue returns a source that reads a request-scoped or process-wide value.
// Non-string values are formatted with fmt.Sprint.
func FromContextValue(key string) ExtractorSource {
	return func(c Context) (string, bool) {
		switch v := c.Get(key).(type) {
		case nil:
			return "", false
		case string:
			return nonEmpty(v)
		default:
			return nonEmpty(fmt.Sprint(v))
		}
	}
}

// FromBearerToken returns a source that reads a Bearer token from the Authorization header.
// Uses case-insensitive comparison on the "Bearer " prefix.
func FromBearerToken() ExtractorSource {
	return func(c Context) (string, bool) {
		auth := c.Header("Authorization")
		if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
			return "", false
		}
		return nonEmpty(auth[7:])
	}
}

func nonEmpty(v string) (string, bool) {
	return v, v != ""
}

// RouteExtractor returns a log extractor adding the matched route pattern
// to records logged with a request context.
func RouteExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		c, ok := fromContext(ctx)
		if !ok || c.pattern == "" {
			return slog.Attr{}, false
		}
		return slog.String("route", c.pattern), true
	}
}

// ContextValueExtractor returns a log extractor adding the request-scoped
// value stored under key as attribute attr.
func ContextValueExtractor(key, attr string) logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		c, ok := fromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		v := c.Get(key)
		if v == nil {
			return slog.Attr{}, false
		}
		return slog.Any(attr, v), true
	}
}
