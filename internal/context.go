package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"maps"
	"mime"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// defaultMaxBodyBytes limits JSON bodies parsed before the middleware chain runs.
const defaultMaxBodyBytes = 1 << 20 // 1MB

// Context is the per-request handle passed to middleware and handlers.
// It also implements context.Context by delegating to the request context,
// so it can be handed to UseContext, database drivers and HTTP clients.
//
// A Context is owned by a single request. Its scratch values are never
// visible to other requests and are discarded when the request ends.
type Context interface {
	context.Context

	// Request returns the underlying *http.Request.
	Request() *http.Request

	// Response returns the underlying http.ResponseWriter.
	Response() http.ResponseWriter

	// ResponseWriter returns the wrapped writer tracking status and written state.
	ResponseWriter() *ResponseWriter

	// Method returns the request method in upper case.
	Method() string

	// Path returns the request URL path.
	Path() string

	// RoutePattern returns the compiled path of the matched route.
	RoutePattern() string

	// Param returns the URL parameter value by name.
	// Returns empty string if the parameter doesn't exist.
	Param(name string) string

	// Params returns a copy of all URL parameters.
	Params() map[string]string

	// Query returns the query parameter value by name.
	Query(name string) string

	// QueryValues returns the parsed query string.
	QueryValues() url.Values

	// Body returns the decoded JSON body, or nil for non-JSON requests.
	Body() any

	// BindJSON decodes the JSON body into v.
	BindJSON(v any) error

	// Header returns the request header value by name.
	Header(name string) string

	// SetHeader sets a response header.
	SetHeader(name, value string)

	// Set stores a request-scoped value. The process-wide store is never modified.
	Set(key string, value any)

	// Get returns the request-scoped value for key, falling back to the process-wide store.
	// Returns nil if the key is set in neither.
	Get(key string) any

	// Written returns true if a response has already been written.
	Written() bool

	// Logger returns the request logger.
	Logger() *slog.Logger

	LogDebug(msg string, attrs ...any)
	LogInfo(msg string, attrs ...any)
	LogWarn(msg string, attrs ...any)
	LogError(msg string, attrs ...any)
}

// requestContextKey stores the active *requestContext in the request's context.Context.
type requestContextKey struct{}

// requestContext implements Context.
type requestContext struct {
	request  *http.Request
	response *ResponseWriter
	global   *GlobalContext
	logger   *slog.Logger
	params   map[string]string
	query    url.Values
	body     any
	values   map[string]any
	pattern  string
	rawBody  []byte
	mu       sync.RWMutex
	ended    bool
}

// contextManager creates and tears down request contexts.
type contextManager struct {
	global       *GlobalContext
	logger       *slog.Logger
	maxBodyBytes int64
}

func newContextManager(global *GlobalContext, logger *slog.Logger, maxBodyBytes int64) *contextManager {
	if global == nil {
		global = Global()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &contextManager{global: global, logger: logger, maxBodyBytes: maxBodyBytes}
}

// begin creates the context for one request.
// The returned context is always usable; a non-nil error reports a body that could not be parsed.
func (m *contextManager) begin(w http.ResponseWriter, r *http.Request, pattern string, params map[string]string) (*requestContext, error) {
	rw, ok := w.(*ResponseWriter)
	if !ok {
		rw = NewResponseWriter(w)
	}
	if params == nil {
		params = map[string]string{}
	}

	c := &requestContext{
		response: rw,
		global:   m.global,
		logger:   m.logger,
		params:   params,
		query:    r.URL.Query(),
		values:   make(map[string]any),
		pattern:  pattern,
	}
	c.request = r.WithContext(context.WithValue(r.Context(), requestContextKey{}, c))

	return c, c.parseBody(m.maxBodyBytes)
}

// end releases the request state. Values set after end are dropped.
func (m *contextManager) end(c *requestContext) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ended = true
	c.values = nil
}

func (c *requestContext) parseBody(limit int64) error {
	r := c.request
	if r.Body == nil || r.Body == http.NoBody || !isJSONContent(r.Header.Get("Content-Type")) {
		return nil
	}

	raw, err := io.ReadAll(http.MaxBytesReader(c.response, r.Body, limit))
	_ = r.Body.Close()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &HTTPError{Code: http.StatusRequestEntityTooLarge, Message: "Request body too large", Err: err}
		}
		return &HTTPError{Code: http.StatusBadRequest, Message: "Invalid JSON body", Err: err}
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	c.rawBody = raw

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &c.body); err != nil {
		return &HTTPError{Code: http.StatusBadRequest, Message: "Invalid JSON body", Err: errors.Join(ErrInvalidJSONBody, err)}
	}
	return nil
}

func isJSONContent(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || (len(mt) > 5 && mt[len(mt)-5:] == "+json")
}

func (c *requestContext) Request() *http.Request {
	return c.request
}

func (c *requestContext) Response() http.ResponseWriter {
	return c.response
}

func (c *requestContext) ResponseWriter() *ResponseWriter {
	return c.response
}

func (c *requestContext) Method() string {
	return c.request.Method
}

func (c *requestContext) Path() string {
	return c.request.URL.Path
}

func (c *requestContext) RoutePattern() string {
	return c.pattern
}

func (c *requestContext) Param(name string) string {
	return c.params[name]
}

func (c *requestContext) Params() map[string]string {
	return maps.Clone(c.params)
}

func (c *requestContext) Query(name string) string {
	return c.query.Get(name)
}

func (c *requestContext) QueryValues() url.Values {
	return c.query
}

func (c *requestContext) Body() any {
	return c.body
}

func (c *requestContext) BindJSON(v any) error {
	if len(c.rawBody) == 0 {
		return ErrBadRequest("Request body is empty")
	}
	if err := json.Unmarshal(c.rawBody, v); err != nil {
		return &HTTPError{Code: http.StatusBadRequest, Message: "Invalid JSON body", Err: err}
	}
	return nil
}

func (c *requestContext) Header(name string) string {
	return c.request.Header.Get(name)
}

func (c *requestContext) SetHeader(name, value string) {
	c.response.Header().Set(name, value)
}

func (c *requestContext) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return
	}
	c.values[key] = value
}

func (c *requestContext) Get(key string) any {
	c.mu.RLock()
	v, ok := c.values[key]
	c.mu.RUnlock()
	if ok {
		return v
	}
	v, _ = c.global.Get(key)
	return v
}

func (c *requestContext) Written() bool {
	return c.response.Written()
}

func (c *requestContext) Deadline() (time.Time, bool) {
	return c.request.Context().Deadline()
}

func (c *requestContext) Done() <-chan struct{} {
	return c.request.Context().Done()
}

func (c *requestContext) Err() error {
	return c.request.Context().Err()
}

func (c *requestContext) Value(key any) any {
	return c.request.Context().Value(key)
}

func (c *requestContext) Logger() *slog.Logger {
	return c.logger
}

func (c *requestContext) LogDebug(msg string, attrs ...any) {
	c.logger.DebugContext(c, msg, attrs...)
}

func (c *requestContext) LogInfo(msg string, attrs ...any) {
	c.logger.InfoContext(c, msg, attrs...)
}

func (c *requestContext) LogWarn(msg string, attrs ...any) {
	c.logger.WarnContext(c, msg, attrs...)
}

func (c *requestContext) LogError(msg string, attrs ...any) {
	c.logger.ErrorContext(c, msg, attrs...)
}

// fromContext returns the active request context carried by ctx.
func fromContext(ctx context.Context) (*requestContext, bool) {
	if ctx == nil {
		return nil, false
	}
	if c, ok := ctx.(*requestContext); ok {
		return c, true
	}
	c, ok := ctx.Value(requestContextKey{}).(*requestContext)
	return c, ok
}

// UseRoute returns the request Context carried by ctx.
// Returns ErrNoRequestContext when ctx does not belong to a request.
func UseRoute(ctx context.Context) (Context, error) {
	c, ok := fromContext(ctx)
	if !ok {
		return nil, ErrNoRequestContext
	}
	return c, nil
}

// UseContext reads key from the request carried by ctx, falling back to the
// process-wide store. Outside of a request only the process-wide store is read.
func UseContext(ctx context.Context, key string) any {
	if c, ok := fromContext(ctx); ok {
		return c.Get(key)
	}
	v, _ := Global().Get(key)
	return v
}

// UseSetContext writes key to the request carried by ctx, or to the
// process-wide store when ctx does not belong to a request.
func UseSetContext(ctx context.Context, key string, value any) {
	if c, ok := fromContext(ctx); ok {
		c.Set(key, value)
		return
	}
	Global().Set(key, value)
}
