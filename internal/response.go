package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
)

// Content types written by the normalizer.
const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeText = "text/plain; charset=utf-8"
	contentTypeHTML = "text/html; charset=utf-8"
)

// Messages of the errors produced while normalizing handler output.
const (
	msgNoResponse     = "No response generated"
	msgInvalidFormat  = "Invalid response format"
	msgInternalServer = "Internal server error"
)

// ResponseNode describes the HTTP response a handler or middleware wants to send.
// At most one of JSON, Text, HTML or Redirect is used, in that order of precedence:
// Redirect first, then JSON, Text and HTML.
type ResponseNode struct {
	json     any
	headers  http.Header
	text     string
	html     string
	redirect string
	status   int
	hasJSON  bool
	hasText  bool
	hasHTML  bool
}

// ResponseOption configures a ResponseNode.
type ResponseOption func(*ResponseNode)

// Response creates a response description.
//
// Example:
//
//	return treeserve.Response(treeserve.Status(201), treeserve.JSON(user)), nil
func Response(opts ...ResponseOption) *ResponseNode {
	r := &ResponseNode{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Status sets the response status code. Defaults to 200.
func Status(code int) ResponseOption {
	return func(r *ResponseNode) {
		r.status = code
	}
}

// JSON sets a body serialized as JSON.
func JSON(v any) ResponseOption {
	return func(r *ResponseNode) {
		r.json = v
		r.hasJSON = true
	}
}

// Text sets a text/plain body.
func Text(s string) ResponseOption {
	return func(r *ResponseNode) {
		r.text = s
		r.hasText = true
	}
}

// HTML sets a text/html body.
func HTML(s string) ResponseOption {
	return func(r *ResponseNode) {
		r.html = s
		r.hasHTML = true
	}
}

// Header sets a response header.
func Header(name, value string) ResponseOption {
	return func(r *ResponseNode) {
		if r.headers == nil {
			r.headers = make(http.Header)
		}
		r.headers.Set(name, value)
	}
}

// Headers sets several response headers.
func Headers(h map[string]string) ResponseOption {
	return func(r *ResponseNode) {
		for name, value := range h {
			Header(name, value)(r)
		}
	}
}

// Redirect redirects the client to url.
// The status is used when it is a 3xx code, otherwise 302 Found is sent.
func Redirect(url string) ResponseOption {
	return func(r *ResponseNode) {
		r.redirect = url
	}
}

// StatusCode returns the status the response will be sent with.
func (r *ResponseNode) StatusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// writeOutput normalizes a handler result and writes it to the response.
// The returned error reports a failure to serialize or write the body.
func writeOutput(c Context, out any) error {
	w := c.ResponseWriter()

	if isEmptyOutput(out) {
		if !w.Written() {
			return writeJSON(w, http.StatusInternalServerError, errorBody(msgNoResponse))
		}
		return nil
	}

	switch v := out.(type) {
	case *ResponseNode:
		return writeResponseNode(c, v)
	case ResponseNode:
		return writeResponseNode(c, &v)
	case []byte:
		return writePrimitive(w, v)
	case fmt.Stringer:
		return writePrimitive(w, []byte(v.String()))
	}

	if s, ok := primitiveString(out); ok {
		return writePrimitive(w, []byte(s))
	}

	if !w.Written() {
		return writeJSON(w, http.StatusInternalServerError, errorBody(msgInvalidFormat))
	}
	return nil
}

func writeResponseNode(c Context, r *ResponseNode) error {
	w := c.ResponseWriter()
	status := r.StatusCode()

	for name, values := range r.headers {
		for i, v := range values {
			if i == 0 {
				w.Header().Set(name, v)
				continue
			}
			w.Header().Add(name, v)
		}
	}

	switch {
	case r.redirect != "":
		if status < 300 || status > 399 {
			status = http.StatusFound
		}
		http.Redirect(w, c.Request(), r.redirect, status)
		return nil
	case r.hasJSON:
		// A content type set through Header, e.g. application/problem+json, is kept.
		ct := w.Header().Get("Content-Type")
		if ct == "" {
			ct = contentTypeJSON
		}
		return writeJSONAs(w, status, ct, r.json)
	case r.hasText:
		return writeBody(w, status, contentTypeText, []byte(r.text))
	case r.hasHTML:
		return writeBody(w, status, contentTypeHTML, []byte(r.html))
	default:
		w.WriteHeader(status)
		return nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	return writeJSONAs(w, status, contentTypeJSON, v)
}

func writeJSONAs(w http.ResponseWriter, status int, contentType string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode json response: %w", err)
	}
	return writeBody(w, status, contentType, data)
}

func writeBody(w http.ResponseWriter, status int, contentType string, body []byte) error {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, err := w.Write(body)
	return err
}

// writePrimitive keeps whatever status was already set on the writer.
func writePrimitive(w http.ResponseWriter, body []byte) error {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", contentTypeText)
	}
	_, err := w.Write(body)
	return err
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// isEmptyOutput reports outputs treated as "no response": nil, nil pointers
// and zero-valued primitives.
func isEmptyOutput(out any) bool {
	if out == nil {
		return true
	}
	rv := reflect.ValueOf(out)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return rv.IsZero()
	default:
		return false
	}
}

func primitiveString(out any) (string, bool) {
	rv := reflect.ValueOf(out)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	default:
		return "", false
	}
}
