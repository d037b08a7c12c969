package internal

import (
	"bufio"
	"net"
	"net/http"
	"sync/atomic"
)

// ResponseWriter wraps http.ResponseWriter and records when the response is
// committed, that is when the status line has gone out. Once committed, the
// dispatcher no longer renders errors or normalized outputs.
type ResponseWriter struct {
	http.ResponseWriter
	size      atomic.Int64
	status    atomic.Int32
	committed atomic.Bool
}

// NewResponseWriter wraps w.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w}
}

// commit sends the status line unless one was already sent.
func (w *ResponseWriter) commit(code int) bool {
	if !w.committed.CompareAndSwap(false, true) {
		return false
	}
	w.status.Store(int32(code))
	w.ResponseWriter.WriteHeader(code)
	return true
}

// WriteHeader sends the status code once; later calls are ignored.
// Informational 1xx codes other than 101 are forwarded without committing.
func (w *ResponseWriter) WriteHeader(code int) {
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	w.commit(code)
}

// Write writes the body, committing with 200 first if needed.
func (w *ResponseWriter) Write(b []byte) (int, error) {
	w.commit(http.StatusOK)
	n, err := w.ResponseWriter.Write(b)
	w.size.Add(int64(n))
	return n, err
}

// Status returns the committed status, or 200 before the response is committed.
func (w *ResponseWriter) Status() int {
	if s := w.status.Load(); s != 0 {
		return int(s)
	}
	return http.StatusOK
}

// Size returns the number of body bytes written.
func (w *ResponseWriter) Size() int64 {
	return w.size.Load()
}

// Written reports whether the response is committed.
func (w *ResponseWriter) Written() bool {
	return w.committed.Load()
}

// Flush commits the response and flushes buffered data to the client.
func (w *ResponseWriter) Flush() {
	w.commit(http.StatusOK)
	_ = http.NewResponseController(w.ResponseWriter).Flush()
}

// Hijack hands the connection over to the caller; the response counts as committed.
func (w *ResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	conn, rw, err := http.NewResponseController(w.ResponseWriter).Hijack()
	if err == nil {
		w.committed.Store(true)
	}
	return conn, rw, err
}

// Unwrap returns the wrapped writer for http.ResponseController.
func (w *ResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
