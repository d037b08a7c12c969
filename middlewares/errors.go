package middlewares

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/treeserve/internal"
)

// PanicError is returned by Recover in place of a panic value.
type PanicError = internal.PanicError

// TimeoutError is the cause attached to the 503 returned by Timeout.
type TimeoutError struct {
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("handler exceeded %s", e.Duration)
}

// IsPanicError reports whether err wraps a recovered panic.
func IsPanicError(err error) bool { return internal.IsPanicError(err) }

// AsPanicError unwraps the recovered panic from err.
func AsPanicError(err error) (*PanicError, bool) { return internal.AsPanicError(err) }

// IsTimeoutError reports whether err was produced by Timeout.
func IsTimeoutError(err error) bool {
	_, ok := AsTimeoutError(err)
	return ok
}

// AsTimeoutError unwraps the TimeoutError from err.
func AsTimeoutError(err error) (*TimeoutError, bool) {
	var te *TimeoutError
	if !errors.As(err, &te) {
		return nil, false
	}
	return te, true
}
