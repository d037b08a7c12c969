package internal

import (
	"reflect"
	"strconv"
)

// Scalar is the set of types Param and Query convert to, including named types
// such as `type UserID int`.
type Scalar interface {
	~string | ~int | ~int64 | ~float64 | ~bool
}

// ContextValue returns the value stored under key as T, or the zero value of T.
// Request-scoped values take precedence over process-wide ones.
func ContextValue[T any](c Context, key string) T {
	v, _ := c.Get(key).(T)
	return v
}

// Param returns the route parameter converted to T, or the zero value when it
// is missing or does not parse.
func Param[T Scalar](c Context, name string) T {
	v, _ := parseScalar[T](c.Param(name))
	return v
}

// Query returns the first query value converted to T, or the zero value.
func Query[T Scalar](c Context, name string) T {
	v, _ := parseScalar[T](c.Query(name))
	return v
}

// QueryDefault is Query with a fallback for missing or malformed values.
func QueryDefault[T Scalar](c Context, name string, defaultValue T) T {
	if v, ok := parseScalar[T](c.Query(name)); ok {
		return v
	}
	return defaultValue
}

// parseScalar parses raw by the underlying kind of T.
// The empty string only parses as a string.
func parseScalar[T Scalar](raw string) (T, bool) {
	var out T
	rv := reflect.ValueOf(&out).Elem()

	switch rv.Kind() {
	case reflect.String:
		rv.SetString(raw)
		return out, raw != ""
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, rv.Type().Bits())
		if err != nil {
			return out, false
		}
		rv.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return out, false
		}
		rv.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return out, false
		}
		rv.SetBool(b)
	}
	return out, true
}
