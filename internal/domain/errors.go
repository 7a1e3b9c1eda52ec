package domain

import "errors"

// Error kinds. Wrap them with fmt.Errorf("%w: ...") and test with errors.Is.
//
// ErrConfiguration and ErrBoundary abort a run before any input is touched.
// ErrFormat and ErrIO are fatal to a single input only.
var (
	ErrFormat        = errors.New("format error")
	ErrConfiguration = errors.New("configuration error")
	ErrIO            = errors.New("io error")
	ErrBoundary      = errors.New("boundary error")
)

// KindOf classifies err into a short label for logs and metrics.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFormat):
		return "format"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrIO):
		return "io"
	case errors.Is(err, ErrBoundary):
		return "boundary"
	default:
		return "unknown"
	}
}
