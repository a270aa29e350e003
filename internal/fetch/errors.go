package fetch

import (
	"errors"
	"fmt"
)

// ErrorKind classifies fetch failures.
type ErrorKind int

const (
	ConnectionFailed ErrorKind = iota
	Timeout
	HTTPStatus
	TooLarge
)

func (k ErrorKind) String() string {
	switch k {
	case ConnectionFailed:
		return "connection_failed"
	case Timeout:
		return "timeout"
	case HTTPStatus:
		return "http_status"
	case TooLarge:
		return "too_large"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ErrEmptyURL is returned for an empty URL. Callers treat an empty URL as
// "feed not requested" and should not call Fetch at all.
var ErrEmptyURL = errors.New("empty feed URL")

// Error is returned by Fetch for every failure after the request was made.
type Error struct {
	Kind       ErrorKind
	URL        string
	StatusCode int // set for HTTPStatus
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case HTTPStatus:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	case TooLarge:
		return fmt.Sprintf("fetch %s: response exceeds size limit", e.URL)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// retryable reports whether another attempt could succeed.
func (e *Error) retryable() bool {
	switch e.Kind {
	case ConnectionFailed:
		return true
	case HTTPStatus:
		return e.StatusCode >= 500
	}
	return false
}

// KindOf returns the kind of a fetch error, and false for other errors.
func KindOf(err error) (ErrorKind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}
