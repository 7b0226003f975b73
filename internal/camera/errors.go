package camera

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies why a camera request failed
type Kind int

const (
	KindNone Kind = iota
	KindTimeout
	KindHTTP
	KindPath
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http"
	case KindPath:
		return "path"
	default:
		return "other"
	}
}

// Error is returned by every Client request that fails
type Error struct {
	Kind       Kind
	StatusCode int
	URL        string
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == KindHTTP && e.StatusCode != 0 {
		return fmt.Sprintf("request %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("request %s failed (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf classifies err. Errors that are not *Error are classified by their cause.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if isTimeout(err) {
		return KindTimeout
	}
	return KindOther
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.StatusCode
	}
	return 0
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func wrap(url string, err error) *Error {
	kind := KindOther
	if isTimeout(err) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, URL: url, Err: err}
}
