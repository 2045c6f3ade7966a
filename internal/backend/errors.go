package backend

import (
	"fmt"
	"net/http"
)

// Kind classifies a failed backend call
type Kind string

const (
	KindUnreachable        Kind = "unreachable"
	KindValidationFailed   Kind = "validation_failed"
	KindServiceUnavailable Kind = "service_unavailable"
	KindServerError        Kind = "server_error"
	KindUnknownHTTPError   Kind = "unknown_http_error"
)

// Error is a classified backend failure. Detail carries the server's
// own explanation and is shown to the user verbatim.
type Error struct {
	Kind   Kind
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindUnreachable && e.Err != nil:
		return fmt.Sprintf("backend unreachable: %v", e.Err)
	case e.Status != 0:
		return fmt.Sprintf("backend %s (%d): %s", e.Kind, e.Status, e.Detail)
	default:
		return fmt.Sprintf("backend %s: %s", e.Kind, e.Detail)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors of the same kind, so errors.Is(err, &Error{Kind: KindServerError}) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && (t.Status == 0 || t.Status == e.Status)
}

// KindForStatus maps a non-2xx status code to its kind
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindValidationFailed
	case http.StatusServiceUnavailable:
		return KindServiceUnavailable
	case http.StatusInternalServerError:
		return KindServerError
	default:
		return KindUnknownHTTPError
	}
}
