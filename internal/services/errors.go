package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/myflix/internal/shared"
)

// Kind classifies a gateway failure.
type Kind int

const (
	KindRemote Kind = iota
	KindAuthorization
	KindNotFound
	KindConflict
	KindValidation
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization failure"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation failure"
	case KindTransport:
		return "transport failure"
	default:
		return "remote failure"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindAuthorization:
		return shared.ErrAuthorization
	case KindNotFound:
		return shared.ErrNotFound
	case KindConflict:
		return shared.ErrConflict
	case KindValidation:
		return shared.ErrValidation
	case KindTransport:
		return shared.ErrTransport
	default:
		return shared.ErrRemote
	}
}

// KindForStatus maps a non-2xx HTTP status to its failure kind.
func KindForStatus(code int) Kind {
	switch code {
	case http.StatusUnauthorized:
		return KindAuthorization
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindRemote
	}
}

// GatewayError is a failed gateway request.
//
// StatusCode is zero for transport failures. Message is the best-effort decoded server message.
type GatewayError struct {
	Kind       Kind
	StatusCode int
	Message    string
	Method     string
	Path       string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Method, e.Path, e.Err)
		}
		return fmt.Sprintf("%s: %s %s", e.Kind, e.Method, e.Path)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap exposes the kind's sentinel error and the underlying cause.
func (e *GatewayError) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsStatus returns true if err (or any wrapped error) is a [GatewayError] with the given status code.
func IsStatus(err error, code int) bool {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.StatusCode == code
	}
	return false
}

// KindOf returns the kind of a wrapped [GatewayError]; ok is false for any other error.
func KindOf(err error) (kind Kind, ok bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Kind, true
	}
	return KindRemote, false
}
