// Package apperr classifies pipeline failures so the HTTP layer can pick a
// status code without knowing which adapter produced the error.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConfig
	KindUpstream
	KindNotFound
	KindParse
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfig:
		return "config"
	case KindUpstream:
		return "upstream"
	case KindNotFound:
		return "not_found"
	case KindParse:
		return "parse"
	case KindPersistence:
		return "persistence"
	default:
		return "internal"
	}
}

// Error carries a Kind plus the message shown to clients.
type Error struct {
	Kind    Kind
	Message string
	Missing []string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// MissingConfig reports the exact environment variables that are unset.
func MissingConfig(vars []string) error {
	return &Error{
		Kind:    KindConfig,
		Message: "Missing required environment variables: " + strings.Join(vars, ", "),
		Missing: append([]string(nil), vars...),
	}
}

func Upstream(msg string, err error) error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

func NotFound(msg string, err error) error {
	return &Error{Kind: KindNotFound, Message: msg, Err: err}
}

func Parse(msg string, err error) error {
	return &Error{Kind: KindParse, Message: msg, Err: err}
}

func Persistence(msg string, err error) error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// KindOf returns the Kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the status used by the pipeline endpoints:
// validation failures are 400, everything else aborts the request with 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if KindOf(err) == KindValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
