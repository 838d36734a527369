package service

import (
	"errors"
	"fmt"
	"strings"

	"symposium/internal/model"
	"symposium/internal/repo"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("not authorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrPaymentIncomplete = errors.New("payment incomplete")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrUpstream          = errors.New("upstream failure")
)

// Error is a failure the caller may show to the user. Kind is one of the
// sentinels above and is what errors.Is matches.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func fail(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// classify turns repository and domain errors into service errors. what
// names the entity for not-found messages. Other errors pass through.
func classify(err error, what string) error {
	var svcErr *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &svcErr):
		return err
	case errors.Is(err, repo.ErrNotFound):
		return fail(ErrNotFound, "%s not found", what)
	case errors.Is(err, repo.ErrDuplicate):
		return fail(ErrDuplicateKey, "%s already exists", what)
	case errors.Is(err, repo.ErrCapacityFull):
		return fail(ErrInvalidState, "%s is full", what)
	case errors.Is(err, model.ErrInvalidTransition):
		return fail(ErrInvalidState, "%s", detail(err, model.ErrInvalidTransition))
	case errors.Is(err, model.ErrInvalidTarget):
		return fail(ErrValidation, "%s", detail(err, model.ErrInvalidTarget))
	case errors.Is(err, model.ErrNegativeAmount):
		return fail(ErrValidation, "%s", model.ErrNegativeAmount.Error())
	}
	return err
}

// detail strips the sentinel prefix from a wrapped domain error.
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}
