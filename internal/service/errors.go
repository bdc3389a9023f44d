package service

import (
	"context"
	"errors"

	domainerrors "github.com/talespring/talespring-server/internal/errors"
	"github.com/talespring/talespring-server/internal/store"
)

// translate converts a store error into the domain error callers branch on.
// op names the failed operation and becomes the message for I/O failures.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}

	var storeErr *store.Error
	switch {
	case errors.Is(err, store.ErrNotFound):
		msg := "not found"
		if errors.As(err, &storeErr) {
			msg = storeErr.Message
		}
		return domainerrors.NotFound(msg).WithCause(err)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.Conflict(op + ": already exists").WithCause(err)
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.Validation(op + ": invalid input").WithCause(err)
	case errors.Is(err, store.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return domainerrors.Unavailable(op, err)
	case errors.Is(err, context.Canceled):
		return err
	}
	return domainerrors.Wrap(err, domainerrors.CodeInternal, op)
}
