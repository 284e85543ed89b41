package service

import (
	"errors"

	domainerrors "github.com/snipstash/snipstash-server/internal/errors"
	"github.com/snipstash/snipstash-server/internal/metrics"
	"github.com/snipstash/snipstash-server/internal/store"
)

// mapStoreError converts store sentinels into domain errors with a
// user-facing message. Unknown errors pass through.
func mapStoreError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFoundf("%s not found", what).WithCause(err)
	case errors.Is(err, store.ErrInvalidState):
		return domainerrors.InvalidState(what + " is not in a valid state for this operation").WithCause(err)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.AlreadyExists(what + " already exists").WithCause(err)
	default:
		return err
	}
}

// resultOf labels an operation outcome for metrics.
func resultOf(err error) string {
	if err == nil {
		return metrics.ResultOK
	}
	switch domainerrors.CodeOf(err) {
	case domainerrors.CodeNotFound:
		return metrics.ResultNotFound
	case domainerrors.CodeInvalidState, domainerrors.CodeValidation:
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}

func record(operation string, err error) {
	metrics.SnippetOperations.WithLabelValues(operation, resultOf(err)).Inc()
}
