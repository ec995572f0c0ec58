package memory

import (
	"context"
	"errors"

	pkgerrors "todo-backend/pkg/errors"
)

var errStoreClosed = errors.New("memory store is closed")

func wrap(operation string, err error) error {
	if errors.Is(err, errStoreClosed) || errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.NewUnavailableError("memory store", err)
	}
	return pkgerrors.NewDatabaseError(operation, err)
}
