package service

import (
	"errors"
	"fmt"

	"bank-cards/pkg/apperror"
)

// storeErr passes application errors raised by a store (lock timeouts) through
// unchanged and wraps anything else as an internal error.
func storeErr(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.InternalError(fmt.Errorf("%s: %w", op, err))
}
