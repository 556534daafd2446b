package postgres

import (
	"errors"
	"fmt"

	"bank-cards/internal/core/domain"
	"bank-cards/pkg/apperror"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// translateErr maps PostgreSQL errors the services react to onto their
// application equivalents. Other errors are returned unchanged.
func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.LockNotAvailable, pgerrcode.DeadlockDetected:
		return apperror.ErrLockTimeout(err)
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
