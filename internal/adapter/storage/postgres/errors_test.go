package postgres

import (
	"errors"
	"fmt"
	"testing"

	"bank-cards/internal/core/domain"
	"bank-cards/pkg/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateErr(t *testing.T) {
	t.Run("lock timeout", func(t *testing.T) {
		err := translateErr(&pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"})

		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "SYS_002", appErr.Code)
		assert.Equal(t, 503, appErr.HTTPStatus)
	})

	t.Run("deadlock", func(t *testing.T) {
		err := translateErr(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40P01"}))

		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "SYS_002", appErr.Code)
	})

	t.Run("unique violation", func(t *testing.T) {
		err := translateErr(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_live_key"})

		assert.ErrorIs(t, err, domain.ErrDuplicate)
		assert.Contains(t, err.Error(), "users_username_live_key")
	})

	t.Run("other errors pass through", func(t *testing.T) {
		plain := errors.New("conn closed")
		assert.Same(t, plain, translateErr(plain))

		pgErr := &pgconn.PgError{Code: "42P01"}
		assert.Equal(t, error(pgErr), translateErr(pgErr))
	})
}
