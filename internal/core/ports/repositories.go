package ports

import (
	"context"
	"time"

	"bank-cards/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UserRepository defines persistence operations for users.
// Every lookup excludes soft-deleted rows; a miss returns (nil, nil).
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.User, error)
	// Update persists username, password hash and refresh token.
	Update(ctx context.Context, user *domain.User) error
	SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error
	// SoftDelete marks the user deleted and clears its refresh token.
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params UserListParams) ([]domain.User, int64, error)
}

// UserListParams holds filter + pagination for listing users.
type UserListParams struct {
	Role             domain.Role
	UsernameContains string
	Page             domain.PageRequest
}

// CardRepository is the only data-access boundary for cards.
// Methods accepting pgx.Tx run inside the caller's transaction; the ForUpdate
// variants take an exclusive row lock held until that transaction ends.
// Every lookup excludes soft-deleted rows; a miss returns (nil, nil).
type CardRepository interface {
	Create(ctx context.Context, card *domain.Card) error
	ExistsByNumber(ctx context.Context, numberEncrypted string) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CardWithOwner, error)
	GetByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*domain.Card, error)
	GetByIDAndOwnerForUpdate(ctx context.Context, tx pgx.Tx, id, ownerID uuid.UUID) (*domain.Card, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error
	// UpdateState persists status and block-requested flag without touching the balance.
	UpdateState(ctx context.Context, id uuid.UUID, status domain.CardStatus, blockRequested bool) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID, page domain.PageRequest) ([]domain.Card, int64, error)
	List(ctx context.Context, params CardListParams) ([]domain.CardWithOwner, int64, error)
	// FindExpirable returns non-deleted cards whose status is not EXPIRED and whose
	// expiration date is strictly before now.
	FindExpirable(ctx context.Context, now time.Time) ([]domain.Card, error)
	// MarkExpired sets EXPIRED on the given cards and returns the number of rows changed.
	MarkExpired(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// CardListParams holds filter + pagination for the admin card listing.
type CardListParams struct {
	BlockRequested *bool
	Page           domain.PageRequest
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
