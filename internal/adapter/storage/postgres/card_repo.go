package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const cardColumns = `c.id, c.number_encrypted, c.owner_id, c.expiration_date, c.balance,
	c.status, c.block_requested, c.deleted, c.created_at, c.updated_at`

// CardRepo implements ports.CardRepository.
type CardRepo struct {
	pool Pool
}

// NewCardRepo creates a new CardRepo.
func NewCardRepo(pool Pool) *CardRepo {
	return &CardRepo{pool: pool}
}

// Create inserts a new card.
func (r *CardRepo) Create(ctx context.Context, c *domain.Card) error {
	query := `INSERT INTO cards (id, number_encrypted, owner_id, expiration_date, balance,
		status, block_requested, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.NumberEncrypted, c.OwnerID, c.ExpirationDate, c.Balance,
		c.Status, c.BlockRequested, c.Deleted, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert card: %w", translateErr(err))
	}
	return nil
}

// ExistsByNumber reports whether a live card already uses the ciphertext.
func (r *CardRepo) ExistsByNumber(ctx context.Context, numberEncrypted string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM cards WHERE number_encrypted = $1 AND NOT deleted)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, numberEncrypted).Scan(&exists); err != nil {
		return false, fmt.Errorf("check card number: %w", translateErr(err))
	}
	return exists, nil
}

// GetByID fetches a live card by id joined with its owner (without locking).
// Soft-deleted owners are still joined, matching List.
func (r *CardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.CardWithOwner, error) {
	query := `SELECT ` + cardColumns + `, u.id, u.username
		FROM cards c JOIN users u ON u.id = c.owner_id
		WHERE c.id = $1 AND NOT c.deleted`

	c, err := scanCardWithOwner(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get card by id: %w", translateErr(err))
	}
	return c, nil
}

// GetByIDAndOwner fetches a live card owned by ownerID (without locking).
func (r *CardRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards c WHERE c.id = $1 AND c.owner_id = $2 AND NOT c.deleted`
	return getCard(r.pool.QueryRow(ctx, query, id, ownerID), "get card by owner")
}

// GetByIDAndOwnerForUpdate fetches a live card owned by ownerID and locks its row.
// This MUST be called within a transaction.
func (r *CardRepo) GetByIDAndOwnerForUpdate(ctx context.Context, tx pgx.Tx, id, ownerID uuid.UUID) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards c
		WHERE c.id = $1 AND c.owner_id = $2 AND NOT c.deleted FOR UPDATE`
	return getCard(tx.QueryRow(ctx, query, id, ownerID), "get card for update")
}

func scanCardWithOwner(row pgx.Row) (*domain.CardWithOwner, error) {
	var c domain.CardWithOwner
	err := row.Scan(
		&c.ID, &c.NumberEncrypted, &c.OwnerID, &c.ExpirationDate, &c.Balance,
		&c.Status, &c.BlockRequested, &c.Deleted, &c.CreatedAt, &c.UpdatedAt,
		&c.Owner.ID, &c.Owner.Username,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func getCard(row pgx.Row, op string) (*domain.Card, error) {
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, translateErr(err))
	}
	return c, nil
}

// UpdateBalance sets a card's balance within a transaction.
func (r *CardRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE cards SET balance = $1, updated_at = NOW() WHERE id = $2 AND NOT deleted`

	tag, err := tx.Exec(ctx, query, balance, id)
	if err != nil {
		return fmt.Errorf("update card balance: %w", translateErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("card not found: %s", id)
	}
	return nil
}

// UpdateState sets status and the block-requested flag.
func (r *CardRepo) UpdateState(ctx context.Context, id uuid.UUID, status domain.CardStatus, blockRequested bool) error {
	query := `UPDATE cards SET status = $1, block_requested = $2, updated_at = NOW() WHERE id = $3 AND NOT deleted`

	tag, err := r.pool.Exec(ctx, query, status, blockRequested, id)
	if err != nil {
		return fmt.Errorf("update card state: %w", translateErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("card not found: %s", id)
	}
	return nil
}

// SoftDelete marks a card deleted.
func (r *CardRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE cards SET deleted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT deleted`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft delete card: %w", translateErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("card not found: %s", id)
	}
	return nil
}

// ListByOwner fetches one page of an owner's live cards in insertion order.
func (r *CardRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, page domain.PageRequest) ([]domain.Card, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cards WHERE owner_id = $1 AND NOT deleted`, ownerID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count owner cards: %w", translateErr(err))
	}

	page = page.Normalize()
	query := `SELECT ` + cardColumns + ` FROM cards c
		WHERE c.owner_id = $1 AND NOT c.deleted
		ORDER BY c.created_at, c.id LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, ownerID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list owner cards: %w", translateErr(err))
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan card row: %w", err)
		}
		cards = append(cards, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate card rows: %w", err)
	}
	return cards, total, nil
}

// List fetches live cards joined with their owner, optionally filtered by the
// block-requested flag.
func (r *CardRepo) List(ctx context.Context, params ports.CardListParams) ([]domain.CardWithOwner, int64, error) {
	conditions := []string{"NOT c.deleted"}
	var args []any
	argIdx := 1

	if params.BlockRequested != nil {
		conditions = append(conditions, fmt.Sprintf("c.block_requested = $%d", argIdx))
		args = append(args, *params.BlockRequested)
		argIdx++
	}

	from := "FROM cards c JOIN users u ON u.id = c.owner_id WHERE " + strings.Join(conditions, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+from, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count cards: %w", translateErr(err))
	}

	page := params.Page.Normalize()
	query := fmt.Sprintf(`SELECT %s, u.id, u.username %s ORDER BY c.created_at, c.id LIMIT $%d OFFSET $%d`,
		cardColumns, from, argIdx, argIdx+1)
	args = append(args, page.Size, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list cards: %w", translateErr(err))
	}
	defer rows.Close()

	var cards []domain.CardWithOwner
	for rows.Next() {
		c, err := scanCardWithOwner(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan card row: %w", err)
		}
		cards = append(cards, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate card rows: %w", err)
	}
	return cards, total, nil
}

// FindExpirable returns live, not yet expired cards whose expiration date is before now.
func (r *CardRepo) FindExpirable(ctx context.Context, now time.Time) ([]domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards c
		WHERE NOT c.deleted AND c.status <> $1 AND c.expiration_date < $2
		ORDER BY c.id`

	rows, err := r.pool.Query(ctx, query, domain.CardStatusExpired, now)
	if err != nil {
		return nil, fmt.Errorf("find expirable cards: %w", translateErr(err))
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card row: %w", err)
		}
		cards = append(cards, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate card rows: %w", err)
	}
	return cards, nil
}

// MarkExpired sets EXPIRED on the given cards in one statement. Cards already
// expired or deleted are skipped.
func (r *CardRepo) MarkExpired(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `UPDATE cards SET status = $1, updated_at = NOW()
		WHERE id = ANY($2) AND status <> $1 AND NOT deleted`

	tag, err := r.pool.Exec(ctx, query, domain.CardStatusExpired, ids)
	if err != nil {
		return 0, fmt.Errorf("mark cards expired: %w", translateErr(err))
	}
	return tag.RowsAffected(), nil
}

func scanCard(row pgx.Row) (*domain.Card, error) {
	c := &domain.Card{}
	err := row.Scan(
		&c.ID, &c.NumberEncrypted, &c.OwnerID, &c.ExpirationDate, &c.Balance,
		&c.Status, &c.BlockRequested, &c.Deleted, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}
