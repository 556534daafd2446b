package integration

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
	seq   map[uuid.UUID]int
	next  int
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{
		users: make(map[uuid.UUID]*domain.User),
		seq:   make(map[uuid.UUID]int),
	}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if !existing.Deleted && existing.Username == u.Username {
			return domain.ErrDuplicate
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	r.seq[u.ID] = r.next
	r.next++
	return nil
}

func (r *inMemoryUserRepo) find(match func(*domain.User) bool) *domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if !u.Deleted && match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id }), nil
}

func (r *inMemoryUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username }), nil
}

func (r *inMemoryUserRepo) GetByRefreshToken(ctx context.Context, token string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.RefreshToken != nil && *u.RefreshToken == token }), nil
}

func (r *inMemoryUserRepo) Update(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[u.ID]
	if !ok || existing.Deleted {
		return fmt.Errorf("user not found")
	}
	for _, other := range r.users {
		if other.ID != u.ID && !other.Deleted && other.Username == u.Username {
			return domain.ErrDuplicate
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.Deleted {
		return fmt.Errorf("user not found")
	}
	if token != nil {
		t := *token
		token = &t
	}
	u.RefreshToken = token
	return nil
}

func (r *inMemoryUserRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.Deleted {
		return fmt.Errorf("user not found")
	}
	u.Deleted = true
	u.RefreshToken = nil
	return nil
}

func (r *inMemoryUserRepo) List(ctx context.Context, params ports.UserListParams) ([]domain.User, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(params.UsernameContains)
	var matched []*domain.User
	for _, u := range r.users {
		if u.Deleted || u.Role != params.Role {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(u.Username), needle) {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return r.seq[matched[i].ID] < r.seq[matched[j].ID] })

	page := params.Page.Normalize()
	out := make([]domain.User, 0, page.Size)
	for _, u := range window(len(matched), page) {
		out = append(out, *matched[u])
	}
	return out, int64(len(matched)), nil
}

// --- In-Memory Card Repo ---

// inMemoryCardRepo emulates SELECT ... FOR UPDATE with one mutex per card.
// Locks taken through a memTx are held until the tx commits or rolls back.
type inMemoryCardRepo struct {
	mu    sync.RWMutex
	cards map[uuid.UUID]*domain.Card
	seq   map[uuid.UUID]int
	next  int
	users *inMemoryUserRepo

	lockMu sync.Mutex
	locks  map[uuid.UUID]*sync.Mutex
}

func newInMemoryCardRepo(users *inMemoryUserRepo) *inMemoryCardRepo {
	return &inMemoryCardRepo{
		cards: make(map[uuid.UUID]*domain.Card),
		seq:   make(map[uuid.UUID]int),
		users: users,
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (r *inMemoryCardRepo) rowLock(id uuid.UUID) *sync.Mutex {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}

func (r *inMemoryCardRepo) Create(ctx context.Context, c *domain.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.cards {
		if existing.NumberEncrypted == c.NumberEncrypted {
			return domain.ErrDuplicate
		}
	}
	cp := *c
	r.cards[c.ID] = &cp
	r.seq[c.ID] = r.next
	r.next++
	return nil
}

func (r *inMemoryCardRepo) ExistsByNumber(ctx context.Context, numberEncrypted string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.cards {
		if c.NumberEncrypted == numberEncrypted {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryCardRepo) get(id uuid.UUID, owner *uuid.UUID) *domain.Card {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cards[id]
	if !ok || c.Deleted || (owner != nil && c.OwnerID != *owner) {
		return nil
	}
	cp := *c
	return &cp
}

func (r *inMemoryCardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.CardWithOwner, error) {
	c := r.get(id, nil)
	if c == nil {
		return nil, nil
	}
	return &domain.CardWithOwner{Card: *c, Owner: r.owner(c.OwnerID)}, nil
}

// owner mirrors the users join, which also matches soft-deleted users.
func (r *inMemoryCardRepo) owner(id uuid.UUID) domain.CardOwner {
	owner := domain.CardOwner{ID: id}
	r.users.mu.RLock()
	defer r.users.mu.RUnlock()
	if u, ok := r.users.users[id]; ok {
		owner.Username = u.Username
	}
	return owner
}

func (r *inMemoryCardRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*domain.Card, error) {
	return r.get(id, &ownerID), nil
}

func (r *inMemoryCardRepo) GetByIDAndOwnerForUpdate(ctx context.Context, tx pgx.Tx, id, ownerID uuid.UUID) (*domain.Card, error) {
	mtx, ok := tx.(*memTx)
	if !ok {
		return nil, fmt.Errorf("unexpected tx type %T", tx)
	}
	mtx.lock(r.rowLock(id))
	return r.get(id, &ownerID), nil
}

func (r *inMemoryCardRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error {
	return r.mutate(id, func(c *domain.Card) { c.Balance = balance })
}

func (r *inMemoryCardRepo) UpdateState(ctx context.Context, id uuid.UUID, status domain.CardStatus, blockRequested bool) error {
	return r.mutate(id, func(c *domain.Card) {
		c.Status = status
		c.BlockRequested = blockRequested
	})
}

func (r *inMemoryCardRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.mutate(id, func(c *domain.Card) { c.Deleted = true })
}

func (r *inMemoryCardRepo) mutate(id uuid.UUID, fn func(*domain.Card)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cards[id]
	if !ok || c.Deleted {
		return fmt.Errorf("card not found")
	}
	fn(c)
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryCardRepo) sorted(match func(*domain.Card) bool) []*domain.Card {
	var out []*domain.Card
	for _, c := range r.cards {
		if !c.Deleted && match(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.seq[out[i].ID] < r.seq[out[j].ID] })
	return out
}

func (r *inMemoryCardRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, page domain.PageRequest) ([]domain.Card, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := r.sorted(func(c *domain.Card) bool { return c.OwnerID == ownerID })
	out := make([]domain.Card, 0)
	for _, i := range window(len(matched), page.Normalize()) {
		out = append(out, *matched[i])
	}
	return out, int64(len(matched)), nil
}

func (r *inMemoryCardRepo) List(ctx context.Context, params ports.CardListParams) ([]domain.CardWithOwner, int64, error) {
	r.mu.RLock()
	matched := r.sorted(func(c *domain.Card) bool {
		return params.BlockRequested == nil || c.BlockRequested == *params.BlockRequested
	})
	cards := make([]domain.Card, 0)
	for _, i := range window(len(matched), params.Page.Normalize()) {
		cards = append(cards, *matched[i])
	}
	r.mu.RUnlock()

	out := make([]domain.CardWithOwner, 0, len(cards))
	for _, c := range cards {
		out = append(out, domain.CardWithOwner{Card: c, Owner: r.owner(c.OwnerID)})
	}
	return out, int64(len(matched)), nil
}

func (r *inMemoryCardRepo) FindExpirable(ctx context.Context, now time.Time) ([]domain.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Card
	for _, c := range r.sorted(func(c *domain.Card) bool {
		return c.Status != domain.CardStatusExpired && c.ExpirationDate.Before(now)
	}) {
		out = append(out, *c)
	}
	return out, nil
}

func (r *inMemoryCardRepo) MarkExpired(ctx context.Context, ids []uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		c, ok := r.cards[id]
		if !ok || c.Deleted || c.Status == domain.CardStatusExpired {
			continue
		}
		c.Status = domain.CardStatusExpired
		n++
	}
	return n, nil
}

// setExpiration backdates a card so the sweeper picks it up.
func (r *inMemoryCardRepo) setExpiration(id uuid.UUID, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[id].ExpirationDate = at
}

// window returns the indexes of the items on page.
func window(total int, page domain.PageRequest) []int {
	start := page.Offset()
	if start >= total {
		return nil
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	idx := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		idx = append(idx, i)
	}
	return idx
}

// --- In-Memory Transactor ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &memTx{}, nil
}

// memTx is a pgx.Tx whose only job is to hold row locks until it ends.
type memTx struct {
	mu   sync.Mutex
	held []*sync.Mutex
	done bool
}

func (t *memTx) lock(l *sync.Mutex) {
	l.Lock()
	t.mu.Lock()
	t.held = append(t.held, l)
	t.mu.Unlock()
}

func (t *memTx) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
	t.held = nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) Commit(ctx context.Context) error          { t.release(); return nil }
func (t *memTx) Rollback(ctx context.Context) error        { t.release(); return nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }
