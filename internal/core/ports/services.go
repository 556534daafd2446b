package ports

import (
	"context"
	"time"

	"bank-cards/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService mints and validates signed bearer tokens.
type TokenService interface {
	Issue(user *domain.User, kind domain.TokenKind) (string, error)
	// Validate verifies the signature before reading any claim. Failures wrap
	// domain.ErrTokenExpired or domain.ErrTokenInvalid.
	Validate(token string) (*domain.TokenClaims, error)
}

// CardNumberService generates, encrypts and renders card numbers.
// Encryption is deterministic per key so equal numbers have equal ciphertexts.
type CardNumberService interface {
	Generate() (string, error)
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
	Mask(ciphertext string) (string, error)
	Format(plaintext string) (string, error)
}

// SweepLock guarantees a single sweep per run key across instances.
type SweepLock interface {
	// Acquire returns true when the caller obtained the lock for key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release gives up a claimed key so a later run can retry.
	Release(ctx context.Context, key string) error
}

// --- Service Ports (Business Logic) ---

// Authenticator resolves a presented credential into a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, cred domain.Credential) (domain.Principal, error)
}

// AuthService defines registration and token lifecycle operations.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*TokenPair, error)
	Login(ctx context.Context, username, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

// RegisterRequest holds input for self-registration and admin user creation.
type RegisterRequest struct {
	Username       string
	Password       string
	RepeatPassword string
}

// TokenPair is returned by every successful authentication.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// CardService is the owner-scoped card engine. Every call is scoped to the
// principal passed in.
type CardService interface {
	ListOwned(ctx context.Context, p domain.Principal, page domain.PageRequest) (*domain.Page[CardView], error)
	Deposit(ctx context.Context, p domain.Principal, cardID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	Transfer(ctx context.Context, p domain.Principal, req TransferRequest) error
	RequestBlock(ctx context.Context, p domain.Principal, cardID uuid.UUID) (*CardView, error)
	ShowBalance(ctx context.Context, p domain.Principal, cardID uuid.UUID) (decimal.Decimal, error)
	ShowNumber(ctx context.Context, p domain.Principal, cardID uuid.UUID) (string, error)
}

// TransferRequest moves Amount from the debit card to the credit card.
type TransferRequest struct {
	DebitCardID  uuid.UUID
	CreditCardID uuid.UUID
	Amount       decimal.Decimal
}

// CardAdminService defines the administrator card lifecycle.
type CardAdminService interface {
	Create(ctx context.Context, ownerID uuid.UUID) (*CardView, error)
	Activate(ctx context.Context, id uuid.UUID) (*CardView, error)
	Block(ctx context.Context, id uuid.UUID) (*CardView, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListAll(ctx context.Context, params CardListParams) (*domain.Page[CardView], error)
}

// CardView is the masked representation of a card shown to clients.
type CardView struct {
	ID             uuid.UUID
	MaskedNumber   string
	Status         domain.CardStatus
	BlockRequested bool
	ExpirationDate time.Time
	Owner          *domain.CardOwner // set on admin listings only
}

// UserService defines administrator user management.
type UserService interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
	List(ctx context.Context, params UserListParams) (*domain.Page[domain.User], error)
	Create(ctx context.Context, req RegisterRequest, role domain.Role) (*domain.User, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, actor domain.Principal, id uuid.UUID) error
}

// UpdateUserRequest changes a username and optionally the password.
type UpdateUserRequest struct {
	Username       string
	Password       *string
	RepeatPassword *string
}

// ExpirySweeper transitions cards past their expiration date to EXPIRED.
type ExpirySweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// HealthChecker reports whether an external dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}
