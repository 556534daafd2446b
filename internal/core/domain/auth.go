package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TokenKind discriminates access tokens from refresh tokens.
type TokenKind string

const (
	TokenAccess  TokenKind = "ACCESS"
	TokenRefresh TokenKind = "REFRESH"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenClaims are the verified claims of a bearer token.
type TokenClaims struct {
	Subject   string // username
	UserID    uuid.UUID
	Kind      TokenKind
	Role      Role // empty on refresh tokens
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// CredentialKind tags the variant carried by a Credential.
type CredentialKind int

const (
	CredentialBearer CredentialKind = iota + 1
)

// Credential is what a caller presents to authenticate. Only bearer tokens exist today;
// new kinds add a tag and a case in the authenticator's switch.
type Credential struct {
	Kind  CredentialKind
	Token string
}

// BearerCredential wraps an access token taken from an Authorization header.
func BearerCredential(token string) Credential {
	return Credential{Kind: CredentialBearer, Token: token}
}

// Principal is the authenticated actor of a request. It is passed explicitly to every
// owner-scoped operation.
type Principal struct {
	UserID   uuid.UUID
	Username string
	Role     Role
}

// HasRole reports whether the principal holds role.
func (p Principal) HasRole(role Role) bool {
	return p.Role == role
}

// PrincipalFor builds the principal for an active user.
func PrincipalFor(u *User) Principal {
	return Principal{UserID: u.ID, Username: u.Username, Role: u.Role}
}
