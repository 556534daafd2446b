package service

import (
	"errors"
	"fmt"
	"time"

	"bank-cards/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	claimTokenType = "token_type"
	claimRole      = "role"
	claimUserID    = "uid"
)

// JWTTokenService implements ports.TokenService using HS256 JWT.
type JWTTokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	now        func() time.Time
}

// NewJWTTokenService creates a new JWT token service.
func NewJWTTokenService(secret string, accessTTL, refreshTTL time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     issuer,
		now:        time.Now,
	}
}

// Issue creates a signed token of the given kind for user.
func (s *JWTTokenService) Issue(user *domain.User, kind domain.TokenKind) (string, error) {
	var ttl time.Duration
	switch kind {
	case domain.TokenAccess:
		ttl = s.accessTTL
	case domain.TokenRefresh:
		ttl = s.refreshTTL
	default:
		return "", fmt.Errorf("unknown token kind %q", kind)
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub":          user.Username,
		claimUserID:    user.ID.String(),
		"iat":          now.Unix(),
		"exp":          now.Add(ttl).Unix(),
		"iss":          s.issuer,
		"jti":          uuid.NewString(),
		claimTokenType: string(kind),
	}
	if kind == domain.TokenAccess {
		claims[claimRole] = string(user.Role)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return tokenString, nil
}

// Validate parses and verifies a token, returning its claims.
// Errors wrap domain.ErrTokenExpired or domain.ErrTokenInvalid.
func (s *JWTTokenService) Validate(tokenString string) (*domain.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", domain.ErrTokenInvalid)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject claim", domain.ErrTokenInvalid)
	}

	uid, err := uuid.Parse(stringClaim(claims, claimUserID))
	if err != nil {
		return nil, fmt.Errorf("%w: missing user id claim", domain.ErrTokenInvalid)
	}

	kind := domain.TokenKind(stringClaim(claims, claimTokenType))
	if kind != domain.TokenAccess && kind != domain.TokenRefresh {
		return nil, fmt.Errorf("%w: unknown token type %q", domain.ErrTokenInvalid, kind)
	}

	out := &domain.TokenClaims{
		Subject: sub,
		UserID:  uid,
		Kind:    kind,
		Role:    domain.Role(stringClaim(claims, claimRole)),
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
