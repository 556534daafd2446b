package service

import (
	"context"
	"errors"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"

	"github.com/rs/zerolog"
)

// Authenticator implements ports.Authenticator.
type Authenticator struct {
	tokenSvc ports.TokenService
	userRepo ports.UserRepository
	log      zerolog.Logger
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(tokenSvc ports.TokenService, userRepo ports.UserRepository, log zerolog.Logger) *Authenticator {
	return &Authenticator{tokenSvc: tokenSvc, userRepo: userRepo, log: log}
}

// Authenticate resolves cred into the principal of an active user.
func (a *Authenticator) Authenticate(ctx context.Context, cred domain.Credential) (domain.Principal, error) {
	switch cred.Kind {
	case domain.CredentialBearer:
		return a.bearer(ctx, cred.Token)
	default:
		return domain.Principal{}, apperror.ErrTokenInvalid()
	}
}

func (a *Authenticator) bearer(ctx context.Context, token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, apperror.ErrMissingToken()
	}

	claims, err := a.tokenSvc.Validate(token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return domain.Principal{}, apperror.ErrTokenExpired()
		}
		a.log.Debug().Err(err).Msg("bearer token rejected")
		return domain.Principal{}, apperror.ErrTokenInvalid()
	}
	if claims.Kind != domain.TokenAccess {
		return domain.Principal{}, apperror.ErrTokenInvalid()
	}

	user, err := a.userRepo.GetByUsername(ctx, claims.Subject)
	if err != nil {
		return domain.Principal{}, storeErr("find token subject", err)
	}
	// A username can be reused after a delete or rename; the id pins the account.
	if user == nil || user.ID != claims.UserID {
		return domain.Principal{}, apperror.ErrTokenInvalid()
	}

	// Role comes from the store so demotions apply before the token expires.
	return domain.PrincipalFor(user), nil
}
