package service

import (
	"context"
	"errors"
	"fmt"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"

	"github.com/rs/zerolog"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	userRepo ports.UserRepository
	hashSvc  ports.HashService
	tokenSvc ports.TokenService
	log      zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	userRepo ports.UserRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo: userRepo,
		hashSvc:  hashSvc,
		tokenSvc: tokenSvc,
		log:      log,
	}
}

// Register creates a USER account and signs it in.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*ports.TokenPair, error) {
	user, err := newUser(ctx, s.userRepo, s.hashSvc, req, domain.RoleUser)
	if err != nil {
		return nil, err
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	user.RefreshToken = &pair.RefreshToken

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperror.ErrUsernameTaken()
		}
		return nil, storeErr("create user", err)
	}

	s.log.Info().
		Str("user_id", user.ID.String()).
		Str("username", user.Username).
		Msg("user registered")

	return pair, nil
}

// Login validates credentials and rotates the user's refresh token.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (*ports.TokenPair, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, storeErr("find user", err)
	}
	if user == nil {
		return nil, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return nil, apperror.ErrInvalidCredentials()
	}

	pair, err := s.rotate(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID.String()).Msg("user logged in")
	return pair, nil
}

// Refresh exchanges a valid refresh token for a new pair. The presented token
// stops working.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (*ports.TokenPair, error) {
	claims, err := s.tokenSvc.Validate(refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return nil, apperror.ErrTokenExpired()
		}
		return nil, apperror.ErrInvalidRefreshToken()
	}
	if claims.Kind != domain.TokenRefresh {
		return nil, apperror.ErrInvalidRefreshToken()
	}

	user, err := s.userRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, storeErr("find user by refresh token", err)
	}
	if user == nil || user.Username != claims.Subject {
		return nil, apperror.ErrInvalidRefreshToken()
	}

	return s.rotate(ctx, user)
}

// Logout clears the refresh token of its holder.
func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	user, err := s.userRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return storeErr("find user by refresh token", err)
	}
	if user == nil {
		return apperror.ErrInvalidRefreshToken()
	}

	if err := s.userRepo.SetRefreshToken(ctx, user.ID, nil); err != nil {
		return storeErr("clear refresh token", err)
	}

	s.log.Info().Str("user_id", user.ID.String()).Msg("user logged out")
	return nil
}

func (s *AuthServiceImpl) rotate(ctx context.Context, user *domain.User) (*ports.TokenPair, error) {
	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.SetRefreshToken(ctx, user.ID, &pair.RefreshToken); err != nil {
		return nil, storeErr("store refresh token", err)
	}
	return pair, nil
}

func (s *AuthServiceImpl) issuePair(user *domain.User) (*ports.TokenPair, error) {
	access, err := s.tokenSvc.Issue(user, domain.TokenAccess)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("issue access token: %w", err))
	}
	refresh, err := s.tokenSvc.Issue(user, domain.TokenRefresh)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("issue refresh token: %w", err))
	}
	return &ports.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
