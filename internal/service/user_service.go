package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var _ ports.UserService = (*UserServiceImpl)(nil)

// UserServiceImpl implements ports.UserService.
type UserServiceImpl struct {
	userRepo ports.UserRepository
	hashSvc  ports.HashService
	log      zerolog.Logger
}

// NewUserService creates the administrator user management service.
func NewUserService(
	userRepo ports.UserRepository,
	hashSvc ports.HashService,
	log zerolog.Logger,
) *UserServiceImpl {
	return &UserServiceImpl{
		userRepo: userRepo,
		hashSvc:  hashSvc,
		log:      log,
	}
}

func (s *UserServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get user", err)
	}
	if user == nil {
		return nil, apperror.ErrUserNotFound()
	}
	return user, nil
}

func (s *UserServiceImpl) List(ctx context.Context, params ports.UserListParams) (*domain.Page[domain.User], error) {
	params.Page = params.Page.Normalize()
	params.UsernameContains = strings.TrimSpace(params.UsernameContains)

	users, total, err := s.userRepo.List(ctx, params)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return &domain.Page[domain.User]{Items: users, Total: total}, nil
}

func (s *UserServiceImpl) Create(ctx context.Context, req ports.RegisterRequest, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown role %q", role))
	}

	user, err := newUser(ctx, s.userRepo, s.hashSvc, req, role)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperror.ErrUsernameTaken()
		}
		return nil, storeErr("create user", err)
	}

	s.log.Info().
		Str("user_id", user.ID.String()).
		Str("role", string(role)).
		Msg("user created")

	return user, nil
}

// Update renames a user and optionally sets a new password. Any refresh token
// is revoked so the user has to sign in again.
func (s *UserServiceImpl) Update(ctx context.Context, id uuid.UUID, req ports.UpdateUserRequest) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get user", err)
	}
	if user == nil {
		return nil, apperror.ErrUserNotFound()
	}

	username := strings.TrimSpace(req.Username)
	if username != user.Username {
		existing, err := s.userRepo.GetByUsername(ctx, username)
		if err != nil {
			return nil, storeErr("check username", err)
		}
		if existing != nil {
			return nil, apperror.ErrUsernameTaken()
		}
		user.Username = username
	}

	if req.Password != nil || req.RepeatPassword != nil {
		if req.Password == nil || req.RepeatPassword == nil || *req.Password != *req.RepeatPassword {
			return nil, apperror.ErrPasswordsMismatch()
		}
		hash, err := s.hashSvc.Hash(*req.Password)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
		}
		user.PasswordHash = hash
	}

	user.RefreshToken = nil
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperror.ErrUsernameTaken()
		}
		return nil, storeErr("update user", err)
	}

	s.log.Info().Str("user_id", user.ID.String()).Msg("user updated")
	return user, nil
}

// Delete soft-deletes a user. Admins cannot delete themselves.
func (s *UserServiceImpl) Delete(ctx context.Context, actor domain.Principal, id uuid.UUID) error {
	if actor.UserID == id {
		return apperror.ErrAdminSelfDelete()
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return storeErr("get user", err)
	}
	if user == nil {
		return apperror.ErrUserNotFound()
	}

	if err := s.userRepo.SoftDelete(ctx, id); err != nil {
		return storeErr("delete user", err)
	}

	s.log.Info().
		Str("user_id", id.String()).
		Str("deleted_by", actor.UserID.String()).
		Msg("user deleted")
	return nil
}

// newUser validates a registration request and builds an unsaved user.
func newUser(
	ctx context.Context,
	userRepo ports.UserRepository,
	hashSvc ports.HashService,
	req ports.RegisterRequest,
	role domain.Role,
) (*domain.User, error) {
	if req.Password != req.RepeatPassword {
		return nil, apperror.ErrPasswordsMismatch()
	}

	username := strings.TrimSpace(req.Username)
	existing, err := userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, storeErr("check username", err)
	}
	if existing != nil {
		return nil, apperror.ErrUsernameTaken()
	}

	hash, err := hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	return &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
