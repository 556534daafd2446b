package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// maxNumberAttempts bounds card number generation when ciphertexts collide.
const maxNumberAttempts = 10

// CardAdminServiceImpl implements ports.CardAdminService.
type CardAdminServiceImpl struct {
	cardRepo ports.CardRepository
	userRepo ports.UserRepository
	numSvc   ports.CardNumberService
	log      zerolog.Logger
	now      func() time.Time
}

// NewCardAdminService creates a new CardAdminServiceImpl.
func NewCardAdminService(
	cardRepo ports.CardRepository,
	userRepo ports.UserRepository,
	numSvc ports.CardNumberService,
	log zerolog.Logger,
) *CardAdminServiceImpl {
	return &CardAdminServiceImpl{
		cardRepo: cardRepo,
		userRepo: userRepo,
		numSvc:   numSvc,
		log:      log,
		now:      time.Now,
	}
}

// Create issues a new ACTIVE card with a zero balance to a non-admin user.
func (s *CardAdminServiceImpl) Create(ctx context.Context, ownerID uuid.UUID) (*ports.CardView, error) {
	owner, err := s.userRepo.GetByID(ctx, ownerID)
	if err != nil {
		return nil, storeErr("get owner", err)
	}
	if owner == nil {
		return nil, apperror.ErrUserNotFound()
	}
	if owner.IsAdmin() {
		return nil, apperror.ErrAdminOwnershipForbidden()
	}

	now := s.now().UTC()
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		encrypted, err := s.newEncryptedNumber(ctx)
		if err != nil {
			return nil, err
		}
		if encrypted == "" {
			s.log.Warn().Int("attempt", attempt).Msg("card number collision, regenerating")
			continue
		}

		card := &domain.Card{
			ID:              uuid.New(),
			NumberEncrypted: encrypted,
			OwnerID:         owner.ID,
			ExpirationDate:  domain.DefaultExpiration(now),
			Balance:         decimal.Zero,
			Status:          domain.CardStatusActive,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.cardRepo.Create(ctx, card); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				s.log.Warn().Int("attempt", attempt).Msg("card number taken concurrently, regenerating")
				continue
			}
			return nil, storeErr("create card", err)
		}

		s.log.Info().
			Str("card_id", card.ID.String()).
			Str("owner_id", owner.ID.String()).
			Msg("card created")

		return cardView(s.numSvc, card, &domain.CardOwner{ID: owner.ID, Username: owner.Username})
	}

	return nil, apperror.InternalError(fmt.Errorf("no unique card number after %d attempts", maxNumberAttempts))
}

// newEncryptedNumber returns a fresh ciphertext, or "" when it is already taken.
func (s *CardAdminServiceImpl) newEncryptedNumber(ctx context.Context) (string, error) {
	number, err := s.numSvc.Generate()
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("generate card number: %w", err))
	}
	encrypted, err := s.numSvc.Encrypt(number)
	if err != nil {
		return "", apperror.ErrEncryptionFailure(fmt.Errorf("encrypt card number: %w", err))
	}
	exists, err := s.cardRepo.ExistsByNumber(ctx, encrypted)
	if err != nil {
		return "", storeErr("check card number", err)
	}
	if exists {
		return "", nil
	}
	return encrypted, nil
}

// Activate reactivates a blocked card and clears its block request.
func (s *CardAdminServiceImpl) Activate(ctx context.Context, id uuid.UUID) (*ports.CardView, error) {
	card, err := s.getCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if card.Status == domain.CardStatusExpired {
		return nil, apperror.ErrCardNotActive()
	}

	return s.setState(ctx, card, domain.CardStatusActive, false)
}

// Block blocks an active card. Blocking a blocked card is a no-op.
func (s *CardAdminServiceImpl) Block(ctx context.Context, id uuid.UUID) (*ports.CardView, error) {
	card, err := s.getCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if card.Status == domain.CardStatusExpired {
		return nil, apperror.ErrCardNotActive()
	}

	return s.setState(ctx, card, domain.CardStatusBlocked, card.BlockRequested)
}

// Delete soft-deletes a card.
func (s *CardAdminServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.getCard(ctx, id); err != nil {
		return err
	}
	if err := s.cardRepo.SoftDelete(ctx, id); err != nil {
		return storeErr("delete card", err)
	}

	s.log.Info().Str("card_id", id.String()).Msg("card deleted")
	return nil
}

// ListAll lists every live card with its owner, optionally filtered by the
// block-requested flag.
func (s *CardAdminServiceImpl) ListAll(ctx context.Context, params ports.CardListParams) (*domain.Page[ports.CardView], error) {
	params.Page = params.Page.Normalize()

	cards, total, err := s.cardRepo.List(ctx, params)
	if err != nil {
		return nil, storeErr("list cards", err)
	}

	items := make([]ports.CardView, 0, len(cards))
	for i := range cards {
		owner := cards[i].Owner
		v, err := cardView(s.numSvc, &cards[i].Card, &owner)
		if err != nil {
			return nil, err
		}
		items = append(items, *v)
	}
	return &domain.Page[ports.CardView]{Items: items, Total: total}, nil
}

func (s *CardAdminServiceImpl) getCard(ctx context.Context, id uuid.UUID) (*domain.CardWithOwner, error) {
	card, err := s.cardRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get card", err)
	}
	if card == nil {
		return nil, apperror.ErrCardNotFound()
	}
	return card, nil
}

func (s *CardAdminServiceImpl) setState(ctx context.Context, card *domain.CardWithOwner, status domain.CardStatus, blockRequested bool) (*ports.CardView, error) {
	if card.Status != status || card.BlockRequested != blockRequested {
		if err := s.cardRepo.UpdateState(ctx, card.ID, status, blockRequested); err != nil {
			return nil, storeErr("update card state", err)
		}
		s.log.Info().
			Str("card_id", card.ID.String()).
			Str("from", string(card.Status)).
			Str("to", string(status)).
			Msg("card state changed")
		card.Status = status
		card.BlockRequested = blockRequested
	}
	return cardView(s.numSvc, &card.Card, &card.Owner)
}
