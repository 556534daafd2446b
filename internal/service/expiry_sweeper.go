package service

import (
	"context"
	"time"

	"bank-cards/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ExpirySweeperImpl implements ports.ExpirySweeper.
type ExpirySweeperImpl struct {
	cardRepo ports.CardRepository
	log      zerolog.Logger
}

// NewExpirySweeper creates a new ExpirySweeperImpl.
func NewExpirySweeper(cardRepo ports.CardRepository, log zerolog.Logger) *ExpirySweeperImpl {
	return &ExpirySweeperImpl{cardRepo: cardRepo, log: log}
}

// Sweep marks every live card whose expiration date is strictly before now as
// EXPIRED and returns how many cards changed. Running it twice for the same
// now changes nothing the second time.
func (s *ExpirySweeperImpl) Sweep(ctx context.Context, now time.Time) (int, error) {
	cards, err := s.cardRepo.FindExpirable(ctx, now.UTC())
	if err != nil {
		return 0, storeErr("find expirable cards", err)
	}
	if len(cards) == 0 {
		s.log.Debug().Time("now", now).Msg("no cards to expire")
		return 0, nil
	}

	ids := make([]uuid.UUID, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.ID)
	}

	n, err := s.cardRepo.MarkExpired(ctx, ids)
	if err != nil {
		return 0, storeErr("mark cards expired", err)
	}
	if n != int64(len(ids)) {
		s.log.Warn().
			Int("found", len(ids)).
			Int64("updated", n).
			Msg("some cards changed state during the sweep")
	}

	s.log.Info().Int64("expired", n).Time("now", now).Msg("expiry sweep finished")
	return int(n), nil
}

var _ ports.ExpirySweeper = (*ExpirySweeperImpl)(nil)
