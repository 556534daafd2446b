package service

import (
	"bytes"
	"context"
	"fmt"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CardServiceImpl implements ports.CardService.
type CardServiceImpl struct {
	cardRepo   ports.CardRepository
	numSvc     ports.CardNumberService
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewCardService creates a new CardServiceImpl.
func NewCardService(
	cardRepo ports.CardRepository,
	numSvc ports.CardNumberService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *CardServiceImpl {
	return &CardServiceImpl{
		cardRepo:   cardRepo,
		numSvc:     numSvc,
		transactor: transactor,
		log:        log,
	}
}

// ListOwned returns the principal's cards in insertion order.
func (s *CardServiceImpl) ListOwned(ctx context.Context, p domain.Principal, page domain.PageRequest) (*domain.Page[ports.CardView], error) {
	page = page.Normalize()

	cards, total, err := s.cardRepo.ListByOwner(ctx, p.UserID, page)
	if err != nil {
		return nil, storeErr("list cards", err)
	}

	items := make([]ports.CardView, 0, len(cards))
	for i := range cards {
		v, err := cardView(s.numSvc, &cards[i], nil)
		if err != nil {
			return nil, err
		}
		items = append(items, *v)
	}
	return &domain.Page[ports.CardView]{Items: items, Total: total}, nil
}

// Deposit credits amount to one of the principal's active cards.
func (s *CardServiceImpl) Deposit(ctx context.Context, p domain.Principal, cardID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return decimal.Zero, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return decimal.Zero, storeErr("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	card, err := s.cardRepo.GetByIDAndOwnerForUpdate(ctx, dbTx, cardID, p.UserID)
	if err != nil {
		return decimal.Zero, storeErr("lock card", err)
	}
	if card == nil {
		return decimal.Zero, apperror.ErrCardNotFound()
	}
	if !card.IsActive() {
		return decimal.Zero, apperror.ErrCardNotActive()
	}

	newBalance := domain.RoundMoney(card.Balance.Add(amount))
	if err := s.cardRepo.UpdateBalance(ctx, dbTx, card.ID, newBalance); err != nil {
		return decimal.Zero, storeErr("update balance", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return decimal.Zero, storeErr("commit tx", err)
	}

	s.log.Info().
		Str("card_id", card.ID.String()).
		Str("owner_id", p.UserID.String()).
		Str("amount", domain.FormatMoney(amount)).
		Msg("deposit completed")

	return newBalance, nil
}

// Transfer moves money between two of the principal's cards. Both rows are
// locked in ascending id order so opposite transfers cannot deadlock.
func (s *CardServiceImpl) Transfer(ctx context.Context, p domain.Principal, req ports.TransferRequest) error {
	if req.DebitCardID == req.CreditCardID {
		return apperror.ErrSameCard()
	}
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return storeErr("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	firstID, secondID := lockOrder(req.DebitCardID, req.CreditCardID)

	first, err := s.cardRepo.GetByIDAndOwnerForUpdate(ctx, dbTx, firstID, p.UserID)
	if err != nil {
		return storeErr("lock card", err)
	}
	if first == nil {
		return apperror.ErrCardNotFound()
	}
	second, err := s.cardRepo.GetByIDAndOwnerForUpdate(ctx, dbTx, secondID, p.UserID)
	if err != nil {
		return storeErr("lock card", err)
	}
	if second == nil {
		return apperror.ErrCardNotFound()
	}

	debit, credit := first, second
	if debit.ID != req.DebitCardID {
		debit, credit = second, first
	}

	if !debit.IsActive() || !credit.IsActive() {
		return apperror.ErrCardNotActive()
	}
	if debit.Balance.LessThan(req.Amount) {
		return apperror.ErrInsufficientFunds()
	}

	debitBalance := domain.RoundMoney(debit.Balance.Sub(req.Amount))
	creditBalance := domain.RoundMoney(credit.Balance.Add(req.Amount))

	if err := s.cardRepo.UpdateBalance(ctx, dbTx, debit.ID, debitBalance); err != nil {
		return storeErr("update debit balance", err)
	}
	if err := s.cardRepo.UpdateBalance(ctx, dbTx, credit.ID, creditBalance); err != nil {
		return storeErr("update credit balance", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return storeErr("commit tx", err)
	}

	s.log.Info().
		Str("debit_card_id", debit.ID.String()).
		Str("credit_card_id", credit.ID.String()).
		Str("owner_id", p.UserID.String()).
		Str("amount", domain.FormatMoney(req.Amount)).
		Msg("transfer completed")

	return nil
}

// RequestBlock flags an active card for blocking by an administrator.
func (s *CardServiceImpl) RequestBlock(ctx context.Context, p domain.Principal, cardID uuid.UUID) (*ports.CardView, error) {
	card, err := s.ownedCard(ctx, p, cardID)
	if err != nil {
		return nil, err
	}
	if !card.IsActive() {
		return nil, apperror.ErrCardNotActiveRequest()
	}

	if !card.BlockRequested {
		if err := s.cardRepo.UpdateState(ctx, card.ID, card.Status, true); err != nil {
			return nil, storeErr("request block", err)
		}
		card.BlockRequested = true

		s.log.Info().
			Str("card_id", card.ID.String()).
			Str("owner_id", p.UserID.String()).
			Msg("card block requested")
	}

	return cardView(s.numSvc, card, nil)
}

// ShowBalance returns the balance of one of the principal's cards.
func (s *CardServiceImpl) ShowBalance(ctx context.Context, p domain.Principal, cardID uuid.UUID) (decimal.Decimal, error) {
	card, err := s.ownedCard(ctx, p, cardID)
	if err != nil {
		return decimal.Zero, err
	}
	return card.Balance, nil
}

// ShowNumber returns the full card number formatted in four groups.
func (s *CardServiceImpl) ShowNumber(ctx context.Context, p domain.Principal, cardID uuid.UUID) (string, error) {
	card, err := s.ownedCard(ctx, p, cardID)
	if err != nil {
		return "", err
	}

	plain, err := s.numSvc.Decrypt(card.NumberEncrypted)
	if err != nil {
		return "", cardNumberErr("decrypt card number", err)
	}
	formatted, err := s.numSvc.Format(plain)
	if err != nil {
		return "", cardNumberErr("format card number", err)
	}
	return formatted, nil
}

func (s *CardServiceImpl) ownedCard(ctx context.Context, p domain.Principal, cardID uuid.UUID) (*domain.Card, error) {
	card, err := s.cardRepo.GetByIDAndOwner(ctx, cardID, p.UserID)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get card %s", cardID), err)
	}
	if card == nil {
		return nil, apperror.ErrCardNotFound()
	}
	return card, nil
}

// lockOrder returns a and b sorted by their byte representation.
func lockOrder(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}
