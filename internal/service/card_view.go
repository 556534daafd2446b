package service

import (
	"errors"
	"fmt"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"
)

func cardView(numSvc ports.CardNumberService, card *domain.Card, owner *domain.CardOwner) (*ports.CardView, error) {
	masked, err := numSvc.Mask(card.NumberEncrypted)
	if err != nil {
		return nil, cardNumberErr("mask card number", err)
	}
	return &ports.CardView{
		ID:             card.ID,
		MaskedNumber:   masked,
		Status:         card.Status,
		BlockRequested: card.BlockRequested,
		ExpirationDate: card.ExpirationDate,
		Owner:          owner,
	}, nil
}

func cardNumberErr(op string, err error) error {
	if errors.Is(err, domain.ErrInvalidCardNumber) {
		return apperror.ErrInvalidCardNumber()
	}
	return apperror.ErrEncryptionFailure(fmt.Errorf("%s: %w", op, err))
}
