package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CardStatus represents the lifecycle state of a card.
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
)

const (
	// CardValidity is how long a newly issued card stays valid, in years.
	CardValidity = 1
	// CardNumberLength is the number of digits in a card number.
	CardNumberLength = 16
)

var ErrInvalidCardNumber = errors.New("card number must be exactly 16 digits")

// Card is a payment card owned by a single USER account.
type Card struct {
	ID              uuid.UUID       `json:"id"`
	NumberEncrypted string          `json:"-"` // never expose raw
	OwnerID         uuid.UUID       `json:"owner_id"`
	ExpirationDate  time.Time       `json:"expiration_date"`
	Balance         decimal.Decimal `json:"balance"`
	Status          CardStatus      `json:"status"`
	BlockRequested  bool            `json:"block_requested"`
	Deleted         bool            `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CardOwner is the owner projection joined into admin card listings.
type CardOwner struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// CardWithOwner is a card row joined with its owner.
type CardWithOwner struct {
	Card
	Owner CardOwner `json:"owner"`
}

// IsActive returns true if the card can move money.
func (c *Card) IsActive() bool {
	return c.Status == CardStatusActive
}

// ExpiredAt reports whether the card's expiration date is strictly before now.
func (c *Card) ExpiredAt(now time.Time) bool {
	return c.ExpirationDate.Before(now)
}

// DefaultExpiration returns the expiration date for a card issued at now:
// one year later, truncated to the start of that day in UTC.
func DefaultExpiration(now time.Time) time.Time {
	exp := now.UTC().AddDate(CardValidity, 0, 0)
	return time.Date(exp.Year(), exp.Month(), exp.Day(), 0, 0, 0, 0, time.UTC)
}
