package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fraction digits carried by every monetary value.
const MoneyScale = 2

var (
	MinAmount = decimal.RequireFromString("1.00")
	MaxAmount = decimal.RequireFromString("1000000.00")

	ErrInvalidAmount = errors.New("amount out of range or too precise")
)

// ValidateAmount checks that amount lies in [MinAmount, MaxAmount] and has at most
// two fraction digits.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThan(MinAmount) || amount.GreaterThan(MaxAmount) {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(MoneyScale)) {
		return ErrInvalidAmount
	}
	return nil
}

// RoundMoney normalises a value to two fraction digits.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// FormatMoney renders d with exactly two fraction digits, e.g. "100.00".
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyScale)
}
