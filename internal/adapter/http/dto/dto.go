package dto

import (
	"time"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Auth ---

// RegisterRequest is the body of self-registration and admin user creation.
type RegisterRequest struct {
	Username       string `json:"username" binding:"required,username" sanitize:"trim"`
	Password       string `json:"password" binding:"required,min=8,max=128"`
	RepeatPassword string `json:"repeat_password" binding:"required"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required" sanitize:"trim"`
	Password string `json:"password" binding:"required"`
}

// TokenPairResponse is returned by register, login and refresh.
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func NewTokenPairResponse(p *ports.TokenPair) TokenPairResponse {
	return TokenPairResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
}

// --- Cards ---

// DepositRequest is the body of PATCH /cards/:id/deposit. Amount accepts a JSON
// string or number.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"money"`
}

// TransferRequest is the body of POST /cards/transfer.
// Amount is range-checked by the card service, after the same-card rule.
type TransferRequest struct {
	DebitCardID  uuid.UUID       `json:"debit_card_id" binding:"required"`
	CreditCardID uuid.UUID       `json:"credit_card_id" binding:"required"`
	Amount       decimal.Decimal `json:"amount"`
}

// CreateCardRequest is the body of POST /admin/cards.
type CreateCardRequest struct {
	Owner uuid.UUID `json:"owner" binding:"required"`
}

// CardResponse is the masked card shown to clients.
type CardResponse struct {
	ID             uuid.UUID         `json:"id"`
	MaskedNumber   string            `json:"masked_number"`
	Status         domain.CardStatus `json:"status"`
	BlockRequested bool              `json:"block_requested"`
	ExpirationDate time.Time         `json:"expiration_date"`
	Owner          *UserResponse     `json:"owner,omitempty"`
}

func NewCardResponse(v *ports.CardView) CardResponse {
	resp := CardResponse{
		ID:             v.ID,
		MaskedNumber:   v.MaskedNumber,
		Status:         v.Status,
		BlockRequested: v.BlockRequested,
		ExpirationDate: v.ExpirationDate,
	}
	if v.Owner != nil {
		resp.Owner = &UserResponse{ID: v.Owner.ID, Username: v.Owner.Username}
	}
	return resp
}

// BalanceResponse carries a balance as a two-digit decimal string.
type BalanceResponse struct {
	Balance string `json:"balance"`
}

func NewBalanceResponse(balance decimal.Decimal) BalanceResponse {
	return BalanceResponse{Balance: domain.FormatMoney(balance)}
}

// CardNumberResponse carries the formatted plaintext card number.
type CardNumberResponse struct {
	CardNumber string `json:"card_number"`
}

// --- Users ---

// UpdateUserRequest is the body of PATCH /admin/users/:id.
type UpdateUserRequest struct {
	Username       string  `json:"username" binding:"required,username" sanitize:"trim"`
	Password       *string `json:"password,omitempty" binding:"omitempty,min=8,max=128"`
	RepeatPassword *string `json:"repeat_password,omitempty"`
}

// UserResponse is the public projection of a user.
type UserResponse struct {
	ID       uuid.UUID   `json:"id"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role,omitempty"`
}

func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Role: u.Role}
}

// --- Listing ---

// PageQuery binds the page/size query parameters.
type PageQuery struct {
	Page int `form:"page" binding:"omitempty,min=1"`
	Size int `form:"size" binding:"omitempty,min=1,max=100"`
}

func (q PageQuery) PageRequest() domain.PageRequest {
	return domain.PageRequest{Page: q.Page, Size: q.Size}
}

// CardListQuery binds the admin card listing filters.
type CardListQuery struct {
	PageQuery
	HaveBlockRequest *bool `form:"have_block_request"`
}

// UserListQuery binds the admin user listing filters.
type UserListQuery struct {
	PageQuery
	Username string `form:"username" sanitize:"trim"`
}

// ListResponse is the {items, total} listing body.
type ListResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

// NewListResponse converts a page of items with conv.
func NewListResponse[S, T any](page *domain.Page[S], conv func(*S) T) ListResponse[T] {
	items := make([]T, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, conv(&page.Items[i]))
	}
	return ListResponse[T]{Items: items, Total: page.Total}
}
