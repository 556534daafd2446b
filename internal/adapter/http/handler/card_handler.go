package handler

import (
	"bank-cards/internal/adapter/http/dto"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/response"

	"github.com/gin-gonic/gin"
)

// CardHandler serves the owner-scoped card endpoints.
type CardHandler struct {
	cardSvc ports.CardService
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cardSvc ports.CardService) *CardHandler {
	return &CardHandler{cardSvc: cardSvc}
}

// List handles GET /api/v1/cards.
func (h *CardHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var q dto.PageQuery
	if !bindQuery(c, &q) {
		return
	}

	page, err := h.cardSvc.ListOwned(c.Request.Context(), p, q.PageRequest())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewListResponse(page, dto.NewCardResponse))
}

// Transfer handles POST /api/v1/cards/transfer.
func (h *CardHandler) Transfer(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, dto.BindError(err))
		return
	}

	err := h.cardSvc.Transfer(c.Request.Context(), p, ports.TransferRequest{
		DebitCardID:  req.DebitCardID,
		CreditCardID: req.CreditCardID,
		Amount:       req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Deposit handles PATCH /api/v1/cards/:id/deposit.
func (h *CardHandler) Deposit(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, dto.BindError(err))
		return
	}

	balance, err := h.cardSvc.Deposit(c.Request.Context(), p, id, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewBalanceResponse(balance))
}

// RequestBlock handles PATCH /api/v1/cards/:id/block.
func (h *CardHandler) RequestBlock(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	view, err := h.cardSvc.RequestBlock(c.Request.Context(), p, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewCardResponse(view))
}

// Balance handles GET /api/v1/cards/:id/balance.
func (h *CardHandler) Balance(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	balance, err := h.cardSvc.ShowBalance(c.Request.Context(), p, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewBalanceResponse(balance))
}

// Number handles GET /api/v1/cards/:id/number.
func (h *CardHandler) Number(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	number, err := h.cardSvc.ShowNumber(c.Request.Context(), p, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.CardNumberResponse{CardNumber: number})
}
