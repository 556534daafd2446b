package handler

import (
	"context"

	"bank-cards/internal/adapter/http/dto"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminCardHandler serves the administrator card lifecycle.
type AdminCardHandler struct {
	adminSvc ports.CardAdminService
}

// NewAdminCardHandler creates a new AdminCardHandler.
func NewAdminCardHandler(adminSvc ports.CardAdminService) *AdminCardHandler {
	return &AdminCardHandler{adminSvc: adminSvc}
}

// List handles GET /api/v1/admin/cards.
func (h *AdminCardHandler) List(c *gin.Context) {
	var q dto.CardListQuery
	if !bindQuery(c, &q) {
		return
	}

	page, err := h.adminSvc.ListAll(c.Request.Context(), ports.CardListParams{
		BlockRequested: q.HaveBlockRequest,
		Page:           q.PageRequest(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewListResponse(page, dto.NewCardResponse))
}

// Create handles POST /api/v1/admin/cards.
func (h *AdminCardHandler) Create(c *gin.Context) {
	var req dto.CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, dto.BindError(err))
		return
	}

	view, err := h.adminSvc.Create(c.Request.Context(), req.Owner)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewCardResponse(view))
}

// Delete handles DELETE /api/v1/admin/cards/:id.
func (h *AdminCardHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.adminSvc.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Activate handles PATCH /api/v1/admin/cards/:id/activate.
func (h *AdminCardHandler) Activate(c *gin.Context) {
	h.transition(c, h.adminSvc.Activate)
}

// Block handles PATCH /api/v1/admin/cards/:id/block.
func (h *AdminCardHandler) Block(c *gin.Context) {
	h.transition(c, h.adminSvc.Block)
}

func (h *AdminCardHandler) transition(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (*ports.CardView, error)) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	view, err := op(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewCardResponse(view))
}
