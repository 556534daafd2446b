package handler

import (
	"bank-cards/internal/adapter/http/dto"
	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminUserHandler serves administrator user management.
type AdminUserHandler struct {
	userSvc ports.UserService
}

// NewAdminUserHandler creates a new AdminUserHandler.
func NewAdminUserHandler(userSvc ports.UserService) *AdminUserHandler {
	return &AdminUserHandler{userSvc: userSvc}
}

// ListUsers handles GET /api/v1/admin/users.
func (h *AdminUserHandler) ListUsers(c *gin.Context) {
	h.list(c, domain.RoleUser)
}

// ListAdmins handles GET /api/v1/admin/users/admins.
func (h *AdminUserHandler) ListAdmins(c *gin.Context) {
	h.list(c, domain.RoleAdmin)
}

func (h *AdminUserHandler) list(c *gin.Context, role domain.Role) {
	var q dto.UserListQuery
	if !bindQuery(c, &q) {
		return
	}

	page, err := h.userSvc.List(c.Request.Context(), ports.UserListParams{
		Role:             role,
		UsernameContains: q.Username,
		Page:             q.PageRequest(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewListResponse(page, dto.NewUserResponse))
}

// Get handles GET /api/v1/admin/users/:id.
func (h *AdminUserHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user, err := h.userSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewUserResponse(user))
}

// CreateUser handles POST /api/v1/admin/users.
func (h *AdminUserHandler) CreateUser(c *gin.Context) {
	h.create(c, domain.RoleUser)
}

// CreateAdmin handles POST /api/v1/admin/users/admin.
func (h *AdminUserHandler) CreateAdmin(c *gin.Context) {
	h.create(c, domain.RoleAdmin)
}

func (h *AdminUserHandler) create(c *gin.Context, role domain.Role) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, dto.BindError(err))
		return
	}
	dto.SanitizeStruct(&req)

	user, err := h.userSvc.Create(c.Request.Context(), ports.RegisterRequest{
		Username:       req.Username,
		Password:       req.Password,
		RepeatPassword: req.RepeatPassword,
	}, role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewUserResponse(user))
}

// Update handles PATCH /api/v1/admin/users/:id.
func (h *AdminUserHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, dto.BindError(err))
		return
	}
	dto.SanitizeStruct(&req)

	user, err := h.userSvc.Update(c.Request.Context(), id, ports.UpdateUserRequest{
		Username:       req.Username,
		Password:       req.Password,
		RepeatPassword: req.RepeatPassword,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewUserResponse(user))
}

// Delete handles DELETE /api/v1/admin/users/:id.
func (h *AdminUserHandler) Delete(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.userSvc.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
