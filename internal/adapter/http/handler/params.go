package handler

import (
	"bank-cards/internal/adapter/http/dto"
	"bank-cards/internal/adapter/http/middleware"
	"bank-cards/internal/core/domain"
	"bank-cards/pkg/apperror"
	"bank-cards/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// pathID parses the :id path parameter, writing a 400 on failure.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// principal returns the authenticated caller, writing a 401 when absent.
func principal(c *gin.Context) (domain.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Unauthorized(c, apperror.ErrMissingToken())
	}
	return p, ok
}

// bindQuery binds and sanitizes query parameters, writing a 400 on failure.
func bindQuery(c *gin.Context, q interface{}) bool {
	if err := c.ShouldBindQuery(q); err != nil {
		response.Error(c, dto.BindError(err))
		return false
	}
	dto.SanitizeStruct(q)
	return true
}
