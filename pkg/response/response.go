package response

import (
	"errors"
	"net/http"
	"time"

	"bank-cards/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// SuccessResponse is the standard success envelope.
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id"`
	Timestamp string      `json:"timestamp"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Status    int    `json:"status"`
	Title     string `json:"title"`
	Detail    string `json:"detail"`
	Timestamp string `json:"timestamp"`
	ErrorCode string `json:"error_code"`
	RequestID string `json:"request_id"`
}

// OK sends a 200 response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: now(),
	})
}

// Created sends a 201 response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: now(),
	})
}

// NoContent sends a bodiless 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response. It checks if err is an *apperror.AppError
// and maps it accordingly, otherwise returns 500.
// Server-side failures are attached to the gin context so the request
// logger records the full chain; the body never carries it.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
		c.JSON(appErr.HTTPStatus, newErrorResponse(c, appErr.HTTPStatus, appErr.Code, appErr.Message))
		return
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError,
		newErrorResponse(c, http.StatusInternalServerError, "SYS_000", "Internal server error"))
}

// Unauthorized is the authentication pipeline's failure path: it aborts the
// chain with a 401 body and a bearer challenge header.
func Unauthorized(c *gin.Context, err error) {
	appErr := apperror.ErrTokenInvalid()
	errors.As(err, &appErr)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		Error(c, err)
		c.Abort()
		return
	}

	c.Header("WWW-Authenticate", `Bearer realm="bank-cards"`)
	c.AbortWithStatusJSON(appErr.HTTPStatus, newErrorResponse(c, appErr.HTTPStatus, appErr.Code, appErr.Message))
}

func newErrorResponse(c *gin.Context, status int, code, detail string) ErrorResponse {
	return ErrorResponse{
		Status:    status,
		Title:     http.StatusText(status),
		Detail:    detail,
		Timestamp: now(),
		ErrorCode: code,
		RequestID: getRequestID(c),
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// getRequestID retrieves request ID from context, or generates one.
func getRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return uuid.New().String()
}
