package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"
	"bank-cards/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderRefreshToken  = "X-Refresh-Token"
	HeaderRequestID     = "X-Request-ID"

	bearerPrefix = "Bearer "

	// Context keys
	CtxPrincipal = "principal"
)

// Authenticate resolves the bearer token into a principal and stores it on
// the context. Any failure ends the request with 401.
func Authenticate(authn ports.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if h := c.GetHeader(HeaderAuthorization); strings.HasPrefix(h, bearerPrefix) {
			token = strings.TrimSpace(h[len(bearerPrefix):])
		}

		principal, err := authn.Authenticate(c.Request.Context(), domain.BearerCredential(token))
		if err != nil {
			response.Unauthorized(c, err)
			return
		}

		c.Set(CtxPrincipal, principal)
		c.Next()
	}
}

// RequireRole lets through only principals holding role.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			response.Unauthorized(c, apperror.ErrMissingToken())
			return
		}
		if !p.HasRole(role) {
			response.Error(c, apperror.ErrForbidden())
			c.Abort()
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by Authenticate.
func PrincipalFrom(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(CtxPrincipal)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}

// RequestID propagates the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		c.Set(response.RequestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request together
// with any server-side errors attached by the handlers.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		if len(c.Errors) > 0 {
			event = event.Err(c.Errors.Last().Err)
		}
		if p, ok := PrincipalFrom(c); ok {
			event = event.Str("user_id", p.UserID.String())
		}

		event.
			Str("request_id", c.GetString(response.RequestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				response.Error(c, apperror.InternalError(fmt.Errorf("panic: %v", r)))
				c.Abort()
			}
		}()
		c.Next()
	}
}
