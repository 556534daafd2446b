package middleware

import (
	"net/http"

	"bank-cards/pkg/apperror"
	"bank-cards/pkg/response"

	"github.com/gin-gonic/gin"
)

// DefaultMaxBodyBytes caps JSON request bodies. Every request body in this
// API is a small JSON object.
const DefaultMaxBodyBytes = 1 << 20

// MaxBodySize rejects requests that declare a larger body up front and caps
// the rest, so binding fails with VAL_003 once the limit is crossed.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, apperror.ErrBodyTooLarge())
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
