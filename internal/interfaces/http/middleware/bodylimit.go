package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// BodyLimit caps request bodies at maxBytes. A declared Content-Length over
// the cap is refused with 413 before the handler runs; chunked bodies fail
// with *http.MaxBytesError once the handler reads past the cap. Zero or
// negative disables the limit. Handlers may apply a tighter cap of their own.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.Fail(
				dto.ErrCodePayloadTooLarge,
				"Request body exceeds maximum allowed size",
				c.GetString("request_id"),
			))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
