package middleware

import (
	"net/http"

	"company-wallet/pkg/apperror"
	"company-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// MaxBodySize caps request bodies at maxBytes. A declared Content-Length
// over the cap is refused up front with REQ_001; chunked bodies are cut off
// by the reader and fail at bind time.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, apperror.ErrPayloadTooLarge())
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
