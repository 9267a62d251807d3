package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// Header carries the request id in both directions.
	Header = "X-Request-ID"
	// CorrelationHeader is accepted from upstream proxies when Header is absent.
	CorrelationHeader = "X-Correlation-ID"

	contextKey = "request_id"
	maxLength  = 128
)

// Middleware reuses a well-formed inbound id or mints a UUID, then echoes it on the response.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := inbound(c)
		c.Set(contextKey, id)
		c.Header(Header, id)
		c.Next()
	}
}

func inbound(c *gin.Context) string {
	for _, h := range []string{Header, CorrelationHeader} {
		if v := c.GetHeader(h); valid(v) {
			return v
		}
	}
	return uuid.NewString()
}

// valid rejects empty, oversized and non-printable ids so they never reach logs.
func valid(id string) bool {
	if id == "" || len(id) > maxLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// Value returns the id assigned to the current request.
func Value(c *gin.Context) string {
	return c.GetString(contextKey)
}
