// Package requestid tags every request with an identifier that the access
// log and error responses can correlate on.
package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header is the wire header carrying the request ID. A caller-supplied
// value is trusted and echoed back so distributed traces stay stitched.
const Header = "X-Request-ID"

const contextKey = "request_id"

// Middleware ensures the request carries an ID, minting one when the
// client did not send its own.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(contextKey, id)
		c.Writer.Header().Set(Header, id)

		c.Next()
	}
}

// Value reads the request ID back out of the Gin context. It returns the
// empty string when the middleware did not run.
func Value(c *gin.Context) string {
	id, _ := c.Value(contextKey).(string)
	return id
}
