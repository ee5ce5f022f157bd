package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// New builds a CORS middleware from the configured origin allowlist. An
// empty allowlist permits every origin, which is the local-development
// default.
func New(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[normalizeOrigin(o)] = struct{}{}
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()

		switch origin := c.GetHeader("Origin"); {
		case origin == "":
			if len(allowed) == 0 {
				h.Set("Access-Control-Allow-Origin", "*")
			}
		case len(allowed) == 0:
			h.Set("Access-Control-Allow-Origin", origin)
		default:
			if _, ok := allowed[normalizeOrigin(origin)]; ok {
				h.Set("Access-Control-Allow-Origin", origin)
			}
		}

		h.Set("Vary", "Origin")
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With, X-Request-ID")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// normalizeOrigin strips a trailing slash so "https://app.example/" and
// "https://app.example" compare equal.
func normalizeOrigin(origin string) string {
	return strings.TrimRight(origin, "/")
}
