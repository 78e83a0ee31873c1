package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AOSC-Dev/pakreq-web/pkg/metrics"
)

// UsernameKey is the gin context key the verified bearer subject is stored
// under.
const UsernameKey = "username"

// TokenValidator is the minimal interface the middleware depends on.
type TokenValidator interface {
	Validate(raw string) (string, error)
}

// notAuthorized is the fixed REST error body; all bearer failures look alike.
var notAuthorized = gin.H{"success": false, "message": "Not authorized"}

// BearerAuth returns a gin middleware that verifies Authorization Bearer
// tokens and stores the subject username in the request context.
func BearerAuth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, notAuthorized)
			return
		}

		username, err := v.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			metrics.TokensRejected.Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, notAuthorized)
			return
		}

		c.Set(UsernameKey, username)
		c.Next()
	}
}
