package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ts-31/agent-hub/pkg"
)

// IdentityKey is the gin context key holding the verified *pkg.Identity.
const IdentityKey = "identity"

// SessionVerifier checks the session credential carried by the auth cookie.
type SessionVerifier interface {
	VerifySessionToken(token string) (*pkg.Identity, error)
}

// SessionAuth gates HTTP routes on a valid session cookie and stores the
// verified identity in the request context.
func SessionAuth(verifier SessionVerifier, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthorized"})
			return
		}

		identity, err := verifier.VerifySessionToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthorized"})
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// IdentityFrom extracts the verified identity stored by SessionAuth.
func IdentityFrom(c *gin.Context) (*pkg.Identity, bool) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return nil, false
	}
	identity, ok := v.(*pkg.Identity)
	return identity, ok
}
