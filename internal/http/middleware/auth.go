// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication. The middleware verifies
// the Authorization header against the token issuer and stashes the account
// id in the Gin context under "userID", where the rate limiter and handlers
// pick it up.
//
// Authentication failures (missing header, malformed scheme, bad signature,
// expiry) always produce 401; authorization decisions (ownership, admin
// gating) are left to handlers, which respond 403.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ctxKeyUserID is where the authenticated account id is stashed.
const ctxKeyUserID = "userID"

// TokenVerifier validates a bearer token string and returns the account id it
// carries. Implemented by auth.TokenIssuer.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// authError is the compact 401 envelope written by RequireAuth. It mirrors
// the handlers.ErrorResponse shape without importing the handlers package.
type authError struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// AccountID returns the authenticated account id set by RequireAuth.
// The second return value indicates presence.
func AccountID(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyUserID)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// RequireAuth returns middleware that rejects requests without a valid
// "Authorization: Bearer <token>" header.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		const prefix = "Bearer "
		if raw == "" || !strings.HasPrefix(raw, prefix) {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		accountID, err := verifier.Verify(strings.TrimSpace(raw[len(prefix):]))
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}
		c.Set(ctxKeyUserID, accountID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, authError{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      "unauthorized",
		Message:   msg,
	})
}
