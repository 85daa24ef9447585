package middlewares

import (
	"net/http"

	"github.com/foodlink/userhub/internal/auth"
	"github.com/gin-gonic/gin"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "token"

// Keep this small interface so tests can fake it easily.
type SessionVerifier interface {
	VerifySession(token string) (*auth.Claims, error)
}

type SessionMiddleware struct {
	jwt SessionVerifier
}

func NewSessionMiddleware(jwt SessionVerifier) *SessionMiddleware {
	return &SessionMiddleware{jwt: jwt}
}

// RequireSession resolves the caller's identity from the session cookie.
// The token is the only proof of identity; there is no server-side
// session state to cross-check.
func (m *SessionMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(SessionCookieName)
		if err != nil || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing session cookie",
				},
			})
			return
		}

		claims, err := m.jwt.VerifySession(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Invalid or expired session",
				},
			})
			return
		}

		c.Set(CtxUserID, claims.UserID)

		c.Next()
	}
}

// UserIDFromContext hides the context key from handlers.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
