package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campustrack/internal/session"
)

// CookieName is the session cookie issued on login.
const CookieName = "session_id"

// ctxKey is the gin context key holding the authenticated session.
const ctxKey = "session"

// RequireSession enforces a valid session cookie on protected endpoints.
func RequireSession(store session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(CookieName)
		if err != nil || id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
			return
		}
		s, err := store.Get(c.Request.Context(), id)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Session lookup failed"})
			return
		}
		if s == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
			return
		}
		c.Set(ctxKey, *s)
		c.Next()
	}
}

// CurrentSession returns the session attached by RequireSession.
func CurrentSession(c *gin.Context) (session.Session, bool) {
	v, ok := c.Get(ctxKey)
	if !ok {
		return session.Session{}, false
	}
	s, ok := v.(session.Session)
	return s, ok
}
