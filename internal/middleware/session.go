package middleware

import (
	"net/http" // HTTP status codes
	"net/url"  // Query encoding

	"finder/internal/auth" // Session manager

	"github.com/gin-gonic/gin" // Gin web framework
)

// UserIDKey is where the authenticated user id is stored in the gin context
const UserIDKey = "userID"

// LoginRequired lets logged-in users through and sends everyone else to the
// login page, remembering where they were going.
func LoginRequired(sm auth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sm.UserID(c)
		if !ok {
			_ = sm.AddFlash(c, auth.FlashWarning, "Please log in to access this page.")
			target := "/login?next=" + url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Set(UserIDKey, userID) // Store userID in context
		c.Next()
	}
}

// GuestOnly redirects already authenticated users to the home page
func GuestOnly(sm auth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := sm.UserID(c); ok {
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the id set by LoginRequired or BearerAuth
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
