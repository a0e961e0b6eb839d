package api

import (
	"net/url" // Redirect target checks
	"strings" // Prefix checks

	"finder/internal/auth"       // Session manager
	"finder/internal/middleware" // Request user id

	"github.com/gin-gonic/gin" // Gin web framework
)

// renderPage writes a page document: its name, the signed-in state, pending
// flash messages and any page specific data.
func renderPage(c *gin.Context, sm auth.SessionManager, status int, page string, data gin.H) {
	userID, ok := middleware.UserID(c)
	if !ok {
		userID, ok = sm.UserID(c)
	}
	body := gin.H{
		"page":          page,
		"authenticated": ok,
		"flashes":       sm.Flashes(c),
	}
	if ok {
		body["user_id"] = userID
	}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(status, body)
}

// safeNext only accepts local absolute paths as post-login destinations
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}
