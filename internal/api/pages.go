package api

import (
	"net/http" // HTTP status codes

	"finder/internal/auth" // Session manager

	"github.com/gin-gonic/gin" // Gin web framework
)

// HomeHandler renders the landing page
func HomeHandler(sm auth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		renderPage(c, sm, http.StatusOK, "home", gin.H{"title": "Finder"})
	}
}

// AboutHandler renders the static about page
func AboutHandler(sm auth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		renderPage(c, sm, http.StatusOK, "about", gin.H{
			"title":   "About",
			"content": "Finder is a contact directory: keep your profile up to date and look up the people you know.",
		})
	}
}
