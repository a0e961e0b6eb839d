package api

import (
	"errors"   // Error inspection
	"fmt"      // Message formatting
	"net/http" // HTTP status codes

	"finder/internal/auth"    // Authentication services
	"finder/internal/cache"   // Directory cache
	"finder/internal/forms"   // Form schemas
	"finder/internal/metrics" // Auth counters
	"finder/internal/store"   // Persistence errors

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// SignupFormHandler renders the empty signup form
func SignupFormHandler(sm auth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		renderPage(c, sm, http.StatusOK, "signup", gin.H{"form": forms.SignupForm{}})
	}
}

// SignupHandler creates the account and its empty profile, then logs the user in
func SignupHandler(authn *auth.Authenticator, sm auth.SessionManager, dir cache.Cache, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form forms.SignupForm // Bind form to struct
		if err := c.ShouldBind(&form); err != nil {
			// Re-render the form with field errors
			renderPage(c, sm, http.StatusBadRequest, "signup", gin.H{"form": form, "errors": forms.Translate(&form, err)})
			return
		}

		user, err := authn.Signup(c.Request.Context(), auth.SignupInput{
			Username: form.Username,
			Email:    form.Email,
			Password: form.Password,
		})
		if conflicts := duplicateFieldErrors(err); len(conflicts) > 0 {
			m.SignupsTotal.WithLabelValues(metrics.ResultDuplicate).Inc()
			renderPage(c, sm, http.StatusBadRequest, "signup", gin.H{"form": form, "errors": conflicts})
			return
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"username": form.Username,
				"error":    err.Error(),
			}).Error("Signup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Signup failed"})
			return
		}
		m.SignupsTotal.WithLabelValues(metrics.ResultOK).Inc()
		invalidateContactPages(c.Request.Context(), dir) // The new user belongs in the directory

		// Log the new user in
		if err := sm.Login(c, user.ID); err != nil {
			logrus.WithFields(logrus.Fields{"user_id": user.ID, "error": err.Error()}).Error("Failed to save session")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
			return
		}
		_ = sm.AddFlash(c, auth.FlashSuccess, fmt.Sprintf("The account %s was created successfully", user.Username))
		c.Redirect(http.StatusSeeOther, "/")
	}
}

// duplicateFieldErrors turns uniqueness conflicts into field errors
func duplicateFieldErrors(err error) forms.FieldErrors {
	errs := forms.FieldErrors{}
	if errors.Is(err, store.ErrDuplicateUsername) {
		errs["username"] = "Username is already taken!"
	}
	if errors.Is(err, store.ErrDuplicateEmail) {
		errs["email"] = "Email already taken!"
	}
	return errs
}

// LoginFormHandler renders the login form
func LoginFormHandler(sm auth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		renderPage(c, sm, http.StatusOK, "login", gin.H{
			"form": gin.H{"username": ""},
			"next": c.Query("next"),
		})
	}
}

// LoginHandler verifies credentials, establishes the session and resumes the
// page the user was sent away from, if any.
func LoginHandler(authn *auth.Authenticator, sm auth.SessionManager, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		next := c.Query("next")
		if next == "" {
			next = c.PostForm("next")
		}

		var form forms.LoginForm
		if err := c.ShouldBind(&form); err != nil {
			renderPage(c, sm, http.StatusBadRequest, "login", gin.H{
				"form":   gin.H{"username": form.Username},
				"errors": forms.Translate(&form, err),
				"next":   next,
			})
			return
		}

		user, err := authn.Login(c.Request.Context(), form.Username, form.Password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			m.LoginsTotal.WithLabelValues(metrics.ResultRejected).Inc()
			_ = sm.AddFlash(c, auth.FlashDanger, "Login unsuccessful. Please check username and password.")
			renderPage(c, sm, http.StatusUnauthorized, "login", gin.H{
				"form": gin.H{"username": form.Username},
				"next": next,
			})
			return
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{"username": form.Username, "error": err.Error()}).Error("Login failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
			return
		}

		if err := sm.Login(c, user.ID); err != nil {
			logrus.WithFields(logrus.Fields{"user_id": user.ID, "error": err.Error()}).Error("Failed to save session")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
			return
		}
		m.LoginsTotal.WithLabelValues(metrics.ResultOK).Inc()
		logrus.WithField("user_id", user.ID).Info("User logged in")
		c.Redirect(http.StatusSeeOther, safeNext(next))
	}
}

// LogoutHandler destroys the session. Logging out without a session is fine.
func LogoutHandler(sm auth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := sm.Logout(c); err != nil {
			logrus.WithField("error", err.Error()).Warn("Failed to clear session")
		}
		c.Redirect(http.StatusFound, "/")
	}
}

// TokenHandler exchanges JSON credentials for an API bearer token
func TokenHandler(authn *auth.Authenticator, tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req forms.LoginForm // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "errors": forms.Translate(&req, err)})
			return
		}
		user, err := authn.Login(c.Request.Context(), req.Username, req.Password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{"username": req.Username, "error": err.Error()}).Error("Token login failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
			return
		}
		token, err := tokens.Issue(user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}
