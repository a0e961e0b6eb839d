package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"finder/internal/auth"       // Session manager
	"finder/internal/cache"      // Directory cache
	"finder/internal/domain"     // Domain models
	"finder/internal/forms"      // Form schemas
	"finder/internal/metrics"    // Profile counters
	"finder/internal/middleware" // Request user id
	"finder/internal/profile"    // Profile editor
	"finder/internal/store"      // Persistence

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// maxProfileBody bounds a profile submission: the picture plus the text fields
const maxProfileBody = profile.MaxUploadBytes + 1<<20

// ProfileFormHandler renders the profile form prefilled with the stored values
func ProfileFormHandler(s store.Store, editor *profile.Editor, sm auth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := loadOwnProfile(c, s)
		if !ok {
			return
		}
		renderProfile(c, sm, editor, http.StatusOK, p, profile.LoadForEdit(p), nil)
	}
}

// UpdateProfileHandler validates and persists profile edits, including a new picture
func UpdateProfileHandler(s store.Store, editor *profile.Editor, sm auth.SessionManager, dir cache.Cache, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := loadOwnProfile(c, s)
		if !ok {
			return
		}

		tooLarge := forms.FieldErrors{"profile_pic": "File is too large."}
		if c.Request.ContentLength > maxProfileBody {
			renderProfile(c, sm, editor, http.StatusRequestEntityTooLarge, p, profile.LoadForEdit(p), tooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxProfileBody) // Chunked bodies have no length

		var form forms.ProfileForm
		if err := c.ShouldBind(&form); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				renderProfile(c, sm, editor, http.StatusRequestEntityTooLarge, p, form, tooLarge)
				return
			}
			renderProfile(c, sm, editor, http.StatusBadRequest, p, form, forms.Translate(&form, err))
			return
		}

		var upload *profile.Upload
		fh, err := c.FormFile("profile_pic")
		switch {
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			// No new picture
		case err != nil:
			renderProfile(c, sm, editor, http.StatusBadRequest, p, form, forms.FieldErrors{"profile_pic": "Invalid upload."})
			return
		default:
			if err := forms.CheckPicture(fh); err != nil {
				renderProfile(c, sm, editor, http.StatusBadRequest, p, form, forms.FieldErrors{
					"profile_pic": "File does not have an approved extension: jpeg, jpg, png",
				})
				return
			}
			f, err := fh.Open()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
				return
			}
			defer f.Close()
			upload = &profile.Upload{Filename: fh.Filename, Content: f}
		}

		err = editor.ApplyEdit(c.Request.Context(), form, p, upload)
		if errors.Is(err, profile.ErrUnsupportedImage) {
			renderProfile(c, sm, editor, http.StatusBadRequest, p, form, forms.FieldErrors{"profile_pic": "Not a valid image."})
			return
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": p.UserID,
				"error":   err.Error(),
			}).Error("Profile update failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Profile update failed"})
			return
		}

		m.ProfileUpdatesTotal.Inc()
		if upload != nil {
			m.AvatarUploadsTotal.Inc()
		}

		// Directory entries for this user are stale now
		if user, err := s.UserByID(c.Request.Context(), p.UserID); err == nil {
			invalidateContact(c.Request.Context(), dir, user.Username)
		}

		_ = sm.AddFlash(c, auth.FlashInfo, "Profile information has been updated")
		c.Redirect(http.StatusSeeOther, "/profile")
	}
}

// loadOwnProfile fetches the profile of the signed-in user, answering the
// request itself when that fails.
func loadOwnProfile(c *gin.Context, s store.Store) (*domain.Profile, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	p, err := s.ProfileByUserID(c.Request.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return nil, false
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Error("Failed to load profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return nil, false
	}
	return p, true
}

func renderProfile(c *gin.Context, sm auth.SessionManager, editor *profile.Editor, status int, p *domain.Profile, form forms.ProfileForm, errs forms.FieldErrors) {
	data := gin.H{
		"form":        form,
		"profile_pic": p.ProfilePic,
		"avatar_url":  editor.Images().URL(p.ProfilePic),
	}
	if errs != nil {
		data["errors"] = errs
	}
	renderPage(c, sm, status, "profile", data)
}
