package api

import (
	"context"  // Context for cache operations
	"errors"   // Error inspection
	"math"     // Page bound
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Cache TTL

	"finder/internal/cache"   // Directory cache
	"finder/internal/domain"  // Domain models
	"finder/internal/forms"   // Date layout
	"finder/internal/profile" // Avatar URLs
	"finder/internal/store"   // Persistence

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

const (
	contactsTTL     = 60 * time.Second
	defaultPageSize = 20
	maxPageSize     = 100
	maxPage         = math.MaxInt32 / maxPageSize // Keeps the row offset in range
)

// Contact is the public view of a user and their profile
type Contact struct {
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	NickName    string `json:"nick_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	BirthDate   string `json:"birth_date,omitempty"`
	BirthPlace  string `json:"birth_place"`
	Website     string `json:"website"`
	AvatarURL   string `json:"avatar_url"`
}

// ContactPage is one page of the directory
type ContactPage struct {
	Contacts   []Contact `json:"contacts"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	Total      int64     `json:"total"`
	TotalPages int       `json:"total_pages"`
	Cached     bool      `json:"cached"`
}

func contactKey(username string) string {
	return "contact:" + username
}

func contactsKey(page, size int) string {
	return "contacts:page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(size)
}

func newContact(u domain.User, p *domain.Profile, images profile.ImageStore) Contact {
	c := Contact{Username: u.Username, AvatarURL: images.URL(domain.DefaultAvatar)}
	if p == nil {
		return c
	}
	c.FullName = p.FullName
	c.NickName = p.NickName
	c.Email = p.Email
	c.PhoneNumber = p.PhoneNumber
	c.Address = p.Address
	c.BirthPlace = p.BirthPlace
	c.Website = p.Website
	if p.BirthDate != nil {
		c.BirthDate = p.BirthDate.Format(forms.DateLayout)
	}
	if !p.HasDefaultAvatar() {
		c.AvatarURL = images.URL(p.ProfilePic)
	}
	return c
}

// ListContactsHandler returns one page of the directory
func ListContactsHandler(s store.Store, images profile.ImageStore, dir cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page := 1                   // Default page number
		pageSize := defaultPageSize // Default page size
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = min(v, maxPage) // Set page if valid
			}
		}
		// Check and set page size within limits
		if ps := c.Query("page_size"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= maxPageSize {
				pageSize = v
			}
		}

		key := contactsKey(page, pageSize)
		var cached ContactPage
		if found, err := dir.Get(ctx, key, &cached); err == nil && found {
			cached.Cached = true // Indicate response is from cache
			c.JSON(http.StatusOK, cached)
			return
		}

		offset := (page - 1) * pageSize // Calculate offset for pagination
		users, total, err := s.ListUsers(ctx, offset, pageSize)
		if err != nil {
			logrus.WithField("error", err.Error()).Error("Failed to list contacts")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch contacts"})
			return
		}

		resp := ContactPage{
			Contacts:   make([]Contact, len(users)),
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: (int(total) + pageSize - 1) / pageSize,
		}
		for i, u := range users {
			resp.Contacts[i] = newContact(u, u.Profile, images)
		}
		_ = dir.Set(ctx, key, resp, contactsTTL) // Cache the response for future requests
		c.JSON(http.StatusOK, resp)
	}
}

// GetContactHandler returns a single directory entry
func GetContactHandler(s store.Store, images profile.ImageStore, dir cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		username := c.Param("username")

		var cached Contact
		if found, err := dir.Get(ctx, contactKey(username), &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"contact": cached, "cached": true})
			return
		}

		user, err := s.UserByUsername(ctx, username)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
			return
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{"username": username, "error": err.Error()}).Error("Failed to load contact")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch contact"})
			return
		}
		p, err := s.ProfileByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch contact"})
			return
		}

		contact := newContact(*user, p, images)
		_ = dir.Set(ctx, contactKey(username), contact, contactsTTL)
		c.JSON(http.StatusOK, gin.H{"contact": contact, "cached": false})
	}
}

// invalidateContact drops the cached entry of one user and the list pages
func invalidateContact(ctx context.Context, dir cache.Cache, username string) {
	invalidateContactPages(ctx, dir, contactKey(username))
}

// invalidateContactPages drops the first list pages at the default size,
// where a new or changed entry most likely shows up, plus any extra keys.
func invalidateContactPages(ctx context.Context, dir cache.Cache, extra ...string) {
	keys := append([]string{}, extra...)
	for i := 1; i <= 5; i++ {
		keys = append(keys, contactsKey(i, defaultPageSize))
	}
	if err := dir.Delete(ctx, keys...); err != nil {
		logrus.WithFields(logrus.Fields{"keys": keys, "error": err.Error()}).Warn("Failed to invalidate contact cache")
	}
}
