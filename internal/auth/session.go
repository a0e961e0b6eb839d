package auth

import (
	"encoding/gob" // Flash values travel gob-encoded inside the cookie
	"net/http"     // SameSite modes

	"github.com/gin-contrib/sessions"        // Session middleware
	"github.com/gin-contrib/sessions/cookie" // Signed cookie store
	"github.com/gin-gonic/gin"               // Gin web framework
)

const (
	sessionName = "finder_session"
	userKey     = "user_id"
)

// Flash categories
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

// Flash is a one-shot message shown on the next rendered page
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

func init() {
	gob.Register(Flash{})
}

// SessionManager owns the per-client login state
type SessionManager interface {
	// Middleware must run before any other SessionManager method
	Middleware() gin.HandlerFunc
	Login(c *gin.Context, userID uint) error
	// Logout clears the session. Calling it without a session is not an error.
	Logout(c *gin.Context) error
	UserID(c *gin.Context) (uint, bool)
	AddFlash(c *gin.Context, category, message string) error
	// Flashes returns and consumes pending flash messages
	Flashes(c *gin.Context) []Flash
}

// CookieSessions keeps the session in a signed cookie
type CookieSessions struct {
	store cookie.Store
}

// NewCookieSessions signs cookies with secret; secure restricts them to HTTPS
func NewCookieSessions(secret string, secure bool) *CookieSessions {
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60, // one week
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return &CookieSessions{store: store}
}

func (s *CookieSessions) Middleware() gin.HandlerFunc {
	return sessions.Sessions(sessionName, s.store)
}

func (s *CookieSessions) Login(c *gin.Context, userID uint) error {
	session := sessions.Default(c)
	session.Clear() // Drop anything left from an earlier identity
	session.Set(userKey, userID)
	return session.Save()
}

func (s *CookieSessions) Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}

func (s *CookieSessions) UserID(c *gin.Context) (uint, bool) {
	id, ok := sessions.Default(c).Get(userKey).(uint)
	return id, ok && id != 0
}

func (s *CookieSessions) AddFlash(c *gin.Context, category, message string) error {
	session := sessions.Default(c)
	session.AddFlash(Flash{Category: category, Message: message})
	return session.Save()
}

func (s *CookieSessions) Flashes(c *gin.Context) []Flash {
	session := sessions.Default(c)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = session.Save() // Persist the consumption, a failure only means the flash shows again

	out := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			out = append(out, f)
		}
	}
	return out
}
