package api

import (
	"net/http" // HTTP status codes
	"time"     // CORS max age

	"finder/internal/auth"       // Authentication services
	"finder/internal/cache"      // Directory cache
	"finder/internal/metrics"    // Prometheus collectors
	"finder/internal/middleware" // Request gates
	"finder/internal/profile"    // Profile editor
	"finder/internal/store"      // Persistence

	"github.com/gin-contrib/cors" // CORS middleware
	"github.com/gin-gonic/gin"    // Gin web framework
)

// Access is the authentication a route demands
type Access int

const (
	Public        Access = iota // Anyone
	GuestOnly                   // Only clients without a session
	LoginRequired               // A session user
	TokenRequired               // A bearer token user
)

// Route is one entry of the route table
type Route struct {
	Method  string
	Path    string
	Access  Access
	Handler gin.HandlerFunc
}

// Deps are the services handlers are built from. They are constructed once at startup.
type Deps struct {
	Auth        *auth.Authenticator
	Sessions    auth.SessionManager
	Tokens      *auth.TokenIssuer
	Store       store.Store
	Editor      *profile.Editor
	Cache       cache.Cache
	Metrics     *metrics.Metrics // A private registry is created when nil
	PicturesDir string           // Served under /pictures when avatars live on disk
	CORSOrigins []string         // Allowed origins, CORS is off when empty
}

// Routes builds the route table. d.Metrics must be set.
func Routes(d Deps) []Route {
	contacts := ListContactsHandler(d.Store, d.Editor.Images(), d.Cache)
	contact := GetContactHandler(d.Store, d.Editor.Images(), d.Cache)

	return []Route{
		{http.MethodGet, "/", Public, HomeHandler(d.Sessions)},
		{http.MethodGet, "/home", Public, HomeHandler(d.Sessions)},
		{http.MethodGet, "/about", Public, AboutHandler(d.Sessions)},
		{http.MethodGet, "/metrics", Public, gin.WrapH(d.Metrics.Handler())},

		{http.MethodGet, "/signup", GuestOnly, SignupFormHandler(d.Sessions)},
		{http.MethodPost, "/signup", GuestOnly, SignupHandler(d.Auth, d.Sessions, d.Cache, d.Metrics)},
		{http.MethodGet, "/login", GuestOnly, LoginFormHandler(d.Sessions)},
		{http.MethodPost, "/login", GuestOnly, LoginHandler(d.Auth, d.Sessions, d.Metrics)},
		{http.MethodGet, "/logout", Public, LogoutHandler(d.Sessions)},

		{http.MethodGet, "/profile", LoginRequired, ProfileFormHandler(d.Store, d.Editor, d.Sessions)},
		{http.MethodPost, "/profile", LoginRequired, UpdateProfileHandler(d.Store, d.Editor, d.Sessions, d.Cache, d.Metrics)},

		{http.MethodGet, "/contacts", LoginRequired, contacts},
		{http.MethodGet, "/contacts/:username", LoginRequired, contact},

		{http.MethodPost, "/api/token", Public, TokenHandler(d.Auth, d.Tokens)},
		{http.MethodGet, "/api/contacts", TokenRequired, contacts},
		{http.MethodGet, "/api/contacts/:username", TokenRequired, contact},
	}
}

// NewRouter registers the route table on a gin engine, putting the gate each
// route asks for in front of its handler.
func NewRouter(d Deps) *gin.Engine {
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.RequestMetrics(d.Metrics))

	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost},
			AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(d.Sessions.Middleware())

	gates := map[Access]gin.HandlerFunc{
		GuestOnly:     middleware.GuestOnly(d.Sessions),
		LoginRequired: middleware.LoginRequired(d.Sessions),
		TokenRequired: middleware.BearerAuth(d.Tokens),
	}
	for _, route := range Routes(d) {
		chain := []gin.HandlerFunc{}
		if gate, ok := gates[route.Access]; ok {
			chain = append(chain, gate)
		}
		r.Handle(route.Method, route.Path, append(chain, route.Handler)...)
	}

	if d.PicturesDir != "" {
		r.Static("/pictures", d.PicturesDir)
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
	return r
}
