package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionRouter(sm SessionManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sm.Middleware())
	r.GET("/login", func(c *gin.Context) {
		_ = sm.Login(c, 5)
		_ = sm.AddFlash(c, FlashSuccess, "welcome")
		c.Status(http.StatusNoContent)
	})
	r.GET("/logout", func(c *gin.Context) {
		_ = sm.Logout(c)
		c.Status(http.StatusNoContent)
	})
	r.GET("/whoami", func(c *gin.Context) {
		id, ok := sm.UserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "ok": ok, "flashes": sm.Flashes(c)})
	})
	return r
}

func do(t *testing.T, r http.Handler, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// lastCookies keeps the final Set-Cookie per name, as a browser would
func lastCookies(w *httptest.ResponseRecorder) []*http.Cookie {
	byName := map[string]*http.Cookie{}
	var names []string
	for _, c := range w.Result().Cookies() {
		if _, seen := byName[c.Name]; !seen {
			names = append(names, c.Name)
		}
		byName[c.Name] = c
	}
	out := make([]*http.Cookie, 0, len(names))
	for _, n := range names {
		out = append(out, byName[n])
	}
	return out
}

func TestCookieSessionsLifecycle(t *testing.T) {
	r := sessionRouter(NewCookieSessions("0123456789abcdef0123456789abcdef", false))

	w := do(t, r, "/whoami", nil)
	assert.JSONEq(t, `{"id":0,"ok":false,"flashes":null}`, w.Body.String())

	w = do(t, r, "/login", nil)
	cookies := lastCookies(w)
	require.NotEmpty(t, cookies)

	w = do(t, r, "/whoami", cookies)
	assert.JSONEq(t, `{"id":5,"ok":true,"flashes":[{"category":"success","message":"welcome"}]}`, w.Body.String())

	w = do(t, r, "/logout", cookies)
	cleared := lastCookies(w)
	require.NotEmpty(t, cleared)

	w = do(t, r, "/whoami", cleared)
	assert.JSONEq(t, `{"id":0,"ok":false,"flashes":null}`, w.Body.String())

	// logging out again is harmless
	w = do(t, r, "/logout", cleared)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
