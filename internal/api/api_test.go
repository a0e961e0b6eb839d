package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"finder/internal/auth"
	"finder/internal/cache"
	"finder/internal/domain"
	"finder/internal/metrics"
	"finder/internal/profile"
	"finder/internal/store/storetest"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testApp struct {
	router  *gin.Engine
	mem     *storetest.Memory
	files   *profile.FileStore
	tokens  *auth.TokenIssuer
	metrics *metrics.Metrics
}

func newTestApp(t *testing.T, c cache.Cache) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := filepath.Join(t.TempDir(), "profile_pics")
	files, err := profile.NewFileStore(dir, "/pictures")
	require.NoError(t, err)
	require.NoError(t, profile.EnsureDefaultAvatar(context.Background(), files))

	mem := storetest.NewMemory()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	m := metrics.New()
	router := NewRouter(Deps{
		Auth:        auth.NewAuthenticator(mem, auth.BcryptHasher{Cost: bcrypt.MinCost}),
		Sessions:    auth.NewCookieSessions("0123456789abcdef0123456789abcdef", false),
		Tokens:      tokens,
		Store:       mem,
		Editor:      profile.NewEditor(mem, files),
		Cache:       c,
		Metrics:     m,
		PicturesDir: dir,
	})
	return &testApp{router: router, mem: mem, files: files, tokens: tokens, metrics: m}
}

// client keeps the session cookie between requests like a browser
type client struct {
	t       *testing.T
	app     *testApp
	cookies map[string]*http.Cookie
}

func (a *testApp) client(t *testing.T) *client {
	return &client{t: t, app: a, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.app.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return w
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) postForm(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) signup(username, email, password string) *httptest.ResponseRecorder {
	return c.postForm("/signup", url.Values{
		"username":         {username},
		"email":            {email},
		"password":         {password},
		"confirm_password": {password},
	})
}

func (c *client) login(username, password string) *httptest.ResponseRecorder {
	return c.postForm("/login", url.Values{"username": {username}, "password": {password}})
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestPublicPages(t *testing.T) {
	app := newTestApp(t, cache.Nop{})
	c := app.client(t)

	for _, path := range []string{"/", "/home", "/about"} {
		w := c.get(path)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, false, decode(t, w)["authenticated"], path)
	}
	assert.Equal(t, http.StatusNotFound, c.get("/nope").Code)
}

func TestSignupLogsInAndCreatesProfile(t *testing.T) {
	app := newTestApp(t, cache.Nop{})
	c := app.client(t)

	w := c.signup("alice", "alice@example.com", "secret1")
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, "/", w.Header().Get("Location"))

	users, profiles := app.mem.Counts()
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, profiles)

	body := decode(t, c.get("/"))
	assert.Equal(t, true, body["authenticated"])
	flashes := body["flashes"].([]any)
	require.Len(t, flashes, 1)
	assert.Equal(t, "The account alice was created successfully", flashes[0].(map[string]any)["message"])

	// already signed in: the form is not processed again
	w = c.signup("alice2", "alice2@example.com", "secret1")
	assert.Equal(t, http.StatusFound, w.Code)
	users, _ = app.mem.Counts()
	assert.Equal(t, 1, users)
}

func TestSignupDuplicates(t *testing.T) {
	app := newTestApp(t, cache.Nop{})
	require.Equal(t, http.StatusSeeOther, app.client(t).signup("alice", "alice@example.com", "secret1").Code)

	w := app.client(t).signup("alice", "other@example.com", "secret1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username is already taken!", decode(t, w)["errors"].(map[string]any)["username"])

	w = app.client(t).signup("bobby", "alice@example.com", "secret1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already taken!", decode(t, w)["errors"].(map[string]any)["email"])

	w = app.client(t).signup("alice", "alice@example.com", "secret1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errs := decode(t, w)["errors"].(map[string]any)
	assert.Equal(t, "Username is already taken!", errs["username"])
	assert.Equal(t, "Email already taken!", errs["email"])

	users, profiles := app.mem.Counts()
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, profiles)
}

func TestSignupValidationErrors(t *testing.T) {
	app := newTestApp(t, cache.Nop{})

	w := app.client(t).postForm("/signup", url.Values{
		"username":         {"bob"},
		"email":            {"bob@example.com"},
		"password":         {"secret1"},
		"confirm_password": {"secret2"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errs := decode(t, w)["errors"].(map[string]any)
	assert.Contains(t, errs, "username")
	assert.Contains(t, errs, "confirm_password")

	users, _ := app.mem.Counts()
	assert.Equal(t, 0, users)
}

func TestLoginAndLogout(t *testing.T) {
	app := newTestApp(t, cache.Nop{})
	require.Equal(t, http.StatusSeeOther, app.client(t).signup("alice", "alice@example.com", "secret1").Code)

	c := app.client(t)
	w := c.login("alice", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["authenticated"])
	flash := body["flashes"].([]any)[0].(map[string]any)
	assert.Equal(t, "danger", flash["category"])
	assert.Equal(t, "Login unsuccessful. Please check username and password.", flash["message"])

	w = c.login("alice", "secret1")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, true, decode(t, c.get("/"))["authenticated"])

	w = c.get("/logout")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, false, decode(t, c.get("/"))["authenticated"])

	// idempotent
	assert.Equal(t, http.StatusFound, c.get("/logout").Code)
}

func TestProfileRequiresLoginAndResumes(t *testing.T) {
	app := newTestApp(t, cache.Nop{})
	require.Equal(t, http.StatusSeeOther, app.client(t).signup("alice", "alice@example.com", "secret1").Code)

	c := app.client(t)
	w := c.get("/profile")
	require.Equal(t, http.StatusFound, w.Code)
	loc := w.Header().Get("Location")
	assert.Equal(t, "/login?next=%2Fprofile", loc)

	w = c.postForm(loc, url.Values{"username": {"alice"}, "password": {"secret1"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/profile", w.Header().Get("Location"))

	w = c.get("/profile")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/pictures/default.png", decode(t, w)["avatar_url"])
}

func TestLoginIgnoresForeignNext(t *testing.T) {
	app := newTestApp(t, cache.Nop{})
	require.Equal(t, http.StatusSeeOther, app.client(t).signup("alice", "alice@example.com", "secret1").Code)

	w := app.client(t).postForm("/login?next="+url.QueryEscape("//evil.example/x"), url.Values{
		"username": {"alice"}, "password": {"secret1"},
	})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func multipartProfile(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("profile_pic", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/profile", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 200, 100))))
	return buf.Bytes()
}

func TestProfileUpdateRoundTrip(t *testing.T) {
	app := newTestApp(t, cache.Nop{})
	c := app.client(t)
	require.Equal(t, http.StatusSeeOther, c.signup("alice", "alice@example.com", "secret1").Code)
	c.get("/") // consume the signup flash

	fields := map[string]string{
		"full_name":   "Alice Liddell",
		"nick_name":   "Al",
		"email":       "contact@alice.example",
		"phone_num":   "555-0100",
		"address":     "1 Rabbit Hole",
		"birth_date":  "1852-05-04",
		"birth_place": "Westminster",
		"website":     "https://alice.example",
	}
	w := c.do(multipartProfile(t, fields, "me.png", tinyPNG(t)))
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, "/profile", w.Header().Get("Location"))

	body := decode(t, c.get("/profile"))
	form := body["form"].(map[string]any)
	for k, v := range fields {
		assert.Equal(t, v, form[k], k)
	}
	assert.Equal(t, "Profile information has been updated", body["flashes"].([]any)[0].(map[string]any)["message"])

	pic := body["profile_pic"].(string)
	assert.NotEqual(t, domain.DefaultAvatar, pic)
	_, err := os.Stat(filepath.Join(app.files.Dir, pic))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(app.files.Dir, domain.DefaultAvatar))
	assert.NoError(t, err)

	// the stored avatar is served
	assert.Equal(t, http.StatusOK, c.get("/pictures/"+pic).Code)
}

func TestProfileUpdateRejectsBadInput(t *testing.T) {
	app := newTestApp(t, cache.Nop{})
	c := app.client(t)
	require.Equal(t, http.StatusSeeOther, c.signup("alice", "alice@example.com", "secret1").Code)

	w := c.do(multipartProfile(t, map[string]string{"full_name": "Alice"}, "me.gif", []byte("GIF89a")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["errors"], "profile_pic")

	w = c.do(multipartProfile(t, map[string]string{"birth_date": "tomorrow"}, "", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["errors"], "birth_date")

	w = c.do(multipartProfile(t, nil, "me.png", []byte("not a png")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(multipartProfile(t, map[string]string{"full_name": "Alice"}, "big.png", make([]byte, 6<<20)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "File is too large.", decode(t, w)["errors"].(map[string]any)["profile_pic"])

	body := decode(t, c.get("/profile"))
	assert.Equal(t, "", body["form"].(map[string]any)["full_name"], "rejected edits are not stored")
}

func TestContactsDirectoryWithToken(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	app := newTestApp(t, cache.NewRedis(rdb))
	alice := app.client(t)
	require.Equal(t, http.StatusSeeOther, alice.signup("alice", "alice@example.com", "secret1").Code)
	require.Equal(t, http.StatusSeeOther, app.client(t).signup("bobby", "bob@example.com", "secret2").Code)

	// sessions browse the directory
	w := alice.get("/contacts")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.Equal(t, float64(2), page["total"])
	assert.Equal(t, false, page["cached"])
	assert.Equal(t, true, decode(t, alice.get("/contacts"))["cached"])

	// API clients use tokens
	anon := app.client(t)
	assert.Equal(t, http.StatusUnauthorized, anon.get("/api/contacts").Code)

	req := httptest.NewRequest(http.MethodPost, "/api/token", strings.NewReader(`{"username":"bobby","password":"secret2"}`))
	req.Header.Set("Content-Type", "application/json")
	w = anon.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["token"].(string)

	req = httptest.NewRequest(http.MethodGet, "/api/contacts/alice", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = anon.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	contact := decode(t, w)["contact"].(map[string]any)
	assert.Equal(t, "alice", contact["username"])
	assert.Equal(t, "", contact["full_name"])

	// editing the profile evicts the cached entry
	w = alice.do(multipartProfile(t, map[string]string{"full_name": "Alice Liddell"}, "", nil))
	require.Equal(t, http.StatusSeeOther, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/contacts/alice", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	body := decode(t, anon.do(req))
	assert.Equal(t, false, body["cached"])
	assert.Equal(t, "Alice Liddell", body["contact"].(map[string]any)["full_name"])

	req = httptest.NewRequest(http.MethodGet, "/api/contacts/nobody", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusNotFound, anon.do(req).Code)
}

func TestSignupRefreshesContactPages(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	app := newTestApp(t, cache.NewRedis(rdb))
	alice := app.client(t)
	require.Equal(t, http.StatusSeeOther, alice.signup("alice", "alice@example.com", "secret1").Code)

	require.Equal(t, float64(1), decode(t, alice.get("/contacts"))["total"])
	require.Equal(t, true, decode(t, alice.get("/contacts"))["cached"])

	require.Equal(t, http.StatusSeeOther, app.client(t).signup("bobby", "bob@example.com", "secret2").Code)

	page := decode(t, alice.get("/contacts"))
	assert.Equal(t, false, page["cached"])
	assert.Equal(t, float64(2), page["total"])
}

func TestContactsClampsHugePage(t *testing.T) {
	app := newTestApp(t, cache.Nop{})
	c := app.client(t)
	require.Equal(t, http.StatusSeeOther, c.signup("alice", "alice@example.com", "secret1").Code)

	w := c.get("/contacts?page=9223372036854775807")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.Equal(t, float64(maxPage), page["page"])
	assert.Empty(t, page["contacts"])
	assert.Equal(t, float64(1), page["total"])
}

func TestTokenRejectsBadCredentials(t *testing.T) {
	app := newTestApp(t, cache.Nop{})
	require.Equal(t, http.StatusSeeOther, app.client(t).signup("alice", "alice@example.com", "secret1").Code)

	req := httptest.NewRequest(http.MethodPost, "/api/token", strings.NewReader(`{"username":"alice","password":"wrong1"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusUnauthorized, app.client(t).do(req).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, cache.Nop{})
	c := app.client(t)
	require.Equal(t, http.StatusSeeOther, c.signup("alice", "alice@example.com", "secret1").Code)
	require.Equal(t, http.StatusBadRequest, app.client(t).signup("alice", "alice2@example.com", "secret1").Code)
	require.Equal(t, http.StatusUnauthorized, app.client(t).login("alice", "wrong").Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.SignupsTotal.WithLabelValues(metrics.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.SignupsTotal.WithLabelValues(metrics.ResultDuplicate)))
	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.LoginsTotal.WithLabelValues(metrics.ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/signup", "400")))

	w := c.get("/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `finder_logins_total{result="rejected"} 1`)
	assert.Contains(t, w.Body.String(), `finder_http_requests_total{method="POST",route="/signup",status="303"} 1`)
}

func TestSafeNext(t *testing.T) {
	cases := map[string]string{
		"":                     "/",
		"/profile":             "/profile",
		"/contacts?page=2":     "/contacts?page=2",
		"//evil.example":       "/",
		"https://evil.example": "/",
		"/\\evil.example":      "/",
		"profile":              "/",
	}
	for in, want := range cases {
		assert.Equal(t, want, safeNext(in), in)
	}
}
