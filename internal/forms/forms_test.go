package forms

import (
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"finder/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindForm(t *testing.T, form any, values url.Values) error {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.ShouldBind(form)
}

func TestSignupFormValidation(t *testing.T) {
	valid := url.Values{
		"username":         {"alice"},
		"email":            {"alice@example.com"},
		"password":         {"secret1"},
		"confirm_password": {"secret1"},
	}

	var ok SignupForm
	require.NoError(t, bindForm(t, &ok, valid))
	assert.Equal(t, "alice", ok.Username)

	cases := map[string]struct {
		field, value string
		want         string
	}{
		"short username": {"username", "bob", "username"},
		"long username":  {"username", "abcdefghijklm", "username"},
		"bad email":      {"email", "not-an-email", "email"},
		"short password": {"password", "abc", "password"},
		"mismatch":       {"confirm_password", "other1", "confirm_password"},
		"missing email":  {"email", "", "email"},
		"long password":  {"password", "abcdefghijklmnop", "password"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			values := url.Values{}
			for k, v := range valid {
				values[k] = v
			}
			values.Set(tc.field, tc.value)
			if tc.field == "password" {
				values.Set("confirm_password", tc.value)
			}

			var form SignupForm
			err := bindForm(t, &form, values)
			require.Error(t, err)
			errs := Translate(&form, err)
			assert.Contains(t, errs, tc.want)
		})
	}
}

func TestTranslateMessages(t *testing.T) {
	var form SignupForm
	err := bindForm(t, &form, url.Values{"username": {"bob"}})
	require.Error(t, err)

	errs := Translate(&form, err)
	assert.Equal(t, "Field must be at least 5 characters long.", errs["username"])
	assert.Equal(t, "This field is required.", errs["email"])
}

func TestProfileFormValidation(t *testing.T) {
	var form ProfileForm
	require.NoError(t, bindForm(t, &form, url.Values{}), "every profile field is optional")

	err := bindForm(t, &form, url.Values{
		"birth_date": {"31/12/1990"},
		"phone_num":  {strings.Repeat("9", 31)},
		"email":      {"nope"},
	})
	require.Error(t, err)
	errs := Translate(&form, err)
	assert.Equal(t, "Not a valid date value.", errs["birth_date"])
	assert.Contains(t, errs, "phone_num")
	assert.Contains(t, errs, "email")
}

func TestProfileMappingRoundTrip(t *testing.T) {
	form := ProfileForm{
		FullName:   "Alice Liddell",
		NickName:   "Al",
		Email:      "contact@alice.example",
		PhoneNum:   "+44 1865 000000",
		Address:    "Christ Church, Oxford",
		BirthDate:  "1852-05-04",
		BirthPlace: "Westminster",
		Website:    "https://alice.example",
	}
	profile := domain.NewProfile(1)
	require.NoError(t, form.CopyTo(profile))

	assert.Equal(t, time.Date(1852, 5, 4, 0, 0, 0, 0, time.UTC), *profile.BirthDate)
	assert.Equal(t, form, ProfileFormFrom(profile))
}

func TestProfileCopyOverwritesWithBlanks(t *testing.T) {
	birth := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	profile := &domain.Profile{FullName: "Old", Website: "https://old.example", BirthDate: &birth}

	require.NoError(t, ProfileForm{}.CopyTo(profile))
	assert.Empty(t, profile.FullName)
	assert.Empty(t, profile.Website)
	assert.Nil(t, profile.BirthDate)
}

func TestCheckPicture(t *testing.T) {
	for _, name := range []string{"a.png", "b.JPG", "c.jpeg"} {
		assert.NoError(t, CheckPicture(&multipart.FileHeader{Filename: name}), name)
	}
	for _, name := range []string{"a.gif", "b", "c.png.exe"} {
		assert.ErrorIs(t, CheckPicture(&multipart.FileHeader{Filename: name}), ErrPictureType, name)
	}
}
