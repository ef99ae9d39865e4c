package devapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/userhome/internal/domain"
	"github.com/nfrund/userhome/internal/middleware"
	"github.com/nfrund/userhome/internal/storage"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *echo.Echo) {
	t.Helper()
	f, err := ParseFixture([]byte(testFixture))
	require.NoError(t, err)
	s := NewServer(f, opts...)
	e := echo.New()
	s.Register(e)
	return s, e
}

func do(e *echo.Echo, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLabeledRoutes(t *testing.T) {
	s, e := newTestServer(t)

	t.Run("duplicate label conflicts", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/api/users/alice/emailaddresses", `{"label":"main","emailaddress":"x@example.com"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("create", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/api/users/alice/emailaddresses", `{"label":"work","emailaddress":"a@work.example.com"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "a@work.example.com", s.Fixture().Users["alice"].Profile.Email["work"])
	})

	t.Run("rename onto an existing label conflicts", func(t *testing.T) {
		rec := do(e, http.MethodPut, "/api/users/alice/emailaddresses/work", `{"label":"main","emailaddress":"a@work.example.com"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("rename", func(t *testing.T) {
		rec := do(e, http.MethodPut, "/api/users/alice/addresses/home",
			`{"label":"house","street":"Rabbit Hole","city":"Oxford","postalcode":"OX1","country":"UK"}`)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		addrs := s.Fixture().Users["alice"].Profile.Address
		assert.NotContains(t, addrs, "home")
		assert.Equal(t, "Oxford", addrs["house"].City)
	})

	t.Run("update missing label", func(t *testing.T) {
		rec := do(e, http.MethodPut, "/api/users/alice/banks/none", `{"label":"none","iban":"X","country":"BE"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := do(e, http.MethodDelete, "/api/users/alice/banks/salary", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, s.Fixture().Users["alice"].Profile.Bank)
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/api/users/bob", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestPhoneVerifiedStatusFollowsRename(t *testing.T) {
	s, e := newTestServer(t)

	rec := do(e, http.MethodPut, "/api/users/alice/phonenumbers/mobile", `{"label":"cell","phonenumber":"+32470000001"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"cell"}, s.Fixture().Users["alice"].VerifiedPhones)

	rec = do(e, http.MethodPut, "/api/users/alice/phonenumbers/cell", `{"label":"cell","phonenumber":"+32479999999"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, s.Fixture().Users["alice"].VerifiedPhones)
}

func TestPhoneVerification(t *testing.T) {
	s, e := newTestServer(t, WithSMSCode("4242"))

	rec := do(e, http.MethodGet, "/api/users/alice/phonenumbers?validated=true", "")
	assert.JSONEq(t, `[{"label":"mobile","phonenumber":"+32470000001"}]`, rec.Body.String())

	rec = do(e, http.MethodPost, "/api/users/alice/phonenumbers/unknown/activate", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodPost, "/api/users/alice/phonenumbers/home/activate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "validationkey")
	key := s.accounts["alice"].pending["home"]
	require.NotEmpty(t, key)

	rec = do(e, http.MethodPut, "/api/users/alice/phonenumbers/home/activate", `{"smscode":"0000","validationkey":"`+key+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"error":"invalid_code"}`, rec.Body.String())

	rec = do(e, http.MethodPut, "/api/users/alice/phonenumbers/home/activate", `{"smscode":"4242","validationkey":"`+key+`"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.ElementsMatch(t, []string{"home", "mobile"}, s.Fixture().Users["alice"].VerifiedPhones)
}

func TestConfirmPhone(t *testing.T) {
	s, e := newTestServer(t)

	require.NoError(t, s.ConfirmPhone("alice", "home"))
	assert.ErrorIs(t, s.ConfirmPhone("alice", "fax"), domain.ErrNotFound)
	assert.ErrorIs(t, s.ConfirmPhone("bob", "home"), domain.ErrNotFound)

	rec := do(e, http.MethodGet, "/api/users/alice/phonenumbers?validated=true", "")
	assert.Contains(t, rec.Body.String(), `"home"`)
}

func TestUpdatePassword(t *testing.T) {
	_, e := newTestServer(t)

	rec := do(e, http.MethodPut, "/api/users/alice/password", `{"currentpassword":"wrong","newpassword":"whatever"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"error":"incorrect_password"}`, rec.Body.String())

	rec = do(e, http.MethodPut, "/api/users/alice/password", `{"currentpassword":"wonderland","newpassword":"abc"}`)
	assert.JSONEq(t, `{"error":"invalid_password"}`, rec.Body.String())

	rec = do(e, http.MethodPut, "/api/users/alice/password", `{"currentpassword":"wonderland","newpassword":"looking-glass"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestInvitations(t *testing.T) {
	s, e := newTestServer(t)

	rec := do(e, http.MethodGet, "/api/users/alice/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"court"`)
	assert.NotContains(t, rec.Body.String(), `"croquet"`)

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/api/users/alice/organizations/chess/roles/owner", "").Code)
	assert.Equal(t, http.StatusNoContent, do(e, http.MethodDelete, "/api/users/alice/organizations/court/roles/member", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodPost, "/api/users/alice/organizations/court/roles/member", "").Code)

	orgs := s.Fixture().Users["alice"].Organizations
	assert.Equal(t, []string{"wonderland", "chess"}, orgs.Owner)

	rec = do(e, http.MethodGet, "/api/users/alice/notifications", "")
	assert.JSONEq(t, `{"invitations":[],"approvals":[],"contractRequests":[]}`, rec.Body.String())
}

func TestAuthorizations(t *testing.T) {
	s, e := newTestServer(t)

	rec := do(e, http.MethodPut, "/api/users/alice/authorizations/tea-party", `{"grantedTo":"ignored","github":true}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	auths := s.Fixture().Users["alice"].Authorizations
	require.Len(t, auths, 1)
	assert.Equal(t, "tea-party", auths[0].GrantedTo)
	assert.True(t, auths[0].Github)
	assert.False(t, auths[0].Name)

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodDelete, "/api/users/alice/authorizations/tea-party", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodDelete, "/api/users/alice/authorizations/tea-party", "").Code)
}

func TestTokens(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s, e := newTestServer(t, WithSigningKey([]byte("dev-secret")), WithClock(func() time.Time { return now }))

	t.Run("missing token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/api/users/alice", "").Code)
	})

	t.Run("login issues a cookie the middleware understands", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/dev/login?username=alice&next=/user?tab=2", "")
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/user?tab=2", rec.Header().Get(echo.HeaderLocation))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, middleware.TokenCookieName, cookies[0].Name)

		username, err := middleware.UsernameFromToken(cookies[0].Value, []byte("dev-secret"), now)
		require.NoError(t, err)
		assert.Equal(t, "alice", username)

		rec = do(e, http.MethodGet, "/api/users/alice", "", echo.HeaderAuthorization, "Bearer "+cookies[0].Value)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("token for another user", func(t *testing.T) {
		token, err := s.IssueToken("mallory")
		require.NoError(t, err)
		rec := do(e, http.MethodGet, "/api/users/alice", "", echo.HeaderAuthorization, "Bearer "+token)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown user cannot log in", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/dev/login?username=bob", "").Code)
	})
}

func TestSnapshot(t *testing.T) {
	s, e := newTestServer(t)
	require.Equal(t, http.StatusNoContent, do(e, http.MethodPut, "/api/users/alice/name", `{"firstname":"Al","lastname":"L"}`).Code)

	fs := afero.NewMemMapFs()
	require.NoError(t, s.Snapshot(context.Background(), storage.NewAferoStore(fs), "snap/identity.json"))

	f, err := LoadFixture(fs, "snap/identity.json")
	require.NoError(t, err)
	assert.Equal(t, "Al", f.Users["alice"].Profile.Firstname)
	assert.Equal(t, "wonderland", f.Users["alice"].Password)
}
