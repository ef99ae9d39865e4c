package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/userhome/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware(t *testing.T) {
	e := echo.New()
	e.GET("/user", func(c echo.Context) error {
		token, _ := identity.TokenFrom(c.Request().Context())
		return c.String(http.StatusOK, "Welcome "+Username(c)+" "+token)
	}, Auth("/login", nil))

	t.Run("unauthenticated user is redirected to login", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/user", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("cookie token grants access", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{
			"username": "jdoe",
			"exp":      time.Now().Add(time.Hour).Unix(),
		})
		req := httptest.NewRequest(http.MethodGet, "/user", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token})
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Welcome jdoe")
		assert.Contains(t, rec.Body.String(), token)
	})

	t.Run("bearer header grants access", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{"sub": "alice"})
		req := httptest.NewRequest(http.MethodGet, "/user", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Welcome alice")
	})

	t.Run("expired token clears the cookie", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{
			"username": "jdoe",
			"exp":      time.Now().Add(-time.Hour).Unix(),
		})
		req := httptest.NewRequest(http.MethodGet, "/user", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token})
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Contains(t, rec.Header().Get("Set-Cookie"), TokenCookieName+"=;")
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/user", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "not-a-jwt"})
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})
}

func forgedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("guessed"))
	require.NoError(t, err)
	return token
}

func TestUsernameFromToken(t *testing.T) {
	key := []byte("test-secret")
	now := time.Now()

	t.Run("token without a username", func(t *testing.T) {
		_, err := UsernameFromToken(signedToken(t, jwt.MapClaims{"scope": "user:admin"}), nil, now)
		assert.ErrorIs(t, err, jwt.ErrTokenInvalidClaims)
	})

	t.Run("signed with the key", func(t *testing.T) {
		username, err := UsernameFromToken(signedToken(t, jwt.MapClaims{"username": "jdoe"}), key, now)
		require.NoError(t, err)
		assert.Equal(t, "jdoe", username)
	})

	t.Run("wrong signature is rejected when a key is set", func(t *testing.T) {
		forged := forgedToken(t, jwt.MapClaims{"username": "jdoe"})

		_, err := UsernameFromToken(forged, key, now)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

		username, err := UsernameFromToken(forged, nil, now)
		require.NoError(t, err, "without a key the identity API rejects it")
		assert.Equal(t, "jdoe", username)
	})

	t.Run("unsigned token is rejected when a key is set", func(t *testing.T) {
		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"username": "jdoe"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = UsernameFromToken(none, key, now)
		assert.Error(t, err)
	})

	t.Run("expired with a key", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{"username": "jdoe", "exp": now.Add(-time.Minute).Unix()})
		_, err := UsernameFromToken(token, key, now)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})
}

func TestAuthMiddlewareWithKey(t *testing.T) {
	e := echo.New()
	e.GET("/user", func(c echo.Context) error {
		return c.String(http.StatusOK, "Welcome "+Username(c))
	}, Auth("/login", []byte("test-secret")))

	serve := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/user", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token})
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := serve(signedToken(t, jwt.MapClaims{"username": "jdoe"}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome jdoe", rec.Body.String())

	rec = serve(forgedToken(t, jwt.MapClaims{"username": "jdoe"}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}
