package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/userhome/internal/identity"
)

const (
	// UserContextKey holds the authenticated username on the echo context.
	UserContextKey = "user"
	// TokenCookieName is the cookie carrying the identity access token.
	TokenCookieName = "auth_token"
)

// Auth creates a middleware that protects routes that require authentication.
//
// The access token is read from the auth_token cookie or a bearer header.
// With a key the token's HS256 signature is verified here. Without one only
// the claims are read, and the signature is left to the identity API, which
// checks it on every call.
func Auth(loginURL string, key []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := tokenFromRequest(c)
			if token == "" {
				return c.Redirect(http.StatusSeeOther, loginURL)
			}

			username, err := UsernameFromToken(token, key, time.Now())
			if err != nil {
				FromContext(c.Request().Context()).Debug("Rejected access token", "error", err)
				c.SetCookie(&http.Cookie{
					Name:   TokenCookieName,
					Value:  "",
					Path:   "/",
					MaxAge: -1,
				})
				return c.Redirect(http.StatusSeeOther, loginURL)
			}

			c.Set(UserContextKey, username)
			ctx := identity.WithToken(c.Request().Context(), token)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func tokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(TokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// UsernameFromToken reads the username claim of an access token. The
// signature is verified only when key is not empty.
func UsernameFromToken(token string, key []byte, now time.Time) (string, error) {
	claims := jwt.MapClaims{}
	if len(key) > 0 {
		_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time { return now }))
		if err != nil {
			return "", err
		}
	} else if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return "", err
	}
	if exp != nil && exp.Before(now) {
		return "", jwt.ErrTokenExpired
	}

	username, _ := claims["username"].(string)
	if username == "" {
		username, _ = claims["sub"].(string)
	}
	if username == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return username, nil
}

// Username returns the authenticated username set by Auth.
func Username(c echo.Context) string {
	username, _ := c.Get(UserContextKey).(string)
	return username
}
