package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/userhome/internal/middleware"
	"github.com/nfrund/userhome/internal/view"
)

// Logout expires the access token cookie and returns to the landing page.
func Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	view.SetFlashSuccess(c, "You have been signed out.")
	return c.Redirect(http.StatusSeeOther, "/")
}
