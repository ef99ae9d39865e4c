package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/userhome/internal/middleware"
	"github.com/nfrund/userhome/internal/view"
	"github.com/nfrund/userhome/web/src/templates/layouts"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

// HomeHandler serves the landing page.
type HomeHandler struct {
	loginURL string
}

// NewHomeHandler creates a HomeHandler that links to loginURL.
func NewHomeHandler(loginURL string) *HomeHandler {
	return &HomeHandler{loginURL: loginURL}
}

// HomeGet sends signed-in users to their dashboard and shows everyone else
// a sign-in link.
func (hh *HomeHandler) HomeGet(c echo.Context) error {
	if cookie, err := c.Cookie(middleware.TokenCookieName); err == nil && cookie.Value != "" {
		return c.Redirect(http.StatusSeeOther, "/user")
	}

	content := h.Section(h.Class("landing"),
		h.H1(g.Text("Your account")),
		h.P(g.Text("Manage your contact details, organizations and the data you share with others.")),
		h.A(h.Class("button"), h.Href(hh.loginURL), g.Text("Sign in")),
	)
	page := layouts.Base("Home", view.GetFlashData(c).Messages, view.Templ(content))
	return c.Render(http.StatusOK, "", page)
}
