package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/userhome/internal/view"
	"github.com/nfrund/userhome/web/src/templates/layouts"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

// ErrorStatus parses the status of an /error<status> path. Anything outside
// the 4xx and 5xx range becomes 500.
func ErrorStatus(raw string) int {
	status, err := strconv.Atoi(raw)
	if err != nil || status < 400 || status > 599 {
		return http.StatusInternalServerError
	}
	return status
}

// ErrorPage is the body of the error page.
func ErrorPage(status int) g.Node {
	text := http.StatusText(status)
	if text == "" {
		text = "Something went wrong"
	}
	return h.Section(h.Class("error-page"),
		h.H1(g.Textf("%d", status)),
		h.P(g.Text(text)),
		h.A(h.Class("button"), h.Href("/user"), g.Text("Back to your account")),
	)
}

// ErrorGet renders the page dashboard failures redirect to (GET /error:status).
func ErrorGet(c echo.Context) error {
	status := ErrorStatus(c.Param("status"))
	page := layouts.Base(fmt.Sprintf("Error %d", status), view.GetFlashData(c).Messages, view.Templ(ErrorPage(status)))
	return c.Render(status, "", page)
}
