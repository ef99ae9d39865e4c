package userhome

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/userhome/internal/dashboard"
	"github.com/nfrund/userhome/internal/domain"
	"github.com/nfrund/userhome/internal/middleware"
	"github.com/nfrund/userhome/internal/modules/userhome/components"
	"github.com/nfrund/userhome/internal/rendering"
	"github.com/nfrund/userhome/internal/view"
	"github.com/nfrund/userhome/internal/websocket"
	"github.com/nfrund/userhome/web/src/templates/layouts"
)

const (
	viewSessionName = "userhome"
	viewSessionKey  = "view_id"
)

// ExpiredViewMessage is flashed when a request names a view that is gone.
const ExpiredViewMessage = "Your session expired, the page was reloaded."

// Handler serves the dashboard routes.
type Handler struct {
	sessions *dashboard.Sessions
	config   dashboard.ConfigService
	renderer rendering.Renderer
	bridge   *websocket.Bridge
	// origin is the scheme and host the dashboard is served from.
	origin string
}

func NewHandler(sessions *dashboard.Sessions, cfg dashboard.ConfigService, renderer rendering.Renderer, bridge *websocket.Bridge, origin string) *Handler {
	return &Handler{
		sessions: sessions,
		config:   cfg,
		renderer: renderer,
		bridge:   bridge,
		origin:   origin,
	}
}

// viewHandler is a route that works on the current view.
type viewHandler func(c echo.Context, v *dashboard.View) error

// withView resolves the view of the request. A missing or reaped view sends
// the browser back to a fresh dashboard.
func (h *Handler) withView(fn viewHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		v, err := h.sessions.GetFor(viewID(c), middleware.Username(c))
		if err != nil {
			middleware.FromContext(c.Request().Context()).Info("View not found", "error", err)
			view.SetFlashError(c, ExpiredViewMessage)
			return redirect(c, "/user")
		}
		return fn(c, v)
	}
}

// viewID reads the view from the view header, the view query parameter or
// the session cookie, in that order.
func viewID(c echo.Context) string {
	if id := c.Request().Header.Get(components.ViewHeader); id != "" {
		return id
	}
	if id := c.QueryParam("view"); id != "" {
		return id
	}
	sess, err := session.Get(viewSessionName, c)
	if err != nil {
		return ""
	}
	id, _ := sess.Values[viewSessionKey].(string)
	return id
}

func rememberView(c echo.Context, id string) {
	sess, err := session.Get(viewSessionName, c)
	if err != nil {
		slog.Warn("View session unavailable", "error", err)
		return
	}
	sess.Values[viewSessionKey] = id
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		slog.Warn("Failed to save view session", "error", err)
	}
}

// redirect replaces the whole page. htmx requests get the HX-Redirect
// header, as a plain redirect would only swap the target.
func redirect(c echo.Context, location string) error {
	if c.Request().Header.Get("HX-Request") == "true" {
		c.Response().Header().Set("HX-Redirect", location)
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusSeeOther, location)
}

// fail sends the browser to the error page of err's status.
func fail(c echo.Context, err error) error {
	status := domain.StatusOf(err)
	if errors.Is(err, domain.ErrNotFound) {
		status = http.StatusNotFound
	}
	middleware.FromContext(c.Request().Context()).Warn("Dashboard request failed", "status", status, "error", err)
	return redirect(c, dashboard.ErrorPath(status))
}

// param returns a decoded path parameter.
func param(c echo.Context, name string) string {
	raw := c.Param(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// fragment writes htmx fragments.
func (h *Handler) fragment(c echo.Context, nodes ...any) error {
	return h.renderer.RenderPage(c, http.StatusOK, nodes...)
}

// PageGet opens a new view and renders the dashboard with the tab of the
// tab query parameter selected.
func (h *Handler) PageGet(c echo.Context) error {
	username := middleware.Username(c)
	v := h.sessions.Open(username)
	rememberView(c, v.ID)

	if _, err := v.LoadNotifications(c.Request().Context()); err != nil {
		h.sessions.Close(v.ID)
		return fail(c, err)
	}

	content := components.Page(components.PageData{
		ViewID:   v.ID,
		Username: username,
		Tab:      dashboard.SelectedTab(c.QueryParam("tab")),
		Pending:  v.PendingCount(),
	})
	page := layouts.Base("Dashboard", view.GetFlashData(c).Messages, view.Templ(content))
	return c.Render(http.StatusOK, "", page)
}

// resolveSocket admits a push socket only for a live view of the user.
func (h *Handler) resolveSocket(c echo.Context) (string, string, error) {
	username := middleware.Username(c)
	v, err := h.sessions.GetFor(c.QueryParam("view"), username)
	if err != nil {
		return "", "", websocket.StatusError(http.StatusNotFound)
	}
	return username, v.ID, nil
}

// Routes mounts the dashboard under g, which is expected at /user. limiter
// guards the routes that check credentials and may be nil.
func (h *Handler) Routes(g *echo.Group, limiter echo.MiddlewareFunc) {
	if limiter == nil {
		limiter = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	g.GET("", h.PageGet)
	g.GET("/ws", h.bridge.Handler(h.resolveSocket))
	g.GET("/sections/:name", h.withView(h.SectionGet))

	g.POST("/invitations/:org/:role/select", h.withView(h.InvitationSelectPost))
	g.POST("/invitations/accept", h.withView(h.AcceptPost))
	g.POST("/invitations/reject", h.withView(h.RejectPost))

	labeledRoutes(g, h, emailKind)
	labeledRoutes(g, h, phoneKind)
	labeledRoutes(g, h, addressKind)
	labeledRoutes(g, h, bankKind)

	g.GET("/social/:provider", h.withView(h.SocialGet))
	g.DELETE("/social/:provider", h.withView(h.SocialDelete))
	g.GET("/social/:provider/link", h.withView(h.SocialLinkGet))

	g.GET("/authorizations/:grantedTo", h.withView(h.AuthorizationGet))
	g.POST("/authorizations/:grantedTo/toggle", h.withView(h.AuthorizationTogglePost))
	g.PUT("/authorizations/:grantedTo", h.withView(h.AuthorizationPut))
	g.POST("/authorizations/:grantedTo/cancel", h.withView(h.AuthorizationCancelPost))
	g.DELETE("/authorizations/:grantedTo", h.withView(h.AuthorizationDelete))

	g.GET("/password", h.withView(h.PasswordGet))
	g.POST("/password", h.withView(h.PasswordPost), limiter)
	g.GET("/name", h.withView(h.NameGet))
	g.POST("/name", h.withView(h.NamePost))

	g.GET("/phone/:label/verify", h.withView(h.PhoneVerifyGet))
	g.POST("/phone/:label/verify", h.withView(h.PhoneVerifyPost), limiter)
	g.DELETE("/verification", h.withView(h.VerificationDelete))
}
