package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/nfrund/userhome/internal/app"
	"github.com/nfrund/userhome/internal/config"
	"github.com/nfrund/userhome/internal/dashboard"
	"github.com/nfrund/userhome/internal/handlers"
	"github.com/nfrund/userhome/internal/logging"
	"github.com/nfrund/userhome/internal/middleware"
	"github.com/nfrund/userhome/internal/module"
	"github.com/nfrund/userhome/internal/pubsub"
	"github.com/nfrund/userhome/internal/registry"
	"github.com/nfrund/userhome/internal/rendering"
	"github.com/nfrund/userhome/internal/storage"
	"github.com/nfrund/userhome/internal/topicmgr"
	"github.com/nfrund/userhome/internal/view"
	"github.com/nfrund/userhome/internal/websocket"
	"github.com/nfrund/userhome/web"
	"github.com/nfrund/userhome/web/src/templates/layouts"
	"github.com/samber/do/v2"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	E   *echo.Echo
	Cfg config.Provider

	reg     *registry.Registry
	modules []module.Module
	backend *app.Backend
	bus     *pubsub.WatermillBridge
	bridge  *websocket.Bridge
	tracing *app.Tracing
	store   storage.Store

	// ctx lives as long as the server; cancel stops the background work
	// started by Boot.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates the server from the environment and exits when a service
// cannot be created.
func New() *Server {
	logging.New()
	s, err := NewWithConfig(config.New())
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}
	return s
}

// NewWithConfig creates a server for cfg.
func NewWithConfig(cfg config.Provider) (*Server, error) {
	injector := app.New(cfg)

	backend, err := do.Invoke[*app.Backend](injector)
	if err != nil {
		return nil, fmt.Errorf("identity backend: %w", err)
	}
	modules, err := do.Invoke[[]module.Module](injector)
	if err != nil {
		return nil, fmt.Errorf("modules: %w", err)
	}
	if err := websocket.RegisterTopics(topicmgr.Default()); err != nil {
		return nil, fmt.Errorf("registering websocket topics: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(middleware.Logger)
	e.Use(echomw.Recover())

	store := sessions.NewCookieStore([]byte(cfg.GetSessionSecret()))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	e.Use(session.Middleware(store))

	e.StaticFS("/static", web.Static())
	e.Renderer = do.MustInvoke[*rendering.UniversalRenderer](injector)
	e.Validator = handlers.NewValidator()
	setupErrorHandling(e)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		E:       e,
		Cfg:     cfg,
		reg:     registry.New(cfg),
		modules: modules,
		backend: backend,
		bus:     do.MustInvoke[*pubsub.WatermillBridge](injector),
		bridge:  do.MustInvoke[*websocket.Bridge](injector),
		tracing: do.MustInvoke[*app.Tracing](injector),
		store:   do.MustInvoke[*storage.AferoStore](injector),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// setupErrorHandling renders errors as the error page. Errors that are not
// echo.HTTPErrors are unexpected and logged with their stack.
func setupErrorHandling(e *echo.Echo) {
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
		} else {
			middleware.FromContext(c.Request().Context()).Error("Internal Server Error (Unhandled)",
				"error", err,
				"stack_trace", string(debug.Stack()),
			)
		}

		if c.Request().Header.Get("HX-Request") == "true" {
			c.Response().Header().Set("HX-Redirect", dashboard.ErrorPath(status))
			err = c.NoContent(http.StatusOK)
		} else if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			title := fmt.Sprintf("Error %d", status)
			err = c.Render(status, "", layouts.Base(title, nil, view.Templ(handlers.ErrorPage(status))))
			if err != nil && !c.Response().Committed {
				err = errors.Join(err, c.String(status, http.StatusText(status)))
			}
		}
		if err != nil {
			slog.Error("Failed to write error response", "error", err)
		}
	}
}
