// Package userhome is the account dashboard: the page, its sections and
// dialogs under /user, and the subscriber pushing view events to the
// browser.
package userhome

import (
	"context"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/userhome/internal/dashboard"
	"github.com/nfrund/userhome/internal/module"
	"github.com/nfrund/userhome/internal/pubsub"
	"github.com/nfrund/userhome/internal/registry"
	"github.com/nfrund/userhome/internal/rendering"
	"github.com/nfrund/userhome/internal/websocket"
)

// DefaultSweepInterval is how often idle views are reaped.
const DefaultSweepInterval = time.Minute

// Dependencies holds the services the module needs.
type Dependencies struct {
	Sessions   *dashboard.Sessions
	Config     dashboard.ConfigService
	Publisher  pubsub.Publisher
	Subscriber pubsub.Subscriber
	Renderer   rendering.Renderer
	Bridge     *websocket.Bridge
	// Origin is the scheme and host the dashboard is served from.
	Origin string
	// Limiter guards credential checks; nil disables it.
	Limiter       echo.MiddlewareFunc
	SweepInterval time.Duration
}

// UserHomeModule implements module.Module for the dashboard.
type UserHomeModule struct {
	module.BaseModule
	deps Dependencies
}

func New(deps Dependencies) *UserHomeModule {
	if deps.SweepInterval <= 0 {
		deps.SweepInterval = DefaultSweepInterval
	}
	return &UserHomeModule{deps: deps}
}

// Name is also the route prefix: the dashboard lives under /user.
func (m *UserHomeModule) Name() string {
	return "user"
}

// Register shares the view sessions with the server.
func (m *UserHomeModule) Register(reg *registry.Registry) error {
	registry.Set(reg, registry.SessionsKey, m.deps.Sessions)
	return nil
}

// Boot starts the subscriber and the idle view sweeper and mounts the
// routes.
func (m *UserHomeModule) Boot(ctx context.Context, g *echo.Group, reg *registry.Registry) error {
	sub := NewSubscriber(m.deps.Subscriber, m.deps.Publisher, m.deps.Sessions, m.deps.Bridge, m.deps.Renderer)
	if err := sub.Start(ctx); err != nil {
		return err
	}
	go m.deps.Sessions.Run(ctx, m.deps.SweepInterval)

	slog.Info("Booting userhome module: setting up routes")
	handler := NewHandler(m.deps.Sessions, m.deps.Config, m.deps.Renderer, m.deps.Bridge, m.deps.Origin)
	handler.Routes(g, m.deps.Limiter)
	return nil
}

// Shutdown closes every open view, which stops running phone verifications.
func (m *UserHomeModule) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down userhome module", "views", m.deps.Sessions.Len())
	m.deps.Sessions.CloseAll()
	return nil
}
