// Package app wires the application services into a dependency injector.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"slices"

	"github.com/nfrund/userhome/internal/config"
	"github.com/nfrund/userhome/internal/dashboard"
	"github.com/nfrund/userhome/internal/identity"
	"github.com/nfrund/userhome/internal/identity/devapi"
	"github.com/nfrund/userhome/internal/middleware"
	"github.com/nfrund/userhome/internal/module"
	"github.com/nfrund/userhome/internal/modules/userhome"
	"github.com/nfrund/userhome/internal/pubsub"
	"github.com/nfrund/userhome/internal/rendering"
	"github.com/nfrund/userhome/internal/storage"
	"github.com/nfrund/userhome/internal/websocket"
	"github.com/samber/do/v2"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/trace"
)

// Backend is the identity API behind the dashboard.
type Backend struct {
	Client *identity.Client
	// Dev is the in-process development API, nil against a real server.
	Dev *devapi.Server
	// TokenKey verifies access tokens in the auth middleware; empty leaves
	// the check to the identity API.
	TokenKey []byte
	loginURL string
}

// LoginURL is where browsers without a valid token are sent.
func (b *Backend) LoginURL() string {
	return b.loginURL
}

// Tracing is the tracer of the event bus.
type Tracing struct {
	Tracer trace.Tracer
	// Flush exports pending spans; it is called once on shutdown.
	Flush func()
}

// New builds the injector for cfg. Services are created lazily on first
// invoke.
func New(cfg config.Provider) *do.RootScope {
	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.Provide(injector, provideStore)
	do.Provide(injector, provideBackend)
	do.Provide(injector, provideTracing)
	do.Provide(injector, provideBus)
	do.Provide(injector, provideBridge)
	do.Provide(injector, provideRenderer)
	do.Provide(injector, provideEvents)
	do.Provide(injector, provideSessions)
	do.Provide(injector, provideModules)
	return injector
}

// provideStore is the local disk, where fixtures are read and snapshots
// written.
func provideStore(do.Injector) (*storage.AferoStore, error) {
	return storage.NewAferoStore(afero.NewOsFs()), nil
}

func provideBackend(i do.Injector) (*Backend, error) {
	cfg := do.MustInvoke[config.Provider](i)
	if cfg.GetDevFixture() == "" {
		return &Backend{
			Client:   identity.New(cfg.GetIdentityURL(), cfg.GetIdentityTimeout()),
			TokenKey: cfg.GetIdentityTokenKey(),
			loginURL: cfg.GetIdentityURL() + "/login",
		}, nil
	}

	store := do.MustInvoke[*storage.AferoStore](i)
	f, err := loadFixture(context.Background(), store, cfg.GetDevFixture(), cfg.GetDevSnapshot())
	if err != nil {
		return nil, err
	}
	users := slices.Sorted(maps.Keys(f.Users))
	slog.Info("Serving the development identity API", "users", users)

	var opts []devapi.Option
	if key := cfg.GetIdentityTokenKey(); len(key) > 0 {
		opts = append(opts, devapi.WithSigningKey(key))
	}

	// The development API is mounted on the dashboard's own server.
	return &Backend{
		Client:   identity.New(cfg.GetAppBaseURL(), cfg.GetIdentityTimeout()),
		Dev:      devapi.NewServer(f, opts...),
		TokenKey: cfg.GetIdentityTokenKey(),
		loginURL: "/dev/login?username=" + url.QueryEscape(users[0]),
	}, nil
}

// loadFixture prefers the snapshot of an earlier run over the fixture. A
// snapshot that no longer validates is discarded.
func loadFixture(ctx context.Context, store *storage.AferoStore, fixture, snapshot string) (*devapi.Fixture, error) {
	if snapshot != "" {
		if ok, _ := afero.Exists(store.Fs(), snapshot); ok {
			f, err := devapi.Restore(ctx, store, snapshot)
			if err == nil {
				slog.Info("Restored development identity snapshot", "path", snapshot)
				return f, nil
			}
			slog.Warn("Discarding development identity snapshot", "path", snapshot, "error", err)
			if err := store.Delete(ctx, snapshot); err != nil {
				return nil, fmt.Errorf("removing snapshot %s: %w", snapshot, err)
			}
		}
	}
	f, err := devapi.LoadFixture(store.Fs(), fixture)
	if err != nil {
		return nil, fmt.Errorf("loading identity fixture %s: %w", fixture, err)
	}
	return f, nil
}

func provideTracing(do.Injector) (*Tracing, error) {
	tracer, flush, err := pubsub.SetupOTel(context.Background(), pubsub.LoadTracingConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	return &Tracing{Tracer: tracer, Flush: flush}, nil
}

func provideBus(i do.Injector) (*pubsub.WatermillBridge, error) {
	tracing := do.MustInvoke[*Tracing](i)
	return pubsub.NewWatermillBridge(pubsub.WithTracer(tracing.Tracer)), nil
}

func provideBridge(i do.Injector) (*websocket.Bridge, error) {
	return websocket.NewBridge(do.MustInvoke[*pubsub.WatermillBridge](i)), nil
}

func provideRenderer(do.Injector) (*rendering.UniversalRenderer, error) {
	return rendering.NewUniversalRenderer(), nil
}

func provideEvents(i do.Injector) (*userhome.Events, error) {
	return userhome.NewEvents(do.MustInvoke[*pubsub.WatermillBridge](i)), nil
}

func provideSessions(i do.Injector) (*dashboard.Sessions, error) {
	cfg := do.MustInvoke[config.Provider](i)
	client := do.MustInvoke[*Backend](i).Client
	svc := dashboard.Services{
		Profile:       client,
		Notifications: client,
		Organizations: client,
		Config:        client,
	}
	return dashboard.NewSessions(svc,
		dashboard.WithPollInterval(cfg.GetPhonePollInterval()),
		dashboard.WithTTL(cfg.GetViewTTL()),
		dashboard.WithEvents(do.MustInvoke[*userhome.Events](i)),
	), nil
}

// provideModules lists the modules of the application.
func provideModules(i do.Injector) ([]module.Module, error) {
	cfg := do.MustInvoke[config.Provider](i)
	bus := do.MustInvoke[*pubsub.WatermillBridge](i)
	return []module.Module{
		userhome.New(userhome.Dependencies{
			Sessions:   do.MustInvoke[*dashboard.Sessions](i),
			Config:     do.MustInvoke[*Backend](i).Client,
			Publisher:  bus,
			Subscriber: bus,
			Renderer:   do.MustInvoke[*rendering.UniversalRenderer](i),
			Bridge:     do.MustInvoke[*websocket.Bridge](i),
			Origin:     cfg.GetAppBaseURL(),
			Limiter:    middleware.RateLimiter(),
		}),
	}, nil
}
