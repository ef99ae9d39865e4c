package module

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/userhome/internal/registry"
)

// Module is a self-contained feature mounted under its own route group.
type Module interface {
	// Name is the unique identifier of the module, also its route prefix.
	Name() string

	// Register publishes the module's services in the registry. All modules
	// register before any of them boots.
	Register(reg *registry.Registry) error

	// Boot mounts the routes and starts background work. ctx lives as long as
	// the server.
	Boot(ctx context.Context, router *echo.Group, reg *registry.Registry) error

	// Shutdown stops background work during graceful shutdown.
	Shutdown(ctx context.Context) error
}

// BaseModule provides no-op implementations for modules to embed.
type BaseModule struct{}

func (m *BaseModule) Register(reg *registry.Registry) error { return nil }
func (m *BaseModule) Boot(ctx context.Context, router *echo.Group, reg *registry.Registry) error {
	return nil
}
func (m *BaseModule) Shutdown(ctx context.Context) error {
	return nil
}
