package server

import (
	"github.com/nfrund/userhome/internal/handlers"
	"github.com/nfrund/userhome/internal/middleware"
	"github.com/nfrund/userhome/internal/registry"
)

// RegisterRoutes mounts the public routes and boots the modules. Each module
// is served under /<name> behind the auth middleware.
func (s *Server) RegisterRoutes() error {
	homeHandler := handlers.NewHomeHandler(s.backend.LoginURL())
	healthHandler := handlers.NewHealthHandler(func() int {
		if views, ok := registry.Get(s.reg, registry.SessionsKey); ok {
			return views.Len()
		}
		return 0
	})

	s.E.GET("/", homeHandler.HomeGet)
	s.E.GET("/health", healthHandler.HealthGet)
	s.E.GET("/error:status", handlers.ErrorGet)
	s.E.GET("/logout", handlers.Logout)

	if s.backend.Dev != nil {
		s.backend.Dev.Register(s.E)
	}

	if err := s.bridge.Start(s.ctx, s.bus); err != nil {
		return err
	}

	for _, m := range s.modules {
		if err := m.Register(s.reg); err != nil {
			return err
		}
	}
	auth := middleware.Auth(s.backend.LoginURL(), s.backend.TokenKey)
	for _, m := range s.modules {
		g := s.E.Group("/"+m.Name(), auth)
		if err := m.Boot(s.ctx, g, s.reg); err != nil {
			return err
		}
	}
	return nil
}
