package main

import (
	"log/slog"
	"os"

	"github.com/nfrund/userhome/internal/server"
)

func main() {
	s := server.New()
	if err := s.RegisterRoutes(); err != nil {
		slog.Error("Failed to boot modules", "error", err)
		os.Exit(1)
	}
	s.Start()
}
