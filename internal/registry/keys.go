package registry

import (
	"github.com/nfrund/userhome/internal/dashboard"
)

// Service keys shared between modules and the server.
const (
	SessionsKey Key[*dashboard.Sessions] = "userhome.sessions"
)
