// Package topics loads and prints the topic catalogue for the CLI.
package topics

import (
	"fmt"

	// The module declares its events at package level, which registers
	// them with the default manager.
	_ "github.com/nfrund/userhome/internal/modules/userhome"
	"github.com/nfrund/userhome/internal/topicmgr"
	"github.com/nfrund/userhome/internal/websocket"
)

// Initialize registers every topic the server publishes and returns the
// default manager.
func Initialize() (*topicmgr.Manager, error) {
	manager := topicmgr.Default()
	if err := websocket.RegisterTopics(manager); err != nil {
		return nil, fmt.Errorf("registering websocket topics: %w", err)
	}
	return manager, nil
}
