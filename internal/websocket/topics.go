package websocket

import (
	"errors"

	"github.com/nfrund/userhome/internal/topicmgr"
)

// Framework topics routed by the Bridge. Publishers set Message.ViewID or
// Message.UserID to address the recipients and put raw HTML in the payload.
var (
	TopicViewHTML = topicmgr.DefineFramework(topicmgr.TopicConfig{
		Name:        "ws.view.html",
		Description: "HTML fragment for the sockets of one dashboard view",
		Example:     `<div id="toast" hx-swap-oob="true">…</div>`,
		Metadata: map[string]any{
			"routing_type": "view",
			"requires":     []string{"view_id"},
		},
	})

	TopicUserHTML = topicmgr.DefineFramework(topicmgr.TopicConfig{
		Name:        "ws.user.html",
		Description: "HTML fragment for every open view of one user",
		Metadata: map[string]any{
			"routing_type": "user",
			"requires":     []string{"user_id"},
		},
	})

	TopicViewConnected = topicmgr.DefineFramework(topicmgr.TopicConfig{
		Name:        "ws.view.connected",
		Description: "A dashboard view opened its push socket",
		Metadata: map[string]any{
			"event_type": "lifecycle",
		},
	})

	TopicViewDisconnected = topicmgr.DefineFramework(topicmgr.TopicConfig{
		Name:        "ws.view.disconnected",
		Description: "A dashboard view's push socket closed",
		Metadata: map[string]any{
			"event_type": "lifecycle",
		},
	})
)

// RegisterTopics registers the websocket topics. Topics that are already
// registered are skipped.
func RegisterTopics(manager *topicmgr.Manager) error {
	for _, topic := range []topicmgr.Topic{TopicViewHTML, TopicUserHTML, TopicViewConnected, TopicViewDisconnected} {
		err := manager.Register(topic)
		var topicErr *topicmgr.TopicError
		if err != nil && !(errors.As(err, &topicErr) && topicErr.Type == topicmgr.ErrorDuplicateRegistration) {
			return err
		}
	}
	return nil
}
