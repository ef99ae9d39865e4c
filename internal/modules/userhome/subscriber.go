package userhome

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nfrund/userhome/internal/dashboard"
	"github.com/nfrund/userhome/internal/modules/userhome/components"
	"github.com/nfrund/userhome/internal/pubsub"
	"github.com/nfrund/userhome/internal/rendering"
	"github.com/nfrund/userhome/internal/websocket"
	"github.com/nfrund/userhome/web/src/templates/layouts"
)

// InterruptedVerificationMessage is shown when a view reconnects after its
// phone verification was stopped.
const InterruptedVerificationMessage = "The connection was lost, so the phone verification was stopped. Please start it again."

// Subscriber turns view events into HTML pushed to the view's sockets and
// follows the sockets' lifecycle.
type Subscriber struct {
	subscriber pubsub.Subscriber
	publisher  pubsub.Publisher
	sessions   *dashboard.Sessions
	bridge     *websocket.Bridge
	renderer   rendering.Renderer

	// interrupted holds the views whose phone verification was stopped
	// because their last socket closed.
	interrupted sync.Map
}

func NewSubscriber(sub pubsub.Subscriber, pub pubsub.Publisher, sessions *dashboard.Sessions, bridge *websocket.Bridge, renderer rendering.Renderer) *Subscriber {
	return &Subscriber{
		subscriber: sub,
		publisher:  pub,
		sessions:   sessions,
		bridge:     bridge,
		renderer:   renderer,
	}
}

// Start subscribes to the view and socket events. Delivery runs until ctx is
// done.
func (s *Subscriber) Start(ctx context.Context) error {
	slog.Info("Starting userhome subscriber")
	for topic, handler := range map[string]pubsub.Handler{
		PhoneVerified.Name():                   s.handlePhoneVerified,
		NotificationsReloaded.Name():           s.handleNotificationsReloaded,
		ViewClosed.Name():                      s.handleViewClosed,
		websocket.TopicViewConnected.Name():    s.handleViewConnected,
		websocket.TopicViewDisconnected.Name(): s.handleViewDisconnected,
	} {
		if err := s.subscriber.Subscribe(ctx, topic, handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

// handlePhoneVerified closes the verification dialog, refreshes the profile
// and confirms with a toast.
func (s *Subscriber) handlePhoneVerified(ctx context.Context, msg pubsub.Message) error {
	event, err := PhoneVerified.Decode(msg)
	if err != nil {
		return err
	}
	v, err := s.sessions.Get(msg.ViewID)
	if err != nil {
		slog.Debug("Dropping phone verified event for closed view", "view_id", msg.ViewID)
		return nil
	}
	return s.push(ctx, msg.ViewID,
		components.EmptyDialogOOB(),
		components.ProfileSection(v.User(), true),
		layouts.ToastOOB("success", "Phone verified", fmt.Sprintf("%s (%s) is now verified.", event.Label, event.Number)),
	)
}

// handleNotificationsReloaded updates the open-request badge in every view
// of the user, not only the one that answered.
func (s *Subscriber) handleNotificationsReloaded(ctx context.Context, msg pubsub.Message) error {
	event, err := NotificationsReloaded.Decode(msg)
	if err != nil {
		return err
	}
	html, err := s.renderer.RenderComponent(ctx, components.Badge(event.Pending, true))
	if err != nil {
		return fmt.Errorf("render badge for user %s: %w", msg.UserID, err)
	}
	return s.publisher.Publish(ctx, pubsub.Message{
		Topic:   websocket.TopicUserHTML.Name(),
		UserID:  msg.UserID,
		Payload: html,
	})
}

func (s *Subscriber) handleViewClosed(_ context.Context, msg pubsub.Message) error {
	s.interrupted.Delete(msg.ViewID)
	s.bridge.CloseView(msg.ViewID)
	return nil
}

// handleViewDisconnected stops the phone verification of a view once its
// last socket is gone: nobody is left to show the result to.
func (s *Subscriber) handleViewDisconnected(_ context.Context, msg pubsub.Message) error {
	if s.bridge.Connections(msg.ViewID) > 0 {
		return nil
	}
	v, err := s.sessions.Get(msg.ViewID)
	if err != nil {
		return nil
	}
	if v.PhoneVerification() == nil {
		return nil
	}
	v.ClosePhoneVerification()
	s.interrupted.Store(msg.ViewID, struct{}{})
	slog.Info("Stopped phone verification of disconnected view", "view_id", msg.ViewID)
	return nil
}

// handleViewConnected brings a (re)connected view up to date: the badge,
// and the dialog of a verification stopped while it was away.
func (s *Subscriber) handleViewConnected(ctx context.Context, msg pubsub.Message) error {
	v, err := s.sessions.Get(msg.ViewID)
	if err != nil {
		return nil
	}
	var fragments []any
	if v.State(dashboard.SectionNotifications) == dashboard.Loaded {
		fragments = append(fragments, components.Badge(v.PendingCount(), true))
	}
	if _, ok := s.interrupted.LoadAndDelete(msg.ViewID); ok && v.PhoneVerification() == nil {
		fragments = append(fragments,
			components.EmptyDialogOOB(),
			layouts.ToastOOB("error", "", InterruptedVerificationMessage),
		)
	}
	if len(fragments) == 0 {
		return nil
	}
	return s.push(ctx, msg.ViewID, fragments...)
}

// push renders the fragments and routes them to the view through the
// websocket bridge.
func (s *Subscriber) push(ctx context.Context, viewID string, fragments ...any) error {
	html, err := s.renderer.RenderComponent(ctx, fragments...)
	if err != nil {
		return fmt.Errorf("render push for view %s: %w", viewID, err)
	}
	return s.publisher.Publish(ctx, pubsub.Message{
		Topic:   websocket.TopicViewHTML.Name(),
		ViewID:  viewID,
		Payload: html,
	})
}
