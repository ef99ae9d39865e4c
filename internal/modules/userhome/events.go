package userhome

import (
	"context"
	"log/slog"

	"github.com/nfrund/userhome/internal/dashboard"
	"github.com/nfrund/userhome/internal/pubsub"
)

// PhoneVerifiedEvent reports a phone confirmed while its dialog was polling.
type PhoneVerifiedEvent struct {
	Label  string `json:"label"`
	Number string `json:"number"`
}

// NotificationsReloadedEvent carries the open-request count after a reload.
type NotificationsReloadedEvent struct {
	Pending int `json:"pending"`
}

// ViewClosedEvent announces a closed or reaped view.
type ViewClosedEvent struct{}

var (
	PhoneVerified = pubsub.NewEvent[PhoneVerifiedEvent](
		"userhome.phone.verified", "A phone was verified while its dialog was open")
	NotificationsReloaded = pubsub.NewEvent[NotificationsReloadedEvent](
		"userhome.notifications.reloaded", "Notifications were reloaded after a bulk answer")
	ViewClosed = pubsub.NewEvent[ViewClosedEvent](
		"userhome.view.closed", "A dashboard view was closed or reaped")
)

// Events publishes view events on the bus. It implements dashboard.Events.
type Events struct {
	publisher pubsub.Publisher
}

var _ dashboard.Events = (*Events)(nil)

func NewEvents(pub pubsub.Publisher) *Events {
	return &Events{publisher: pub}
}

func (e *Events) PhoneVerified(ctx context.Context, viewID, label, number string) {
	logPublishError(ctx, PhoneVerified.Name(), pubsub.Publish(ctx, e.publisher, PhoneVerified,
		pubsub.Target{ViewID: viewID}, PhoneVerifiedEvent{Label: label, Number: number}))
}

func (e *Events) NotificationsReloaded(ctx context.Context, viewID, username string, pending int) {
	logPublishError(ctx, NotificationsReloaded.Name(), pubsub.Publish(ctx, e.publisher, NotificationsReloaded,
		pubsub.Target{UserID: username, ViewID: viewID}, NotificationsReloadedEvent{Pending: pending}))
}

// ViewClosed is called from teardown, outside any request.
func (e *Events) ViewClosed(viewID string) {
	ctx := context.Background()
	logPublishError(ctx, ViewClosed.Name(), pubsub.Publish(ctx, e.publisher, ViewClosed,
		pubsub.Target{ViewID: viewID}, ViewClosedEvent{}))
}

func logPublishError(ctx context.Context, topic string, err error) {
	if err != nil {
		slog.WarnContext(ctx, "Failed to publish view event", "topic", topic, "error", err)
	}
}
