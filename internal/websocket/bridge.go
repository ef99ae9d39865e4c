// Package websocket pushes server-rendered HTML to open dashboard views.
package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/userhome/internal/pubsub"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

// Resolver identifies the user and view a socket request belongs to. It
// returns an error carrying an HTTP status when the request must be refused.
type Resolver func(c echo.Context) (userID, viewID string, err error)

type client struct {
	userID string
	viewID string
	conn   *websocket.Conn
	send   chan []byte
}

// Bridge tracks push sockets by view and routes bus messages to them. A view
// may hold several sockets (reconnects overlapping the old socket's close).
type Bridge struct {
	publisher pubsub.Publisher

	mu    sync.RWMutex
	views map[string]map[*client]struct{}
	users map[string]map[*client]struct{}
}

// NewBridge creates a bridge. Lifecycle events are published to pub, which
// may be nil.
func NewBridge(pub pubsub.Publisher) *Bridge {
	return &Bridge{
		publisher: pub,
		views:     make(map[string]map[*client]struct{}),
		users:     make(map[string]map[*client]struct{}),
	}
}

// Start routes ws.view.html and ws.user.html messages from sub to sockets.
func (b *Bridge) Start(ctx context.Context, sub pubsub.Subscriber) error {
	if err := sub.Subscribe(ctx, TopicViewHTML.Name(), func(_ context.Context, msg pubsub.Message) error {
		b.SendToView(msg.ViewID, msg.Payload)
		return nil
	}); err != nil {
		return err
	}
	return sub.Subscribe(ctx, TopicUserHTML.Name(), func(_ context.Context, msg pubsub.Message) error {
		b.SendToUser(msg.UserID, msg.Payload)
		return nil
	})
}

// Handler upgrades the request and serves the socket until it closes.
func (b *Bridge) Handler(resolve Resolver) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, viewID, err := resolve(c)
		if err != nil {
			return err
		}

		conn, err := websocket.Accept(c.Response(), c.Request(), nil)
		if err != nil {
			slog.Warn("Failed to upgrade connection to WebSocket", "view_id", viewID, "error", err)
			return nil
		}

		cl := &client{userID: userID, viewID: viewID, conn: conn, send: make(chan []byte, sendBuffer)}
		b.add(cl)
		b.lifecycle(TopicViewConnected.Name(), cl)
		defer func() {
			b.remove(cl)
			b.lifecycle(TopicViewDisconnected.Name(), cl)
		}()

		// Clients never send; CloseRead discards input and ends ctx on close.
		ctx := conn.CloseRead(c.Request().Context())
		b.writeLoop(ctx, cl)
		return nil
	}
}

func (b *Bridge) writeLoop(ctx context.Context, cl *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-cl.send:
			if !ok {
				cl.conn.Close(websocket.StatusNormalClosure, "view closed")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := cl.conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
					slog.Warn("WebSocket write error", "view_id", cl.viewID, "error", err)
				}
				return
			}
		}
	}
}

func (b *Bridge) lifecycle(topic string, cl *client) {
	if b.publisher == nil {
		return
	}
	err := b.publisher.Publish(context.Background(), pubsub.Message{
		Topic:  topic,
		UserID: cl.userID,
		ViewID: cl.viewID,
	})
	if err != nil {
		slog.Error("Failed to publish websocket lifecycle event", "topic", topic, "error", err)
	}
}

func (b *Bridge) add(cl *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	addTo(b.views, cl.viewID, cl)
	addTo(b.users, cl.userID, cl)
	slog.Debug("Push socket registered", "user_id", cl.userID, "view_id", cl.viewID)
}

func (b *Bridge) remove(cl *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	removeFrom(b.views, cl.viewID, cl)
	removeFrom(b.users, cl.userID, cl)
}

func addTo(index map[string]map[*client]struct{}, key string, cl *client) {
	set, ok := index[key]
	if !ok {
		set = make(map[*client]struct{})
		index[key] = set
	}
	set[cl] = struct{}{}
}

func removeFrom(index map[string]map[*client]struct{}, key string, cl *client) {
	set := index[key]
	delete(set, cl)
	if len(set) == 0 {
		delete(index, key)
	}
}

// SendToView queues payload on every socket of a view and returns how many
// sockets took it. A socket with a full buffer drops the message.
func (b *Bridge) SendToView(viewID string, payload []byte) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return deliver(b.views[viewID], payload)
}

// SendToUser queues payload on every socket of a user.
func (b *Bridge) SendToUser(userID string, payload []byte) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return deliver(b.users[userID], payload)
}

func deliver(set map[*client]struct{}, payload []byte) int {
	sent := 0
	for cl := range set {
		select {
		case cl.send <- payload:
			sent++
		default:
			slog.Warn("Push socket buffer full, dropping message", "view_id", cl.viewID)
		}
	}
	return sent
}

// CloseView closes the sockets of a view, e.g. when its session expires.
func (b *Bridge) CloseView(viewID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for cl := range b.views[viewID] {
		b.detach(cl)
	}
}

// Close closes every socket.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, set := range b.views {
		for cl := range set {
			b.detach(cl)
		}
	}
}

// detach unindexes cl and closes its queue so its write loop ends the
// connection. Callers hold b.mu.
func (b *Bridge) detach(cl *client) {
	removeFrom(b.views, cl.viewID, cl)
	removeFrom(b.users, cl.userID, cl)
	close(cl.send)
}

// Connections returns the number of sockets open for a view.
func (b *Bridge) Connections(viewID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.views[viewID])
}

// StatusError is what a Resolver returns to refuse a socket.
func StatusError(status int) error {
	return echo.NewHTTPError(status, http.StatusText(status))
}
