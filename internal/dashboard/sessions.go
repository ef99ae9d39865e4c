package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nfrund/userhome/internal/domain"
)

// DefaultViewTTL is how long an idle view is kept.
const DefaultViewTTL = 30 * time.Minute

// Sessions keeps the open dashboard views.
type Sessions struct {
	svc    Services
	events Events

	pollInterval time.Duration
	ttl          time.Duration
	now          func() time.Time

	mu    sync.Mutex
	views map[string]*View
}

// Option configures Sessions.
type Option func(*Sessions)

// WithPollInterval sets the phone verification poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Sessions) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithTTL sets how long an idle view survives.
func WithTTL(d time.Duration) Option {
	return func(s *Sessions) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithEvents sets where views push asynchronous results.
func WithEvents(e Events) Option {
	return func(s *Sessions) {
		if e != nil {
			s.events = e
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Sessions) { s.now = now }
}

// NewSessions creates an empty registry.
func NewSessions(svc Services, opts ...Option) *Sessions {
	s := &Sessions{
		svc:          svc,
		events:       nopEvents{},
		pollInterval: DefaultPollInterval,
		ttl:          DefaultViewTTL,
		now:          time.Now,
		views:        make(map[string]*View),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open starts a new view for username.
func (s *Sessions) Open(username string) *View {
	v := newView(uuid.NewString(), username, s.svc, s.events, s.pollInterval, s.now())
	s.mu.Lock()
	s.views[v.ID] = v
	s.mu.Unlock()
	slog.Debug("Dashboard view opened", "view_id", v.ID, "user", username)
	return v
}

// Get returns the view with id and marks it active.
func (s *Sessions) Get(id string) (*View, error) {
	s.mu.Lock()
	v, ok := s.views[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("view %q: %w", id, domain.ErrViewNotFound)
	}
	v.touch(s.now())
	return v, nil
}

// GetFor returns the view with id if it belongs to username. Cached sections
// are served without asking the identity API, so unless the auth middleware
// verifies token signatures, a forged token naming the owner plus the view id
// is enough to read them.
func (s *Sessions) GetFor(id, username string) (*View, error) {
	v, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if v.Username != username {
		return nil, fmt.Errorf("view %q of another user: %w", id, domain.ErrViewNotFound)
	}
	return v, nil
}

// Close tears a view down.
func (s *Sessions) Close(id string) {
	s.mu.Lock()
	v, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()
	if ok {
		v.teardown()
	}
}

// Len returns the number of open views.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// Sweep closes the views idle for longer than the TTL and returns how many
// it closed.
func (s *Sessions) Sweep(now time.Time) int {
	var stale []*View
	s.mu.Lock()
	for id, v := range s.views {
		if now.Sub(v.idleSince()) > s.ttl {
			stale = append(stale, v)
			delete(s.views, id)
		}
	}
	s.mu.Unlock()

	for _, v := range stale {
		v.teardown()
	}
	if len(stale) > 0 {
		slog.Debug("Reaped idle dashboard views", "count", len(stale))
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done, then closes every view.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.CloseAll()
			return
		case <-ticker.C:
			s.Sweep(s.now())
		}
	}
}

// CloseAll tears every view down.
func (s *Sessions) CloseAll() {
	s.mu.Lock()
	views := s.views
	s.views = make(map[string]*View)
	s.mu.Unlock()
	for _, v := range views {
		v.teardown()
	}
}
