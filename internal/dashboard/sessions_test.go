package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nfrund/userhome/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSessions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	events := &recordedEvents{}
	s := NewSessions(newFakeIdentity().services(), WithTTL(time.Minute), WithClock(clock.Now), WithEvents(events))

	a := s.Open("alice")
	b := s.Open("alice")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, s.Len())

	t.Run("get", func(t *testing.T) {
		got, err := s.Get(a.ID)
		require.NoError(t, err)
		assert.Same(t, a, got)

		_, err = s.GetFor(a.ID, "mallory")
		assert.ErrorIs(t, err, domain.ErrViewNotFound)

		_, err = s.Get("nope")
		assert.ErrorIs(t, err, domain.ErrViewNotFound)
	})

	t.Run("sweep reaps idle views", func(t *testing.T) {
		clock.Advance(40 * time.Second)
		_, err := s.Get(b.ID)
		require.NoError(t, err)
		clock.Advance(40 * time.Second)

		assert.Equal(t, 1, s.Sweep(clock.Now()))
		_, err = s.Get(a.ID)
		assert.ErrorIs(t, err, domain.ErrViewNotFound)
		_, err = s.Get(b.ID)
		assert.NoError(t, err)
		assert.Equal(t, []string{a.ID}, events.closedViews())
	})

	t.Run("close", func(t *testing.T) {
		s.Close(b.ID)
		s.Close(b.ID)
		assert.Zero(t, s.Len())
		assert.Equal(t, []string{a.ID, b.ID}, events.closedViews(), "closing twice reports once")
	})
}

func TestSessionsTeardownStopsPhoneVerification(t *testing.T) {
	f := newFakeIdentity()
	s := NewSessions(f.services(), WithPollInterval(5*time.Millisecond))
	v := s.Open("alice")
	_, err := v.LoadUser(context.Background())
	require.NoError(t, err)

	p, err := v.StartPhoneVerification(context.Background(), "home")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()
	<-done

	assert.Equal(t, PhoneClosed, p.State())
	assert.Zero(t, s.Len())
}
