package registry

import (
	"testing"

	"github.com/nfrund/userhome/internal/dashboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	reg := New(nil)

	_, ok := Get(reg, SessionsKey)
	assert.False(t, ok)
	assert.Panics(t, func() { MustGet(reg, SessionsKey) })

	sessions := dashboard.NewSessions(dashboard.Services{})
	Set(reg, SessionsKey, sessions)

	got, ok := Get(reg, SessionsKey)
	require.True(t, ok)
	assert.Same(t, sessions, got)
	assert.Same(t, sessions, MustGet(reg, SessionsKey))
}

func TestRegistryTypeMismatch(t *testing.T) {
	reg := New(nil)
	Set(reg, Key[string]("shared"), "value")

	_, ok := Get(reg, Key[int]("shared"))
	assert.False(t, ok)
}
