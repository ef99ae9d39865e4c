package topicmgr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRegister(t *testing.T) {
	m := NewManager()

	verified := DefineModule(TopicConfig{
		Name:        "userhome.phone.verified",
		Module:      "userhome",
		Description: "phone confirmed",
		Metadata:    map[string]any{"payload": "PhoneVerified"},
	})
	html := DefineFramework(TopicConfig{
		Name:        "ws.view.html",
		Module:      "ignored",
		Description: "fragment for one view",
	})

	require.NoError(t, m.Register(verified))
	require.NoError(t, m.Register(html))

	t.Run("duplicate", func(t *testing.T) {
		err := m.Register(verified)
		var topicErr *TopicError
		require.True(t, errors.As(err, &topicErr))
		assert.Equal(t, ErrorDuplicateRegistration, topicErr.Type)
	})

	t.Run("lookup", func(t *testing.T) {
		got, ok := m.Get("userhome.phone.verified")
		require.True(t, ok)
		assert.Equal(t, "userhome", got.Module())
		assert.Equal(t, "userhome.phone.verified", got.Pattern())
		assert.Equal(t, "PhoneVerified", got.Metadata()["payload"])

		_, ok = m.Get("userhome.missing")
		assert.False(t, ok)
	})

	t.Run("framework topics drop the module", func(t *testing.T) {
		got, ok := m.Get("ws.view.html")
		require.True(t, ok)
		assert.Empty(t, got.Module())
		assert.Equal(t, ScopeFramework, got.Scope())
	})

	t.Run("listing", func(t *testing.T) {
		assert.Equal(t, 2, m.Count())
		assert.Len(t, m.ListByModule("userhome"), 1)
		assert.Len(t, m.ListByScope(ScopeFramework), 1)
		assert.Equal(t, []string{"userhome"}, m.ListModules())
		assert.Len(t, m.FindTopics("userhome.*"), 1)

		stats := m.Stats()
		assert.Equal(t, 2, stats.TotalTopics)
		assert.Equal(t, 1, stats.ModuleBreakdown["userhome"])
	})
}

func TestValidateDefinition(t *testing.T) {
	m := NewManager()

	tests := []struct {
		name  string
		topic Topic
	}{
		{"bad characters", DefineModule(TopicConfig{Name: "userhome.Phone", Module: "userhome", Description: "x"})},
		{"reserved prefix", DefineFramework(TopicConfig{Name: "system.boot", Description: "x"})},
		{"framework prefix", DefineFramework(TopicConfig{Name: "userhome.toast", Description: "x"})},
		{"module prefix", DefineModule(TopicConfig{Name: "other.toast", Module: "userhome", Description: "x"})},
		{"no description", DefineModule(TopicConfig{Name: "userhome.toast", Module: "userhome"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Register(tt.topic)
			var topicErr *TopicError
			require.True(t, errors.As(err, &topicErr))
			assert.Equal(t, ErrorValidationFailed, topicErr.Type)
		})
	}
	assert.Zero(t, m.Count())
	assert.Error(t, m.Register(nil))
}
