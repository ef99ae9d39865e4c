package topicmgr

import (
	"path"
	"slices"
	"sync"
)

// Manager validates and registers topics.
type Manager struct {
	registry  *Registry
	validator *Validator
}

// NewManager creates a manager with an empty registry.
func NewManager() *Manager {
	return &Manager{registry: NewRegistry(), validator: NewValidator()}
}

// Register validates and adds a topic.
func (m *Manager) Register(topic Topic) error {
	if err := m.validator.ValidateDefinition(topic); err != nil {
		name := ""
		if topic != nil {
			name = topic.Name()
		}
		return &TopicError{Type: ErrorValidationFailed, Topic: name, Message: "topic validation failed", Cause: err}
	}
	return m.registry.Register(topic)
}

// MustRegister registers a topic and panics on failure. Topics are declared
// at package level, so a failure is a programming error.
func (m *Manager) MustRegister(topic Topic) {
	if err := m.Register(topic); err != nil {
		panic(err)
	}
}

func (m *Manager) Get(name string) (Topic, bool)        { return m.registry.Get(name) }
func (m *Manager) List() []Topic                        { return m.registry.List() }
func (m *Manager) ListByModule(module string) []Topic   { return m.registry.ListByModule(module) }
func (m *Manager) ListByScope(scope TopicScope) []Topic { return m.registry.ListByScope(scope) }
func (m *Manager) Count() int                           { return m.registry.Count() }
func (m *Manager) Stats() RegistryStats                 { return m.registry.Stats() }
func (m *Manager) Reset()                               { m.registry.Reset() }
func (m *Manager) ValidateTopicName(name string) error  { return m.validator.ValidateName(name) }
func (m *Manager) ValidateDefinition(topic Topic) error { return m.validator.ValidateDefinition(topic) }

// ListModules returns the modules that own at least one topic.
func (m *Manager) ListModules() []string {
	var modules []string
	for _, t := range m.registry.ListByScope(ScopeModule) {
		if !slices.Contains(modules, t.Module()) {
			modules = append(modules, t.Module())
		}
	}
	slices.Sort(modules)
	return modules
}

// FindTopics returns topics whose name matches a shell pattern such as
// "userhome.*".
func (m *Manager) FindTopics(pattern string) []Topic {
	var out []Topic
	for _, t := range m.registry.List() {
		if ok, _ := path.Match(pattern, t.Name()); ok {
			out = append(out, t)
		}
	}
	return out
}

var (
	defaultManager *Manager
	defaultOnce    sync.Once
)

// Default returns the process-wide manager that package-level topic
// declarations register into.
func Default() *Manager {
	defaultOnce.Do(func() {
		defaultManager = NewManager()
	})
	return defaultManager
}
