// Package topicmgr keeps the catalogue of event-bus topics. Topics are
// declared once, next to the code that publishes them, and registered here so
// they can be validated at startup and listed by the CLI.
//
// Framework topics belong to the core (websocket delivery, server lifecycle):
//
//	var ViewHTML = topicmgr.DefineFramework(topicmgr.TopicConfig{
//		Name:        "ws.view.html",
//		Description: "HTML fragment for one dashboard view",
//	})
//
// Module topics belong to a feature module:
//
//	var PhoneVerified = topicmgr.DefineModule(topicmgr.TopicConfig{
//		Name:        "userhome.phone.verified",
//		Module:      "userhome",
//		Description: "A phone number was confirmed while its dialog was polling",
//	})
package topicmgr

import (
	"maps"
)

// Topic is a registered topic definition.
type Topic interface {
	Name() string
	// Module is empty for framework topics.
	Module() string
	Description() string
	Pattern() string
	Example() string
	Metadata() map[string]any
	Scope() TopicScope
}

// TopicScope says whether a topic belongs to the core or to a module.
type TopicScope string

const (
	ScopeFramework TopicScope = "framework"
	ScopeModule    TopicScope = "module"
)

// TopicConfig describes a topic.
type TopicConfig struct {
	Name        string         `json:"name"`
	Module      string         `json:"module"`
	Scope       TopicScope     `json:"scope"`
	Description string         `json:"description"`
	Pattern     string         `json:"pattern"`
	Example     string         `json:"example"`
	Metadata    map[string]any `json:"metadata"`
}

// TypedTopic is the Topic built from a TopicConfig.
type TypedTopic struct {
	cfg TopicConfig
}

var _ Topic = (*TypedTopic)(nil)

func newTopic(cfg TopicConfig, scope TopicScope) *TypedTopic {
	cfg.Scope = scope
	if cfg.Pattern == "" {
		cfg.Pattern = cfg.Name
	}
	cfg.Metadata = maps.Clone(cfg.Metadata)
	return &TypedTopic{cfg: cfg}
}

// DefineFramework creates a framework topic. The module is dropped.
func DefineFramework(cfg TopicConfig) Topic {
	cfg.Module = ""
	return newTopic(cfg, ScopeFramework)
}

// DefineModule creates a module topic.
func DefineModule(cfg TopicConfig) Topic {
	return newTopic(cfg, ScopeModule)
}

func (t *TypedTopic) Name() string        { return t.cfg.Name }
func (t *TypedTopic) Module() string      { return t.cfg.Module }
func (t *TypedTopic) Description() string { return t.cfg.Description }
func (t *TypedTopic) Pattern() string     { return t.cfg.Pattern }
func (t *TypedTopic) Example() string     { return t.cfg.Example }
func (t *TypedTopic) Scope() TopicScope   { return t.cfg.Scope }
func (t *TypedTopic) String() string      { return t.cfg.Name }

// Metadata returns a copy of the topic's metadata.
func (t *TypedTopic) Metadata() map[string]any {
	if t.cfg.Metadata == nil {
		return map[string]any{}
	}
	return maps.Clone(t.cfg.Metadata)
}

// ErrorType classifies a TopicError.
type ErrorType string

const (
	ErrorTopicNotFound         ErrorType = "topic_not_found"
	ErrorDuplicateRegistration ErrorType = "duplicate_registration"
	ErrorValidationFailed      ErrorType = "validation_failed"
)

// TopicError is returned by registry and validation failures.
type TopicError struct {
	Type    ErrorType `json:"type"`
	Topic   string    `json:"topic"`
	Module  string    `json:"module"`
	Message string    `json:"message"`
	Cause   error     `json:"cause,omitempty"`
}

func (e *TopicError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *TopicError) Unwrap() error {
	return e.Cause
}
