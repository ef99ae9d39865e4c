package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/nfrund/userhome/internal/topicmgr"
)

// Event ties a topic name to its payload type.
type Event[T any] struct {
	topicName string
}

// NewEvent declares a typed module topic and registers it with the default
// topic manager. The module is the first segment of the name and the payload's
// json field names are recorded as topic metadata.
func NewEvent[T any](name, description string) Event[T] {
	module, _, _ := strings.Cut(name, ".")

	var fields []string
	typeName := ""
	if t := reflect.TypeFor[T](); t != nil {
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		typeName = t.Name()
		if t.Kind() == reflect.Struct {
			for i := range t.NumField() {
				tag, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
				if tag != "" && tag != "-" {
					fields = append(fields, tag)
				}
			}
		}
	}

	topicmgr.Default().MustRegister(topicmgr.DefineModule(topicmgr.TopicConfig{
		Name:        name,
		Module:      module,
		Description: description,
		Metadata: map[string]any{
			"payload_fields": fields,
			"type_name":      typeName,
			"is_typed":       true,
		},
	}))

	return Event[T]{topicName: name}
}

// Name returns the topic name.
func (e Event[T]) Name() string {
	return e.topicName
}

// Decode unmarshals a message published for this event.
func (e Event[T]) Decode(msg Message) (T, error) {
	var payload T
	if msg.Topic != e.topicName {
		return payload, fmt.Errorf("decode %s: message is for topic %s", e.topicName, msg.Topic)
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return payload, fmt.Errorf("decode %s: %w", e.topicName, err)
	}
	return payload, nil
}

// Target addresses a published event.
type Target struct {
	UserID string
	ViewID string
}

// Publish sends a typed event.
func Publish[T any](ctx context.Context, p Publisher, event Event[T], to Target, payload T) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.Name(), err)
	}
	return p.Publish(ctx, Message{
		Topic:   event.Name(),
		UserID:  to.UserID,
		ViewID:  to.ViewID,
		Payload: data,
	})
}
