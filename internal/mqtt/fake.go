package mqtt

import (
	"github.com/sweeney/gpio-monitor/internal/logic"
)

// Message is one publication as the broker would see it.
type Message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// FakePublisher stands in for the broker connection. It routes events the
// same way RealPublisher does and keeps what it would have sent.
type FakePublisher struct {
	// Topics used for routing; NewFakePublisher uses the "test" label.
	Topics Topics

	// Events and Payloads hold each accepted line event and its JSON body.
	Events   []logic.Event
	Payloads [][]byte

	// Messages holds line and system publications in send order.
	Messages []Message

	SystemEvents []SystemEvent

	// PublishError and PublishSystemError make the next calls fail.
	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool
}

// NewFakePublisher returns a disconnected fake routed under the "test" label.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Topics: TopicsFor("test")}
}

// Publish formats and routes a line event. Nothing is kept on failure.
func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	topic, qos, retained := f.Topics.Route(event)
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	f.Messages = append(f.Messages, Message{Topic: topic, QoS: qos, Retained: retained, Payload: payload})
	return nil
}

// PublishSystem keeps a lifecycle event destined for the system topic.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.Messages = append(f.Messages, Message{Topic: f.Topics.System, QoS: 1, Retained: event.Retained, Payload: payload})
	return nil
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}
