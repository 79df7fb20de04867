package eventbus

import (
	"sync"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

type noopPublisher struct{}

func (n *noopPublisher) Publish(topic string, data interface{}) error {
	return nil
}
func (n *noopPublisher) CreateTopic(topic string) error {
	return nil
}
func (n *noopPublisher) Stop() {
}

// InitTestPublisher provides an NSQ client with a publisher that swallows
// everything.
func InitTestPublisher() *NSQClient {
	pub := &noopPublisher{}
	nsq := &NSQClient{
		Publisher: pub,
	}
	return nsq
}

// RecordingSink collects everything it receives, for assertions in tests.
type RecordingSink struct {
	mtx         sync.Mutex
	Transitions []inventory.TransitionRecord
	Events      []RecordedEvent
}

// RecordedEvent is one captured notification.
type RecordedEvent struct {
	Topic inventory.NSQTopic
	Event interface{}
}

// RecordTransition implements Sink.
func (s *RecordingSink) RecordTransition(rec *inventory.TransitionRecord) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.Transitions = append(s.Transitions, *rec)
	return nil
}

// Notify implements Sink.
func (s *RecordingSink) Notify(topic inventory.NSQTopic, event interface{}) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.Events = append(s.Events, RecordedEvent{Topic: topic, Event: event})
	return nil
}

// Warnings returns the recorded warning-level transitions.
func (s *RecordingSink) Warnings() []inventory.TransitionRecord {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var res []inventory.TransitionRecord
	for _, t := range s.Transitions {
		if t.Level == inventory.AuditLevelWarning {
			res = append(res, t)
		}
	}
	return res
}
