package eventbus

import (
	"github.com/metal-stack/metal-lib/bus"
	"go.uber.org/zap"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

// A Sink receives the audit trail and the change notifications the lifecycle
// engine and the reconciler produce. The transports behind it are not part
// of the core.
type Sink interface {
	// RecordTransition reports one committed lifecycle transition or a
	// derived warning.
	RecordTransition(rec *inventory.TransitionRecord) error
	// Notify broadcasts a change event on the topic of the entity kind.
	Notify(topic inventory.NSQTopic, event interface{}) error
}

// BusSink publishes notifications via NSQ and writes the audit trail to the
// structured log.
type BusSink struct {
	publisher bus.Publisher
	log       *zap.SugaredLogger
}

// NewBusSink creates a sink publishing on the given publisher.
func NewBusSink(log *zap.SugaredLogger, publisher bus.Publisher) *BusSink {
	return &BusSink{
		publisher: publisher,
		log:       log,
	}
}

// RecordTransition implements Sink.
func (s *BusSink) RecordTransition(rec *inventory.TransitionRecord) error {
	kv := []interface{}{
		"entity", rec.EntityID,
		"kind", rec.EntityKind,
		"old", rec.OldState,
		"new", rec.NewState,
		"at", rec.At,
		"message", rec.Message,
	}

	if rec.Level == inventory.AuditLevelWarning {
		s.log.Warnw("lifecycle transition", kv...)
	} else {
		s.log.Infow("lifecycle transition", kv...)
	}
	return nil
}

// Notify implements Sink.
func (s *BusSink) Notify(topic inventory.NSQTopic, event interface{}) error {
	err := s.publisher.Publish(string(topic), event)
	if err != nil {
		s.log.Errorw("cannot publish change event", "topic", topic, "error", err)
		return err
	}
	return nil
}
