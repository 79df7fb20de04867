package eventbus

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

type recordingPublisher struct {
	published map[string][]interface{}
	err       error
}

func (p *recordingPublisher) Publish(topic string, data interface{}) error {
	if p.err != nil {
		return p.err
	}
	if p.published == nil {
		p.published = map[string][]interface{}{}
	}
	p.published[topic] = append(p.published[topic], data)
	return nil
}

func (p *recordingPublisher) CreateTopic(topic string) error { return nil }
func (p *recordingPublisher) Stop()                          {}

func TestBusSinkNotify(t *testing.T) {
	pub := &recordingPublisher{}
	sink := NewBusSink(zaptest.NewLogger(t).Sugar(), pub)

	event := inventory.ChassisEvent{Type: inventory.TRANSITION}
	err := sink.Notify(inventory.TopicChassis, event)
	require.NoError(t, err)

	require.Len(t, pub.published[string(inventory.TopicChassis)], 1)
	assert.Equal(t, event, pub.published[string(inventory.TopicChassis)][0])
}

func TestBusSinkNotifyPropagatesPublishError(t *testing.T) {
	pub := &recordingPublisher{err: fmt.Errorf("nsqd gone")}
	sink := NewBusSink(zaptest.NewLogger(t).Sugar(), pub)

	err := sink.Notify(inventory.TopicChassis, inventory.ChassisEvent{})

	require.Error(t, err)
}

func TestBusSinkRecordTransition(t *testing.T) {
	sink := NewBusSink(zaptest.NewLogger(t).Sugar(), &recordingPublisher{})

	err := sink.RecordTransition(&inventory.TransitionRecord{
		EntityID:   "c1",
		EntityKind: "chassis",
		OldState:   "online",
		NewState:   "offline",
		At:         time.Now(),
		Level:      inventory.AuditLevelWarning,
	})

	require.NoError(t, err)
}

func TestRecordingSinkWarnings(t *testing.T) {
	sink := &RecordingSink{}

	require.NoError(t, sink.RecordTransition(&inventory.TransitionRecord{EntityID: "a", Level: inventory.AuditLevelInfo}))
	require.NoError(t, sink.RecordTransition(&inventory.TransitionRecord{EntityID: "b", Level: inventory.AuditLevelWarning}))

	warnings := sink.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "b", warnings[0].EntityID)
}
