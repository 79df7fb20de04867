// Package lifecycle drives the per-entity state machines over the registry.
// Every transition is validated against the transition table before any
// write happens, the state write and its derived fields go into the registry
// as one document update, and the audit trail and change notifications are
// emitted after the write committed.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/datastore"
	"github.com/soundstack/rf-api/cmd/rf-api/internal/eventbus"
	"github.com/soundstack/rf-api/cmd/rf-api/internal/fsm"
	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
	"github.com/soundstack/rf-api/cmd/rf-api/internal/metrics"
	"github.com/soundstack/rf-api/cmd/rf-api/internal/scopeconfig"
)

// batteryThresholdsKey is resolved along the manufacturer scope chain to
// override the default warning boundaries.
const batteryThresholdsKey = "fieldunit.battery.warn-thresholds"

// ChannelDisabler performs the direct channel writes that must not pass
// through the transition validation pipeline.
type ChannelDisabler interface {
	ForceDisableChannel(ctx context.Context, channelID string) error
	ForceDisableChannelsOfChassis(ctx context.Context, chassisID string) error
}

// Engine applies validated lifecycle transitions with their derived effects.
type Engine struct {
	log        *zap.SugaredLogger
	chassis    datastore.Storage[*inventory.Chassis]
	fieldUnits datastore.Storage[*inventory.FieldUnit]
	channels   datastore.Storage[*inventory.RFChannel]
	audit      datastore.Storage[*inventory.TransitionRecord]
	disabler   ChannelDisabler
	sink       eventbus.Sink
	resolver   scopeconfig.Resolver
	now        func() time.Time
}

// NewEngine creates a lifecycle engine over the given registry.
func NewEngine(log *zap.Logger, rs *datastore.RethinkStore, sink eventbus.Sink, resolver scopeconfig.Resolver) *Engine {
	return &Engine{
		log:        log.Sugar(),
		chassis:    rs.Chassis(),
		fieldUnits: rs.FieldUnit(),
		channels:   rs.RFChannel(),
		audit:      rs.Audit(),
		disabler:   rs,
		sink:       sink,
		resolver:   resolver,
		now:        time.Now,
	}
}

// TransitionChassis moves a chassis into a new lifecycle state. Retiring a
// chassis additionally disables all of its channels.
func (e *Engine) TransitionChassis(ctx context.Context, id string, new inventory.ChassisState) (*inventory.Chassis, error) {
	old, err := e.chassis.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := fsm.NextChassis(old, new, e.now())
	if err != nil {
		return nil, err
	}

	err = e.chassis.Update(ctx, next, old)
	if err != nil {
		return nil, err
	}

	if new == inventory.ChassisStateRetired {
		err = e.disabler.ForceDisableChannelsOfChassis(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	e.committed(ctx, &inventory.TransitionRecord{
		EntityID:   id,
		EntityKind: old.TableName(),
		OldState:   old.State.String(),
		NewState:   new.String(),
		At:         next.Changed,
		Level:      inventory.AuditLevelInfo,
	}, inventory.TopicChassis, inventory.ChassisEvent{Type: inventory.TRANSITION, Old: old, New: next})

	metrics.CountTransition(old.TableName(), old.State.String(), new.String())

	return next, nil
}

// TransitionFieldUnit moves a field unit into a new lifecycle state.
func (e *Engine) TransitionFieldUnit(ctx context.Context, id string, new inventory.FieldUnitState) (*inventory.FieldUnit, error) {
	old, err := e.fieldUnits.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := fsm.NextFieldUnit(old, new, e.now())
	if err != nil {
		return nil, err
	}

	err = e.fieldUnits.Update(ctx, next, old)
	if err != nil {
		return nil, err
	}

	e.committed(ctx, &inventory.TransitionRecord{
		EntityID:   id,
		EntityKind: old.TableName(),
		OldState:   old.State.String(),
		NewState:   new.String(),
		At:         next.Changed,
		Level:      inventory.AuditLevelInfo,
	}, inventory.TopicFieldUnit, inventory.FieldUnitEvent{Type: inventory.TRANSITION, Old: old, New: next})

	metrics.CountTransition(old.TableName(), old.State.String(), new.String())

	return next, nil
}

// TransitionChannel moves an RF channel into a new resource state.
func (e *Engine) TransitionChannel(ctx context.Context, id string, new inventory.ChannelState) (*inventory.RFChannel, error) {
	old, err := e.channels.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := fsm.NextChannel(old, new)
	if err != nil {
		return nil, err
	}

	err = e.channels.Update(ctx, next, old)
	if err != nil {
		return nil, err
	}

	e.committed(ctx, &inventory.TransitionRecord{
		EntityID:   id,
		EntityKind: old.TableName(),
		OldState:   old.State.String(),
		NewState:   new.String(),
		At:         next.Changed,
		Level:      inventory.AuditLevelInfo,
	}, inventory.TopicRFChannel, inventory.RFChannelEvent{Type: inventory.TRANSITION, Old: old, New: next})

	metrics.CountTransition(old.TableName(), old.State.String(), new.String())

	return next, nil
}

// SetChannelEnabled writes the enabled flag of a channel. Disabling forces
// the resource state to disabled in one direct write, enabling never
// implicitly re-activates the channel.
func (e *Engine) SetChannelEnabled(ctx context.Context, id string, enabled bool) (*inventory.RFChannel, error) {
	old, err := e.channels.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !enabled {
		err = e.disabler.ForceDisableChannel(ctx, id)
		if err != nil {
			return nil, err
		}

		next := fsm.ForceDisable(old)

		e.committed(ctx, &inventory.TransitionRecord{
			EntityID:   id,
			EntityKind: old.TableName(),
			OldState:   old.State.String(),
			NewState:   inventory.ChannelStateDisabled.String(),
			At:         e.now(),
			Level:      inventory.AuditLevelInfo,
			Message:    "channel disabled by operator",
		}, inventory.TopicRFChannel, inventory.RFChannelEvent{Type: inventory.TRANSITION, Old: old, New: next})

		return next, nil
	}

	next := fsm.Enable(old)
	err = e.channels.Update(ctx, next, old)
	if err != nil {
		return nil, err
	}

	err = e.sink.Notify(inventory.TopicRFChannel, inventory.RFChannelEvent{Type: inventory.UPDATE, Old: old, New: next})
	if err != nil {
		e.log.Errorw("cannot notify channel update", "channel", id, "error", err)
	}

	return next, nil
}

// UpdateBattery writes a battery level to a field unit and emits one warning
// audit entry per threshold boundary the write crossed downwards.
func (e *Engine) UpdateBattery(ctx context.Context, id string, level int) (*inventory.FieldUnit, error) {
	old, err := e.fieldUnits.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	thresholds, err := scopeconfig.GetIntSlice(ctx, e.resolver, batteryThresholdsKey, e.scopeChain(old.Vendor), fsm.DefaultBatteryThresholds)
	if err != nil {
		return nil, err
	}

	next, crossed := fsm.NextBattery(old, level, thresholds)

	err = e.fieldUnits.Update(ctx, next, old)
	if err != nil {
		return nil, err
	}

	for _, boundary := range crossed {
		e.committed(ctx, &inventory.TransitionRecord{
			EntityID:   id,
			EntityKind: old.TableName(),
			OldState:   old.State.String(),
			NewState:   next.State.String(),
			At:         next.Changed,
			Level:      inventory.AuditLevelWarning,
			Message:    fmt.Sprintf("battery dropped below %d%% (%d%% -> %d%%)", boundary, old.Battery, level),
		}, inventory.TopicFieldUnit, inventory.FieldUnitEvent{Type: inventory.UPDATE, Old: old, New: next})
	}

	return next, nil
}

func (e *Engine) scopeChain(vendor string) scopeconfig.ScopeChain {
	return scopeconfig.ScopeChain{
		{Kind: "manufacturer", ID: vendor},
		{Kind: "global"},
	}
}

// committed persists the audit record and forwards it to the sink. The
// entity write already succeeded at this point, failures here are logged
// but do not undo the transition.
func (e *Engine) committed(ctx context.Context, rec *inventory.TransitionRecord, topic inventory.NSQTopic, event interface{}) {
	rec.ID = uuid.New().String()

	if err := e.audit.Create(ctx, rec); err != nil {
		e.log.Errorw("cannot persist audit record", "entity", rec.EntityID, "error", err)
	}
	if err := e.sink.RecordTransition(rec); err != nil {
		e.log.Errorw("cannot record transition", "entity", rec.EntityID, "error", err)
	}
	if err := e.sink.Notify(topic, event); err != nil {
		e.log.Errorw("cannot notify change event", "entity", rec.EntityID, "topic", topic, "error", err)
	}
}
