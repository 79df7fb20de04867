package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

// Promote turns a staged discovery record into a managed entity. Only
// records in ready status are eligible, everything else stays staged until
// an operator resolved it. The staged record is removed once the managed
// entity exists.
func (r *Reconciler) Promote(ctx context.Context, deviceID string) (inventory.Entity, error) {
	d, err := r.discovered.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if d.Status != inventory.StatusReady {
		return nil, inventory.Conflict("discovered device %q has status %q, only %q can be promoted", d.ID, d.Status, inventory.StatusReady)
	}

	// the registry may have changed since this record was staged, the
	// database cannot enforce identity uniqueness on its own. a record whose
	// identity is managed by now belongs to reconciliation, not promotion.
	snapshot, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	match, err := Match(d, snapshot)
	if err != nil {
		return nil, err
	}
	switch match.Outcome {
	case OutcomeNew:
	case OutcomeConflict:
		return nil, inventory.Conflict("discovered device %q matches %d managed entities, resolve the conflict before promotion", d.ID, len(match.ConflictRefs))
	default:
		return nil, inventory.Conflict("discovered device %q is already managed as %s %q", d.ID, match.Entity.Kind, match.Entity.ID)
	}

	var entity inventory.Entity
	switch d.DeviceType {
	case inventory.DeviceTypeChassis:
		entity, err = r.promoteChassis(ctx, d)
	case inventory.DeviceTypeFieldUnit:
		entity, err = r.promoteFieldUnit(ctx, d)
	default:
		return nil, inventory.Conflict("discovered device %q has device type %q, classify it before promotion", d.ID, d.DeviceType)
	}
	if err != nil {
		return nil, err
	}

	err = r.discovered.Delete(ctx, d)
	if err != nil {
		r.log.Errorw("promoted device still staged, cleanup failed", "device", d.ID, "error", err)
	}

	return entity, nil
}

func (r *Reconciler) promoteChassis(ctx context.Context, d *inventory.DiscoveredDevice) (*inventory.Chassis, error) {
	c := &inventory.Chassis{
		Base: inventory.Base{
			ID:   uuid.New().String(),
			Name: d.Name,
		},
		Vendor:      d.Vendor,
		Serial:      d.Serial,
		MacAddress:  d.MacAddress,
		Address:     d.Address,
		VendorAPIID: d.VendorAPIID,
		Model:       d.Model,
		State:       inventory.ChassisStateDiscovered,
	}

	err := r.chassis.Create(ctx, c)
	if err != nil {
		return nil, err
	}

	for i := 1; i <= d.ChannelCount; i++ {
		ch := &inventory.RFChannel{
			Base: inventory.Base{
				ID:   fmt.Sprintf("%s-ch%d", c.ID, i),
				Name: fmt.Sprintf("%s channel %d", c.Name, i),
			},
			ChassisID: c.ID,
			Number:    i,
			Direction: inventory.ChannelDirectionReceive,
			Enabled:   true,
			State:     inventory.ChannelStateFree,
		}
		err = r.channels.Create(ctx, ch)
		if err != nil {
			return nil, err
		}
	}

	err = r.sink.Notify(inventory.TopicChassis, inventory.ChassisEvent{Type: inventory.CREATE, New: c})
	if err != nil {
		r.log.Errorw("cannot notify chassis creation", "chassis", c.ID, "error", err)
	}

	return c, nil
}

func (r *Reconciler) promoteFieldUnit(ctx context.Context, d *inventory.DiscoveredDevice) (*inventory.FieldUnit, error) {
	u := &inventory.FieldUnit{
		Base: inventory.Base{
			ID:   uuid.New().String(),
			Name: d.Name,
		},
		Vendor:      d.Vendor,
		Serial:      d.Serial,
		MacAddress:  d.MacAddress,
		Address:     d.Address,
		VendorAPIID: d.VendorAPIID,
		Model:       d.Model,
		State:       inventory.FieldUnitStateDiscovered,
		Battery:     inventory.BatteryUnknown,
	}

	err := r.fieldUnits.Create(ctx, u)
	if err != nil {
		return nil, err
	}

	err = r.sink.Notify(inventory.TopicFieldUnit, inventory.FieldUnitEvent{Type: inventory.CREATE, New: u})
	if err != nil {
		r.log.Errorw("cannot notify field unit creation", "fieldunit", u.ID, "error", err)
	}

	return u, nil
}
