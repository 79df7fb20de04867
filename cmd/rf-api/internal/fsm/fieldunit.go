package fsm

import (
	"time"

	"github.com/looplab/fsm"
	"github.com/samber/lo"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

// DefaultBatteryThresholds are the descending warning boundaries in percent
// that apply when the scoped configuration does not override them.
var DefaultBatteryThresholds = []int{25, 15, 10, 5}

// FieldUnitEvents returns the transition table of the field unit lifecycle.
// A discovered unit must pass through provisioning before it can reach any
// active state. Retired is terminal.
func FieldUnitEvents() fsm.Events {
	return fsm.Events{
		{
			Name: inventory.FieldUnitStateProvisioning.String(),
			Src: []string{
				inventory.FieldUnitStateDiscovered.String(),
			},
			Dst: inventory.FieldUnitStateProvisioning.String(),
		},
		{
			Name: inventory.FieldUnitStateOnline.String(),
			Src: []string{
				inventory.FieldUnitStateProvisioning.String(),
				inventory.FieldUnitStateIdle.String(),
				inventory.FieldUnitStateDegraded.String(),
				inventory.FieldUnitStateMaintenance.String(),
			},
			Dst: inventory.FieldUnitStateOnline.String(),
		},
		{
			Name: inventory.FieldUnitStateIdle.String(),
			Src: []string{
				inventory.FieldUnitStateOnline.String(),
			},
			Dst: inventory.FieldUnitStateIdle.String(),
		},
		{
			Name: inventory.FieldUnitStateDegraded.String(),
			Src: []string{
				inventory.FieldUnitStateOnline.String(),
			},
			Dst: inventory.FieldUnitStateDegraded.String(),
		},
		{
			Name: inventory.FieldUnitStateOffline.String(),
			Src: []string{
				inventory.FieldUnitStateOnline.String(),
				inventory.FieldUnitStateDegraded.String(),
			},
			Dst: inventory.FieldUnitStateOffline.String(),
		},
		{
			Name: inventory.FieldUnitStateMaintenance.String(),
			Src: []string{
				inventory.FieldUnitStateOnline.String(),
				inventory.FieldUnitStateDegraded.String(),
				inventory.FieldUnitStateOffline.String(),
			},
			Dst: inventory.FieldUnitStateMaintenance.String(),
		},
		{
			Name: inventory.FieldUnitStateRetired.String(),
			Src: []string{
				inventory.FieldUnitStateMaintenance.String(),
			},
			Dst: inventory.FieldUnitStateRetired.String(),
		},
	}
}

// NextFieldUnit validates the transition of the given field unit into the
// new state and returns a copy with all derived fields applied.
func NextFieldUnit(u *inventory.FieldUnit, new inventory.FieldUnitState, now time.Time) (*inventory.FieldUnit, error) {
	if err := validate(FieldUnitEvents(), u.ID, u.State.String(), new.String()); err != nil {
		return nil, err
	}

	clone := *u
	next := &clone
	next.State = new

	switch new {
	case inventory.FieldUnitStateOnline, inventory.FieldUnitStateOffline:
		next.LastSeenAt = now
	}

	return next, nil
}

// NextBattery applies a battery level write to a copy of the given field
// unit and returns the boundaries that were crossed downwards by this write.
// Increases never cross, and the vendor unknown sentinel on either side of
// the write disables the threshold logic entirely.
func NextBattery(u *inventory.FieldUnit, level int, thresholds []int) (*inventory.FieldUnit, []int) {
	clone := *u
	next := &clone
	next.Battery = level

	if !u.HasKnownBattery() || !next.HasKnownBattery() {
		return next, nil
	}

	crossed := lo.Filter(thresholds, func(boundary int, _ int) bool {
		return u.Battery > boundary && level <= boundary
	})

	return next, crossed
}
