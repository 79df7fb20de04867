package fsm

import (
	"time"

	"github.com/looplab/fsm"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

// ChassisEvents returns the transition table of the chassis lifecycle.
// Retired is terminal, it has no outbound edges.
func ChassisEvents() fsm.Events {
	return fsm.Events{
		{
			Name: inventory.ChassisStateProvisioning.String(),
			Src: []string{
				inventory.ChassisStateDiscovered.String(),
			},
			Dst: inventory.ChassisStateProvisioning.String(),
		},
		{
			Name: inventory.ChassisStateOnline.String(),
			Src: []string{
				inventory.ChassisStateProvisioning.String(),
				inventory.ChassisStateDegraded.String(),
				inventory.ChassisStateMaintenance.String(),
			},
			Dst: inventory.ChassisStateOnline.String(),
		},
		{
			Name: inventory.ChassisStateDegraded.String(),
			Src: []string{
				inventory.ChassisStateOnline.String(),
			},
			Dst: inventory.ChassisStateDegraded.String(),
		},
		{
			Name: inventory.ChassisStateOffline.String(),
			Src: []string{
				inventory.ChassisStateOnline.String(),
				inventory.ChassisStateDegraded.String(),
			},
			Dst: inventory.ChassisStateOffline.String(),
		},
		{
			Name: inventory.ChassisStateMaintenance.String(),
			Src: []string{
				inventory.ChassisStateOnline.String(),
				inventory.ChassisStateDegraded.String(),
				inventory.ChassisStateOffline.String(),
			},
			Dst: inventory.ChassisStateMaintenance.String(),
		},
		{
			Name: inventory.ChassisStateRetired.String(),
			Src: []string{
				inventory.ChassisStateMaintenance.String(),
			},
			Dst: inventory.ChassisStateRetired.String(),
		},
	}
}

// NextChassis validates the transition of the given chassis into the new
// state and returns a copy with all derived fields applied. The original is
// left untouched, an invalid transition returns an error and nothing else.
func NextChassis(c *inventory.Chassis, new inventory.ChassisState, now time.Time) (*inventory.Chassis, error) {
	if err := validate(ChassisEvents(), c.ID, c.State.String(), new.String()); err != nil {
		return nil, err
	}

	clone := *c
	next := &clone
	next.State = new

	switch new {
	case inventory.ChassisStateOnline:
		next.LastOnlineAt = now
	case inventory.ChassisStateOffline:
		next.LastOfflineAt = now
		// offline is only reachable from online-equivalent states, so the
		// interval since the last online timestamp was entirely online.
		if !next.LastOnlineAt.IsZero() {
			if elapsed := now.Sub(next.LastOnlineAt); elapsed > 0 {
				next.UptimeSeconds += int64(elapsed.Seconds())
			}
		}
	}

	return next, nil
}
