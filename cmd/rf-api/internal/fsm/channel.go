package fsm

import (
	"github.com/looplab/fsm"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

// ChannelEvents returns the transition table of the RF channel resource
// state. Disabled can be reached from every state but only leads back to
// free, a disabled channel never becomes active directly.
func ChannelEvents() fsm.Events {
	return fsm.Events{
		{
			Name: inventory.ChannelStateReserved.String(),
			Src: []string{
				inventory.ChannelStateFree.String(),
			},
			Dst: inventory.ChannelStateReserved.String(),
		},
		{
			Name: inventory.ChannelStateActive.String(),
			Src: []string{
				inventory.ChannelStateReserved.String(),
				inventory.ChannelStateDegraded.String(),
			},
			Dst: inventory.ChannelStateActive.String(),
		},
		{
			Name: inventory.ChannelStateDegraded.String(),
			Src: []string{
				inventory.ChannelStateActive.String(),
			},
			Dst: inventory.ChannelStateDegraded.String(),
		},
		{
			Name: inventory.ChannelStateDisabled.String(),
			Src: []string{
				inventory.ChannelStateFree.String(),
				inventory.ChannelStateReserved.String(),
				inventory.ChannelStateActive.String(),
				inventory.ChannelStateDegraded.String(),
			},
			Dst: inventory.ChannelStateDisabled.String(),
		},
		{
			Name: inventory.ChannelStateFree.String(),
			Src: []string{
				inventory.ChannelStateDisabled.String(),
				inventory.ChannelStateReserved.String(),
			},
			Dst: inventory.ChannelStateFree.String(),
		},
	}
}

// NextChannel validates the transition of the given channel into the new
// state and returns a copy. A disabled channel keeps its enabled flag, the
// flag is only written through ForceDisable and Enable.
func NextChannel(c *inventory.RFChannel, new inventory.ChannelState) (*inventory.RFChannel, error) {
	if !c.Enabled && new != inventory.ChannelStateDisabled {
		return nil, inventory.Conflict("channel %q is not enabled, enable it before transitioning to %q", c.ID, new)
	}

	if err := validate(ChannelEvents(), c.ID, c.State.String(), new.String()); err != nil {
		return nil, err
	}

	clone := *c
	next := &clone
	next.State = new

	return next, nil
}

// ForceDisable clears the enabled flag and forces the resource state to
// disabled without consulting the transition table. This is the derived
// effect of an enabled=false write and must not re-enter the validation
// pipeline.
func ForceDisable(c *inventory.RFChannel) *inventory.RFChannel {
	clone := *c
	next := &clone
	next.Enabled = false
	next.State = inventory.ChannelStateDisabled

	return next
}

// Enable sets the enabled flag without touching the resource state. The
// channel stays disabled until it is explicitly moved back to free.
func Enable(c *inventory.RFChannel) *inventory.RFChannel {
	clone := *c
	next := &clone
	next.Enabled = true

	return next
}
