package fsm

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

func TestNextChannelTransitions(t *testing.T) {
	tests := []struct {
		name         string
		old          inventory.ChannelState
		new          inventory.ChannelState
		enabled      bool
		wantInvalid  bool
		wantConflict bool
	}{
		{
			name:    "free to reserved",
			old:     inventory.ChannelStateFree,
			new:     inventory.ChannelStateReserved,
			enabled: true,
		},
		{
			name:    "reserved to active",
			old:     inventory.ChannelStateReserved,
			new:     inventory.ChannelStateActive,
			enabled: true,
		},
		{
			name:    "active to degraded and back",
			old:     inventory.ChannelStateDegraded,
			new:     inventory.ChannelStateActive,
			enabled: true,
		},
		{
			name:    "active to disabled",
			old:     inventory.ChannelStateActive,
			new:     inventory.ChannelStateDisabled,
			enabled: true,
		},
		{
			name:    "disabled back to free",
			old:     inventory.ChannelStateDisabled,
			new:     inventory.ChannelStateFree,
			enabled: true,
		},
		{
			name:        "disabled directly to active is rejected",
			old:         inventory.ChannelStateDisabled,
			new:         inventory.ChannelStateActive,
			enabled:     true,
			wantInvalid: true,
		},
		{
			name:        "free directly to active is rejected",
			old:         inventory.ChannelStateFree,
			new:         inventory.ChannelStateActive,
			enabled:     true,
			wantInvalid: true,
		},
		{
			name:         "not enabled channel only transitions to disabled",
			old:          inventory.ChannelStateDisabled,
			new:          inventory.ChannelStateFree,
			enabled:      false,
			wantConflict: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &inventory.RFChannel{
				Base:    inventory.Base{ID: "ch1"},
				Enabled: tt.enabled,
				State:   tt.old,
			}

			got, err := NextChannel(c, tt.new)

			switch {
			case tt.wantInvalid:
				require.Error(t, err)
				assert.True(t, inventory.IsInvalidTransition(err))
			case tt.wantConflict:
				require.Error(t, err)
				assert.True(t, inventory.IsConflict(err))
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.new, got.State)
			}
		})
	}
}

func TestForceDisableAndEnable(t *testing.T) {
	c := &inventory.RFChannel{
		Base:    inventory.Base{ID: "ch1"},
		Enabled: true,
		State:   inventory.ChannelStateActive,
	}

	disabled := ForceDisable(c)
	assert.False(t, disabled.Enabled)
	assert.Equal(t, inventory.ChannelStateDisabled, disabled.State)
	assert.Equal(t, inventory.ChannelStateActive, c.State, "original must stay untouched")

	enabled := Enable(disabled)
	assert.True(t, enabled.Enabled)
	assert.Equal(t, inventory.ChannelStateDisabled, enabled.State, "enabling must not re-activate")

	// the way back to use leads through free
	free, err := NextChannel(enabled, inventory.ChannelStateFree)
	require.NoError(t, err)
	_, err = NextChannel(free, inventory.ChannelStateReserved)
	require.NoError(t, err)
}

func TestTransitionTablesCoverAllStates(t *testing.T) {
	tests := []struct {
		name   string
		states []string
		want   []string
	}{
		{
			name:   "chassis",
			states: stateNames(ChassisEvents()),
			want:   []string{"degraded", "discovered", "maintenance", "offline", "online", "provisioning", "retired"},
		},
		{
			name:   "fieldunit",
			states: stateNames(FieldUnitEvents()),
			want:   []string{"degraded", "discovered", "idle", "maintenance", "offline", "online", "provisioning", "retired"},
		},
		{
			name:   "channel",
			states: stateNames(ChannelEvents()),
			want:   []string{"active", "degraded", "disabled", "free", "reserved"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sort.Strings(tt.states)
			if diff := cmp.Diff(tt.want, tt.states); diff != "" {
				t.Errorf("states differ (-want +got):\n%s", diff)
			}
		})
	}
}
