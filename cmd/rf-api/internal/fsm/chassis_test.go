package fsm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

func TestNextChassisTransitions(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		old     inventory.ChassisState
		new     inventory.ChassisState
		wantErr bool
	}{
		{
			name: "discovered to provisioning",
			old:  inventory.ChassisStateDiscovered,
			new:  inventory.ChassisStateProvisioning,
		},
		{
			name: "provisioning to online",
			old:  inventory.ChassisStateProvisioning,
			new:  inventory.ChassisStateOnline,
		},
		{
			name: "online to degraded",
			old:  inventory.ChassisStateOnline,
			new:  inventory.ChassisStateDegraded,
		},
		{
			name: "degraded back to online",
			old:  inventory.ChassisStateDegraded,
			new:  inventory.ChassisStateOnline,
		},
		{
			name: "degraded to offline",
			old:  inventory.ChassisStateDegraded,
			new:  inventory.ChassisStateOffline,
		},
		{
			name: "offline to maintenance",
			old:  inventory.ChassisStateOffline,
			new:  inventory.ChassisStateMaintenance,
		},
		{
			name: "maintenance recovery to online",
			old:  inventory.ChassisStateMaintenance,
			new:  inventory.ChassisStateOnline,
		},
		{
			name: "maintenance to retired",
			old:  inventory.ChassisStateMaintenance,
			new:  inventory.ChassisStateRetired,
		},
		{
			name:    "discovered directly to online is rejected",
			old:     inventory.ChassisStateDiscovered,
			new:     inventory.ChassisStateOnline,
			wantErr: true,
		},
		{
			name:    "offline directly to online is rejected",
			old:     inventory.ChassisStateOffline,
			new:     inventory.ChassisStateOnline,
			wantErr: true,
		},
		{
			name:    "retired is terminal",
			old:     inventory.ChassisStateRetired,
			new:     inventory.ChassisStateMaintenance,
			wantErr: true,
		},
		{
			name:    "online directly to retired is rejected",
			old:     inventory.ChassisStateOnline,
			new:     inventory.ChassisStateRetired,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &inventory.Chassis{
				Base:  inventory.Base{ID: "c1"},
				State: tt.old,
			}

			got, err := NextChassis(c, tt.new, now)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, inventory.IsInvalidTransition(err))
				assert.Nil(t, got)
				assert.Equal(t, tt.old, c.State, "original must stay untouched")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.new, got.State)
			assert.Equal(t, tt.old, c.State, "original must stay untouched")
		})
	}
}

func TestNextChassisDerivedTimestamps(t *testing.T) {
	t0 := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

	c := &inventory.Chassis{
		Base:  inventory.Base{ID: "c1"},
		State: inventory.ChassisStateProvisioning,
	}

	c, err := NextChassis(c, inventory.ChassisStateOnline, t0)
	require.NoError(t, err)
	assert.Equal(t, t0, c.LastOnlineAt)
	assert.Zero(t, c.UptimeSeconds)

	t1 := t0.Add(90 * time.Second)
	c, err = NextChassis(c, inventory.ChassisStateOffline, t1)
	require.NoError(t, err)
	assert.Equal(t, t1, c.LastOfflineAt)
	assert.Equal(t, int64(90), c.UptimeSeconds)

	// a second online interval accumulates on top of the first
	t2 := t1.Add(10 * time.Minute)
	c, err = NextChassis(c, inventory.ChassisStateMaintenance, t2)
	require.NoError(t, err)
	c, err = NextChassis(c, inventory.ChassisStateOnline, t2)
	require.NoError(t, err)

	t3 := t2.Add(30 * time.Second)
	c, err = NextChassis(c, inventory.ChassisStateDegraded, t3)
	require.NoError(t, err)
	t4 := t3.Add(30 * time.Second)
	c, err = NextChassis(c, inventory.ChassisStateOffline, t4)
	require.NoError(t, err)

	assert.Equal(t, int64(90+60), c.UptimeSeconds)
	assert.Equal(t, t4, c.LastOfflineAt)
}

func TestNextChassisNoUptimeWithoutOnlineTimestamp(t *testing.T) {
	now := time.Now()

	c := &inventory.Chassis{
		Base:  inventory.Base{ID: "c1"},
		State: inventory.ChassisStateDegraded,
	}

	got, err := NextChassis(c, inventory.ChassisStateOffline, now)
	require.NoError(t, err)
	assert.Zero(t, got.UptimeSeconds)
}
