package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

func TestPromoteChassis(t *testing.T) {
	tr := newTestReconciler(t)

	staged := &inventory.DiscoveredDevice{
		Base:         inventory.Base{ID: "shure-sn-1", Name: "rack 1"},
		Vendor:       "shure",
		Serial:       "SN-1",
		Address:      "10.0.0.1:2202",
		DeviceType:   inventory.DeviceTypeChassis,
		Model:        "AD4Q rack receiver",
		ChannelCount: 4,
		Status:       inventory.StatusReady,
	}
	require.NoError(t, tr.discovered.Upsert(context.Background(), staged))

	entity, err := tr.Promote(context.Background(), "shure-sn-1")
	require.NoError(t, err)

	c, ok := entity.(*inventory.Chassis)
	require.True(t, ok)
	assert.Equal(t, inventory.ChassisStateDiscovered, c.State)
	assert.Equal(t, "SN-1", c.Serial)
	assert.Equal(t, "rack 1", c.Name)

	channels, err := tr.channels.List(context.Background())
	require.NoError(t, err)
	require.Len(t, channels, 4)
	for _, ch := range channels {
		assert.Equal(t, c.ID, ch.ChassisID)
		assert.Equal(t, inventory.ChannelStateFree, ch.State)
		assert.True(t, ch.Enabled)
	}

	// the staged record is resolved
	_, err = tr.discovered.Get(context.Background(), "shure-sn-1")
	require.Error(t, err)
	assert.True(t, inventory.IsNotFound(err))
}

func TestPromoteFieldUnit(t *testing.T) {
	tr := newTestReconciler(t)

	staged := &inventory.DiscoveredDevice{
		Base:       inventory.Base{ID: "sennheiser-bp-9", Name: "beltpack 9"},
		Vendor:     "sennheiser",
		Serial:     "BP-9",
		DeviceType: inventory.DeviceTypeFieldUnit,
		Status:     inventory.StatusReady,
	}
	require.NoError(t, tr.discovered.Upsert(context.Background(), staged))

	entity, err := tr.Promote(context.Background(), "sennheiser-bp-9")
	require.NoError(t, err)

	u, ok := entity.(*inventory.FieldUnit)
	require.True(t, ok)
	assert.Equal(t, inventory.FieldUnitStateDiscovered, u.State)
	assert.Equal(t, inventory.BatteryUnknown, u.Battery)
}

func TestPromoteRequiresReadyStatus(t *testing.T) {
	tr := newTestReconciler(t)

	for _, status := range []inventory.CanonicalStatus{
		inventory.StatusPending,
		inventory.StatusIncompatible,
		inventory.StatusError,
		inventory.StatusOffline,
		inventory.StatusUnknown,
	} {
		t.Run(string(status), func(t *testing.T) {
			staged := &inventory.DiscoveredDevice{
				Base:       inventory.Base{ID: "shure-" + string(status)},
				Vendor:     "shure",
				DeviceType: inventory.DeviceTypeChassis,
				Status:     status,
			}
			require.NoError(t, tr.discovered.Upsert(context.Background(), staged))

			_, err := tr.Promote(context.Background(), staged.ID)

			require.Error(t, err)
			assert.True(t, inventory.IsConflict(err))
		})
	}
}

func TestPromoteRejectsAlreadyManagedIdentity(t *testing.T) {
	tr := newTestReconciler(t)

	existing := &inventory.Chassis{
		Base:   inventory.Base{ID: "c1"},
		Vendor: "shure",
		Serial: "SN-1",
	}
	require.NoError(t, tr.chassis.Upsert(context.Background(), existing))

	// stale staged record, its serial was registered after staging
	staged := &inventory.DiscoveredDevice{
		Base:       inventory.Base{ID: "shure-sn-1"},
		Vendor:     "shure",
		Serial:     "SN-1",
		DeviceType: inventory.DeviceTypeChassis,
		Status:     inventory.StatusReady,
	}
	require.NoError(t, tr.discovered.Upsert(context.Background(), staged))

	_, err := tr.Promote(context.Background(), "shure-sn-1")

	require.Error(t, err)
	assert.True(t, inventory.IsConflict(err))

	// no second chassis was created and the record stays staged
	cc, err := tr.chassis.List(context.Background())
	require.NoError(t, err)
	require.Len(t, cc, 1)
	_, err = tr.discovered.Get(context.Background(), "shure-sn-1")
	require.NoError(t, err)
}

func TestPromoteRejectsUnclassifiedDevice(t *testing.T) {
	tr := newTestReconciler(t)

	staged := &inventory.DiscoveredDevice{
		Base:       inventory.Base{ID: "shure-x"},
		Vendor:     "shure",
		DeviceType: inventory.DeviceTypeUnknown,
		Status:     inventory.StatusReady,
	}
	require.NoError(t, tr.discovered.Upsert(context.Background(), staged))

	_, err := tr.Promote(context.Background(), "shure-x")

	require.Error(t, err)
	assert.True(t, inventory.IsConflict(err))
}
