package issues

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

func TestFind(t *testing.T) {
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

	unitTemplate := func(id string) inventory.FieldUnit {
		return inventory.FieldUnit{
			Base:       inventory.Base{ID: id, Name: id},
			Vendor:     "shure",
			State:      inventory.FieldUnitStateOnline,
			Battery:    80,
			LastSeenAt: now.Add(-time.Minute),
		}
	}

	tests := []struct {
		name     string
		only     []Type
		omit     []Type
		severity Severity
		config   func(c *Config)
		want     map[string][]Type
	}{
		{
			name: "healthy fleet has no issues",
			config: func(c *Config) {
				c.FieldUnits = inventory.FieldUnits{unitTemplate("good")}
			},
			want: map[string][]Type{},
		},
		{
			name: "low battery",
			config: func(c *Config) {
				low := unitTemplate("low")
				low.Battery = 12
				c.FieldUnits = inventory.FieldUnits{unitTemplate("good"), low}
			},
			want: map[string][]Type{
				"low": {TypeBatteryLow},
			},
		},
		{
			name: "unknown battery sentinel is not low",
			config: func(c *Config) {
				u := unitTemplate("sentinel")
				u.Battery = inventory.BatteryUnknown
				c.FieldUnits = inventory.FieldUnits{u}
			},
			want: map[string][]Type{},
		},
		{
			name: "stale while claiming to be active",
			config: func(c *Config) {
				stale := unitTemplate("stale")
				stale.LastSeenAt = now.Add(-time.Hour)
				offline := unitTemplate("offline")
				offline.State = inventory.FieldUnitStateOffline
				offline.LastSeenAt = now.Add(-time.Hour)
				c.FieldUnits = inventory.FieldUnits{stale, offline}
			},
			want: map[string][]Type{
				"stale": {TypeStaleFieldUnit},
			},
		},
		{
			name: "conflicting and unclassified staged records",
			config: func(c *Config) {
				c.Discovered = []inventory.DiscoveredDevice{
					{
						Base:       inventory.Base{ID: "conflicted"},
						Vendor:     "shure",
						DeviceType: inventory.DeviceTypeChassis,
						Status:     inventory.StatusIncompatible,
					},
					{
						Base:       inventory.Base{ID: "unclassified"},
						Vendor:     "sennheiser",
						DeviceType: inventory.DeviceTypeUnknown,
						Status:     inventory.StatusPending,
					},
				}
			},
			want: map[string][]Type{
				"conflicted":   {TypeIdentityConflict},
				"unclassified": {TypeUnclassifiedDevice},
			},
		},
		{
			name: "retired chassis still referenced by units",
			config: func(c *Config) {
				c.Chassis = inventory.Chassiss{
					{Base: inventory.Base{ID: "gone", Name: "gone"}, State: inventory.ChassisStateRetired},
					{Base: inventory.Base{ID: "alive", Name: "alive"}, State: inventory.ChassisStateOnline},
				}
				docked := unitTemplate("docked")
				docked.ChassisID = "gone"
				c.FieldUnits = inventory.FieldUnits{docked}
			},
			want: map[string][]Type{
				"gone": {TypeRetiredReferenced},
			},
		},
		{
			name: "retired chassis without references is fine",
			config: func(c *Config) {
				c.Chassis = inventory.Chassiss{
					{Base: inventory.Base{ID: "gone"}, State: inventory.ChassisStateRetired},
				}
			},
			want: map[string][]Type{},
		},
		{
			name: "only filter",
			only: []Type{TypeBatteryLow},
			config: func(c *Config) {
				low := unitTemplate("low")
				low.Battery = 12
				low.LastSeenAt = now.Add(-time.Hour)
				c.FieldUnits = inventory.FieldUnits{low}
			},
			want: map[string][]Type{
				"low": {TypeBatteryLow},
			},
		},
		{
			name: "omit filter",
			omit: []Type{TypeBatteryLow},
			config: func(c *Config) {
				low := unitTemplate("low")
				low.Battery = 12
				c.FieldUnits = inventory.FieldUnits{low}
			},
			want: map[string][]Type{},
		},
		{
			name:     "severity filter drops minor issues",
			severity: SeverityMajor,
			config: func(c *Config) {
				c.Discovered = []inventory.DiscoveredDevice{
					{
						Base:       inventory.Base{ID: "unclassified"},
						DeviceType: inventory.DeviceTypeUnknown,
						Status:     inventory.StatusPending,
					},
				}
			},
			want: map[string][]Type{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Only:     tt.only,
				Omit:     tt.omit,
				Severity: tt.severity,
				Now:      now,
			}
			tt.config(c)

			got, err := Find(c)
			require.NoError(t, err)

			gotTypes := map[string][]Type{}
			for _, e := range got {
				for _, i := range e.Issues {
					gotTypes[e.ID] = append(gotTypes[e.ID], i.Type)
				}
			}
			assert.Equal(t, tt.want, gotTypes)
		})
	}
}

func TestFindResultIsSorted(t *testing.T) {
	c := &Config{
		Discovered: []inventory.DiscoveredDevice{
			{Base: inventory.Base{ID: "b"}, Status: inventory.StatusIncompatible, DeviceType: inventory.DeviceTypeChassis},
			{Base: inventory.Base{ID: "a"}, Status: inventory.StatusIncompatible, DeviceType: inventory.DeviceTypeChassis},
		},
	}

	got, err := Find(c)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	assert.NotNil(t, got.Get("a"))
	assert.Nil(t, got.Get("zzz"))
}

func TestSeverityFromString(t *testing.T) {
	for _, s := range AllSeverities() {
		got, err := SeverityFromString(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := SeverityFromString("fatal")
	require.Error(t, err)
}

func TestAllIssuesCoversAllTypes(t *testing.T) {
	assert.Len(t, AllIssues(), len(AllIssueTypes()))
}
