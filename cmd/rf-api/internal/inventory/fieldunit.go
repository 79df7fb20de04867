package inventory

import "time"

// FieldUnitState is the lifecycle state of a field unit.
type FieldUnitState string

// The lifecycle states of a field unit. Idle means powered but not actively
// transmitting. Retired is terminal.
const (
	FieldUnitStateDiscovered   FieldUnitState = "discovered"
	FieldUnitStateProvisioning FieldUnitState = "provisioning"
	FieldUnitStateOnline       FieldUnitState = "online"
	FieldUnitStateIdle         FieldUnitState = "idle"
	FieldUnitStateDegraded     FieldUnitState = "degraded"
	FieldUnitStateOffline      FieldUnitState = "offline"
	FieldUnitStateMaintenance  FieldUnitState = "maintenance"
	FieldUnitStateRetired      FieldUnitState = "retired"
)

func (s FieldUnitState) String() string {
	return string(s)
}

// BatteryUnknown is the sentinel for a battery level the vendor did not
// report. It must never participate in threshold logic.
const BatteryUnknown = -1

// A FieldUnit is a body-worn or hand-held transmitter under management,
// optionally owned by a chassis slot.
type FieldUnit struct {
	Base
	Vendor      string         `json:"vendor" rethinkdb:"vendor"`
	Serial      string         `json:"serial" rethinkdb:"serial"`
	MacAddress  string         `json:"mac" rethinkdb:"mac"`
	Address     string         `json:"address" rethinkdb:"address"`
	VendorAPIID string         `json:"vendor_api_id" rethinkdb:"vendor_api_id"`
	Model       string         `json:"model" rethinkdb:"model"`
	State       FieldUnitState `json:"state" rethinkdb:"state"`
	// Battery is the battery level in percent (0-100) or BatteryUnknown.
	Battery    int       `json:"battery" rethinkdb:"battery"`
	LastSeenAt time.Time `json:"last_seen_at" rethinkdb:"last_seen_at"`
	ChassisID  string    `json:"chassis_id,omitempty" rethinkdb:"chassis_id"`
	Slot       int       `json:"slot,omitempty" rethinkdb:"slot"`
}

// TableName returns the table name of a field unit.
func (f *FieldUnit) TableName() string {
	return "fieldunit"
}

// HasKnownBattery returns true if the battery level was reported by the
// vendor and is usable for threshold logic.
func (f *FieldUnit) HasKnownBattery() bool {
	return f.Battery >= 0 && f.Battery <= 100
}

// FieldUnits is a list of field units.
type FieldUnits []FieldUnit

// FieldUnitEvent is propagated when a field unit is created/updated/deleted
// or transitions its lifecycle state.
type FieldUnitEvent struct {
	Type EventType  `json:"type,omitempty"`
	Old  *FieldUnit `json:"old,omitempty"`
	New  *FieldUnit `json:"new,omitempty"`
}
