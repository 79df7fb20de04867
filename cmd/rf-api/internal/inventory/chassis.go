package inventory

import "time"

// ChassisState is the lifecycle state of a chassis.
type ChassisState string

// The lifecycle states of a chassis. Retired is terminal.
const (
	ChassisStateDiscovered   ChassisState = "discovered"
	ChassisStateProvisioning ChassisState = "provisioning"
	ChassisStateOnline       ChassisState = "online"
	ChassisStateDegraded     ChassisState = "degraded"
	ChassisStateOffline      ChassisState = "offline"
	ChassisStateMaintenance  ChassisState = "maintenance"
	ChassisStateRetired      ChassisState = "retired"
)

func (s ChassisState) String() string {
	return string(s)
}

// A Chassis is a base or rack unit under management of the registry. It is
// the promotion target of a discovered device and owns RF channels and
// optionally field unit slots.
type Chassis struct {
	Base
	Vendor        string       `json:"vendor" rethinkdb:"vendor"`
	Serial        string       `json:"serial" rethinkdb:"serial"`
	MacAddress    string       `json:"mac" rethinkdb:"mac"`
	Address       string       `json:"address" rethinkdb:"address"`
	VendorAPIID   string       `json:"vendor_api_id" rethinkdb:"vendor_api_id"`
	Model         string       `json:"model" rethinkdb:"model"`
	State         ChassisState `json:"state" rethinkdb:"state"`
	LastOnlineAt  time.Time    `json:"last_online_at" rethinkdb:"last_online_at"`
	LastOfflineAt time.Time    `json:"last_offline_at" rethinkdb:"last_offline_at"`
	// UptimeSeconds accumulates the online intervals of this chassis.
	// It never decreases.
	UptimeSeconds int64 `json:"uptime_seconds" rethinkdb:"uptime_seconds"`
}

// TableName returns the table name of a chassis.
func (c *Chassis) TableName() string {
	return "chassis"
}

// Chassiss is a list of chassis. The name is intentionally odd to keep the
// entity naming convention of the datastore helpers intact.
type Chassiss []Chassis

// ChassisMap is an indexed map of chassis.
type ChassisMap map[string]Chassis

// ByID creates an indexed map from a chassis list.
func (cc Chassiss) ByID() ChassisMap {
	res := make(ChassisMap)
	for i, c := range cc {
		res[c.ID] = cc[i]
	}
	return res
}

// ChassisEvent is propagated when a chassis is created/updated/deleted or
// transitions its lifecycle state.
type ChassisEvent struct {
	Type EventType `json:"type,omitempty"`
	Old  *Chassis  `json:"old,omitempty"`
	New  *Chassis  `json:"new,omitempty"`
}
