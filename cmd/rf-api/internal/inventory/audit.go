package inventory

import "time"

// AuditLevel classifies an audit trail entry.
type AuditLevel string

// The audit levels that exist.
const (
	AuditLevelInfo    AuditLevel = "info"
	AuditLevelWarning AuditLevel = "warning"
)

// A TransitionRecord is appended to the audit trail for every committed
// lifecycle transition and for derived warning effects such as battery
// threshold crossings.
type TransitionRecord struct {
	Base
	EntityID   string     `json:"entity_id" rethinkdb:"entity_id"`
	EntityKind string     `json:"entity_kind" rethinkdb:"entity_kind"`
	OldState   string     `json:"old_state" rethinkdb:"old_state"`
	NewState   string     `json:"new_state" rethinkdb:"new_state"`
	At         time.Time  `json:"at" rethinkdb:"at"`
	Level      AuditLevel `json:"level" rethinkdb:"level"`
	Message    string     `json:"message,omitempty" rethinkdb:"message"`
}

// TableName returns the table name of a transition record.
func (t *TransitionRecord) TableName() string {
	return "audit"
}

// TransitionRecords is a list of transition records.
type TransitionRecords []TransitionRecord
