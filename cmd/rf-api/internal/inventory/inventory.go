package inventory

import "time"

// EventType is the type for change event types.
type EventType string

// NSQTopic .
type NSQTopic string

// Some enums.
const (
	CREATE     EventType = "create"
	UPDATE     EventType = "update"
	DELETE     EventType = "delete"
	MOVE       EventType = "move"
	TRANSITION EventType = "transition"

	TopicChassis   NSQTopic = "chassis"
	TopicFieldUnit NSQTopic = "fieldunit"
	TopicRFChannel NSQTopic = "rfchannel"
	TopicDiscovery NSQTopic = "discovery"
)

var (
	// Topics is a list of topics of which the rf-api is a producer.
	// rf-api will make sure these topics exist when it is started.
	Topics = []NSQTopic{
		TopicChassis,
		TopicFieldUnit,
		TopicRFChannel,
		TopicDiscovery,
	}
)

// Base implements common fields for most basic entity types (not all).
type Base struct {
	ID          string    `json:"id" rethinkdb:"id,omitempty"`
	Name        string    `json:"name" rethinkdb:"name"`
	Description string    `json:"description,omitempty" rethinkdb:"description"`
	Created     time.Time `json:"created" rethinkdb:"created"`
	Changed     time.Time `json:"changed" rethinkdb:"changed"`
}

// Entity is an interface that allows metadata access on all registry entities.
// The Changed timestamp doubles as the optimistic locking marker for updates.
type Entity interface {
	// GetID returns the entity's id
	GetID() string
	// SetID sets the entity's id
	SetID(id string)
	// GetChanged returns the entity's changed time
	GetChanged() time.Time
	// SetChanged sets the entity's changed time
	SetChanged(changed time.Time)
	// GetCreated returns the entity's creation time
	GetCreated() time.Time
	// SetCreated sets the entity's creation time
	SetCreated(created time.Time)
	// TableName returns the table name of the entity
	TableName() string
}

// GetID returns the ID of the entity
func (b *Base) GetID() string {
	return b.ID
}

// SetID sets the ID of the entity
func (b *Base) SetID(id string) {
	b.ID = id
}

// GetChanged returns the last changed timestamp of the entity
func (b *Base) GetChanged() time.Time {
	return b.Changed
}

// SetChanged sets the last changed timestamp of the entity
func (b *Base) SetChanged(changed time.Time) {
	b.Changed = changed
}

// GetCreated returns the creation timestamp of the entity
func (b *Base) GetCreated() time.Time {
	return b.Created
}

// SetCreated sets the creation timestamp of the entity
func (b *Base) SetCreated(created time.Time) {
	b.Created = created
}
