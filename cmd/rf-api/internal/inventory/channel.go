package inventory

// ChannelState is the resource state of an RF channel.
type ChannelState string

// The resource states of an RF channel. A disabled channel must pass back
// through free before it can be used again.
const (
	ChannelStateFree     ChannelState = "free"
	ChannelStateReserved ChannelState = "reserved"
	ChannelStateActive   ChannelState = "active"
	ChannelStateDegraded ChannelState = "degraded"
	ChannelStateDisabled ChannelState = "disabled"
)

func (s ChannelState) String() string {
	return string(s)
}

// ChannelDirection is the link direction of an RF channel.
type ChannelDirection string

// The link directions an RF channel can have.
const (
	ChannelDirectionReceive       ChannelDirection = "receive"
	ChannelDirectionSend          ChannelDirection = "send"
	ChannelDirectionBidirectional ChannelDirection = "bidirectional"
)

// An RFChannel is an assignable communication channel on a chassis. It
// references exactly one chassis.
type RFChannel struct {
	Base
	ChassisID string           `json:"chassis_id" rethinkdb:"chassis_id"`
	Number    int              `json:"number" rethinkdb:"number"`
	Direction ChannelDirection `json:"direction" rethinkdb:"direction"`
	Enabled   bool             `json:"enabled" rethinkdb:"enabled"`
	State     ChannelState     `json:"state" rethinkdb:"state"`
}

// TableName returns the table name of an RF channel.
func (c *RFChannel) TableName() string {
	return "rfchannel"
}

// RFChannels is a list of RF channels.
type RFChannels []RFChannel

// ByChassis groups channels by their owning chassis.
func (cc RFChannels) ByChassis() map[string]RFChannels {
	res := make(map[string]RFChannels)
	for i, c := range cc {
		res[c.ChassisID] = append(res[c.ChassisID], cc[i])
	}
	return res
}

// RFChannelEvent is propagated when an RF channel is created/updated/deleted
// or transitions its resource state.
type RFChannelEvent struct {
	Type EventType  `json:"type,omitempty"`
	Old  *RFChannel `json:"old,omitempty"`
	New  *RFChannel `json:"new,omitempty"`
}
