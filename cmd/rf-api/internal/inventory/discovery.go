package inventory

// CanonicalStatus is the closed status vocabulary all vendor-specific
// discovery signals are mapped into.
type CanonicalStatus string

// The canonical statuses of a discovered device. Vendor plugins must not
// produce any value outside of this set.
const (
	StatusReady        CanonicalStatus = "ready"
	StatusPending      CanonicalStatus = "pending"
	StatusIncompatible CanonicalStatus = "incompatible"
	StatusError        CanonicalStatus = "error"
	StatusOffline      CanonicalStatus = "offline"
	StatusUnknown      CanonicalStatus = "unknown"
)

// AllCanonicalStatuses contains all canonical statuses that exist.
var AllCanonicalStatuses = map[CanonicalStatus]bool{
	StatusReady:        true,
	StatusPending:      true,
	StatusIncompatible: true,
	StatusError:        true,
	StatusOffline:      true,
	StatusUnknown:      true,
}

// IsValid returns true if the status is one of the canonical values.
func (s CanonicalStatus) IsValid() bool {
	return AllCanonicalStatuses[s]
}

// DeviceType categorizes a discovered device.
type DeviceType string

// The device types a discovery record can be classified as.
const (
	DeviceTypeChassis   DeviceType = "chassis"
	DeviceTypeFieldUnit DeviceType = "fieldunit"
	DeviceTypeUnknown   DeviceType = "unknown"
)

// A DiscoveredDevice is a staged candidate record produced by a discovery
// sweep. It is not yet under management; an operator promotes it into the
// registry once its status is ready.
type DiscoveredDevice struct {
	Base
	Vendor       string          `json:"vendor" rethinkdb:"vendor"`
	Address      string          `json:"address" rethinkdb:"address"`
	DeviceType   DeviceType      `json:"device_type" rethinkdb:"device_type"`
	Model        string          `json:"model" rethinkdb:"model"`
	ChannelCount int             `json:"channel_count" rethinkdb:"channel_count"`
	Status       CanonicalStatus `json:"status" rethinkdb:"status"`
	Serial       string          `json:"serial" rethinkdb:"serial"`
	MacAddress   string          `json:"mac" rethinkdb:"mac"`
	VendorAPIID  string          `json:"vendor_api_id" rethinkdb:"vendor_api_id"`
	// Metadata is the only place where vendor-specific fields may live.
	// The core never interprets it except through the accessor helpers below.
	Metadata map[string]interface{} `json:"metadata" rethinkdb:"metadata"`
}

// TableName returns the table name of a discovered device.
func (d *DiscoveredDevice) TableName() string {
	return "discovereddevice"
}

// DiscoveredDevices is a list of discovered devices.
type DiscoveredDevices []DiscoveredDevice

// DiscoveryEvent is propagated when a staged discovery record changes.
type DiscoveryEvent struct {
	Type   EventType         `json:"type,omitempty"`
	Device *DiscoveredDevice `json:"device,omitempty"`
}

// metadataString digs into the metadata bag along the given path and returns
// the string value at the end of it, or "" if any segment is missing.
func metadataString(m map[string]interface{}, path ...string) string {
	for i, p := range path {
		v, ok := m[p]
		if !ok {
			return ""
		}
		if i == len(path)-1 {
			s, ok := v.(string)
			if !ok {
				return ""
			}
			return s
		}
		m, ok = v.(map[string]interface{})
		if !ok {
			return ""
		}
	}
	return ""
}

// ShureFirmware returns the firmware version a Shure device reported, or "".
func ShureFirmware(metadata map[string]interface{}) string {
	return metadataString(metadata, "device", "firmware", "version")
}

// ShureCompatibility returns the compatibility signal of a Shure device, or "".
func ShureCompatibility(metadata map[string]interface{}) string {
	return metadataString(metadata, "device", "compatibility")
}

// SennheiserDanteMode returns the Dante audio network mode a Sennheiser
// device reported, or "".
func SennheiserDanteMode(metadata map[string]interface{}) string {
	return metadataString(metadata, "audio", "dante", "mode")
}

// SennheiserRFQuality returns the reported RF link quality of a Sennheiser
// device, or "".
func SennheiserRFQuality(metadata map[string]interface{}) string {
	return metadataString(metadata, "rf", "quality")
}
