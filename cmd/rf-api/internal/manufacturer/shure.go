package manufacturer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

const shureCode = "shure"

// minimum firmware line the reconciliation understands. Older devices are
// staged as incompatible instead of being rejected.
const shureFirmwareConstraint = ">= 2.4.0"

// shurePlugin pulls discovery records from the system controller's device
// list endpoint.
type shurePlugin struct {
	endpoint string
	client   *http.Client
}

func init() {
	Register(shureCode, NewShure)
}

// NewShure creates the Shure plugin. The config requires an "endpoint" that
// points to the vendor system controller.
func NewShure(config map[string]string) (Plugin, error) {
	endpoint, ok := config["endpoint"]
	if !ok || endpoint == "" {
		return nil, fmt.Errorf("shure plugin requires an %q config entry", "endpoint")
	}

	return &shurePlugin{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (p *shurePlugin) Code() string {
	return shureCode
}

func (p *shurePlugin) FetchCandidates(ctx context.Context) ([]RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/api/v1/devices", nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("shure controller returned status %d", resp.StatusCode)
	}

	var payloads []map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&payloads)
	if err != nil {
		return nil, err
	}

	records := make([]RawRecord, 0, len(payloads))
	for _, payload := range payloads {
		records = append(records, RawRecord{Vendor: shureCode, Payload: payload})
	}

	return records, nil
}

func (p *shurePlugin) Normalize(r RawRecord) (*inventory.DiscoveredDevice, error) {
	serial := payloadString(r.Payload, "serial_number")
	mac := payloadString(r.Payload, "mac_address")
	address := payloadString(r.Payload, "ip_address")
	apiID := payloadString(r.Payload, "device_id")
	model := payloadString(r.Payload, "model")

	if serial == "" && mac == "" && address == "" && apiID == "" {
		return nil, fmt.Errorf("shure record for model %q carries no identity field", model)
	}

	if mac != "" {
		normalized, err := NormalizeMAC(mac)
		if err != nil {
			return nil, fmt.Errorf("shure record has invalid mac %q: %w", mac, err)
		}
		mac = normalized
	}
	if address != "" {
		normalized, err := NormalizeAddress(address)
		if err != nil {
			return nil, fmt.Errorf("shure record has invalid address %q: %w", address, err)
		}
		address = normalized
	}

	d := &inventory.DiscoveredDevice{
		Base: inventory.Base{
			Name: payloadString(r.Payload, "device_name"),
		},
		Vendor:       shureCode,
		Address:      address,
		DeviceType:   ClassifyDeviceType(model),
		Model:        model,
		ChannelCount: payloadInt(r.Payload, "channel_count"),
		Status:       p.MapStatus(r),
		Serial:       serial,
		MacAddress:   mac,
		VendorAPIID:  apiID,
		Metadata:     r.Payload,
	}

	if fw := inventory.ShureFirmware(d.Metadata); fw != "" && !FirmwareCompatible(fw, shureFirmwareConstraint) {
		d.Status = inventory.StatusIncompatible
	}

	return d, nil
}

// shureStatuses is the vendor status vocabulary. Anything not listed maps
// to unknown.
var shureStatuses = map[string]inventory.CanonicalStatus{
	"ONLINE":            inventory.StatusReady,
	"READY":             inventory.StatusReady,
	"DISCOVERED":        inventory.StatusPending,
	"UNCONFIGURED":      inventory.StatusPending,
	"FIRMWARE_MISMATCH": inventory.StatusIncompatible,
	"ERROR":             inventory.StatusError,
	"FAULT":             inventory.StatusError,
	"OFFLINE":           inventory.StatusOffline,
}

func (p *shurePlugin) MapStatus(r RawRecord) inventory.CanonicalStatus {
	s, ok := shureStatuses[payloadString(r.Payload, "status")]
	if !ok {
		return inventory.StatusUnknown
	}
	return s
}
