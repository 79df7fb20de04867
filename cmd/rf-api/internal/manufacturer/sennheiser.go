package manufacturer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

const sennheiserCode = "sennheiser"

// sennheiserPlugin talks to the control cockpit's media control API.
type sennheiserPlugin struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func init() {
	Register(sennheiserCode, NewSennheiser)
}

// NewSennheiser creates the Sennheiser plugin. The config requires an
// "endpoint", an "api-key" is optional.
func NewSennheiser(config map[string]string) (Plugin, error) {
	endpoint, ok := config["endpoint"]
	if !ok || endpoint == "" {
		return nil, fmt.Errorf("sennheiser plugin requires an %q config entry", "endpoint")
	}

	return &sennheiserPlugin{
		endpoint: endpoint,
		apiKey:   config["api-key"],
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (p *sennheiserPlugin) Code() string {
	return sennheiserCode
}

func (p *sennheiserPlugin) FetchCandidates(ctx context.Context) ([]RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/api/devices", nil)
	if err != nil {
		return nil, err
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sennheiser cockpit returned status %d", resp.StatusCode)
	}

	var body struct {
		Devices []map[string]interface{} `json:"devices"`
	}
	err = json.NewDecoder(resp.Body).Decode(&body)
	if err != nil {
		return nil, err
	}

	records := make([]RawRecord, 0, len(body.Devices))
	for _, payload := range body.Devices {
		records = append(records, RawRecord{Vendor: sennheiserCode, Payload: payload})
	}

	return records, nil
}

func (p *sennheiserPlugin) Normalize(r RawRecord) (*inventory.DiscoveredDevice, error) {
	serial := payloadString(r.Payload, "serial")
	mac := payloadString(r.Payload, "mac")
	address := payloadString(r.Payload, "ipv4")
	apiID := payloadString(r.Payload, "id")
	model := payloadString(r.Payload, "product")

	if serial == "" && mac == "" && address == "" && apiID == "" {
		return nil, fmt.Errorf("sennheiser record for product %q carries no identity field", model)
	}

	if mac != "" {
		normalized, err := NormalizeMAC(mac)
		if err != nil {
			return nil, fmt.Errorf("sennheiser record has invalid mac %q: %w", mac, err)
		}
		mac = normalized
	}
	if address != "" {
		normalized, err := NormalizeAddress(address)
		if err != nil {
			return nil, fmt.Errorf("sennheiser record has invalid address %q: %w", address, err)
		}
		address = normalized
	}

	return &inventory.DiscoveredDevice{
		Base: inventory.Base{
			Name: payloadString(r.Payload, "name"),
		},
		Vendor:       sennheiserCode,
		Address:      address,
		DeviceType:   ClassifyDeviceType(model),
		Model:        model,
		ChannelCount: payloadInt(r.Payload, "channels"),
		Status:       p.MapStatus(r),
		Serial:       serial,
		MacAddress:   mac,
		VendorAPIID:  apiID,
		Metadata:     r.Payload,
	}, nil
}

var sennheiserStatuses = map[string]inventory.CanonicalStatus{
	"active":       inventory.StatusReady,
	"idle":         inventory.StatusReady,
	"discovering":  inventory.StatusPending,
	"unregistered": inventory.StatusPending,
	"incompatible": inventory.StatusIncompatible,
	"error":        inventory.StatusError,
	"offline":      inventory.StatusOffline,
}

func (p *sennheiserPlugin) MapStatus(r RawRecord) inventory.CanonicalStatus {
	s, ok := sennheiserStatuses[payloadString(r.Payload, "state")]
	if !ok {
		return inventory.StatusUnknown
	}
	return s
}

// payloadString reads a top-level string field from a vendor payload.
func payloadString(payload map[string]interface{}, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// payloadInt reads a top-level numeric field from a vendor payload. JSON
// numbers decode as float64.
func payloadInt(payload map[string]interface{}, key string) int {
	v, ok := payload[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
