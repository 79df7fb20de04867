package manufacturer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

func TestNewShureRequiresEndpoint(t *testing.T) {
	_, err := NewShure(map[string]string{})
	require.Error(t, err)

	_, err = NewShure(map[string]string{"endpoint": "http://controller:8080"})
	require.NoError(t, err)
}

func TestShureFetchCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/devices", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"serial_number":"SN-1","model":"AD4Q rack receiver","status":"ONLINE"},
			{"serial_number":"SN-2","model":"ADX1 Bodypack","status":"OFFLINE"}
		]`))
	}))
	defer srv.Close()

	p, err := NewShure(map[string]string{"endpoint": srv.URL})
	require.NoError(t, err)

	records, err := p.FetchCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "shure", records[0].Vendor)
	assert.Equal(t, "SN-1", records[0].Payload["serial_number"])
}

func TestShureFetchCandidatesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p, err := NewShure(map[string]string{"endpoint": srv.URL})
	require.NoError(t, err)

	_, err = p.FetchCandidates(context.Background())
	require.Error(t, err)
}

func TestShureNormalize(t *testing.T) {
	p, err := NewShure(map[string]string{"endpoint": "http://controller:8080"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload map[string]interface{}
		want    func(t *testing.T, d *inventory.DiscoveredDevice)
		wantErr bool
	}{
		{
			name: "complete chassis record",
			payload: map[string]interface{}{
				"device_name":   "stage left rack",
				"serial_number": "SN-1",
				"mac_address":   "AA-BB-CC-DD-EE-01",
				"ip_address":    "10.0.0.1:2202",
				"device_id":     "dev-1",
				"model":         "AD4Q rack receiver",
				"channel_count": float64(4),
				"status":        "ONLINE",
			},
			want: func(t *testing.T, d *inventory.DiscoveredDevice) {
				assert.Equal(t, "stage left rack", d.Name)
				assert.Equal(t, inventory.DeviceTypeChassis, d.DeviceType)
				assert.Equal(t, "aa:bb:cc:dd:ee:01", d.MacAddress)
				assert.Equal(t, 4, d.ChannelCount)
				assert.Equal(t, inventory.StatusReady, d.Status)
			},
		},
		{
			name: "old firmware forces incompatible",
			payload: map[string]interface{}{
				"serial_number": "SN-2",
				"model":         "AD4Q rack receiver",
				"status":        "ONLINE",
				"device": map[string]interface{}{
					"firmware": map[string]interface{}{"version": "2.1.0"},
				},
			},
			want: func(t *testing.T, d *inventory.DiscoveredDevice) {
				assert.Equal(t, inventory.StatusIncompatible, d.Status)
			},
		},
		{
			name: "unknown vendor status maps to unknown",
			payload: map[string]interface{}{
				"serial_number": "SN-3",
				"status":        "SOMETHING_NEW",
			},
			want: func(t *testing.T, d *inventory.DiscoveredDevice) {
				assert.Equal(t, inventory.StatusUnknown, d.Status)
			},
		},
		{
			name:    "record without any identity is rejected",
			payload: map[string]interface{}{"model": "AD4Q rack receiver"},
			wantErr: true,
		},
		{
			name: "invalid mac is rejected",
			payload: map[string]interface{}{
				"serial_number": "SN-4",
				"mac_address":   "zz:zz",
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := p.Normalize(RawRecord{Vendor: "shure", Payload: tt.payload})

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, d.Status.IsValid())
			tt.want(t, d)
		})
	}
}

func TestSennheiserNormalize(t *testing.T) {
	p, err := NewSennheiser(map[string]string{"endpoint": "http://cockpit:9000"})
	require.NoError(t, err)

	d, err := p.Normalize(RawRecord{Vendor: "sennheiser", Payload: map[string]interface{}{
		"name":     "beltpack 9",
		"serial":   "BP-9",
		"mac":      "AA:BB:CC:DD:EE:09",
		"ipv4":     "10.0.1.9",
		"id":       "dev-9",
		"product":  "SK 6212 beltpack",
		"channels": float64(1),
		"state":    "active",
	}})
	require.NoError(t, err)

	assert.Equal(t, inventory.DeviceTypeFieldUnit, d.DeviceType)
	assert.Equal(t, "aa:bb:cc:dd:ee:09", d.MacAddress)
	assert.Equal(t, "10.0.1.9", d.Address)
	assert.Equal(t, inventory.StatusReady, d.Status)
}

func TestSennheiserFetchCandidatesSendsAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"devices":[{"serial":"BP-9","state":"active"}]}`))
	}))
	defer srv.Close()

	p, err := NewSennheiser(map[string]string{"endpoint": srv.URL, "api-key": "secret"})
	require.NoError(t, err)

	records, err := p.FetchCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "sennheiser", records[0].Vendor)
}

func TestPluginRegistry(t *testing.T) {
	assert.ElementsMatch(t, []string{"shure", "sennheiser"}, Codes())

	_, err := New("unknown-vendor", nil)
	require.Error(t, err)
	assert.True(t, inventory.IsNotFound(err))
}
