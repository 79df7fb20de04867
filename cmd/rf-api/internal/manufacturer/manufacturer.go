// Package manufacturer defines the capability contract vendor plugins have
// to implement so their discovery payloads can be reconciled against the
// registry. Concrete plugins perform the vendor network I/O and are not part
// of this core, they only register themselves here.
package manufacturer

import (
	"context"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

// A RawRecord is an uninterpreted discovery payload of a vendor plugin.
type RawRecord struct {
	Vendor  string
	Payload map[string]interface{}
}

// A Plugin normalizes vendor discovery data into the canonical intermediate
// representation. FetchCandidates may block on network I/O and may fail
// transiently, the caller retries with backoff. Normalize and MapStatus are
// pure.
type Plugin interface {
	// Code returns the unique vendor code of this plugin.
	Code() string
	// FetchCandidates pulls the current discovery records from the vendor.
	FetchCandidates(ctx context.Context) ([]RawRecord, error)
	// Normalize converts a raw record into a discovered device. The status
	// of the result is always one of the canonical values.
	Normalize(r RawRecord) (*inventory.DiscoveredDevice, error)
	// MapStatus maps the vendor status vocabulary of a raw record into the
	// canonical status domain.
	MapStatus(r RawRecord) inventory.CanonicalStatus
}

// A Constructor creates a plugin from its vendor-specific configuration.
type Constructor func(config map[string]string) (Plugin, error)

var constructors = map[string]Constructor{}

// Register registers a plugin constructor under the given vendor code.
// Registration happens once at startup, resolving by code later never uses
// reflection.
func Register(code string, c Constructor) {
	constructors[code] = c
}

// New resolves the constructor registered for the given vendor code and
// creates a plugin from it.
func New(code string, config map[string]string) (Plugin, error) {
	c, ok := constructors[code]
	if !ok {
		return nil, inventory.NotFound("no manufacturer plugin registered for code %q", code)
	}
	return c(config)
}

// Codes returns all registered vendor codes.
func Codes() []string {
	var res []string
	for code := range constructors {
		res = append(res, code)
	}
	return res
}
