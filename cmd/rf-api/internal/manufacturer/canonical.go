package manufacturer

import (
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

// NormalizeAddress parses and canonicalizes a network address as reported by
// a vendor. Plain addresses and host:port forms are accepted, the result is
// the canonical textual form so address comparisons in the matcher are
// byte-exact.
func NormalizeAddress(address string) (string, error) {
	host := address
	port := ""

	if h, p, err := net.SplitHostPort(address); err == nil {
		host, port = h, p
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return "", fmt.Errorf("unparsable network address %q: %w", address, err)
	}

	if port != "" {
		return net.JoinHostPort(addr.String(), port), nil
	}
	return addr.String(), nil
}

// NormalizeMAC canonicalizes a MAC address to lower case colon notation.
func NormalizeMAC(mac string) (string, error) {
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return "", fmt.Errorf("unparsable mac address %q: %w", mac, err)
	}
	return hw.String(), nil
}

// ClassifyDeviceType derives the canonical device type from the vendor's
// model string. Vendors disagree on naming, so the classification is by
// well-known substrings and falls back to unknown.
func ClassifyDeviceType(model string) inventory.DeviceType {
	m := strings.ToLower(model)

	switch {
	case strings.Contains(m, "charger"), strings.Contains(m, "rack"), strings.Contains(m, "base"), strings.Contains(m, "receiver"):
		return inventory.DeviceTypeChassis
	case strings.Contains(m, "bodypack"), strings.Contains(m, "handheld"), strings.Contains(m, "beltpack"), strings.Contains(m, "transmitter"):
		return inventory.DeviceTypeFieldUnit
	default:
		return inventory.DeviceTypeUnknown
	}
}

// FirmwareCompatible checks a reported firmware version against a vendor's
// minimum supported constraint, e.g. ">= 2.4.0". An empty or unparsable
// version is reported as incompatible because the vendor gave no usable
// compatibility signal.
func FirmwareCompatible(version string, constraint string) bool {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false
	}

	v, err := semver.NewVersion(strings.TrimPrefix(version, "v"))
	if err != nil {
		return false
	}

	return c.Check(v)
}
