package issues

import (
	"fmt"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

const (
	TypeUnclassifiedDevice Type = "unclassified-device"
)

type (
	issueUnclassifiedDevice struct {
		details string
	}
)

func (i *issueUnclassifiedDevice) Spec() *spec {
	return &spec{
		Type:        TypeUnclassifiedDevice,
		Severity:    SeverityMinor,
		Description: "the discovered device could not be classified as chassis or field unit",
	}
}

func (i *issueUnclassifiedDevice) Evaluate(s subject, c *Config) bool {
	if s.device == nil {
		return false
	}

	if s.device.DeviceType != inventory.DeviceTypeUnknown {
		return false
	}

	i.details = fmt.Sprintf("model %q of vendor %q", s.device.Model, s.device.Vendor)

	return true
}

func (i *issueUnclassifiedDevice) Details() string {
	return i.details
}
