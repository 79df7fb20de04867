package issues

import "fmt"

const (
	TypeBatteryLow Type = "battery-low"
)

type (
	issueBatteryLow struct {
		details string
	}
)

func (i *issueBatteryLow) Spec() *spec {
	return &spec{
		Type:        TypeBatteryLow,
		Severity:    SeverityMajor,
		Description: "the field unit's battery is running low",
	}
}

func (i *issueBatteryLow) Evaluate(s subject, c *Config) bool {
	if s.fieldUnit == nil {
		return false
	}

	if !s.fieldUnit.HasKnownBattery() {
		return false
	}

	if s.fieldUnit.Battery > c.BatteryThreshold {
		return false
	}

	i.details = fmt.Sprintf("battery at %d%%, threshold is %d%%", s.fieldUnit.Battery, c.BatteryThreshold)

	return true
}

func (i *issueBatteryLow) Details() string {
	return i.details
}
