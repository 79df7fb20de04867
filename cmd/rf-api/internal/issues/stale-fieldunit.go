package issues

import (
	"fmt"
	"time"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

const (
	TypeStaleFieldUnit Type = "stale-fieldunit"
)

type (
	issueStaleFieldUnit struct {
		details string
	}
)

func (i *issueStaleFieldUnit) Spec() *spec {
	return &spec{
		Type:        TypeStaleFieldUnit,
		Severity:    SeverityMajor,
		Description: "the field unit claims to be active but has not been seen recently",
	}
}

func (i *issueStaleFieldUnit) Evaluate(s subject, c *Config) bool {
	if s.fieldUnit == nil {
		return false
	}

	switch s.fieldUnit.State {
	case inventory.FieldUnitStateOnline, inventory.FieldUnitStateIdle:
	default:
		return false
	}

	if s.fieldUnit.LastSeenAt.IsZero() {
		return false
	}

	age := c.Now.Sub(s.fieldUnit.LastSeenAt)
	if age <= c.StaleThreshold {
		return false
	}

	i.details = fmt.Sprintf("last seen %s ago in state %q", age.Round(time.Second), s.fieldUnit.State)

	return true
}

func (i *issueStaleFieldUnit) Details() string {
	return i.details
}
