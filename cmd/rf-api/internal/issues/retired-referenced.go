package issues

import (
	"fmt"
	"strings"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

const (
	TypeRetiredReferenced Type = "retired-referenced"
)

type (
	issueRetiredReferenced struct {
		details string
	}
)

func (i *issueRetiredReferenced) Spec() *spec {
	return &spec{
		Type:        TypeRetiredReferenced,
		Severity:    SeverityMajor,
		Description: "the chassis is retired but field units still reference it",
	}
}

func (i *issueRetiredReferenced) Evaluate(s subject, c *Config) bool {
	if s.chassis == nil {
		return false
	}

	if s.chassis.State != inventory.ChassisStateRetired {
		return false
	}

	var refs []string
	for _, u := range c.FieldUnits {
		if u.ChassisID == s.chassis.ID {
			refs = append(refs, u.ID)
		}
	}

	if len(refs) == 0 {
		return false
	}

	i.details = fmt.Sprintf("referenced by field units: %s", strings.Join(refs, ", "))

	return true
}

func (i *issueRetiredReferenced) Details() string {
	return i.details
}
