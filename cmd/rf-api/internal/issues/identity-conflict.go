package issues

import (
	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

const (
	TypeIdentityConflict Type = "identity-conflict"
)

type (
	issueIdentityConflict struct {
		details string
	}
)

func (i *issueIdentityConflict) Spec() *spec {
	return &spec{
		Type:        TypeIdentityConflict,
		Severity:    SeverityCritical,
		Description: "multiple managed entities claim the identity of this discovered device",
	}
}

func (i *issueIdentityConflict) Evaluate(s subject, c *Config) bool {
	if s.device == nil {
		return false
	}

	if s.device.Status != inventory.StatusIncompatible {
		return false
	}

	i.details = s.device.Description

	return true
}

func (i *issueIdentityConflict) Details() string {
	return i.details
}
