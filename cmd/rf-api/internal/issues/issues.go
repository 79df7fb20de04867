// Package issues evaluates the fleet for conditions an operator should look
// at. Evaluation is read-only, it never changes entity state.
package issues

import (
	"fmt"
	"sort"
	"time"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

type (
	Type string

	// Config contains configuration parameters for finding fleet issues.
	Config struct {
		Chassis    inventory.Chassiss
		FieldUnits inventory.FieldUnits
		Discovered []inventory.DiscoveredDevice
		Severity   Severity
		Only       []Type
		Omit       []Type
		// StaleThreshold is how long a field unit may go unseen while its
		// state claims it is active.
		StaleThreshold time.Duration
		// BatteryThreshold is the battery percentage below which a unit is
		// reported.
		BatteryThreshold int
		Now              time.Time
	}

	// Issue formulates an issue of a fleet entity.
	Issue struct {
		Type        Type
		Severity    Severity
		Description string
		Details     string
	}

	// Issues is a list of issues.
	Issues []Issue

	// EntityWithIssues summarizes one fleet entity with its issues.
	EntityWithIssues struct {
		Kind   string
		ID     string
		Name   string
		Issues Issues
	}

	// EntityIssues is the evaluation result, sorted by entity id.
	EntityIssues []*EntityWithIssues

	entityIssuesMap map[string]*EntityWithIssues

	// subject is the uniform evaluation view over the heterogeneous fleet
	// entities. Exactly one of the entity pointers is set.
	subject struct {
		kind      string
		id        string
		name      string
		chassis   *inventory.Chassis
		fieldUnit *inventory.FieldUnit
		device    *inventory.DiscoveredDevice
	}

	issueImpl interface {
		// Evaluate decides whether the given entity has this issue.
		Evaluate(s subject, c *Config) bool
		// Spec returns the issue spec of this issue.
		Spec() *spec
		// Details returns additional information on the issue after the
		// evaluation.
		Details() string
	}

	// spec defines the specification of an issue.
	spec struct {
		Type        Type
		Severity    Severity
		Description string
	}
)

const (
	defaultStaleThreshold   = 10 * time.Minute
	defaultBatteryThreshold = 15
)

func AllIssueTypes() []Type {
	return []Type{
		TypeIdentityConflict,
		TypeUnclassifiedDevice,
		TypeBatteryLow,
		TypeStaleFieldUnit,
		TypeRetiredReferenced,
	}
}

func newIssueFromType(t Type) (issueImpl, error) {
	switch t {
	case TypeIdentityConflict:
		return &issueIdentityConflict{}, nil
	case TypeUnclassifiedDevice:
		return &issueUnclassifiedDevice{}, nil
	case TypeBatteryLow:
		return &issueBatteryLow{}, nil
	case TypeStaleFieldUnit:
		return &issueStaleFieldUnit{}, nil
	case TypeRetiredReferenced:
		return &issueRetiredReferenced{}, nil
	default:
		return nil, fmt.Errorf("unknown issue type: %s", t)
	}
}

// AllIssues returns the specs of every known issue type.
func AllIssues() Issues {
	var res Issues

	for _, t := range AllIssueTypes() {
		i, err := newIssueFromType(t)
		if err != nil {
			continue
		}

		res = append(res, toIssue(i))
	}

	return res
}

func toIssue(i issueImpl) Issue {
	return Issue{
		Type:        i.Spec().Type,
		Severity:    i.Spec().Severity,
		Description: i.Spec().Description,
		Details:     i.Details(),
	}
}

// Find evaluates every configured issue type against every fleet entity.
func Find(c *Config) (EntityIssues, error) {
	if c.StaleThreshold == 0 {
		c.StaleThreshold = defaultStaleThreshold
	}
	if c.BatteryThreshold == 0 {
		c.BatteryThreshold = defaultBatteryThreshold
	}
	if c.Now.IsZero() {
		c.Now = time.Now()
	}

	res := entityIssuesMap{}

	for _, t := range AllIssueTypes() {
		if !c.includeIssue(t) {
			continue
		}

		for _, s := range c.subjects() {
			i, err := newIssueFromType(t)
			if err != nil {
				return nil, err
			}

			if i.Evaluate(s, c) {
				res.add(s, toIssue(i))
			}
		}
	}

	return res.toList(), nil
}

func (c *Config) subjects() []subject {
	var res []subject

	for i := range c.Chassis {
		ch := &c.Chassis[i]
		res = append(res, subject{kind: ch.TableName(), id: ch.ID, name: ch.Name, chassis: ch})
	}
	for i := range c.FieldUnits {
		u := &c.FieldUnits[i]
		res = append(res, subject{kind: u.TableName(), id: u.ID, name: u.Name, fieldUnit: u})
	}
	for i := range c.Discovered {
		d := &c.Discovered[i]
		res = append(res, subject{kind: d.TableName(), id: d.ID, name: d.Name, device: d})
	}

	return res
}

func (c *Config) includeIssue(t Type) bool {
	issue, err := newIssueFromType(t)
	if err != nil {
		return false
	}

	if issue.Spec().Severity.LowerThan(c.Severity) {
		return false
	}

	for _, o := range c.Omit {
		if t == o {
			return false
		}
	}

	if len(c.Only) > 0 {
		for _, o := range c.Only {
			if t == o {
				return true
			}
		}
		return false
	}

	return true
}

func (eim entityIssuesMap) add(s subject, issue Issue) {
	entityWithIssues, ok := eim[s.id]
	if !ok {
		entityWithIssues = &EntityWithIssues{
			Kind: s.kind,
			ID:   s.id,
			Name: s.name,
		}
	}
	entityWithIssues.Issues = append(entityWithIssues.Issues, issue)
	eim[s.id] = entityWithIssues
}

func (eim entityIssuesMap) toList() EntityIssues {
	var res EntityIssues

	for _, entityWithIssues := range eim {
		res = append(res, entityWithIssues)
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].ID < res[j].ID
	})

	return res
}

// Get returns the issues of the entity with the given id, or nil.
func (eis EntityIssues) Get(id string) *EntityWithIssues {
	for _, e := range eis {
		if e.ID == id {
			return e
		}
	}

	return nil
}
