package reconcile

import (
	"github.com/samber/lo"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

// Outcome is the classification of a discovered record against the registry.
type Outcome string

// The outcomes the identity matcher can produce.
const (
	OutcomeNew       Outcome = "new"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeMoved     Outcome = "moved"
	OutcomeConflict  Outcome = "conflict"
)

// IdentityTier is one of the priority-ordered identity keys.
type IdentityTier string

// The identity tiers, strongest first. Tiers are never combined, the first
// tier whose key is present on the candidate decides.
const (
	TierSerial  IdentityTier = "serial"
	TierMAC     IdentityTier = "mac"
	TierAddress IdentityTier = "address"
	TierAPIID   IdentityTier = "vendor_api_id"
)

// A Ref is the identity view of one managed registry entity.
type Ref struct {
	Kind    string
	ID      string
	Vendor  string
	Serial  string
	MAC     string
	Address string
	APIID   string
}

// A Snapshot is the registry state a sweep matches against. It is loaded
// once per sweep, per-record writes are protected by optimistic locking.
type Snapshot struct {
	Refs []Ref
}

// NewSnapshot builds the identity view over the managed entities.
func NewSnapshot(chassis inventory.Chassiss, units inventory.FieldUnits) *Snapshot {
	s := &Snapshot{}

	for _, c := range chassis {
		s.Refs = append(s.Refs, Ref{
			Kind:    c.TableName(),
			ID:      c.ID,
			Vendor:  c.Vendor,
			Serial:  c.Serial,
			MAC:     c.MacAddress,
			Address: c.Address,
			APIID:   c.VendorAPIID,
		})
	}
	for _, u := range units {
		s.Refs = append(s.Refs, Ref{
			Kind:    u.TableName(),
			ID:      u.ID,
			Vendor:  u.Vendor,
			Serial:  u.Serial,
			MAC:     u.MacAddress,
			Address: u.Address,
			APIID:   u.VendorAPIID,
		})
	}

	return s
}

// A MatchResult is the outcome of the identity matching plus the matched
// entity, if any. The matcher performs no writes.
type MatchResult struct {
	Outcome Outcome
	Tier    IdentityTier
	// Entity is the matched managed entity, zero for OutcomeNew.
	Entity Ref
	// ConflictRefs are the entities claiming the same identity key (for
	// OutcomeConflict), or entities reached over a weaker tier than the
	// winning one (conflict candidates for manual review, never
	// auto-resolved).
	ConflictRefs []Ref
}

// Match classifies a normalized discovery record against the registry
// snapshot. It fails fast with an integrity violation if the registry itself
// carries two entities with the same serial number.
func Match(d *inventory.DiscoveredDevice, snapshot *Snapshot) (*MatchResult, error) {
	if d.Serial != "" {
		matches := lo.Filter(snapshot.Refs, func(ref Ref, _ int) bool {
			return ref.Vendor == d.Vendor && ref.Serial == d.Serial
		})

		if len(matches) > 1 {
			return nil, inventory.IntegrityViolation("serial %q exists %d times in registry for vendor %q", d.Serial, len(matches), d.Vendor)
		}

		if len(matches) == 1 {
			return &MatchResult{
				Outcome:      OutcomeDuplicate,
				Tier:         TierSerial,
				Entity:       matches[0],
				ConflictRefs: crossTierHits(d, snapshot, matches[0].ID),
			}, nil
		}

		// the serial is authoritative, an unmatched serial is a new device.
		// weaker-tier hits are only surfaced as conflict candidates.
		return &MatchResult{
			Outcome:      OutcomeNew,
			ConflictRefs: crossTierHits(d, snapshot, ""),
		}, nil
	}

	if d.MacAddress != "" {
		return matchWeakTier(d, snapshot, TierMAC, func(ref Ref) bool {
			return ref.MAC == d.MacAddress
		})
	}

	if d.Address != "" {
		return matchWeakTier(d, snapshot, TierAddress, func(ref Ref) bool {
			return ref.Address == d.Address
		})
	}

	if d.VendorAPIID != "" {
		return matchWeakTier(d, snapshot, TierAPIID, func(ref Ref) bool {
			return ref.Vendor == d.Vendor && ref.APIID == d.VendorAPIID
		})
	}

	return &MatchResult{Outcome: OutcomeNew}, nil
}

// matchWeakTier decides on one of the non-serial tiers. Several entities
// claiming the same weak key is a conflict for manual review, a single match
// with a changed network address means the device moved.
func matchWeakTier(d *inventory.DiscoveredDevice, snapshot *Snapshot, tier IdentityTier, pred func(Ref) bool) (*MatchResult, error) {
	matches := lo.Filter(snapshot.Refs, func(ref Ref, _ int) bool {
		return pred(ref)
	})

	switch len(matches) {
	case 0:
		return &MatchResult{Outcome: OutcomeNew}, nil
	case 1:
		outcome := OutcomeDuplicate
		if d.Address != "" && matches[0].Address != d.Address {
			outcome = OutcomeMoved
		}
		return &MatchResult{
			Outcome: outcome,
			Tier:    tier,
			Entity:  matches[0],
		}, nil
	default:
		return &MatchResult{
			Outcome:      OutcomeConflict,
			Tier:         tier,
			ConflictRefs: matches,
		}, nil
	}
}

// crossTierHits collects entities that answer to a weaker identity key of
// the candidate but are not the entity the winning tier selected. Those are
// never auto-resolved, they are handed to the operator for review.
func crossTierHits(d *inventory.DiscoveredDevice, snapshot *Snapshot, winnerID string) []Ref {
	return lo.Filter(snapshot.Refs, func(ref Ref, _ int) bool {
		if ref.ID == winnerID {
			return false
		}
		if d.MacAddress != "" && ref.MAC == d.MacAddress {
			return true
		}
		if d.Address != "" && ref.Address == d.Address {
			return true
		}
		if d.VendorAPIID != "" && ref.Vendor == d.Vendor && ref.APIID == d.VendorAPIID {
			return true
		}
		return false
	})
}
