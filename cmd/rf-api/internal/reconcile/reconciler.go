// Package reconcile pulls discovery records from manufacturer plugins,
// matches them against the registry and applies the matching outcome. A
// sweep never aborts because of one bad record and never holds an entity
// lock while a plugin call is in flight.
package reconcile

import (
	"context"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/datastore"
	"github.com/soundstack/rf-api/cmd/rf-api/internal/eventbus"
	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
	"github.com/soundstack/rf-api/cmd/rf-api/internal/manufacturer"
	"github.com/soundstack/rf-api/cmd/rf-api/internal/metrics"
)

const (
	fetchAttempts = 3
	lockMaxBlock  = 10 * time.Second
)

// A Locker serializes writers per managed entity.
type Locker interface {
	EntityLock(ctx context.Context, entityID string, maxblock time.Duration) (func(), error)
}

// A LifecycleSyncer applies validated lifecycle transitions. The sweep uses
// it to follow observed vendor status, transitions the table rejects are
// skipped.
type LifecycleSyncer interface {
	TransitionChassis(ctx context.Context, id string, new inventory.ChassisState) (*inventory.Chassis, error)
	TransitionFieldUnit(ctx context.Context, id string, new inventory.FieldUnitState) (*inventory.FieldUnit, error)
}

// A SweepReport summarizes one discovery sweep of one vendor plugin.
type SweepReport struct {
	Vendor    string
	Created   int
	Updated   int
	Moved     int
	Conflicts int
	Malformed int
	Errors    int
}

// Reconciler orchestrates discovery sweeps and promotions.
type Reconciler struct {
	log        *zap.SugaredLogger
	discovered datastore.Storage[*inventory.DiscoveredDevice]
	chassis    datastore.Storage[*inventory.Chassis]
	fieldUnits datastore.Storage[*inventory.FieldUnit]
	channels   datastore.Storage[*inventory.RFChannel]
	locker     Locker
	sink       eventbus.Sink
	lifecycle  LifecycleSyncer
}

// New creates a reconciler over the given registry.
func New(log *zap.Logger, rs *datastore.RethinkStore, sink eventbus.Sink, lifecycle LifecycleSyncer) *Reconciler {
	return &Reconciler{
		log:        log.Sugar(),
		discovered: rs.DiscoveredDevice(),
		chassis:    rs.Chassis(),
		fieldUnits: rs.FieldUnit(),
		channels:   rs.RFChannel(),
		locker:     rs,
		sink:       sink,
		lifecycle:  lifecycle,
	}
}

// Sweep runs one discovery sweep for the given plugin. Transient fetch
// failures are retried with backoff, a malformed record is skipped and
// counted, a failed write for one record does not abort the rest of the
// batch.
func (r *Reconciler) Sweep(ctx context.Context, plugin manufacturer.Plugin) (*SweepReport, error) {
	report := &SweepReport{Vendor: plugin.Code()}

	raws, err := retry.DoWithData(
		func() ([]manufacturer.RawRecord, error) {
			return plugin.FetchCandidates(ctx)
		},
		retry.Attempts(fetchAttempts),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, inventory.Internal(err, "cannot fetch discovery candidates from %q", plugin.Code())
	}

	snapshot, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	for _, raw := range raws {
		d, err := plugin.Normalize(raw)
		if err != nil {
			r.log.Warnw("skipping malformed discovery record", "vendor", plugin.Code(), "error", err)
			report.Malformed++
			continue
		}

		// the status domain is closed no matter what the plugin did.
		if !d.Status.IsValid() {
			d.Status = inventory.StatusUnknown
		}
		d.Vendor = plugin.Code()

		err = r.apply(ctx, d, snapshot, report)
		if err != nil {
			if inventory.IsIntegrityViolation(err) {
				return report, err
			}
			r.log.Errorw("cannot apply discovery record", "vendor", plugin.Code(), "error", err)
			report.Errors++
		}
	}

	r.log.Infow("discovery sweep finished",
		"vendor", report.Vendor,
		"created", report.Created,
		"updated", report.Updated,
		"moved", report.Moved,
		"conflicts", report.Conflicts,
		"malformed", report.Malformed,
		"errors", report.Errors,
	)

	return report, nil
}

func (r *Reconciler) snapshot(ctx context.Context) (*Snapshot, error) {
	cc, err := r.chassis.List(ctx)
	if err != nil {
		return nil, err
	}
	uu, err := r.fieldUnits.List(ctx)
	if err != nil {
		return nil, err
	}

	chassis := make(inventory.Chassiss, 0, len(cc))
	for _, c := range cc {
		chassis = append(chassis, *c)
	}
	units := make(inventory.FieldUnits, 0, len(uu))
	for _, u := range uu {
		units = append(units, *u)
	}

	return NewSnapshot(chassis, units), nil
}

func (r *Reconciler) apply(ctx context.Context, d *inventory.DiscoveredDevice, snapshot *Snapshot, report *SweepReport) error {
	result, err := Match(d, snapshot)
	if err != nil {
		return err
	}

	for _, ref := range result.ConflictRefs {
		r.log.Warnw("conflict candidate requires manual review",
			"vendor", d.Vendor, "tier", result.Tier, "entity", ref.ID, "kind", ref.Kind)
	}

	metrics.CountSweepOutcome(d.Vendor, string(result.Outcome))

	switch result.Outcome {
	case OutcomeNew:
		return r.applyNew(ctx, d, report)
	case OutcomeDuplicate:
		return r.applyDuplicate(ctx, d, result, report)
	case OutcomeMoved:
		return r.applyMoved(ctx, d, result, report)
	case OutcomeConflict:
		return r.applyConflict(ctx, d, result, report)
	default:
		return inventory.Internal(nil, "unhandled match outcome %q", result.Outcome)
	}
}

// applyNew stages the record for operator review. Re-discovering an
// unresolved record updates it in place because the staged id is derived
// from the identity keys.
func (r *Reconciler) applyNew(ctx context.Context, d *inventory.DiscoveredDevice, report *SweepReport) error {
	d.ID = stagedID(d)

	err := r.discovered.Upsert(ctx, d)
	if err != nil {
		return err
	}

	report.Created++
	return r.sink.Notify(inventory.TopicDiscovery, inventory.DiscoveryEvent{Type: inventory.CREATE, Device: d})
}

// applyDuplicate carries changed reachability fields over to the matched
// entity. No new row is created.
func (r *Reconciler) applyDuplicate(ctx context.Context, d *inventory.DiscoveredDevice, result *MatchResult, report *SweepReport) error {
	changed, err := r.updateMatched(ctx, d, result.Entity)
	if err != nil {
		return err
	}

	if changed {
		report.Updated++
	}
	return r.syncState(ctx, d, result.Entity)
}

// applyMoved is a duplicate whose network address changed, which is
// additionally announced on the bus.
func (r *Reconciler) applyMoved(ctx context.Context, d *inventory.DiscoveredDevice, result *MatchResult, report *SweepReport) error {
	_, err := r.updateMatched(ctx, d, result.Entity)
	if err != nil {
		return err
	}

	report.Moved++

	topic := inventory.TopicChassis
	if result.Entity.Kind == (&inventory.FieldUnit{}).TableName() {
		topic = inventory.TopicFieldUnit
	}
	return r.sink.Notify(topic, map[string]interface{}{
		"type":        inventory.MOVE,
		"entity_id":   result.Entity.ID,
		"old_address": result.Entity.Address,
		"new_address": d.Address,
	})
}

// applyConflict stages the record flagged as incompatible and leaves every
// claimed managed entity untouched. Operators resolve conflicts, the sweep
// never does.
func (r *Reconciler) applyConflict(ctx context.Context, d *inventory.DiscoveredDevice, result *MatchResult, report *SweepReport) error {
	d.ID = stagedID(d)
	d.Status = inventory.StatusIncompatible
	d.Description = conflictDescription(result)

	err := r.discovered.Upsert(ctx, d)
	if err != nil {
		return err
	}

	report.Conflicts++
	return r.sink.Notify(inventory.TopicDiscovery, inventory.DiscoveryEvent{Type: inventory.CREATE, Device: d})
}

// updateMatched refreshes the reachability fields of the matched managed
// entity under the per-entity lock. The lock spans only the local read,
// compare and write, plugin I/O already happened.
func (r *Reconciler) updateMatched(ctx context.Context, d *inventory.DiscoveredDevice, ref Ref) (bool, error) {
	unlock, err := r.locker.EntityLock(ctx, ref.Kind+"-"+ref.ID, lockMaxBlock)
	if err != nil {
		return false, err
	}
	defer unlock()

	switch ref.Kind {
	case (&inventory.Chassis{}).TableName():
		old, err := r.chassis.Get(ctx, ref.ID)
		if err != nil {
			return false, err
		}

		clone := *old
		next := &clone
		applyReachability(d, &next.Address, &next.MacAddress, &next.VendorAPIID)
		if clone == *old {
			return false, nil
		}

		err = r.chassis.Update(ctx, next, old)
		if err != nil {
			return false, err
		}
		return true, r.sink.Notify(inventory.TopicChassis, inventory.ChassisEvent{Type: inventory.UPDATE, Old: old, New: next})
	case (&inventory.FieldUnit{}).TableName():
		old, err := r.fieldUnits.Get(ctx, ref.ID)
		if err != nil {
			return false, err
		}

		clone := *old
		next := &clone
		applyReachability(d, &next.Address, &next.MacAddress, &next.VendorAPIID)
		if clone == *old {
			return false, nil
		}

		err = r.fieldUnits.Update(ctx, next, old)
		if err != nil {
			return false, err
		}
		return true, r.sink.Notify(inventory.TopicFieldUnit, inventory.FieldUnitEvent{Type: inventory.UPDATE, Old: old, New: next})
	default:
		return false, inventory.Internal(nil, "unknown entity kind %q", ref.Kind)
	}
}

// syncState follows the observed vendor status with a validated lifecycle
// transition where one is unambiguous. A transition the lifecycle table
// rejects is not an error, the entity simply is in a phase the observed
// status cannot move it out of.
func (r *Reconciler) syncState(ctx context.Context, d *inventory.DiscoveredDevice, ref Ref) error {
	if r.lifecycle == nil {
		return nil
	}

	var err error
	switch ref.Kind {
	case (&inventory.Chassis{}).TableName():
		target, ok := chassisStateForStatus(d.Status)
		if !ok {
			return nil
		}
		_, err = r.lifecycle.TransitionChassis(ctx, ref.ID, target)
	case (&inventory.FieldUnit{}).TableName():
		target, ok := fieldUnitStateForStatus(d.Status)
		if !ok {
			return nil
		}
		_, err = r.lifecycle.TransitionFieldUnit(ctx, ref.ID, target)
	default:
		return nil
	}

	if err != nil && !inventory.IsInvalidTransition(err) && !inventory.IsConflict(err) {
		return err
	}
	return nil
}

// chassisStateForStatus maps an observed canonical status to the lifecycle
// state it implies. Statuses without a clear lifecycle meaning map to
// nothing.
func chassisStateForStatus(s inventory.CanonicalStatus) (inventory.ChassisState, bool) {
	switch s {
	case inventory.StatusReady:
		return inventory.ChassisStateOnline, true
	case inventory.StatusOffline:
		return inventory.ChassisStateOffline, true
	case inventory.StatusError:
		return inventory.ChassisStateDegraded, true
	default:
		return "", false
	}
}

func fieldUnitStateForStatus(s inventory.CanonicalStatus) (inventory.FieldUnitState, bool) {
	switch s {
	case inventory.StatusReady:
		return inventory.FieldUnitStateOnline, true
	case inventory.StatusOffline:
		return inventory.FieldUnitStateOffline, true
	case inventory.StatusError:
		return inventory.FieldUnitStateDegraded, true
	default:
		return "", false
	}
}

// applyReachability copies the volatile reachability fields of a discovery
// record over the managed entity's fields. Identity fields are never
// touched.
func applyReachability(d *inventory.DiscoveredDevice, address, mac, apiID *string) {
	if d.Address != "" {
		*address = d.Address
	}
	if d.MacAddress != "" && *mac == "" {
		*mac = d.MacAddress
	}
	if d.VendorAPIID != "" && *apiID == "" {
		*apiID = d.VendorAPIID
	}
}

// stagedID derives a deterministic id for a staged record from its
// strongest identity key so repeated sightings update in place.
func stagedID(d *inventory.DiscoveredDevice) string {
	key := d.Serial
	if key == "" {
		key = d.MacAddress
	}
	if key == "" {
		key = d.VendorAPIID
	}
	if key == "" {
		key = d.Address
	}

	replacer := strings.NewReplacer(":", "", ".", "-", "/", "-")
	return d.Vendor + "-" + strings.ToLower(replacer.Replace(key))
}

func conflictDescription(result *MatchResult) string {
	ids := make([]string, 0, len(result.ConflictRefs))
	for _, ref := range result.ConflictRefs {
		ids = append(ids, ref.Kind+"/"+ref.ID)
	}
	return "identity conflict on tier " + string(result.Tier) + " with " + strings.Join(ids, ", ")
}
