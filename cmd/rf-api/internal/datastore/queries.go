package datastore

import (
	"context"

	r "gopkg.in/rethinkdb/rethinkdb-go.v6"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

// findUnique runs a filtered search and insists on at most one result. Two
// managed entities answering to the same identity key is corrupted registry
// data, which is surfaced as an integrity violation and never resolved here.
func findUnique[E inventory.Entity](ctx context.Context, s Storage[E], field, value, vendor string) (E, error) {
	var zero E

	q := s.Term().Filter(func(row r.Term) r.Term {
		return row.Field(field).Eq(value)
	})
	if vendor != "" {
		q = q.Filter(func(row r.Term) r.Term {
			return row.Field("vendor").Eq(vendor)
		})
	}

	res, err := s.Search(ctx, &q)
	if err != nil {
		return zero, err
	}

	switch len(res) {
	case 0:
		return zero, inventory.NotFound("no entity with %s %q found", field, value)
	case 1:
		return res[0], nil
	default:
		return zero, inventory.IntegrityViolation("%d entities share %s %q, registry requires manual repair", len(res), field, value)
	}
}

// FindChassisBySerial returns the chassis with the given serial within the
// vendor namespace.
func (rs *RethinkStore) FindChassisBySerial(ctx context.Context, vendor, serial string) (*inventory.Chassis, error) {
	return findUnique[*inventory.Chassis](ctx, rs.chassis, "serial", serial, vendor)
}

// FindChassisByMAC returns the chassis with the given mac address.
func (rs *RethinkStore) FindChassisByMAC(ctx context.Context, mac string) (*inventory.Chassis, error) {
	return findUnique[*inventory.Chassis](ctx, rs.chassis, "mac", mac, "")
}

// FindChassisByAddress returns the chassis with the given network address.
func (rs *RethinkStore) FindChassisByAddress(ctx context.Context, address string) (*inventory.Chassis, error) {
	return findUnique[*inventory.Chassis](ctx, rs.chassis, "address", address, "")
}

// FindChassisByAPIID returns the chassis with the given vendor api id within
// the vendor namespace.
func (rs *RethinkStore) FindChassisByAPIID(ctx context.Context, vendor, apiID string) (*inventory.Chassis, error) {
	return findUnique[*inventory.Chassis](ctx, rs.chassis, "vendor_api_id", apiID, vendor)
}

// FindFieldUnitBySerial returns the field unit with the given serial within
// the vendor namespace.
func (rs *RethinkStore) FindFieldUnitBySerial(ctx context.Context, vendor, serial string) (*inventory.FieldUnit, error) {
	return findUnique[*inventory.FieldUnit](ctx, rs.fieldUnit, "serial", serial, vendor)
}

// FindFieldUnitByMAC returns the field unit with the given mac address.
func (rs *RethinkStore) FindFieldUnitByMAC(ctx context.Context, mac string) (*inventory.FieldUnit, error) {
	return findUnique[*inventory.FieldUnit](ctx, rs.fieldUnit, "mac", mac, "")
}

// FindFieldUnitByAddress returns the field unit with the given network address.
func (rs *RethinkStore) FindFieldUnitByAddress(ctx context.Context, address string) (*inventory.FieldUnit, error) {
	return findUnique[*inventory.FieldUnit](ctx, rs.fieldUnit, "address", address, "")
}

// FindFieldUnitByAPIID returns the field unit with the given vendor api id
// within the vendor namespace.
func (rs *RethinkStore) FindFieldUnitByAPIID(ctx context.Context, vendor, apiID string) (*inventory.FieldUnit, error) {
	return findUnique[*inventory.FieldUnit](ctx, rs.fieldUnit, "vendor_api_id", apiID, vendor)
}

// SearchChannelsByChassis returns the RF channels owned by the given chassis.
func (rs *RethinkStore) SearchChannelsByChassis(ctx context.Context, chassisID string) (inventory.RFChannels, error) {
	q := rs.rfChannel.Term().Filter(func(row r.Term) r.Term {
		return row.Field("chassis_id").Eq(chassisID)
	})
	res, err := rs.rfChannel.Search(ctx, &q)
	if err != nil {
		return nil, err
	}

	channels := make(inventory.RFChannels, 0, len(res))
	for _, c := range res {
		channels = append(channels, *c)
	}
	return channels, nil
}

// ForceDisableChannel writes the enabled flag and the disabled state of a
// channel in one direct update. This deliberately bypasses the optimistic
// locking pipeline so the derived effect of an enabled=false write cannot
// recurse into transition validation.
func (rs *RethinkStore) ForceDisableChannel(ctx context.Context, channelID string) error {
	_, err := rs.rfChannel.Term().Get(channelID).Update(map[string]interface{}{
		"enabled": false,
		"state":   string(inventory.ChannelStateDisabled),
	}).RunWrite(rs.session, r.RunOpts{Context: ctx})
	if err != nil {
		return inventory.Internal(err, "cannot disable rfchannel %q", channelID)
	}
	return nil
}

// ForceDisableChannelsOfChassis disables all channels of a chassis in one
// bulk update, e.g. when the owning chassis is retired.
func (rs *RethinkStore) ForceDisableChannelsOfChassis(ctx context.Context, chassisID string) error {
	_, err := rs.rfChannel.Term().Filter(func(row r.Term) r.Term {
		return row.Field("chassis_id").Eq(chassisID)
	}).Update(map[string]interface{}{
		"enabled": false,
		"state":   string(inventory.ChannelStateDisabled),
	}).RunWrite(rs.session, r.RunOpts{Context: ctx})
	if err != nil {
		return inventory.Internal(err, "cannot disable rfchannels of chassis %q", chassisID)
	}
	return nil
}

// SearchDiscoveredByVendor returns the staged discovery records of a vendor.
func (rs *RethinkStore) SearchDiscoveredByVendor(ctx context.Context, vendor string) (inventory.DiscoveredDevices, error) {
	q := rs.discovered.Term().Filter(func(row r.Term) r.Term {
		return row.Field("vendor").Eq(vendor)
	})
	res, err := rs.discovered.Search(ctx, &q)
	if err != nil {
		return nil, err
	}

	devices := make(inventory.DiscoveredDevices, 0, len(res))
	for _, d := range res {
		devices = append(devices, *d)
	}
	return devices, nil
}
