package datastore

import (
	"context"
	"fmt"
	"strings"
	"time"

	r "gopkg.in/rethinkdb/rethinkdb-go.v6"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

const entityAlreadyModifiedErrorMessage = "the entity was changed from another, please retry"

// Storage is the generic registry access contract for one entity table.
// Update applies optimistic locking on the changed timestamp, so at most one
// concurrent writer per entity wins.
type Storage[E inventory.Entity] interface {
	Create(ctx context.Context, e E) error
	Update(ctx context.Context, new, old E) error
	Upsert(ctx context.Context, e E) error
	Delete(ctx context.Context, e E) error
	Get(ctx context.Context, id string) (E, error)
	Find(ctx context.Context, query *r.Term) (E, error)
	Search(ctx context.Context, query *r.Term) ([]E, error)
	List(ctx context.Context) ([]E, error)
	Term() r.Term
}

type storage[E inventory.Entity] struct {
	rs        *RethinkStore
	table     r.Term
	tableName string
}

func newStorage[E inventory.Entity](rs *RethinkStore, e E) *storage[E] {
	return &storage[E]{
		rs:        rs,
		table:     r.DB(rs.dbname).Table(e.TableName()),
		tableName: e.TableName(),
	}
}

// Term returns the table term so callers can build filter queries for Find
// and Search.
func (s *storage[E]) Term() r.Term {
	return s.table
}

// Create implements Storage.
func (s *storage[E]) Create(ctx context.Context, e E) error {
	now := time.Now()
	e.SetCreated(now)
	e.SetChanged(now)

	res, err := s.table.Insert(e).RunWrite(s.rs.session, r.RunOpts{Context: ctx})
	if err != nil {
		if r.IsConflictErr(err) {
			return inventory.Conflict("cannot create %v in database, entity already exists: %s", s.tableName, e.GetID())
		}
		return fmt.Errorf("cannot create %v in database: %w", s.tableName, err)
	}

	if e.GetID() == "" && len(res.GeneratedKeys) > 0 {
		e.SetID(res.GeneratedKeys[0])
	}

	return nil
}

// Update implements Storage. The write only succeeds if the entity was not
// modified in the meantime, otherwise a conflict error is returned.
func (s *storage[E]) Update(ctx context.Context, new, old E) error {
	new.SetChanged(time.Now())

	_, err := s.table.Get(old.GetID()).Replace(func(row r.Term) r.Term {
		return r.Branch(row.Field("changed").Eq(r.Expr(old.GetChanged())), new, r.Error(entityAlreadyModifiedErrorMessage))
	}).RunWrite(s.rs.session, r.RunOpts{Context: ctx})
	if err != nil {
		if strings.Contains(err.Error(), entityAlreadyModifiedErrorMessage) {
			return inventory.Conflict("cannot update %v (%s): %s", s.tableName, old.GetID(), entityAlreadyModifiedErrorMessage)
		}
		return fmt.Errorf("cannot update %v (%s): %w", s.tableName, old.GetID(), err)
	}

	return nil
}

// Upsert implements Storage.
func (s *storage[E]) Upsert(ctx context.Context, e E) error {
	now := time.Now()
	if e.GetCreated().IsZero() {
		e.SetCreated(now)
	}
	e.SetChanged(now)

	res, err := s.table.Insert(e, r.InsertOpts{
		Conflict: "replace",
	}).RunWrite(s.rs.session, r.RunOpts{Context: ctx})
	if err != nil {
		return fmt.Errorf("cannot upsert %v (%s) in database: %w", s.tableName, e.GetID(), err)
	}

	if e.GetID() == "" && len(res.GeneratedKeys) > 0 {
		e.SetID(res.GeneratedKeys[0])
	}
	return nil
}

// Delete implements Storage.
func (s *storage[E]) Delete(ctx context.Context, e E) error {
	_, err := s.table.Get(e.GetID()).Delete().RunWrite(s.rs.session, r.RunOpts{Context: ctx})
	if err != nil {
		return fmt.Errorf("cannot delete %v with id %q from database: %w", s.tableName, e.GetID(), err)
	}
	return nil
}

// Get implements Storage.
func (s *storage[E]) Get(ctx context.Context, id string) (E, error) {
	var zero E
	res, err := s.table.Get(id).Run(s.rs.session, r.RunOpts{Context: ctx})
	if err != nil {
		return zero, fmt.Errorf("cannot find %v with id %q in database: %w", s.tableName, id, err)
	}
	defer res.Close()
	if res.IsNil() {
		return zero, inventory.NotFound("no %v with id %q found", s.tableName, id)
	}
	e := new(E)
	err = res.One(e)
	if err != nil {
		return zero, fmt.Errorf("more than one %v with same id exists: %w", s.tableName, err)
	}
	return *e, nil
}

// Find implements Storage. It returns a not found error when the query has
// no result and fails when the result is not unique.
func (s *storage[E]) Find(ctx context.Context, query *r.Term) (E, error) {
	var zero E
	res, err := query.Run(s.rs.session, r.RunOpts{Context: ctx})
	if err != nil {
		return zero, fmt.Errorf("cannot find %v in database: %w", s.tableName, err)
	}
	defer res.Close()
	if res.IsNil() {
		return zero, inventory.NotFound("no %v found", s.tableName)
	}

	e := new(E)
	hasResult := res.Next(e)
	if !hasResult {
		return zero, inventory.NotFound("no %v found", s.tableName)
	}

	next := map[string]interface{}{}
	hasResult = res.Next(&next)
	if hasResult {
		return zero, fmt.Errorf("more than one %v exists", s.tableName)
	}

	return *e, nil
}

// Search implements Storage.
func (s *storage[E]) Search(ctx context.Context, query *r.Term) ([]E, error) {
	res, err := query.Run(s.rs.session, r.RunOpts{Context: ctx})
	if err != nil {
		return nil, fmt.Errorf("cannot search %v in database: %w", s.tableName, err)
	}
	defer res.Close()

	result := new([]E)
	err = res.All(result)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch all entities: %w", err)
	}
	return *result, nil
}

// List implements Storage.
func (s *storage[E]) List(ctx context.Context) ([]E, error) {
	res, err := s.table.Run(s.rs.session, r.RunOpts{Context: ctx})
	if err != nil {
		return nil, fmt.Errorf("cannot list %v from database: %w", s.tableName, err)
	}
	defer res.Close()

	result := new([]E)
	err = res.All(result)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch all entities: %w", err)
	}
	return *result, nil
}
