package datastore

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	r "gopkg.in/rethinkdb/rethinkdb-go.v6"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

var tables = []string{"discovereddevice", "chassis", "fieldunit", "rfchannel", "audit", "sharedmutex"}

// entityIndexes are created on the managed entity tables so identity lookups
// during reconciliation do not scan.
var entityIndexes = []string{"serial", "mac", "address", "vendor_api_id"}

// A RethinkStore is the database access layer for rethinkdb.
type RethinkStore struct {
	log       *zap.SugaredLogger
	session   r.QueryExecutor
	dbsession *r.Session

	dbname string
	dbuser string
	dbpass string
	dbhost string

	discovered *storage[*inventory.DiscoveredDevice]
	chassis    *storage[*inventory.Chassis]
	fieldUnit  *storage[*inventory.FieldUnit]
	rfChannel  *storage[*inventory.RFChannel]
	audit      *storage[*inventory.TransitionRecord]
}

// New creates a new rethink store.
func New(log *zap.Logger, dbhost string, dbname string, dbuser string, dbpass string) *RethinkStore {
	rs := &RethinkStore{
		log:    log.Sugar(),
		dbhost: dbhost,
		dbname: dbname,
		dbuser: dbuser,
		dbpass: dbpass,
	}
	rs.initStorages()
	return rs
}

func (rs *RethinkStore) initStorages() {
	rs.discovered = newStorage[*inventory.DiscoveredDevice](rs, &inventory.DiscoveredDevice{})
	rs.chassis = newStorage[*inventory.Chassis](rs, &inventory.Chassis{})
	rs.fieldUnit = newStorage[*inventory.FieldUnit](rs, &inventory.FieldUnit{})
	rs.rfChannel = newStorage[*inventory.RFChannel](rs, &inventory.RFChannel{})
	rs.audit = newStorage[*inventory.TransitionRecord](rs, &inventory.TransitionRecord{})
}

// DiscoveredDevice returns the storage of staged discovery records.
func (rs *RethinkStore) DiscoveredDevice() Storage[*inventory.DiscoveredDevice] {
	return rs.discovered
}

// Chassis returns the chassis storage.
func (rs *RethinkStore) Chassis() Storage[*inventory.Chassis] {
	return rs.chassis
}

// FieldUnit returns the field unit storage.
func (rs *RethinkStore) FieldUnit() Storage[*inventory.FieldUnit] {
	return rs.fieldUnit
}

// RFChannel returns the RF channel storage.
func (rs *RethinkStore) RFChannel() Storage[*inventory.RFChannel] {
	return rs.rfChannel
}

// Audit returns the audit trail storage.
func (rs *RethinkStore) Audit() Storage[*inventory.TransitionRecord] {
	return rs.audit
}

func multi(session r.QueryExecutor, tt ...r.Term) error {
	for _, t := range tt {
		if err := t.Exec(session); err != nil {
			return err
		}
	}
	return nil
}

// Health checks if the connection to the database is ok.
func (rs *RethinkStore) Health() error {
	return multi(rs.session,
		r.Branch(
			rs.db().TableList().Difference(r.Expr(tables)).Count().Eq(0),
			r.Expr(true),
			r.Error("too many tables in DB")),
		r.Branch(
			r.Expr(tables).Difference(rs.db().TableList()).Count().Eq(0),
			r.Expr(true),
			r.Error("too less tables in DB")),
	)
}

// Initialize initializes the database, it should be called every time
// the application comes up before using the data store.
func (rs *RethinkStore) Initialize() error {
	return rs.initializeTables(r.TableCreateOpts{Shards: 1, Replicas: 1})
}

func (rs *RethinkStore) initializeTables(opts r.TableCreateOpts) error {
	db := rs.db()

	err := multi(rs.session,
		r.Expr(tables).Difference(db.TableList()).ForEach(func(t r.Term) r.Term {
			return db.TableCreate(t, opts)
		}),
	)
	if err != nil {
		return err
	}

	for _, table := range []string{"chassis", "fieldunit"} {
		for _, index := range entityIndexes {
			err = multi(rs.session,
				db.Table(table).IndexList().Contains(index).Do(func(i r.Term) r.Term {
					return r.Branch(i, nil, db.Table(table).IndexCreate(index))
				}),
			)
			if err != nil {
				return err
			}
		}
	}

	err = multi(rs.session,
		db.Table("rfchannel").IndexList().Contains("chassis_id").Do(func(i r.Term) r.Term {
			return r.Branch(i, nil, db.Table("rfchannel").IndexCreate("chassis_id"))
		}),
	)
	if err != nil {
		return err
	}

	rs.log.Infow("tables successfully initialized")

	return nil
}

func (rs *RethinkStore) db() *r.Term {
	res := r.DB(rs.dbname)
	return &res
}

// Mock return the mock from the rethinkdb driver and sets the
// session to this mock. This MUST NOT be called in productive code.
func (rs *RethinkStore) Mock() *r.Mock {
	m := r.NewMock()
	rs.session = m
	rs.initStorages()
	return m
}

// Close closes the database session.
func (rs *RethinkStore) Close() error {
	if rs.dbsession != nil {
		err := rs.dbsession.Close()
		if err != nil {
			return err
		}
	}
	rs.log.Infow("rethinkstore disconnected")
	return nil
}

// Connect connects to the database. If there is an error, it will run until
// there is a connection.
func (rs *RethinkStore) Connect() error {
	rs.dbsession = retryConnect(rs.log, []string{rs.dbhost}, rs.dbname, rs.dbuser, rs.dbpass)
	rs.log.Infow("rethinkstore connected")
	rs.session = rs.dbsession
	rs.initStorages()
	return nil
}

func connect(hosts []string, dbname, user, pwd string) (*r.Session, error) {
	session, err := r.Connect(r.ConnectOpts{
		Addresses: hosts,
		Database:  dbname,
		Username:  user,
		Password:  pwd,
		MaxIdle:   10,
		MaxOpen:   20,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to DB: %w", err)
	}

	err = r.DBList().Contains(dbname).Do(func(row r.Term) r.Term {
		return r.Branch(row, nil, r.DBCreate(dbname))
	}).Exec(session)
	if err != nil {
		return nil, fmt.Errorf("cannot create database: %w", err)
	}

	return session, nil
}

// retryConnect infinitely tries to establish a database connection.
// in case a connection could not be established, the function will
// wait for a short period of time and try again.
func retryConnect(log *zap.SugaredLogger, hosts []string, dbname, user, pwd string) *r.Session {
tryAgain:
	s, err := connect(hosts, dbname, user, pwd)
	if err != nil {
		log.Errorw("db connection error", "db", dbname, "hosts", hosts, "error", err)
		time.Sleep(3 * time.Second)
		goto tryAgain
	}
	return s
}
