package datastore

import (
	"go.uber.org/zap"
	r "gopkg.in/rethinkdb/rethinkdb-go.v6"
)

// InitMockDB initializes a rethink store with a mocked session for unit
// tests.
func InitMockDB() (*RethinkStore, *r.Mock) {
	rs := New(zap.NewNop(), "db-addr", "mockdb", "db-user", "db-password")
	mock := rs.Mock()
	return rs, mock
}
