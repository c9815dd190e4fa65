// Package store provides the SQLite persistence used by the service.
//
// It holds two append-mostly tables: the email send ledger behind the rate
// limiter and the analytics event log. Writes retry briefly when SQLite
// reports the database as busy. The schema is versioned; a mismatch asks the
// operator to delete the database instead of migrating it.
package store
