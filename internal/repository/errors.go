// Package repository defines the MySQL data access layer and the sentinel
// errors shared by every store implementation (including the in-memory
// stores used for local runs and tests).  Higher layers compare against
// these values with errors.Is to decide how to react: ErrNotFound becomes
// a 404 or a "nothing yet" branch, ErrDuplicate triggers a retry in slot
// allocation, and ErrForbidden is surfaced as a 403.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique key.  Callers
// that race on the same key (slot allocation) retry on this error.
var ErrDuplicate = errors.New("duplicate key")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they are not part of.  Handlers translate it into a 403.
var ErrForbidden = errors.New("forbidden")

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a MySQL duplicate-key error.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// notFound maps sql.ErrNoRows to ErrNotFound and leaves other errors alone.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// nullString stores empty strings as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
