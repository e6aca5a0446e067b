// Package repository implements the MySQL persistence layer. The
// sentinel errors below let handlers and services distinguish failure
// scenarios without parsing driver messages; anything else bubbles up
// as an opaque database error.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrEmailExists is returned when inserting or updating a user would
// violate the unique email constraint.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicateRow is returned when inserting a booking would violate
// the unique sheet_row_id constraint, meaning the external row was
// already imported.
var ErrDuplicateRow = errors.New("external row already imported")

// isDuplicateKey reports whether err is MySQL error 1062 (duplicate
// entry for a unique key).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
