// Package repository persists the four record kinds behind a small generic
// table abstraction. Driver errors are folded into the sentinels below so
// handlers can branch with errors.Is without knowing which database is in
// use.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when no row has the requested id.
	ErrNotFound = errors.New("object not found")

	// ErrDuplicate is returned when an insert or update violates a unique
	// index, e.g. a second user with the same email.
	ErrDuplicate = errors.New("duplicate entry")

	// ErrInvalidReference is returned when a foreign key points at a row
	// that does not exist.
	ErrInvalidReference = errors.New("referenced object does not exist")

	// ErrMissingField is returned when a NOT NULL column receives no value.
	ErrMissingField = errors.New("required field missing")

	// ErrPasswordTooLong is returned when a password exceeds bcrypt's
	// 72-byte input limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")
)

// MySQL server error numbers.
const (
	mysqlDupEntry       = 1062
	mysqlNoReferenced   = 1452
	mysqlBadNull        = 1048
	mysqlNoDefault      = 1364
	mysqlRowIsReference = 1451
)

// classify maps a driver error onto one of the package sentinels. The
// original error stays in the chain for logging.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDupEntry:
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		case mysqlNoReferenced, mysqlRowIsReference:
			return fmt.Errorf("%w: %v", ErrInvalidReference, err)
		case mysqlBadNull, mysqlNoDefault:
			return fmt.Errorf("%w: %v", ErrMissingField, err)
		}
		return err
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %v", ErrInvalidReference, err)
		case sqlite3.ErrConstraintNotNull:
			return fmt.Errorf("%w: %v", ErrMissingField, err)
		}
	}
	return err
}
