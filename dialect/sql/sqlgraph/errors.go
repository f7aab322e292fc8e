// Package sqlgraph classifies driver errors raised while writing entities.
package sqlgraph

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// violation describes one constraint class in every supported driver.
type violation struct {
	sqlite   []int
	postgres string
	mysql    []uint16
	messages []string
}

var (
	unique = violation{
		sqlite:   []int{sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY},
		postgres: pgUniqueViolation,
		mysql:    []uint16{mysqlDuplicateEntry},
		messages: []string{"Error 1062", "violates unique constraint", "UNIQUE constraint failed"},
	}
	foreignKey = violation{
		sqlite:   []int{sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY},
		postgres: pgForeignKeyViolation,
		mysql:    []uint16{mysqlForeignKeyParent, mysqlForeignKeyChild},
		messages: []string{"Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed"},
	}
	check = violation{
		sqlite:   []int{sqlite3.SQLITE_CONSTRAINT_CHECK},
		postgres: pgCheckViolation,
		mysql:    []uint16{mysqlCheckConstraintViolate},
		messages: []string{"Error 3819", "violates check constraint", "CHECK constraint failed"},
	}
)

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	return unique.match(err)
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	return foreignKey.match(err)
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
func IsCheckConstraintError(err error) bool {
	return check.match(err)
}

func (v violation) match(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[*sqlite.Error](err); ok {
		for _, code := range v.sqlite {
			if e.Code() == code {
				return true
			}
		}
		// Primary result codes carry the constraint kind in the message only.
		return e.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && containsAny(e.Error(), v.messages...)
	}
	if e, ok := asError[*pq.Error](err); ok {
		return string(e.Code) == v.postgres
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		for _, n := range v.mysql {
			if e.Number == n {
				return true
			}
		}
		return false
	}
	// Fallback to string matching for drivers wrapped beyond recognition.
	return containsAny(err.Error(), v.messages...)
}

// asError attempts to extract an error of type T from the error chain.
func asError[T error](err error) (T, bool) {
	var target T
	if errors.As(err, &target) {
		return target, true
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
