// Package repository holds the MySQL data access layer. Lookups that find
// nothing return sql.ErrNoRows unchanged so callers can use errors.Is; the
// sentinels below cover the remaining failure scenarios.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when a conditional update matched no row because
// the record has already moved to another state.
var ErrConflict = errors.New("conflict")

// ErrInsufficientStock is returned when a conditional stock decrement
// affects no row.
var ErrInsufficientStock = errors.New("insufficient stock")

var (
	ErrEmailExists = errors.New("email already exists")
	ErrSlugExists  = errors.New("slug already exists")
)

const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
