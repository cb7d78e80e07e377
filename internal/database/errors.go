package database

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/uptrace/bun/driver/pgdriver"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique-constraint failure from
// PostgreSQL (lib/pq or pgdriver) or SQLite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsNoRows reports whether err means the selected row does not exist.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ErrCommitUnknown marks a transaction whose COMMIT returned an error, so the
// caller cannot tell whether the writes became durable.
var ErrCommitUnknown = errors.New("transaction outcome unknown")
