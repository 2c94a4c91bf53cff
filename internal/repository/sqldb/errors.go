package sqldb

import (
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jwalitptl/patient-registry/pkg/errors"
)

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	var sqliteErr *sqlite.Error
	if stderrors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE")
	}
	return false
}

// patientError maps driver errors onto application errors.
func patientError(err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, sql.ErrNoRows):
		return errors.NewNotFound("patient", err)
	case isUniqueViolation(err):
		return errors.NewConflict("a patient with this email already exists", err)
	}
	return err
}
