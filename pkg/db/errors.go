package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a unique constraint violation.
// When constraintName is provided only that constraint (or, for sqlite,
// that column list) matches.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.Postgres(err); ok {
		if pg.Code != pgUniqueViolation {
			return false
		}
		return constraintName == "" || pg.Constraint == constraintName
	}
	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
// When constraintName is provided only that constraint matches on Postgres;
// sqlite does not name the constraint, so any FK failure matches there.
func IsForeignKeyViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.Postgres(err); ok {
		if pg.Code != pgForeignKeyViolation {
			return false
		}
		return constraintName == "" || pg.Constraint == constraintName
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// IsNotFound reports gorm's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsTransient reports errors worth retrying: connection loss, serialization
// failures, deadlocks, lock timeouts and cancelled statements.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if pg, ok := pkgerrors.Postgres(err); ok {
		switch {
		case strings.HasPrefix(pg.Code, "08"):
			return true
		case pg.Code == "40001", pg.Code == "40P01", pg.Code == "55P03", pg.Code == "57014":
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "connection refused")
}

// Classify wraps a raw persistence error in the typed error taxonomy.
// Typed errors are returned unchanged.
func Classify(err error, message string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	if IsTransient(err) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, message)
}
