package postgres

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// IsUniqueViolation reports whether err is a unique constraint violation,
// optionally on a specific constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	if constraintName == "" {
		return true
	}
	return strings.Contains(pqErr.Constraint, constraintName) ||
		strings.Contains(pqErr.Detail, constraintName)
}
