package persistence

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isUniqueViolation reports whether err is a unique constraint violation.
// gorm translates it to ErrDuplicatedKey when TranslateError is enabled;
// the message checks cover connections opened without it.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
