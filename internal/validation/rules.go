// Package validation holds the jellydator rules shared by the HTTP handlers
// and the backfill CLI.
package validation

import (
	validation "github.com/jellydator/validation"

	apperrors "github.com/tickbase/fieldvault/internal/errors"
)

// maxIdentifierLength matches the PostgreSQL identifier limit; MySQL allows
// 64, so the stricter bound applies to both supported drivers.
const maxIdentifierLength = 63

// Identifier validates that a string is a safe SQL identifier (table or
// column name). Table and column names reach the backfill worker from
// operator input and are interpolated into statements, so anything beyond
// ASCII letters, digits and underscores is rejected.
var Identifier = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_identifier_type", "must be a string")
	}
	if s == "" {
		return nil // Let Required handle empty strings
	}
	if len(s) > maxIdentifierLength {
		return validation.NewError("validation_identifier_length", "must be at most 63 characters")
	}
	if !isIdentifierStart(s[0]) {
		return validation.NewError(
			"validation_identifier",
			"must start with a letter or underscore",
		)
	}
	for i := 1; i < len(s); i++ {
		if !isIdentifierChar(s[i]) {
			return validation.NewError(
				"validation_identifier",
				"must contain only letters, digits and underscores",
			)
		}
	}
	return nil
})

func isIdentifierStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentifierChar(c byte) bool {
	return isIdentifierStart(c) || (c >= '0' && c <= '9')
}

// WrapValidationError converts a jellydator validation failure into the
// service's ErrInvalidInput kind so HTTP and CLI layers map it uniformly.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}
