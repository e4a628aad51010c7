package validation

import (
	"fmt"

	dErrors "dsnap/pkg/domain-errors"
)

// Request size limits.
const (
	// MaxBodySize is the default request body limit when config leaves it unset.
	MaxBodySize = 1 << 20

	// MaxScopes bounds the scope list of a token request.
	MaxScopes = 10

	// MaxScopeLength bounds a single requested scope.
	MaxScopeLength = 64

	// MaxUsernameLength bounds staff usernames.
	MaxUsernameLength = 64

	// MinPasswordLength is the shortest staff password accepted at creation.
	MinPasswordLength = 8

	// MaxPasswordLength matches the bcrypt input limit.
	MaxPasswordLength = 72
)

// CheckSliceCount validates that a slice does not exceed the maximum count.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckEachStringLength applies CheckStringLength to every element.
func CheckEachStringLength(fieldName string, values []string, max int) error {
	for _, v := range values {
		if err := CheckStringLength(fieldName, v, max); err != nil {
			return err
		}
	}
	return nil
}
