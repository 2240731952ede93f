// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Local part of word characters, dots and dashes; a dotted domain ending in a
// 2-4 character label.
var emailRegex = regexp.MustCompile(`^[\w.-]+@([\w-]+\.)+[\w-]{2,4}$`)

const (
	maxEmailLength = 254
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
	maxFieldRunes    = 100
	maxTextRunes     = 2000
)

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("email must not exceed %d characters", maxEmailLength)
	}
	return nil
}

// ValidatePassword checks that a password is present and hashable.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("password must not exceed %d bytes", maxPasswordBytes)
	}
	return nil
}

// Field is a named form value for RequireFields.
type Field struct {
	Name  string
	Value string
}

// RequireFields returns an error naming the first field that is blank or
// longer than the profile field limit.
func RequireFields(fields ...Field) error {
	for _, f := range fields {
		v := strings.TrimSpace(f.Value)
		if v == "" {
			return fmt.Errorf("%s is required", f.Name)
		}
		if utf8.RuneCountInString(v) > maxFieldRunes {
			return fmt.Errorf("%s must not exceed %d characters", f.Name, maxFieldRunes)
		}
	}
	return nil
}

// ValidateText trims s and checks it is a non-empty post or comment body.
func ValidateText(name, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	if utf8.RuneCountInString(s) > maxTextRunes {
		return "", fmt.Errorf("%s must not exceed %d characters", name, maxTextRunes)
	}
	return s, nil
}
