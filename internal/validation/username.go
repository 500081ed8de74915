package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxUsernameLength = 30
	MaxTextLength     = 500
)

var (
	ErrUsernameRequired = errors.New("Username cannot be empty.")
	ErrUsernameTooLong  = errors.New("Username is too long (max 30 characters).")
	ErrUsernameInvalid  = errors.New("Username can't contain spaces or control characters.")
)

// ValidateUsername checks a trimmed username.
func ValidateUsername(username string) error {
	trimmed := strings.TrimSpace(username)

	if trimmed == "" {
		return ErrUsernameRequired
	}

	if utf8.RuneCountInString(trimmed) > MaxUsernameLength {
		return ErrUsernameTooLong
	}

	for _, r := range trimmed {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return ErrUsernameInvalid
		}
	}

	return nil
}

// ValidateTextLength caps free-text fields such as goal descriptions and boost messages.
func ValidateTextLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return &LengthError{Field: field, Max: max}
	}
	return nil
}

type LengthError struct {
	Field string
	Max   int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("%s is too long (max %d characters).", e.Field, e.Max)
}
