package validation

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Account limits shared by the CLI, the session manager and the server.
const (
	MinUsernameLen = 3
	MaxUsernameLen = 32
	MinPasswordLen = 12
	MaxPasswordLen = 1024
)

var (
	// ErrInvalidUsername is wrapped by every username rejection
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is wrapped by every password rejection
	ErrInvalidPassword = errors.New("invalid password")
)

// ValidateUsername accepts 3 to 32 ASCII letters, digits or underscores.
func ValidateUsername(username string) error {
	switch n := len(username); {
	case n == 0:
		return fmt.Errorf("%w: username cannot be empty", ErrInvalidUsername)
	case n < MinUsernameLen:
		return fmt.Errorf("%w: must be at least %d characters long", ErrInvalidUsername, MinUsernameLen)
	case n > MaxUsernameLen:
		return fmt.Errorf("%w: must not exceed %d characters", ErrInvalidUsername, MaxUsernameLen)
	}
	for _, r := range username {
		if !isUsernameRune(r) {
			return fmt.Errorf("%w: %q is not allowed, use letters, digits and '_'", ErrInvalidUsername, r)
		}
	}
	return nil
}

func isUsernameRune(r rune) bool {
	return r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
}

// ValidatePassword проверяет длину пароля в символах, а не байтах
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	switch {
	case n == 0:
		return fmt.Errorf("%w: password cannot be empty", ErrInvalidPassword)
	case n < MinPasswordLen:
		return fmt.Errorf("%w: must be at least %d characters long", ErrInvalidPassword, MinPasswordLen)
	case n > MaxPasswordLen:
		return fmt.Errorf("%w: must not exceed %d characters", ErrInvalidPassword, MaxPasswordLen)
	}
	return nil
}
