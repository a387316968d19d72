package accounts

import (
	"context"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"unicode"
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 16
	PasswordMinLength = 8
	PasswordMaxLength = 256
)

// reservedUsernames are system or role names that can never be requested.
var reservedUsernames = []string{
	"abuse", "admin", "daemon", "help", "hostmaster", "info", "mail",
	"nobody", "noreply", "ocf", "postmaster", "root", "security", "staff",
	"sudo", "support", "webmaster", "www",
}

// restrictedWords may only appear in usernames after staff review.
var restrictedWords = []string{"admin", "ocf", "official", "root", "staff", "sudo"}

// ValidationError is a hard failure that blocks a request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ValidationWarning is a soft failure that staff may override.
type ValidationWarning struct {
	Message string
}

func (e *ValidationWarning) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func warn(format string, args ...any) error {
	return &ValidationWarning{Message: fmt.Sprintf(format, args...)}
}

// UsernameLookup answers whether a username is already in use.
type UsernameLookup interface {
	UsernameTaken(ctx context.Context, username string) (bool, error)
}

// ValidateUsernameFormat checks the static username rules. It returns nil or
// a *ValidationError.
func ValidateUsernameFormat(username string) error {
	if len(username) < UsernameMinLength {
		return invalid("Username must be at least %d characters.", UsernameMinLength)
	}
	if len(username) > UsernameMaxLength {
		return invalid("Username must be at most %d characters.", UsernameMaxLength)
	}
	for _, r := range username {
		if r < 'a' || r > 'z' {
			return invalid("Username must contain only lowercase letters.")
		}
	}
	if slices.Contains(reservedUsernames, username) {
		return invalid("Username is reserved.")
	}
	return nil
}

// ValidateUsername checks username against the static rules, availability,
// and the soft rules relating it to realName. It returns nil, a
// *ValidationError, a *ValidationWarning, or a lookup failure.
func ValidateUsername(ctx context.Context, username, realName string, lookup UsernameLookup) error {
	if err := ValidateUsernameFormat(username); err != nil {
		return err
	}
	taken, err := lookup.UsernameTaken(ctx, username)
	if err != nil {
		return fmt.Errorf("check username availability: %w", err)
	}
	if taken {
		return invalid("Username is already taken.")
	}
	for _, word := range restrictedWords {
		if strings.Contains(username, word) {
			return warn("Username contains the restricted word %q.", word)
		}
	}
	if !basedOnName(username, NameParts(realName)) {
		return warn("Username %q is not based on the real name %q.", username, CleanRealName(realName))
	}
	return nil
}

// ValidatePassword checks password against the password policy for username.
func ValidatePassword(username, password string) error {
	if len(password) < PasswordMinLength {
		return invalid("Password must be at least %d characters.", PasswordMinLength)
	}
	if len(password) > PasswordMaxLength {
		return invalid("Password must be at most %d characters.", PasswordMaxLength)
	}
	if username != "" && strings.Contains(strings.ToLower(password), strings.ToLower(username)) {
		return invalid("Password must not contain the username.")
	}
	var letters, digits, others bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letters = true
		case unicode.IsDigit(r):
			digits = true
		case unicode.IsControl(r):
			return invalid("Password must not contain control characters.")
		default:
			others = true
		}
	}
	classes := 0
	for _, present := range []bool{letters, digits, others} {
		if present {
			classes++
		}
	}
	if classes < 2 {
		return invalid("Password must mix at least two of letters, digits, and symbols.")
	}
	return nil
}

// ValidateEmail checks that email is a bare address with a dotted domain.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return invalid("Enter a valid email address.")
	}
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return invalid("Enter a valid email address.")
	}
	return nil
}
