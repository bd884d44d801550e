package identity

import (
	"errors"
	"regexp"
	"strings"
)

// ErrUnavailable is returned when no authenticated user is present.
var ErrUnavailable = errors.New("identity: no authenticated user")

// Provider supplies the email of the currently authenticated user.
// Authentication itself lives outside the core; the daemon adapts whatever
// session mechanism the host platform has.
type Provider interface {
	CurrentEmail() (string, error)
}

// Static is a Provider backed by a fixed email, typically read from config.
type Static struct {
	Email string
}

func (s Static) CurrentEmail() (string, error) {
	if s.Email == "" {
		return "", ErrUnavailable
	}
	return s.Email, nil
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func() (string, error)

func (f ProviderFunc) CurrentEmail() (string, error) { return f() }

// Emails are restricted so that SafeEmail stays injective: "-" is reserved
// as the separator and dots must separate non-empty runs, since ".." would
// normalize to the same "--" that "@" maps to.
var emailRegexp = regexp.MustCompile(`^[a-z0-9_+]+(\.[a-z0-9_+]+)*@[a-z0-9]+(\.[a-z0-9]+)*$`)

// ValidateEmail checks an address against the accepted charset.
// Validation happens after lowercasing, so mixed-case input is fine.
func ValidateEmail(email string) error {
	if !emailRegexp.MatchString(strings.ToLower(email)) {
		return errors.New("identity: email outside accepted charset")
	}
	return nil
}

// SafeEmail normalizes an address into a string usable as a storage key or
// path segment. Lowercase; "." becomes "-" and "@" becomes "--". With the
// accepted charset excluding "-", distinct addresses normalize to distinct
// keys.
func SafeEmail(email string) string {
	s := strings.ToLower(email)
	s = strings.ReplaceAll(s, "@", "--")
	s = strings.ReplaceAll(s, ".", "-")
	return s
}
