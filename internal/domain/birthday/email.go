package birthday

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail reports whether the normalized address has a local part,
// an "@" and a domain containing a dot.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(NormalizeEmail(email))
}
