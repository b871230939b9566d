package credentials

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()-_=+"

	alphabet = upperChars + lowerChars + digitChars + symbolChars

	// DefaultLength is used when a workload needs a generated password and
	// the request does not supply one.
	DefaultLength = 32

	minStrongLength = 16
)

// GeneratePassword draws length bytes from crypto/rand and maps each into
// the password alphabet by modulo.
func GeneratePassword(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("password length must be positive, got %d", length)
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i := range b {
		b[i] = alphabet[b[i]%byte(len(alphabet))]
	}
	return string(b), nil
}

// StrengthResult reports every strength rule a password violates.
type StrengthResult struct {
	IsStrong bool     `json:"is_strong"`
	Errors   []string `json:"errors,omitempty"`
}

// ValidateStrength checks minimum length and presence of all four character
// classes. All violated rules are reported, not just the first.
func ValidateStrength(password string) StrengthResult {
	var errs []string

	if len(password) < minStrongLength {
		errs = append(errs, fmt.Sprintf("must be at least %d characters long", minStrongLength))
	}
	if !strings.ContainsAny(password, upperChars) {
		errs = append(errs, "must contain at least one uppercase letter")
	}
	if !strings.ContainsAny(password, lowerChars) {
		errs = append(errs, "must contain at least one lowercase letter")
	}
	if !strings.ContainsAny(password, digitChars) {
		errs = append(errs, "must contain at least one digit")
	}
	if !strings.ContainsAny(password, symbolChars) {
		errs = append(errs, "must contain at least one symbol")
	}

	return StrengthResult{IsStrong: len(errs) == 0, Errors: errs}
}
