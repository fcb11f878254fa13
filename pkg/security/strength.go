// Package security rates the passwords stored in a vault.
package security

import "unicode/utf8"

// PasswordStrength represents the strength level of a password.
type PasswordStrength int

const (
	// PasswordWeak is shorter than 8 characters.
	PasswordWeak PasswordStrength = iota
	PasswordFair
	PasswordGood
	PasswordStrong
)

// String returns a human-readable representation of the password strength.
func (s PasswordStrength) String() string {
	switch s {
	case PasswordWeak:
		return "Weak"
	case PasswordFair:
		return "Fair"
	case PasswordGood:
		return "Good"
	case PasswordStrong:
		return "Strong"
	default:
		return "Unknown"
	}
}

// Points returns the score points for this strength level.
// Weak=0, Fair=16, Good=34, Strong=50.
func (s PasswordStrength) Points() int {
	switch s {
	case PasswordFair:
		return 16
	case PasswordGood:
		return 34
	case PasswordStrong:
		return 50
	default:
		return 0
	}
}

// Strength rates a password by its length in characters. Length is the
// primary factor per NIST SP 800-63B; composition is not scored.
func Strength(password string) PasswordStrength {
	switch n := utf8.RuneCountInString(password); {
	case n >= 20:
		return PasswordStrong
	case n >= 14:
		return PasswordGood
	case n >= 8:
		return PasswordFair
	default:
		return PasswordWeak
	}
}
