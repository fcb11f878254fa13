// Package passgen generates random passwords and probe strings.
package passgen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Character set constants
const (
	CharsetLowercase = "abcdefghijklmnopqrstuvwxyz"
	CharsetUppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	CharsetDigits    = "0123456789"
	CharsetSymbols   = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

	MinLength     = 4
	MaxLength     = 256
	DefaultLength = 20
	MaxExclude    = 256

	// maxAttempts bounds the retry loop that ensures every class is present.
	maxAttempts = 1000
)

var (
	ErrLengthOutOfRange = fmt.Errorf("passgen: length must be between %d and %d", MinLength, MaxLength)
	ErrEmptyCharset     = errors.New("passgen: character set is empty")
	ErrExcludeTooLong   = fmt.Errorf("passgen: exclude string must be at most %d characters", MaxExclude)
)

// Options selects the character classes used by Generate.
// The zero value enables every class.
type Options struct {
	NoLowercase bool
	NoUppercase bool
	NoDigits    bool
	NoSymbols   bool
	Exclude     string
}

// classes returns the enabled character classes with excluded characters removed.
// Classes left empty by the exclusion list are dropped.
func (o Options) classes() ([]string, error) {
	if len(o.Exclude) > MaxExclude {
		return nil, ErrExcludeTooLong
	}

	var all []string
	if !o.NoLowercase {
		all = append(all, CharsetLowercase)
	}
	if !o.NoUppercase {
		all = append(all, CharsetUppercase)
	}
	if !o.NoDigits {
		all = append(all, CharsetDigits)
	}
	if !o.NoSymbols {
		all = append(all, CharsetSymbols)
	}

	var classes []string
	for _, c := range all {
		if o.Exclude != "" {
			c = removeChars(c, o.Exclude)
		}
		if c != "" {
			classes = append(classes, c)
		}
	}
	if len(classes) == 0 {
		return nil, ErrEmptyCharset
	}
	return classes, nil
}

// Generate returns a random password of the given length drawn from the
// enabled classes. Every enabled class appears at least once, provided the
// length allows it.
func Generate(length int, opts Options) (string, error) {
	if length < MinLength || length > MaxLength {
		return "", ErrLengthOutOfRange
	}
	classes, err := opts.classes()
	if err != nil {
		return "", err
	}
	charset := strings.Join(classes, "")

	for attempt := 0; attempt < maxAttempts; attempt++ {
		password, err := sample(charset, length)
		if err != nil {
			return "", err
		}
		if length < len(classes) || containsAll(password, classes) {
			return password, nil
		}
	}
	return "", errors.New("passgen: failed to satisfy character class requirements")
}

// RandomString returns n characters sampled uniformly from letters, digits
// and punctuation. It is used for the vault validation probe.
func RandomString(n int) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("passgen: negative length %d", n)
	}
	return sample(CharsetLowercase+CharsetUppercase+CharsetDigits+CharsetSymbols, n)
}

// sample draws length characters from charset using crypto/rand.
func sample(charset string, length int) (string, error) {
	charsetLen := big.NewInt(int64(len(charset)))
	out := make([]byte, length)

	for i := 0; i < length; i++ {
		idx, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("passgen: failed to generate random number: %w", err)
		}
		out[i] = charset[idx.Int64()]
	}

	return string(out), nil
}

func containsAll(s string, classes []string) bool {
	for _, c := range classes {
		if !strings.ContainsAny(s, c) {
			return false
		}
	}
	return true
}

// removeChars removes specified characters from a string
func removeChars(s, chars string) string {
	exclude := make(map[rune]bool)
	for _, c := range chars {
		exclude[c] = true
	}

	var result strings.Builder
	for _, c := range s {
		if !exclude[c] {
			result.WriteRune(c)
		}
	}
	return result.String()
}
