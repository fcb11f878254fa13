// Package importer reads credential exports from other password managers
// and adds them to a vault as profiles.
//
// Supported exports are the Bitwarden, LastPass and 1Password CSVs. All are
// parsed by header name, so column order does not matter.
package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/forest6511/vaultkeeper/pkg/vault"
)

// Source represents the source password manager format.
type Source string

const (
	SourceBitwarden   Source = "bitwarden"
	SourceLastPass    Source = "lastpass"
	SourceOnePassword Source = "1password"
)

// MaxNameLength bounds imported profile names.
const MaxNameLength = 256

// ImportedProfile is one parsed credential ready to be added.
type ImportedProfile struct {
	Name     string
	Username string
	Password string
	Link     string

	// OriginalName is the name in the export before normalization.
	OriginalName string
	Row          int
}

// Result contains the results of parsing an export.
type Result struct {
	Profiles []*ImportedProfile
	Warnings []string
	Skipped  []SkippedItem
}

// SkippedItem is a row that was not imported.
type SkippedItem struct {
	Row          int
	OriginalName string
	Reason       string
}

// Parser parses one export format.
type Parser interface {
	Parse(r io.Reader) (*Result, error)
	Source() Source
}

// GetParser returns a parser for the given source.
func GetParser(source Source) (Parser, error) {
	switch source {
	case SourceBitwarden:
		return &BitwardenParser{}, nil
	case SourceLastPass:
		return &LastPassParser{}, nil
	case SourceOnePassword:
		return &OnePasswordParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported import source: %s", source)
	}
}

// ValidSources returns a list of valid source names.
func ValidSources() []string {
	return []string{string(SourceBitwarden), string(SourceLastPass), string(SourceOnePassword)}
}

// NormalizeName trims a name, applies Unicode NFC and truncates it to
// MaxNameLength characters.
func NormalizeName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	if r := []rune(name); len(r) > MaxNameLength {
		name = string(r[:MaxNameLength])
	}
	return name
}

// FallbackName names an entry that has no name: the link's hostname when
// there is one, otherwise imported_item_N.
func FallbackName(link string, counter int) string {
	if host := extractHostname(link); host != "" {
		return host
	}
	return fmt.Sprintf("imported_item_%d", counter)
}

func extractHostname(link string) string {
	link = strings.TrimPrefix(link, "https://")
	link = strings.TrimPrefix(link, "http://")
	if idx := strings.IndexAny(link, "/?#"); idx != -1 {
		link = link[:idx]
	}
	if idx := strings.LastIndex(link, ":"); idx != -1 {
		link = link[:idx]
	}
	return strings.TrimPrefix(link, "www.")
}

// DeduplicateNames renames later entries that collide with earlier ones,
// appending _2, _3 and so on.
func DeduplicateNames(profiles []*ImportedProfile) {
	seen := make(map[string]int)
	for _, p := range profiles {
		base := p.Name
		seen[base]++
		if n := seen[base]; n > 1 {
			p.Name = fmt.Sprintf("%s_%d", base, n)
			for seen[p.Name] > 0 {
				n++
				p.Name = fmt.Sprintf("%s_%d", base, n)
			}
			seen[p.Name]++
		}
	}
}

// DecodeHTMLEntities decodes the HTML entities LastPass leaves in exports.
func DecodeHTMLEntities(s string) string {
	return htmlEntities.Replace(s)
}

var htmlEntities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
)

// IsEmptyOrWhitespace checks if a string is empty or contains only whitespace.
func IsEmptyOrWhitespace(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// ProfileAdder is the part of a vault an import writes to.
type ProfileAdder interface {
	AddProfile(name, password string, username, link *string) (int64, error)
}

// Summary reports what Apply did.
type Summary struct {
	Added   int
	Skipped []SkippedItem
}

// Apply adds parsed profiles to dst. Profiles whose name already exists are
// skipped and reported; any other error stops the import and is returned
// together with the summary so far.
func Apply(dst ProfileAdder, profiles []*ImportedProfile) (*Summary, error) {
	summary := &Summary{}
	for _, p := range profiles {
		_, err := dst.AddProfile(p.Name, p.Password, optional(p.Username), optional(p.Link))
		switch {
		case err == nil:
			summary.Added++
		case errors.Is(err, vault.ErrDuplicate):
			summary.Skipped = append(summary.Skipped, SkippedItem{
				Row:          p.Row,
				OriginalName: p.OriginalName,
				Reason:       "a profile with this name already exists",
			})
		default:
			return summary, fmt.Errorf("import %q (row %d): %w", p.Name, p.Row, err)
		}
	}
	return summary, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
