package importer

import (
	"io"
	"strings"
)

// OnePasswordParser parses the 1Password CSV export:
// Title,Website,Username,Password,OTPAuth,Favorite,Archived,Tags,Notes
type OnePasswordParser struct{}

var onePasswordColumns = columns{
	name:     "title",
	username: "username",
	password: "password",
	link:     "website",
}

// Source returns the source type for this parser.
func (p *OnePasswordParser) Source() Source {
	return SourceOnePassword
}

// Parse parses 1Password CSV data. Archived items are skipped.
func (p *OnePasswordParser) Parse(r io.Reader) (*Result, error) {
	return parseCSV(r, onePasswordColumns, nil, func(r row) string {
		if strings.EqualFold(r.get("archived"), "true") {
			return "archived"
		}
		return ""
	})
}
