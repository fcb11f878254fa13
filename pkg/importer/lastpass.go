package importer

import "io"

// LastPassParser parses the LastPass CSV export:
// url,username,password,totp,extra,name,grouping,fav
type LastPassParser struct{}

// LastPass marks secure notes with this pseudo URL.
const lastPassSecureNoteURL = "http://sn"

var lastPassColumns = columns{
	name:     "name",
	username: "username",
	password: "password",
	link:     "url",
}

// Source returns the source type for this parser.
func (p *LastPassParser) Source() Source {
	return SourceLastPass
}

// Parse parses LastPass CSV data. HTML entities are decoded and secure
// notes are skipped.
func (p *LastPassParser) Parse(r io.Reader) (*Result, error) {
	return parseCSV(r, lastPassColumns, DecodeHTMLEntities, func(r row) string {
		if r.get("url") == lastPassSecureNoteURL {
			return "secure note"
		}
		return ""
	})
}
