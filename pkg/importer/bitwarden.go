package importer

import "io"

// BitwardenParser parses the Bitwarden CSV export:
// folder,favorite,type,name,notes,fields,reprompt,login_uri,login_username,login_password,login_totp
type BitwardenParser struct{}

const bitwardenTypeLogin = "login"

var bitwardenColumns = columns{
	name:     "name",
	username: "login_username",
	password: "login_password",
	link:     "login_uri",
}

// Source returns the source type for this parser.
func (p *BitwardenParser) Source() Source {
	return SourceBitwarden
}

// Parse parses Bitwarden CSV data. Only login items are imported; a missing
// type column is treated as all logins.
func (p *BitwardenParser) Parse(r io.Reader) (*Result, error) {
	return parseCSV(r, bitwardenColumns, nil, func(r row) string {
		if t := r.get("type"); t != "" && t != bitwardenTypeLogin {
			return "unsupported item type: " + t
		}
		return ""
	})
}
