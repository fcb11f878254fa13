package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// columns names the header fields holding each profile attribute.
type columns struct {
	name, username, password, link string
}

// row gives by-name access to one CSV record.
type row struct {
	index  map[string]int
	fields []string
	decode func(string) string
}

func (r row) get(col string) string {
	idx, ok := r.index[col]
	if !ok || idx >= len(r.fields) {
		return ""
	}
	v := strings.TrimSpace(r.fields[idx])
	if r.decode != nil {
		v = r.decode(v)
	}
	return v
}

// parseCSV reads a header-based export. filter may reject a row with a
// reason before it is turned into a profile.
func parseCSV(rd io.Reader, cols columns, decode func(string) string, filter func(row) string) (*Result, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("export is empty")
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, required := range []string{cols.name, cols.password} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing required column: %s", required)
		}
	}

	result := &Result{
		Profiles: []*ImportedProfile{},
		Warnings: []string{},
		Skipped:  []SkippedItem{},
	}
	fallback := 1

	for rowNum := 2; ; rowNum++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("row %d: failed to parse: %v", rowNum, err))
			continue
		}
		if len(fields) != len(header) {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"row %d: column count mismatch (expected %d, got %d)", rowNum, len(header), len(fields)))
			continue
		}

		r := row{index: index, fields: fields, decode: decode}
		original := r.get(cols.name)

		if filter != nil {
			if reason := filter(r); reason != "" {
				result.Skipped = append(result.Skipped, SkippedItem{Row: rowNum, OriginalName: original, Reason: reason})
				continue
			}
		}

		password := r.get(cols.password)
		if password == "" {
			result.Skipped = append(result.Skipped, SkippedItem{Row: rowNum, OriginalName: original, Reason: "no password"})
			continue
		}

		link := r.get(cols.link)
		name := NormalizeName(original)
		if IsEmptyOrWhitespace(name) {
			name = NormalizeName(FallbackName(link, fallback))
			fallback++
			result.Warnings = append(result.Warnings, fmt.Sprintf("row %d: no name, imported as %q", rowNum, name))
		}

		result.Profiles = append(result.Profiles, &ImportedProfile{
			Name:         name,
			Username:     r.get(cols.username),
			Password:     password,
			Link:         link,
			OriginalName: original,
			Row:          rowNum,
		})
	}

	DeduplicateNames(result.Profiles)
	return result, nil
}
