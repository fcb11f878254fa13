// Package cli holds helpers shared by the vaultkeeper commands and the MCP
// server.
package cli

import (
	"fmt"
	"path"
	"strings"
)

// separator stands in for '/' while matching so that no character of a
// profile name is treated as a path separator.
const separator = "\x00"

// IsGlob reports whether pattern contains glob metacharacters.
func IsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// MatchName reports whether name matches the glob pattern. Profile names
// are flat: '/' is an ordinary character, so '*' and '?' match it too and
// "*" matches every name.
func MatchName(pattern, name string) (bool, error) {
	return path.Match(strings.ReplaceAll(pattern, "/", separator), strings.ReplaceAll(name, "/", separator))
}

// FilterNames returns the names matching a glob pattern, in input order.
// An empty pattern matches everything.
func FilterNames(names []string, pattern string) ([]string, error) {
	if pattern == "" {
		return append([]string(nil), names...), nil
	}
	if _, err := MatchName(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
	}

	matches := []string{}
	for _, name := range names {
		ok, err := MatchName(pattern, name)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, name)
		}
	}
	return matches, nil
}

// ExpandNames resolves command arguments to profile names. Arguments without
// glob characters are taken literally; a glob must match at least one
// name. The result has no duplicates and keeps first-match order.
func ExpandNames(args []string, available []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			result = append(result, name)
		}
	}

	for _, arg := range args {
		if !IsGlob(arg) {
			add(arg)
			continue
		}
		matches, err := FilterNames(available, arg)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no profiles match pattern '%s'", arg)
		}
		for _, name := range matches {
			add(name)
		}
	}
	return result, nil
}
