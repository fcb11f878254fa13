package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/forest6511/vaultkeeper/pkg/vault"
)

// DuplicateGroup represents profiles sharing the same password.
type DuplicateGroup struct {
	// Profiles is empty unless names were requested.
	Profiles []string `json:"profiles,omitempty"`
	Count    int      `json:"count"`
}

// FindDuplicates groups profiles whose passwords are equal.
//
// Passwords are compared through HMAC-SHA256 under a key that lives only as
// long as the Calculator, so the digests cannot be reused offline. Groups
// are sorted largest first.
func (c *Calculator) FindDuplicates(profiles []*vault.Profile, includeNames bool, limit int) []DuplicateGroup {
	byHash := make(map[string][]string)
	var order []string
	for _, p := range profiles {
		value := normalizeValue(p.Password)
		if value == "" {
			continue
		}
		h := c.hash(value)
		if _, seen := byHash[h]; !seen {
			order = append(order, h)
		}
		byHash[h] = append(byHash[h], p.Name)
	}

	var groups []DuplicateGroup
	for _, h := range order {
		names := byHash[h]
		if len(names) < 2 {
			continue
		}
		group := DuplicateGroup{Count: len(names)}
		if includeNames {
			group.Profiles = names
		}
		groups = append(groups, group)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})

	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups
}

// FindWeakPasswords returns an issue for every profile with a weak password.
func (c *Calculator) FindWeakPasswords(profiles []*vault.Profile, includeNames bool, limit int) []Issue {
	var issues []Issue
	for _, p := range profiles {
		if p.Password == "" || Strength(p.Password) != PasswordWeak {
			continue
		}
		issue := Issue{
			Type:        IssueWeakPassword,
			Severity:    SeverityWarning,
			Description: "Password has insufficient strength (" + formatLength(len([]rune(p.Password))) + ")",
			Suggestion:  "Use a longer password (14+ characters recommended)",
		}
		if includeNames {
			issue.Profile = p.Name
		}
		issues = append(issues, issue)
	}

	if limit > 0 && len(issues) > limit {
		issues = issues[:limit]
	}
	return issues
}

func (c *Calculator) hash(value string) string {
	h := hmac.New(sha256.New, c.hmacKey)
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil))
}

// normalizeValue trims surrounding whitespace and applies Unicode NFC so
// visually identical passwords compare equal.
func normalizeValue(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}

func formatLength(n int) string {
	if n == 1 {
		return "1 character"
	}
	return strconv.Itoa(n) + " characters"
}
