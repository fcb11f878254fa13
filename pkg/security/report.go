package security

import (
	"crypto/rand"
	"fmt"

	"github.com/forest6511/vaultkeeper/pkg/vault"
)

// Report is the security assessment of a set of profiles.
type Report struct {
	// Overall is the total score (0-100).
	Overall     int        `json:"overall"`
	Components  Components `json:"components"`
	Issues      []Issue    `json:"issues"`
	Suggestions []string   `json:"suggestions"`
}

// Components breaks the score down. Each part contributes up to 50 points.
type Components struct {
	Strength   int `json:"strength"`
	Uniqueness int `json:"uniqueness"`
}

// IssueType identifies the type of security issue.
type IssueType string

const (
	IssueWeakPassword      IssueType = "weak"
	IssueDuplicatePassword IssueType = "duplicate"
)

// Severity indicates the urgency of a security issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// Issue is one detected problem.
type Issue struct {
	Type     IssueType `json:"type"`
	Severity Severity  `json:"severity"`
	// Profile and Profiles are only set when names were requested.
	Profile     string   `json:"profile,omitempty"`
	Profiles    []string `json:"profiles,omitempty"`
	Description string   `json:"description"`
	Suggestion  string   `json:"suggestion,omitempty"`
}

// Calculator scores profiles. Its HMAC key is random per Calculator.
type Calculator struct {
	hmacKey []byte
}

// NewCalculator returns a Calculator with a fresh session key.
func NewCalculator() (*Calculator, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("security: failed to generate session key: %w", err)
	}
	return &Calculator{hmacKey: key}, nil
}

// Analyze scores profiles. Profile names appear in the issues only when
// includeNames is set.
func (c *Calculator) Analyze(profiles []*vault.Profile, includeNames bool) *Report {
	report := &Report{
		Issues:      []Issue{},
		Suggestions: []string{},
	}

	report.Components.Strength = c.strengthScore(profiles)
	report.Components.Uniqueness = c.uniquenessScore(profiles)
	report.Overall = report.Components.Strength + report.Components.Uniqueness

	report.Issues = append(report.Issues, c.FindWeakPasswords(profiles, includeNames, 0)...)
	for _, dup := range c.FindDuplicates(profiles, includeNames, 0) {
		severity := SeverityWarning
		if dup.Count > 2 {
			severity = SeverityCritical
		}
		report.Issues = append(report.Issues, Issue{
			Type:        IssueDuplicatePassword,
			Severity:    severity,
			Profiles:    dup.Profiles,
			Description: fmt.Sprintf("%d profiles share the same password", dup.Count),
			Suggestion:  "Use a unique password for each profile",
		})
	}
	report.Suggestions = suggestions(report.Issues)

	return report
}

// strengthScore is the average strength points (0-50). An empty vault
// scores full marks.
func (c *Calculator) strengthScore(profiles []*vault.Profile) int {
	total, count := 0, 0
	for _, p := range profiles {
		if p.Password == "" {
			continue
		}
		count++
		total += Strength(p.Password).Points()
	}
	if count == 0 {
		return 50
	}
	return total / count
}

// uniquenessScore scales the share of distinct passwords to 0-50.
func (c *Calculator) uniquenessScore(profiles []*vault.Profile) int {
	distinct := make(map[string]struct{})
	count := 0
	for _, p := range profiles {
		value := normalizeValue(p.Password)
		if value == "" {
			continue
		}
		count++
		distinct[c.hash(value)] = struct{}{}
	}
	if count == 0 {
		return 50
	}
	return len(distinct) * 50 / count
}

func suggestions(issues []Issue) []string {
	var hasWeak, hasDuplicate bool
	for _, issue := range issues {
		switch issue.Type {
		case IssueWeakPassword:
			hasWeak = true
		case IssueDuplicatePassword:
			hasDuplicate = true
		}
	}

	out := []string{}
	if hasWeak {
		out = append(out, "Replace weak passwords, for example with 'vaultkeeper generate'")
	}
	if hasDuplicate {
		out = append(out, "Replace duplicate passwords with unique values")
	}
	return out
}
