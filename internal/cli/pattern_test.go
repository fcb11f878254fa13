package cli

import (
	"reflect"
	"testing"
)

var names = []string{
	"gmail",
	"github",
	"work/gitlab",
	"work/jira",
	"bank",
}

func TestFilterNames(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		expected []string
		wantErr  bool
	}{
		{
			name:     "empty pattern",
			pattern:  "",
			expected: names,
		},
		{
			name:     "exact match",
			pattern:  "bank",
			expected: []string{"bank"},
		},
		{
			name:     "wildcard prefix",
			pattern:  "g*",
			expected: []string{"gmail", "github"},
		},
		{
			name:     "path segment",
			pattern:  "work/*",
			expected: []string{"work/gitlab", "work/jira"},
		},
		{
			name:     "star matches every name",
			pattern:  "*",
			expected: names,
		},
		{
			name:     "star crosses slash",
			pattern:  "*git*",
			expected: []string{"github", "work/gitlab"},
		},
		{
			name:     "question mark matches slash",
			pattern:  "work?jira",
			expected: []string{"work/jira"},
		},
		{
			name:     "class with slash",
			pattern:  "work[/]*",
			expected: []string{"work/gitlab", "work/jira"},
		},
		{
			name:     "question mark",
			pattern:  "ban?",
			expected: []string{"bank"},
		},
		{
			name:     "character class",
			pattern:  "g[im]*",
			expected: []string{"gmail", "github"},
		},
		{
			name:     "no match",
			pattern:  "x*",
			expected: []string{},
		},
		{
			name:    "invalid pattern",
			pattern: "[",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := FilterNames(names, tt.pattern)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMatchName(t *testing.T) {
	tests := []struct {
		pattern, name string
		want          bool
	}{
		{"*", "work/jira", true},
		{"*", "a/b/c", true},
		{"work/*", "work/team/jira", true},
		{"*/jira", "work/jira", true},
		{"*/jira", "jira", false},
		{"gmail", "gmail", true},
		{"gmail", "Gmail", false},
	}
	for _, tt := range tests {
		got, err := MatchName(tt.pattern, tt.name)
		if err != nil {
			t.Fatalf("MatchName(%q, %q) error: %v", tt.pattern, tt.name, err)
		}
		if got != tt.want {
			t.Errorf("MatchName(%q, %q) = %v, want %v", tt.pattern, tt.name, got, tt.want)
		}
	}
}

func TestFilterNamesDoesNotAlias(t *testing.T) {
	in := []string{"a", "b"}
	out, err := FilterNames(in, "")
	if err != nil {
		t.Fatal(err)
	}
	out[0] = "z"
	if in[0] != "a" {
		t.Error("FilterNames must return a copy")
	}
}

func TestExpandNames(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
		wantErr  bool
	}{
		{
			name:     "literal names pass through",
			args:     []string{"bank", "missing"},
			expected: []string{"bank", "missing"},
		},
		{
			name:     "glob expands",
			args:     []string{"work/*"},
			expected: []string{"work/gitlab", "work/jira"},
		},
		{
			name:     "duplicates removed",
			args:     []string{"gmail", "g*"},
			expected: []string{"gmail", "github"},
		},
		{
			name:    "unmatched glob",
			args:    []string{"zzz*"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ExpandNames(tt.args, names)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("got %v, want %v", result, tt.expected)
			}
		})
	}
}
