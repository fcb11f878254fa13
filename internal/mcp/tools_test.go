package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/forest6511/vaultkeeper/pkg/vault"
)

func TestHandleProfileList_Empty(t *testing.T) {
	s := testServer(t)

	_, out, err := s.handleProfileList(context.Background(), nil, ProfileListInput{})
	if err != nil {
		t.Fatalf("handleProfileList failed: %v", err)
	}
	if out.Profiles == nil || len(out.Profiles) != 0 {
		t.Errorf("expected empty non-nil list, got %v", out.Profiles)
	}
}

func TestHandleProfileList_WithProfiles(t *testing.T) {
	s := testServer(t,
		testProfile{name: "gmail", password: "pw1", username: strp("me@gmail.com")},
		testProfile{name: "github", password: "pw2", link: strp("https://github.com")},
		testProfile{name: "bank", password: "pw3"},
	)

	_, out, err := s.handleProfileList(context.Background(), nil, ProfileListInput{})
	if err != nil {
		t.Fatalf("handleProfileList failed: %v", err)
	}

	want := []ProfileInfo{
		{Name: "gmail", HasUsername: true},
		{Name: "github", HasLink: true},
		{Name: "bank"},
	}
	if len(out.Profiles) != len(want) {
		t.Fatalf("got %d profiles, want %d", len(out.Profiles), len(want))
	}
	for i := range want {
		if out.Profiles[i] != want[i] {
			t.Errorf("profile %d = %+v, want %+v", i, out.Profiles[i], want[i])
		}
	}
}

func TestHandleProfileList_Filter(t *testing.T) {
	s := testServer(t,
		testProfile{name: "gmail", password: "pw1"},
		testProfile{name: "github", password: "pw2"},
		testProfile{name: "bank", password: "pw3"},
		testProfile{name: "work/jira", password: "pw4"},
	)

	_, out, err := s.handleProfileList(context.Background(), nil, ProfileListInput{Filter: "*"})
	if err != nil {
		t.Fatalf("handleProfileList failed: %v", err)
	}
	if len(out.Profiles) != 4 || out.Profiles[3].Name != "work/jira" {
		t.Errorf("'*' should list every profile: %+v", out.Profiles)
	}

	_, out, err = s.handleProfileList(context.Background(), nil, ProfileListInput{Filter: "g*"})
	if err != nil {
		t.Fatalf("handleProfileList failed: %v", err)
	}
	if len(out.Profiles) != 2 || out.Profiles[0].Name != "gmail" || out.Profiles[1].Name != "github" {
		t.Errorf("unexpected result: %+v", out.Profiles)
	}

	if _, _, err := s.handleProfileList(context.Background(), nil, ProfileListInput{Filter: "["}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestHandleProfileExists(t *testing.T) {
	s := testServer(t, testProfile{name: "gmail", password: "pw"})

	_, out, err := s.handleProfileExists(context.Background(), nil, ProfileExistsInput{Name: "gmail"})
	if err != nil {
		t.Fatalf("handleProfileExists failed: %v", err)
	}
	if !out.Exists || out.Name != "gmail" {
		t.Errorf("unexpected output: %+v", out)
	}

	_, out, err = s.handleProfileExists(context.Background(), nil, ProfileExistsInput{Name: "Gmail"})
	if err != nil {
		t.Fatalf("handleProfileExists failed: %v", err)
	}
	if out.Exists {
		t.Error("names are case-sensitive")
	}
}

func TestHandleProfileExists_EmptyName(t *testing.T) {
	s := testServer(t)

	if _, _, err := s.handleProfileExists(context.Background(), nil, ProfileExistsInput{}); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestHandleProfileGetMasked(t *testing.T) {
	s := testServer(t, testProfile{
		name:     "gmail",
		password: "correct horse battery staple",
		username: strp("me@gmail.com"),
	})

	_, out, err := s.handleProfileGetMasked(context.Background(), nil, ProfileGetMaskedInput{Name: "gmail"})
	if err != nil {
		t.Fatalf("handleProfileGetMasked failed: %v", err)
	}

	if strings.Contains(out.MaskedPassword, "correct") {
		t.Errorf("password leaked: %q", out.MaskedPassword)
	}
	if !strings.HasSuffix(out.MaskedPassword, "aple") {
		t.Errorf("MaskedPassword = %q", out.MaskedPassword)
	}
	if out.PasswordLength != 28 {
		t.Errorf("PasswordLength = %d, want 28", out.PasswordLength)
	}
	if out.Strength != "Strong" {
		t.Errorf("Strength = %q, want Strong", out.Strength)
	}
	if out.Username == nil || *out.Username != "me@gmail.com" {
		t.Errorf("Username = %v", out.Username)
	}
	if out.Link != nil {
		t.Errorf("Link should be absent, got %q", *out.Link)
	}
}

func TestHandleProfileGetMasked_NotFound(t *testing.T) {
	s := testServer(t)

	_, _, err := s.handleProfileGetMasked(context.Background(), nil, ProfileGetMaskedInput{Name: "missing"})
	if !errors.Is(err, vault.ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestHandleSecurityReport(t *testing.T) {
	s := testServer(t,
		testProfile{name: "a", password: "short"},
		testProfile{name: "b", password: "reused-password-value"},
		testProfile{name: "c", password: "reused-password-value"},
	)

	_, report, err := s.handleSecurityReport(context.Background(), nil, SecurityReportInput{IncludeNames: true})
	if err != nil {
		t.Fatalf("handleSecurityReport failed: %v", err)
	}
	if report.Overall >= 100 {
		t.Errorf("Overall = %d, expected deductions", report.Overall)
	}

	var weak, dup bool
	for _, issue := range report.Issues {
		if strings.Contains(issue.Description, "reused-password-value") {
			t.Fatalf("issue leaks a password: %q", issue.Description)
		}
		switch issue.Type {
		case "weak":
			weak = weak || issue.Profile == "a"
		case "duplicate":
			dup = dup || len(issue.Profiles) == 2
		}
	}
	if !weak || !dup {
		t.Errorf("expected weak and duplicate issues, got %+v", report.Issues)
	}
}

func TestServerClose(t *testing.T) {
	s := testServer(t, testProfile{name: "gmail", password: "pw"})

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, _, err := s.handleProfileList(context.Background(), nil, ProfileListInput{}); !errors.Is(err, vault.ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
}
