package importer

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/forest6511/vaultkeeper/pkg/vault"
)

func TestGetParser(t *testing.T) {
	for _, source := range ValidSources() {
		p, err := GetParser(Source(source))
		if err != nil {
			t.Fatalf("GetParser(%q) error = %v", source, err)
		}
		if string(p.Source()) != source {
			t.Errorf("GetParser(%q).Source() = %q", source, p.Source())
		}
	}

	if _, err := GetParser("keepass"); err == nil {
		t.Error("GetParser(keepass) expected error")
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  GitHub  ", "GitHub"},
		{"café", "café"},
		{strings.Repeat("x", MaxNameLength+10), strings.Repeat("x", MaxNameLength)},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFallbackName(t *testing.T) {
	tests := []struct {
		link    string
		counter int
		want    string
	}{
		{"https://www.example.com/login", 1, "example.com"},
		{"http://intranet:8080/", 1, "intranet"},
		{"github.com?x=1", 1, "github.com"},
		{"", 3, "imported_item_3"},
	}

	for _, tt := range tests {
		if got := FallbackName(tt.link, tt.counter); got != tt.want {
			t.Errorf("FallbackName(%q, %d) = %q, want %q", tt.link, tt.counter, got, tt.want)
		}
	}
}

func TestDeduplicateNames(t *testing.T) {
	profiles := []*ImportedProfile{{Name: "a"}, {Name: "a_2"}, {Name: "a"}, {Name: "b"}, {Name: "a"}}
	DeduplicateNames(profiles)

	var got []string
	for _, p := range profiles {
		got = append(got, p.Name)
	}
	want := "a,a_2,a_3,b,a_4"
	if strings.Join(got, ",") != want {
		t.Errorf("DeduplicateNames() = %v, want %s", got, want)
	}
}

func TestDecodeHTMLEntities(t *testing.T) {
	got := DecodeHTMLEntities("Tom &amp; Jerry &lt;3 &quot;quoted&quot; it&#39;s")
	want := `Tom & Jerry <3 "quoted" it's`
	if got != want {
		t.Errorf("DecodeHTMLEntities() = %q, want %q", got, want)
	}
}

// fakeVault records added profiles and rejects names it already holds.
type fakeVault struct {
	names map[string]bool
	fail  error
}

func (f *fakeVault) AddProfile(name, password string, username, link *string) (int64, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	if f.names[name] {
		return 0, fmt.Errorf("%w: %q", vault.ErrDuplicate, name)
	}
	f.names[name] = true
	return int64(len(f.names)), nil
}

func TestApply(t *testing.T) {
	dst := &fakeVault{names: map[string]bool{"existing": true}}
	profiles := []*ImportedProfile{
		{Name: "new", Password: "pw", Row: 2},
		{Name: "existing", Password: "pw", OriginalName: "existing", Row: 3},
		{Name: "other", Password: "pw", Username: "me", Row: 4},
	}

	summary, err := Apply(dst, profiles)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if summary.Added != 2 {
		t.Errorf("Added = %d, want 2", summary.Added)
	}
	if len(summary.Skipped) != 1 || summary.Skipped[0].Row != 3 {
		t.Errorf("Skipped = %+v, want row 3", summary.Skipped)
	}
}

func TestApplyStopsOnStorageError(t *testing.T) {
	dst := &fakeVault{names: map[string]bool{}, fail: vault.ErrClosed}

	summary, err := Apply(dst, []*ImportedProfile{{Name: "a", Password: "pw", Row: 2}})
	if !errors.Is(err, vault.ErrClosed) {
		t.Fatalf("Apply() error = %v, want %v", err, vault.ErrClosed)
	}
	if summary.Added != 0 {
		t.Errorf("Added = %d, want 0", summary.Added)
	}
}
