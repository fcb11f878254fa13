package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/forest6511/vaultkeeper/pkg/security"
	"github.com/forest6511/vaultkeeper/pkg/vault"
)

const testPassword = "correct horse battery"

func TestMain(m *testing.M) {
	kdfIterations = 1000
	os.Exit(m.Run())
}

// resetFlags restores every flag to its default so commands run in one test
// binary do not leak state into each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// runCommand executes the root command with args and stdin and returns what
// it wrote to stdout and stderr.
func runCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

type testEnv struct {
	t       *testing.T
	dir     string
	pwFile  string
	cfgFile string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{
		t:       t,
		dir:     filepath.Join(root, "vaults"),
		pwFile:  filepath.Join(root, "pw"),
		cfgFile: filepath.Join(root, "config.yaml"),
	}
	writeSecret(t, env.pwFile, testPassword)
	return env
}

func writeSecret(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content+"\n"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}
}

// run executes a command against the test vault using the password file.
func (e *testEnv) run(stdin string, args ...string) (string, string, error) {
	e.t.Helper()
	base := []string{"--config", e.cfgFile, "--vault-dir", e.dir, "--password-file", e.pwFile}
	return runCommand(e.t, stdin, append(base, args...)...)
}

func (e *testEnv) mustRun(stdin string, args ...string) string {
	e.t.Helper()
	out, stderr, err := e.run(stdin, args...)
	if err != nil {
		e.t.Fatalf("%v failed: %v\nstderr: %s", args, err, stderr)
	}
	return out
}

func createdEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	out := env.mustRun("", "create")
	if !strings.Contains(out, "Vault 'default' created") {
		t.Fatalf("unexpected create output: %q", out)
	}
	return env
}

func TestProfileCommands(t *testing.T) {
	env := createdEnv(t)

	out := env.mustRun("secret-pw\nsecret-pw\n", "add", "gmail", "-u", "me@gmail.com")
	if !strings.Contains(out, "Profile 'gmail' added") {
		t.Errorf("unexpected add output: %q", out)
	}

	out = env.mustRun("", "get", "gmail")
	if !strings.Contains(out, "Username: me@gmail.com") {
		t.Errorf("username missing: %q", out)
	}
	if strings.Contains(out, "secret-pw") {
		t.Errorf("password shown without --show: %q", out)
	}
	if !strings.Contains(out, "Password: *****t-pw") {
		t.Errorf("expected masked password: %q", out)
	}
	if !strings.Contains(out, "Link:     -") {
		t.Errorf("absent link should print '-': %q", out)
	}

	out = env.mustRun("", "get", "gmail", "--show")
	if !strings.Contains(out, "Password: secret-pw") {
		t.Errorf("expected clear password with --show: %q", out)
	}

	out = env.mustRun("", "list")
	if !strings.Contains(out, "gmail") || !strings.Contains(out, "me@gmail.com") {
		t.Errorf("unexpected list output: %q", out)
	}
	if strings.Contains(out, "secret-pw") {
		t.Errorf("list leaked password: %q", out)
	}

	// empty password entry keeps the current one
	env.mustRun("\n", "update", "gmail", "--link", "https://mail.google.com")
	out = env.mustRun("", "get", "gmail", "--show")
	if !strings.Contains(out, "Link:     https://mail.google.com") || !strings.Contains(out, "Password: secret-pw") {
		t.Errorf("unexpected output after update: %q", out)
	}
	if !strings.Contains(out, "Username: me@gmail.com") {
		t.Errorf("update should keep the username: %q", out)
	}

	env.mustRun("new-pw\nnew-pw\n", "update", "gmail", "--clear-username")
	out = env.mustRun("", "get", "gmail", "--show")
	if !strings.Contains(out, "Password: new-pw") || !strings.Contains(out, "Username: -") {
		t.Errorf("unexpected output after second update: %q", out)
	}

	env.mustRun("", "delete", "gmail", "--force")
	out = env.mustRun("", "names")
	if strings.TrimSpace(out) != "" {
		t.Errorf("expected no names after delete, got %q", out)
	}
}

func TestAddPasswordMismatch(t *testing.T) {
	env := createdEnv(t)

	_, _, err := env.run("one\ntwo\n", "add", "gmail")
	if err == nil || !strings.Contains(err.Error(), "do not match") {
		t.Fatalf("expected mismatch error, got %v", err)
	}
}

func TestAddDuplicate(t *testing.T) {
	env := createdEnv(t)
	env.mustRun("pw\npw\n", "add", "gmail")

	_, _, err := env.run("pw\npw\n", "add", "gmail")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestAddGenerated(t *testing.T) {
	env := newTestEnv(t)
	if err := os.WriteFile(env.cfgFile, []byte("clipboard: false\n"), 0600); err != nil {
		t.Fatal(err)
	}
	env.mustRun("", "create")

	out := env.mustRun("", "add", "github", "--generate", "--length", "24")
	generated := ""
	for _, line := range strings.Split(out, "\n") {
		if pw, ok := strings.CutPrefix(line, "Generated password: "); ok {
			generated = pw
		}
	}
	if len(generated) != 24 {
		t.Fatalf("expected a 24 character password in %q", out)
	}

	out = env.mustRun("", "get", "github", "--show")
	if !strings.Contains(out, "Password: "+generated) {
		t.Errorf("stored password differs from generated one: %q", out)
	}

	if _, _, err := env.run("", "get", "github", "--copy"); !errors.Is(err, errClipboardDisabled) {
		t.Errorf("expected errClipboardDisabled, got %v", err)
	}
}

func TestNamesAndDeleteWithGlob(t *testing.T) {
	env := createdEnv(t)
	for _, name := range []string{"work/jira", "work/gitlab", "bank"} {
		env.mustRun("pw\npw\n", "add", name)
	}

	out := env.mustRun("", "names", "work/*")
	if out != "work/jira\nwork/gitlab\n" {
		t.Errorf("unexpected names output: %q", out)
	}

	out = env.mustRun("", "names", "*")
	if out != "work/jira\nwork/gitlab\nbank\n" {
		t.Errorf("'*' should match names containing '/': %q", out)
	}

	env.mustRun("", "delete", "work/*", "--force")
	out = env.mustRun("", "names")
	if out != "bank\n" {
		t.Errorf("unexpected names after glob delete: %q", out)
	}

	if _, _, err := env.run("", "delete", "none*", "--force"); err == nil {
		t.Error("expected error for unmatched glob")
	}
}

func TestDeleteMissingProfile(t *testing.T) {
	env := createdEnv(t)
	env.mustRun("pw\npw\n", "add", "bank")

	out := env.mustRun("", "delete", "ghost", "--force")
	if !strings.Contains(out, "Profile 'ghost' not found, nothing to delete") {
		t.Errorf("expected not-found message, got %q", out)
	}
	if strings.Contains(out, "deleted") {
		t.Errorf("missing profile reported as deleted: %q", out)
	}

	// without --force only the existing profile is confirmed
	out = env.mustRun("y\n", "delete", "ghost", "bank")
	if !strings.Contains(out, "Profile 'ghost' not found") || !strings.Contains(out, "Profile 'bank' deleted") {
		t.Errorf("unexpected mixed delete output: %q", out)
	}
	if out := env.mustRun("", "names"); out != "" {
		t.Errorf("expected empty vault, got %q", out)
	}
}

func TestDeleteAbortedWithoutConfirmation(t *testing.T) {
	env := createdEnv(t)
	env.mustRun("pw\npw\n", "add", "bank")

	out := env.mustRun("n\n", "delete", "bank")
	if !strings.Contains(out, "Aborted") {
		t.Errorf("expected abort, got %q", out)
	}
	if out := env.mustRun("", "names"); out != "bank\n" {
		t.Errorf("profile should survive aborted delete, got %q", out)
	}
}

func TestListFilter(t *testing.T) {
	env := createdEnv(t)
	env.mustRun("pw\npw\n", "add", "gmail")
	env.mustRun("pw\npw\n", "add", "bank")

	out := env.mustRun("", "list", "--filter", "g*")
	if !strings.Contains(out, "gmail") || strings.Contains(out, "bank") {
		t.Errorf("unexpected filtered list: %q", out)
	}

	out = env.mustRun("", "list", "--filter", "x*")
	if !strings.Contains(out, "No profiles found") {
		t.Errorf("unexpected empty list output: %q", out)
	}
}

func TestWrongPassword(t *testing.T) {
	env := createdEnv(t)
	writeSecret(t, env.pwFile, "not the password")

	_, _, err := env.run("", "names")
	if !errors.Is(err, vault.ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
}

func TestInsecurePasswordFile(t *testing.T) {
	env := createdEnv(t)
	if err := os.Chmod(env.pwFile, 0644); err != nil {
		t.Fatal(err)
	}

	_, _, err := env.run("", "names")
	if err == nil || !strings.Contains(err.Error(), "password file") {
		t.Fatalf("expected password file error, got %v", err)
	}
}

func TestCreateExisting(t *testing.T) {
	env := createdEnv(t)

	_, _, err := env.run("", "create")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}
}

func TestCreateInteractiveMismatch(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := runCommand(t, "one\ntwo\n", "--config", env.cfgFile, "--vault-dir", env.dir, "create")
	if err == nil || !strings.Contains(err.Error(), "do not match") {
		t.Fatalf("expected mismatch error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.dir, "default.db")); !os.IsNotExist(err) {
		t.Error("no vault file should be written")
	}
}

func TestVaultsCommand(t *testing.T) {
	env := createdEnv(t)
	env.mustRun("", "--vault", "work", "create")

	out := env.mustRun("", "vaults")
	if out != "default\nwork\n" {
		t.Errorf("unexpected vaults output: %q", out)
	}
}

func TestImportCommand(t *testing.T) {
	env := createdEnv(t)
	env.mustRun("pw\npw\n", "add", "GitHub")

	csvPath := filepath.Join(t.TempDir(), "export.csv")
	csvData := "folder,favorite,type,name,notes,fields,reprompt,login_uri,login_username,login_password,login_totp\n" +
		",,login,GitHub,,,0,https://github.com,octocat,s3cret,\n" +
		",,login,Bank,,,0,https://bank.example,me,hunter2,\n" +
		",,note,Notes,text,,0,,,,\n"
	if err := os.WriteFile(csvPath, []byte(csvData), 0600); err != nil {
		t.Fatal(err)
	}

	out := env.mustRun("", "import", csvPath, "--from", "bitwarden", "--dry-run")
	if !strings.Contains(out, "Would import: Bank") {
		t.Errorf("unexpected dry-run output: %q", out)
	}
	if names := env.mustRun("", "names"); names != "GitHub\n" {
		t.Fatalf("dry-run must not write, names = %q", names)
	}

	out = env.mustRun("", "import", csvPath, "--from", "bitwarden")
	if !strings.Contains(out, "Imported: 1") {
		t.Errorf("unexpected import output: %q", out)
	}
	if names := env.mustRun("", "names"); names != "GitHub\nBank\n" {
		t.Errorf("unexpected names after import: %q", names)
	}

	if _, _, err := env.run("", "import", csvPath, "--from", "keepass"); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestAuditCommands(t *testing.T) {
	env := createdEnv(t)
	env.mustRun("pw\npw\n", "add", "gmail")

	out := env.mustRun("", "audit", "verify")
	if !strings.Contains(out, "chain intact") {
		t.Errorf("unexpected verify output: %q", out)
	}

	out = env.mustRun("", "audit", "list", "--since", "1h")
	if !strings.Contains(out, "vault.create") || !strings.Contains(out, "profile.add") {
		t.Errorf("unexpected audit list: %q", out)
	}
	if strings.Contains(out, "gmail") {
		t.Errorf("audit list leaked a profile name: %q", out)
	}
}

func TestAuditDisabledByConfig(t *testing.T) {
	env := newTestEnv(t)
	if err := os.WriteFile(env.cfgFile, []byte("audit: false\n"), 0600); err != nil {
		t.Fatal(err)
	}
	env.mustRun("", "create")

	_, _, err := env.run("", "audit", "verify")
	if err == nil || !strings.Contains(err.Error(), "disabled") {
		t.Fatalf("expected disabled error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.dir, "audit")); !os.IsNotExist(err) {
		t.Error("audit directory should not exist")
	}
}

func TestCheckCommandJSON(t *testing.T) {
	env := createdEnv(t)
	env.mustRun("short\nshort\n", "add", "a")
	env.mustRun("same-long-password-1\nsame-long-password-1\n", "add", "b")
	env.mustRun("same-long-password-1\nsame-long-password-1\n", "add", "c")

	out := env.mustRun("", "check", "--json")
	var report security.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("check output is not JSON: %v\n%s", err, out)
	}
	if len(report.Issues) != 2 {
		t.Errorf("expected weak and duplicate issues, got %+v", report.Issues)
	}
	if strings.Contains(out, "same-long-password-1") {
		t.Error("report leaked a password")
	}
}

func TestConfigWarning(t *testing.T) {
	env := newTestEnv(t)
	if err := os.WriteFile(env.cfgFile, []byte("log_level: error\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(env.cfgFile, 0666); err != nil {
		t.Fatal(err)
	}

	_, stderr, err := env.run("", "vaults")
	if err != nil {
		t.Fatalf("vaults failed: %v", err)
	}
	if !strings.Contains(stderr, "warning:") {
		t.Errorf("expected config warning on stderr, got %q", stderr)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"24h", 24 * time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"1h30m", 90 * time.Minute, false},
		{"x", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseDuration(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseDuration(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRenderProfiles(t *testing.T) {
	user := "octocat"
	profiles := []*vault.Profile{
		{ID: 1, Name: "github", Username: &user, Password: "s3cret"},
		{ID: 2, Name: "bank", Password: "hunter2"},
	}

	masked := renderProfiles(profiles, false)
	for _, want := range []string{"NAME", "PASSWORD", "github", "octocat", "bank", hiddenPassword} {
		if !strings.Contains(masked, want) {
			t.Errorf("table missing %q:\n%s", want, masked)
		}
	}
	if strings.Contains(masked, "s3cret") || strings.Contains(masked, "hunter2") {
		t.Errorf("masked table leaked a password:\n%s", masked)
	}

	shown := renderProfiles(profiles, true)
	if !strings.Contains(shown, "s3cret") || !strings.Contains(shown, "hunter2") {
		t.Errorf("table should show passwords:\n%s", shown)
	}
}
