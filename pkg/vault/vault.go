// Package vault stores credential profiles in a per-vault SQLite file with
// every field encrypted under a key derived from the master password.
//
// A vault is identified by its name. The name is also the key derivation
// salt, so it must never change after the vault is created.
package vault

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/forest6511/vaultkeeper/internal/diskspace"
	"github.com/forest6511/vaultkeeper/pkg/audit"
	"github.com/forest6511/vaultkeeper/pkg/crypto"
)

// Constants
const (
	FileExt  = ".db"
	LockExt  = ".lock"
	FileMode = 0600 // Owner read/write only
	DirMode  = 0700 // Owner read/write/execute only

	MaxNameLength = 64

	MinDiskSpaceBytes  = 1024 * 1024
	DiskWarningPercent = 90

	driverName = "sqlite"
)

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9._-]*$`)

// State is the lifecycle position of a Vault handle.
type State int

const (
	StateUnopened State = iota
	StateOpen
	// StateWrongPassword means the store is open but the last Open was
	// refused. Profile operations fail until a later Open succeeds.
	StateWrongPassword
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpen:
		return "open"
	case StateWrongPassword:
		return "wrong-password"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Vault is a session on one named vault file.
//
// A Vault holds an exclusive advisory lock on its file from Create or Open
// until Close, so a second process opening the same vault gets ErrVaultBusy.
// Within a process a Vault is safe for concurrent use.
type Vault struct {
	dir  string
	name string
	path string

	mu    sync.Mutex
	state State
	key   crypto.Key
	db    *sql.DB
	store *Store
	lock  *flock.Flock

	logger      *slog.Logger
	auditOn     bool
	audit       *audit.Logger
	auditSource string
	failedOpens int

	kdfIterations int
}

// Option configures a Vault.
type Option func(*Vault)

// WithLogger sets the diagnostic logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Vault) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithAudit turns the audit log on or off. It is on by default.
func WithAudit(enabled bool) Option {
	return func(v *Vault) {
		v.auditOn = enabled
	}
}

// WithKDFIterations sets the PBKDF2 work factor used to derive the vault
// key. A vault only opens with the count it was created with, so anything
// but the default crypto.Iterations is meant for tests. Values below 1 are
// ignored.
func WithKDFIterations(n int) Option {
	return func(v *Vault) {
		if n > 0 {
			v.kdfIterations = n
		}
	}
}

// WithSource sets the actor source recorded in audit events.
func WithSource(source string) Option {
	return func(v *Vault) {
		v.auditSource = source
	}
}

// ValidateName checks that name can be used as a vault name and file stem.
func ValidateName(name string) error {
	if name == "" || len(name) > MaxNameLength || !nameRe.MatchString(name) {
		return fmt.Errorf("%w: %q (use 1-%d letters, digits, '-', '_' or '.', not starting with '.')",
			ErrInvalidVaultName, name, MaxNameLength)
	}
	return nil
}

// New returns an unopened handle for the vault called name inside dir.
func New(dir, name string, opts ...Option) (*Vault, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	v := &Vault{
		dir:         dir,
		name:        name,
		path:        filepath.Join(dir, name+FileExt),
		logger:      slog.New(slog.DiscardHandler),
		auditOn:     true,
		auditSource: audit.SourceCLI,

		kdfIterations: crypto.Iterations,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With("vault", name)
	if v.auditOn {
		v.audit = audit.NewLogger(AuditDir(dir, name), v.logger)
	}

	return v, nil
}

// ListVaults returns the names of the vaults stored in dir, sorted.
// A missing directory holds no vaults.
func ListVaults(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, storageErr("read vault directory", err)
	}

	names := []string{}
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), FileExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), FileExt)
		if ValidateName(name) == nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Name returns the vault name.
func (v *Vault) Name() string { return v.name }

// Path returns the vault file path.
func (v *Vault) Path() string { return v.path }

// State returns the current lifecycle state.
func (v *Vault) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Exists reports whether the vault file is present.
func (v *Vault) Exists() bool {
	_, err := os.Stat(v.path)
	return err == nil
}

// Create provisions a new vault protected by password and leaves it open.
//
// The store is built in a temporary file next to the final path and renamed
// into place only after the schema and validation row are committed, so a
// failed Create leaves nothing behind.
func (v *Vault) Create(password string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.checkUnopened(); err != nil {
		return err
	}

	if err := os.MkdirAll(v.dir, DirMode); err != nil {
		return storageErr("create vault directory", err)
	}
	if err := v.acquireLock(); err != nil {
		return err
	}

	if err := v.create(password); err != nil {
		v.releaseLock()
		return err
	}

	v.state = StateOpen
	v.logger.Info("vault created", "path", v.path)
	v.startAudit()
	v.record(audit.OpVaultCreate, "", nil)

	return nil
}

func (v *Vault) create(password string) error {
	if v.Exists() {
		return ErrAlreadyExists
	}
	if err := v.checkDiskSpace(0); err != nil {
		return err
	}

	key := crypto.DeriveKeyIterations(password, v.name, v.kdfIterations)

	tmp, err := os.CreateTemp(v.dir, "."+v.name+"-*.tmp")
	if err != nil {
		key.Wipe()
		return storageErr("create temporary vault file", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer func() {
		os.Remove(tmpPath)
		os.Remove(tmpPath + "-journal")
	}()

	if err := provisionFile(tmpPath, key, v.logger); err != nil {
		key.Wipe()
		return err
	}
	if err := os.Chmod(tmpPath, FileMode); err != nil {
		key.Wipe()
		return storageErr("set vault file permissions", err)
	}
	if err := os.Rename(tmpPath, v.path); err != nil {
		key.Wipe()
		return storageErr("move vault file into place", err)
	}

	db, err := openDB(v.path)
	if err != nil {
		key.Wipe()
		return err
	}

	v.key = key
	v.db = db
	v.store = NewStore(db, key, v.logger)
	return nil
}

// provisionFile creates the schema and validation row in a fresh file and
// closes it again.
func provisionFile(path string, key crypto.Key, logger *slog.Logger) error {
	db, err := openDB(path)
	if err != nil {
		return err
	}
	if err := NewStore(db, key, logger).Provision(); err != nil {
		db.Close()
		return err
	}
	if err := db.Close(); err != nil {
		return storageErr("close provisioned vault", err)
	}
	return nil
}

// Open derives the key from password and checks it against the vault's
// validation row.
//
// A wrong password returns ErrWrongPassword and leaves the store open so the
// caller can retry Open or give up with Close.
func (v *Vault) Open(password string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch v.state {
	case StateClosed:
		return ErrClosed
	case StateOpen:
		return ErrAlreadyOpen
	case StateUnopened:
		if !v.Exists() {
			return ErrNotFound
		}
		if err := v.acquireLock(); err != nil {
			return err
		}
		db, err := openDB(v.path)
		if err != nil {
			v.releaseLock()
			return err
		}
		v.db = db
	}

	key := crypto.DeriveKeyIterations(password, v.name, v.kdfIterations)
	store := NewStore(v.db, key, v.logger)

	ok, err := store.Validate()
	if err != nil {
		key.Wipe()
		v.shutdown()
		v.state = StateUnopened
		return err
	}
	if !ok {
		key.Wipe()
		v.state = StateWrongPassword
		v.failedOpens++
		v.logger.Warn("vault open refused: wrong master password")
		return ErrWrongPassword
	}

	v.key = key
	v.store = store
	v.state = StateOpen
	v.logger.Debug("vault opened", "path", v.path)

	v.checkAndWarnPermissions()
	v.startAudit()
	for ; v.failedOpens > 0; v.failedOpens-- {
		v.record(audit.OpVaultOpenFailed, "", ErrWrongPassword)
	}
	v.record(audit.OpVaultOpen, "", nil)

	return nil
}

// Close wipes the key, closes the store and releases the file lock.
// Closing an already closed vault does nothing.
func (v *Vault) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state == StateClosed {
		return nil
	}
	if v.state == StateOpen {
		v.record(audit.OpVaultClose, "", nil)
	}

	err := v.shutdown()
	v.state = StateClosed
	v.logger.Debug("vault closed")
	return err
}

// shutdown releases the key, the database and the lock.
func (v *Vault) shutdown() error {
	if v.key != nil {
		v.key.Wipe()
		v.key = nil
	}
	v.store = nil

	var err error
	if v.db != nil {
		if cerr := v.db.Close(); cerr != nil {
			err = storageErr("close database", cerr)
		}
		v.db = nil
	}
	v.releaseLock()
	return err
}

func (v *Vault) checkUnopened() error {
	switch v.state {
	case StateUnopened:
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return ErrAlreadyOpen
	}
}

// ready returns the store of an open vault. Callers hold v.mu.
func (v *Vault) ready() (*Store, error) {
	switch v.state {
	case StateOpen:
		return v.store, nil
	case StateClosed:
		return nil, ErrClosed
	default:
		return nil, ErrNotOpen
	}
}

const dsnParams = "_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)&_txlock=immediate"

// dsn builds an SQLite URI for path. Each segment is percent-encoded so
// '?', '#' and '%' in directory names stay part of the file name.
func dsn(path string) string {
	segments := strings.Split(filepath.ToSlash(path), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "file:" + strings.Join(segments, "/") + "?" + dsnParams
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn(path))
	if err != nil {
		return nil, storageErr("open database", err)
	}

	// One connection per session; SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storageErr("open database", err)
	}
	return db, nil
}

func (v *Vault) acquireLock() error {
	if v.lock != nil {
		return nil
	}
	lock := flock.New(v.path + LockExt)
	locked, err := lock.TryLock()
	if err != nil {
		return storageErr("lock vault", err)
	}
	if !locked {
		return ErrVaultBusy
	}
	v.lock = lock
	return nil
}

func (v *Vault) releaseLock() {
	if v.lock == nil {
		return
	}
	if err := v.lock.Unlock(); err != nil {
		v.logger.Warn("failed to release vault lock", "error", err)
	}
	v.lock = nil
}

// checkDiskSpace refuses writes when the filesystem is nearly full. Failing
// to read the filesystem stats only logs a warning.
func (v *Vault) checkDiskSpace(dataSize int) error {
	info, err := diskspace.Require(v.dir, MinDiskSpaceBytes, dataSize)
	if err != nil {
		if errors.Is(err, diskspace.ErrInsufficient) {
			return fmt.Errorf("%w: %v", ErrInsufficientDisk, err)
		}
		v.logger.Warn("failed to check disk space", "error", err)
		return nil
	}
	if info.UsedPct >= DiskWarningPercent {
		v.logger.Warn("disk is nearly full", "used_pct", info.UsedPct)
	}
	return nil
}

// checkAndWarnPermissions logs when the vault file is readable by others.
func (v *Vault) checkAndWarnPermissions() {
	info, err := os.Stat(v.path)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		v.logger.Warn("vault file has insecure permissions",
			"perm", fmt.Sprintf("%04o", perm), "expected", fmt.Sprintf("%04o", FileMode))
	}
}
