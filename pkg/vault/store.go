package vault

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/text/unicode/norm"

	"github.com/forest6511/vaultkeeper/pkg/crypto"
)

// Profile is one decrypted credential record.
// Username and Link are nil when absent.
type Profile struct {
	ID       int64
	Name     string
	Username *string
	Password string
	Link     *string
}

// Store is the encrypted profile table of one vault database.
//
// Profile names are encrypted with a random nonce, so the same name never
// produces the same ciphertext twice. Lookups by name therefore decrypt every
// stored name; the result is cached per session and dropped on every write.
type Store struct {
	db     *sql.DB
	key    crypto.Key
	logger *slog.Logger

	names map[int64]string // decrypted name cache, nil when stale
}

// NewStore returns a Store reading and writing db under key.
func NewStore(db *sql.DB, key crypto.Key, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, key: key, logger: logger}
}

// Provision creates the schema and writes the validation row.
func (s *Store) Provision() error {
	if err := runMigrations(s.db); err != nil {
		return storageErr("provision schema", err)
	}
	return s.writeValidationRow()
}

// normalizeName puts a profile name in Unicode NFC so that equal-looking
// names compare equal after decryption.
func normalizeName(name string) string {
	return norm.NFC.String(name)
}

// optional maps an empty optional field to absent.
func optional(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

// Add encrypts and inserts a new profile and returns its id.
func (s *Store) Add(name, password string, username, link *string) (int64, error) {
	name = normalizeName(name)
	if name == "" {
		return 0, fmt.Errorf("%w: profile name is required", ErrInvalidInput)
	}
	if password == "" {
		return 0, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	if _, err := s.FindID(name); err == nil {
		return 0, fmt.Errorf("%w: %q", ErrDuplicate, name)
	} else if !errors.Is(err, ErrProfileNotFound) {
		return 0, err
	}

	fields, err := crypto.EncryptMany([]*string{&name, optional(username), &password, optional(link)}, s.key)
	if err != nil {
		return 0, fmt.Errorf("vault: failed to encrypt profile: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, storageErr("begin transaction", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"INSERT INTO profiles (name, username, password, link) VALUES (?, ?, ?, ?)",
		*fields[0], nullString(fields[1]), *fields[2], nullString(fields[3]),
	)
	if err != nil {
		return 0, storageErr("insert profile", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, storageErr("read profile id", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit transaction", err)
	}
	s.names = nil
	s.logger.Debug("profile added", "id", id)

	return id, nil
}

// ListNames decrypts every stored profile name.
func (s *Store) ListNames() (map[int64]string, error) {
	if s.names == nil {
		names, err := s.loadNames()
		if err != nil {
			return nil, err
		}
		s.names = names
	}

	out := make(map[int64]string, len(s.names))
	for id, name := range s.names {
		out[id] = name
	}
	return out, nil
}

func (s *Store) loadNames() (map[int64]string, error) {
	rows, err := s.db.Query("SELECT id, name FROM profiles")
	if err != nil {
		return nil, storageErr("query profile names", err)
	}
	defer rows.Close()

	names := make(map[int64]string)
	for rows.Next() {
		var id int64
		var token string
		if err := rows.Scan(&id, &token); err != nil {
			return nil, storageErr("scan profile name", err)
		}
		name, err := crypto.Decrypt(token, s.key)
		if err != nil {
			s.logger.Error("profile name failed to decrypt", "id", id, "error", err)
			return nil, fmt.Errorf("vault: failed to decrypt name of profile %d: %w", id, err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate profile names", err)
	}

	return names, nil
}

// FindID returns the id of the profile whose decrypted name equals name.
func (s *Store) FindID(name string) (int64, error) {
	name = normalizeName(name)

	names, err := s.ListNames()
	if err != nil {
		return 0, err
	}
	for id, n := range names {
		if n == name {
			return id, nil
		}
	}
	return 0, ErrProfileNotFound
}

// Get returns the decrypted profile called name.
func (s *Store) Get(name string) (*Profile, error) {
	id, err := s.FindID(name)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRow("SELECT id, name, username, password, link FROM profiles WHERE id = ?", id)
	p, err := s.scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	return p, err
}

// Update replaces username, password and link of the profile called name.
// Nil optional fields are stored as NULL. The name itself is immutable.
func (s *Store) Update(name string, username *string, password string, link *string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	id, err := s.FindID(name)
	if err != nil {
		return err
	}

	fields, err := crypto.EncryptMany([]*string{optional(username), &password, optional(link)}, s.key)
	if err != nil {
		return fmt.Errorf("vault: failed to encrypt profile: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"UPDATE profiles SET username = ?, password = ?, link = ? WHERE id = ?",
		nullString(fields[0]), *fields[1], nullString(fields[2]), id,
	)
	if err != nil {
		return storageErr("update profile", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return storageErr("read rows affected", err)
	} else if n == 0 {
		s.names = nil
		return ErrProfileNotFound
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit transaction", err)
	}
	s.names = nil

	return nil
}

// Delete removes the profile called name. Deleting a profile that does not
// exist succeeds without changes.
func (s *Store) Delete(name string) error {
	id, err := s.FindID(name)
	if errors.Is(err, ErrProfileNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM profiles WHERE id = ?", id); err != nil {
		return storageErr("delete profile", err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit transaction", err)
	}
	s.names = nil
	s.logger.Debug("profile deleted", "id", id)

	return nil
}

// List returns every profile decrypted, in insertion order.
func (s *Store) List() ([]*Profile, error) {
	rows, err := s.db.Query("SELECT id, name, username, password, link FROM profiles ORDER BY id")
	if err != nil {
		return nil, storageErr("query profiles", err)
	}
	defer rows.Close()

	profiles := []*Profile{}
	for rows.Next() {
		p, err := s.scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate profiles", err)
	}

	return profiles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanProfile reads one profile row and decrypts its fields.
func (s *Store) scanProfile(row rowScanner) (*Profile, error) {
	var id int64
	var name, password string
	var username, link sql.NullString

	if err := row.Scan(&id, &name, &username, &password, &link); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, storageErr("scan profile", err)
	}

	fields, err := crypto.DecryptMany([]*string{&name, fromNull(username), &password, fromNull(link)}, s.key)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to decrypt profile %d: %w", id, err)
	}

	return &Profile{
		ID:       id,
		Name:     *fields[0],
		Username: fields[1],
		Password: *fields[2],
		Link:     fields[3],
	}, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
