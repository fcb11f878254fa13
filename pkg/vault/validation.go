package vault

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/forest6511/vaultkeeper/pkg/crypto"
	"github.com/forest6511/vaultkeeper/pkg/passgen"
)

const (
	validationRowID = 1
	probeLength     = 32
)

// writeValidationRow stores a random probe and its ciphertext under the
// store key. It runs once, when the vault is provisioned.
func (s *Store) writeValidationRow() error {
	probe, err := passgen.RandomString(probeLength)
	if err != nil {
		return fmt.Errorf("vault: failed to generate validation probe: %w", err)
	}
	token, err := crypto.Encrypt(probe, s.key)
	if err != nil {
		return fmt.Errorf("vault: failed to encrypt validation probe: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO validation (id, plain_text, encrypted_text) VALUES (?, ?, ?)",
		validationRowID, probe, token,
	)
	if err != nil {
		return storageErr("insert validation row", err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit transaction", err)
	}
	return nil
}

// Validate reports whether the store key decrypts the validation row.
//
// A false result means the key is wrong. Errors other than an
// authentication failure, including a missing validation row, are returned
// as errors.
func (s *Store) Validate() (bool, error) {
	var token string
	err := s.db.QueryRow("SELECT encrypted_text FROM validation WHERE id = ?", validationRowID).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("%w: validation row missing", ErrVaultCorrupted)
		}
		return false, storageErr("read validation row", err)
	}

	if _, err := crypto.Decrypt(token, s.key); err != nil {
		if errors.Is(err, crypto.ErrAuthenticationFailed) {
			return false, nil
		}
		return false, fmt.Errorf("vault: failed to check master password: %w", err)
	}
	return true, nil
}
