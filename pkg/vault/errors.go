package vault

import (
	"errors"
	"fmt"

	"github.com/forest6511/vaultkeeper/pkg/crypto"
)

// Errors
var (
	ErrAlreadyExists    = errors.New("vault: vault already exists")
	ErrNotFound         = errors.New("vault: vault not found")
	ErrWrongPassword    = errors.New("vault: wrong master password")
	ErrNotOpen          = errors.New("vault: vault is not open")
	ErrClosed           = errors.New("vault: vault is closed")
	ErrAlreadyOpen      = errors.New("vault: vault is already open")
	ErrVaultBusy        = errors.New("vault: vault is in use by another process")
	ErrInvalidVaultName = errors.New("vault: invalid vault name")
	ErrVaultCorrupted   = errors.New("vault: vault is corrupted")
	ErrInsufficientDisk = errors.New("vault: insufficient disk space")
	ErrAuditDisabled    = errors.New("vault: audit logging is disabled")

	ErrProfileNotFound = errors.New("vault: profile not found")
	ErrDuplicate       = errors.New("vault: profile with this name already exists")
	ErrInvalidInput    = errors.New("vault: invalid input")

	// ErrStorage matches every *StorageError through errors.Is.
	ErrStorage = errors.New("vault: storage failure")

	// ErrAuthenticationFailed is the cipher-level failure underlying
	// ErrWrongPassword. Decrypting a stored field under the session key can
	// also return it when the vault file was tampered with.
	ErrAuthenticationFailed = crypto.ErrAuthenticationFailed
)

// StorageError reports a failed database or filesystem operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("vault: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
