package vault

import (
	"errors"
	"path/filepath"

	"github.com/forest6511/vaultkeeper/pkg/audit"
)

// AuditDir returns the audit log directory of the vault called name.
func AuditDir(dir, name string) string {
	return filepath.Join(dir, "audit", name)
}

// AuditLogger returns the audit log of an open vault. It fails with
// ErrAuditDisabled when auditing is off or could not start.
func (v *Vault) AuditLogger() (*audit.Logger, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, err := v.ready(); err != nil {
		return nil, err
	}
	if v.audit == nil {
		return nil, ErrAuditDisabled
	}
	return v.audit, nil
}

// startAudit keys the audit chain with the session key. Callers hold v.mu.
func (v *Vault) startAudit() {
	if v.audit == nil {
		return
	}
	if err := v.audit.SetHMACKey(v.key); err != nil {
		v.logger.Warn("audit log disabled for this session", "error", err)
		v.audit = nil
	}
}

// record appends an audit event. Audit failures never fail the operation
// being recorded. Callers hold v.mu.
func (v *Vault) record(op, profile string, err error) {
	if v.audit == nil {
		return
	}

	var logErr error
	if err == nil {
		logErr = v.audit.LogSuccess(op, v.auditSource, profile)
	} else {
		logErr = v.audit.LogError(op, v.auditSource, profile, errorCode(err), "")
	}
	if logErr != nil {
		v.logger.Warn("failed to write audit event", "op", op, "error", logErr)
	}
}

// errorCode maps an error to the stable code written to the audit log.
// Messages are not logged because they can carry profile names.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrWrongPassword):
		return "WRONG_PASSWORD"
	case errors.Is(err, ErrProfileNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrDuplicate):
		return "DUPLICATE"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrInsufficientDisk):
		return "DISK_FULL"
	case errors.Is(err, ErrAuthenticationFailed):
		return "AUTH_FAILED"
	case errors.Is(err, ErrStorage):
		return "STORAGE"
	default:
		return "ERROR"
	}
}
