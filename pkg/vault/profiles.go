package vault

import (
	"errors"

	"github.com/forest6511/vaultkeeper/pkg/audit"
)

// AddProfile stores a new profile and returns its id.
// Username and link are optional; nil or "" means absent.
func (v *Vault) AddProfile(name, password string, username, link *string) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	store, err := v.ready()
	if err != nil {
		return 0, err
	}
	if err := v.checkDiskSpace(profileSize(name, password, username, link)); err != nil {
		return 0, err
	}

	id, err := store.Add(name, password, username, link)
	v.record(audit.OpProfileAdd, name, err)
	return id, err
}

// GetProfile returns the decrypted profile called name.
func (v *Vault) GetProfile(name string) (*Profile, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	store, err := v.ready()
	if err != nil {
		return nil, err
	}

	p, err := store.Get(name)
	v.record(audit.OpProfileGet, name, err)
	return p, err
}

// ProfileExists reports whether a profile called name is stored.
func (v *Vault) ProfileExists(name string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	store, err := v.ready()
	if err != nil {
		return false, err
	}

	_, err = store.FindID(name)
	switch {
	case err == nil:
		v.record(audit.OpProfileExists, name, nil)
		return true, nil
	case errors.Is(err, ErrProfileNotFound):
		v.record(audit.OpProfileExists, name, nil)
		return false, nil
	default:
		v.record(audit.OpProfileExists, name, err)
		return false, err
	}
}

// UpdateProfile replaces the username, password and link of the profile
// called name. The name itself cannot change.
//
// All three fields are replaced, not merged: a nil or "" username or link
// removes the stored value. To change only the password, pass the current
// username and link from GetProfile.
func (v *Vault) UpdateProfile(name string, username *string, password string, link *string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	store, err := v.ready()
	if err != nil {
		return err
	}
	if err := v.checkDiskSpace(profileSize(name, password, username, link)); err != nil {
		return err
	}

	err = store.Update(name, username, password, link)
	v.record(audit.OpProfileUpdate, name, err)
	return err
}

// DeleteProfile removes the profile called name. Deleting a missing profile
// succeeds.
func (v *Vault) DeleteProfile(name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	store, err := v.ready()
	if err != nil {
		return err
	}

	err = store.Delete(name)
	v.record(audit.OpProfileDelete, name, err)
	return err
}

// ListProfiles returns every profile decrypted, in insertion order.
func (v *Vault) ListProfiles() ([]*Profile, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	store, err := v.ready()
	if err != nil {
		return nil, err
	}

	profiles, err := store.List()
	v.record(audit.OpProfileList, "", err)
	return profiles, err
}

// ListProfileNames returns the decrypted profile names keyed by profile id.
// The map is a copy owned by the caller.
func (v *Vault) ListProfileNames() (map[int64]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	store, err := v.ready()
	if err != nil {
		return nil, err
	}

	names, err := store.ListNames()
	v.record(audit.OpProfileList, "", err)
	return names, err
}

// RecordImport writes one audit event summarizing a bulk import.
func (v *Vault) RecordImport(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state == StateOpen {
		v.record(audit.OpProfileImport, "", err)
	}
}

// profileSize approximates the encrypted size of a profile for disk checks.
func profileSize(name, password string, username, link *string) int {
	n := len(name) + len(password)
	if username != nil {
		n += len(*username)
	}
	if link != nil {
		n += len(*link)
	}
	// base64 of nonce, tag and version per field
	return n*2 + 4*64
}
