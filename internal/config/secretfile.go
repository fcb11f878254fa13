package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	ErrSecretFileInsecure = errors.New("secret file has insecure permissions")
	ErrSecretFileSymlink  = errors.New("secret file is a symlink")
	ErrSecretFileNotOwned = errors.New("secret file not owned by current user")
)

// MaxSecretFileSize bounds ReadSecretFile.
const MaxSecretFileSize = 4096

// ReadSecretFile reads a secret such as a master password from path.
//
// The file must be a regular file owned by the current user with mode 0600
// or 0400; symlinks are refused. Checks run on the opened descriptor. One
// trailing newline is stripped.
func ReadSecretFile(path string) (string, error) {
	f, info, err := openNoFollow(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", path)
	}
	if perm := info.Mode().Perm(); perm != 0600 && perm != 0400 {
		return "", fmt.Errorf("%w: %04o (expected 0600)", ErrSecretFileInsecure, perm)
	}
	if err := checkFileOwnership(info); err != nil {
		return "", err
	}

	content, err := io.ReadAll(io.LimitReader(f, MaxSecretFileSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	if len(content) > MaxSecretFileSize {
		return "", fmt.Errorf("secret file is larger than %d bytes", MaxSecretFileSize)
	}

	content = bytes.TrimSuffix(content, []byte("\n"))
	content = bytes.TrimSuffix(content, []byte("\r"))
	return string(content), nil
}

// openNoFollow opens path without following a final symlink and returns the
// descriptor's file info.
func openNoFollow(path string) (*os.File, os.FileInfo, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return f, info, nil
}
