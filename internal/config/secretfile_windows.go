//go:build windows

package config

import "os"

// openFile opens path. Windows has no O_NOFOLLOW; creating symlinks there
// needs elevated privileges.
func openFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDONLY, 0)
}

// checkFileOwnership is a no-op: Windows ownership is expressed through ACLs.
func checkFileOwnership(_ os.FileInfo) error {
	return nil
}
