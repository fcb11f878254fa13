// Package diskspace reports free space on the filesystem holding a path.
package diskspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrInsufficient is returned by Require when the filesystem is too full.
var ErrInsufficient = errors.New("diskspace: insufficient disk space")

// Info describes the filesystem holding a path.
type Info struct {
	Total     uint64 `json:"total"`
	Free      uint64 `json:"free"`
	Available uint64 `json:"available"` // available to unprivileged users
	UsedPct   int    `json:"used_pct"`
}

// Check returns space information for path. When path does not exist yet the
// nearest existing parent directory is used instead.
func Check(path string) (*Info, error) {
	path = existingAncestor(path)

	info, err := stat(path)
	if err != nil {
		return nil, fmt.Errorf("diskspace: failed to get disk stats for %s: %w", path, err)
	}
	if info.Total > 0 {
		info.UsedPct = int(100 * (info.Total - info.Free) / info.Total)
	}
	return info, nil
}

// Require returns ErrInsufficient unless at least max(minBytes, 2*dataSize)
// bytes are available at path.
func Require(path string, minBytes uint64, dataSize int) (*Info, error) {
	info, err := Check(path)
	if err != nil {
		return nil, err
	}

	required := minBytes
	if n := uint64(dataSize) * 2; n > required {
		required = n
	}
	if info.Available < required {
		return info, fmt.Errorf("%w: only %d KB available, need at least %d KB",
			ErrInsufficient, info.Available/1024, required/1024)
	}
	return info, nil
}

func existingAncestor(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}
