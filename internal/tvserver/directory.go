// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tvserver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ManuGH/tvinput/internal/status"
)

// Directory resolves service names to unix sockets under a root directory.
// A service is published while its socket file exists.
type Directory struct {
	Root string
}

// Path returns the socket path a service named name publishes at.
func (d Directory) Path(name string) string {
	return filepath.Join(d.Root, name+".sock")
}

// Lookup returns the socket path for name, or an error wrapping
// status.ErrServiceNotPublished when nothing is listening there yet.
func (d Directory) Lookup(name string) (string, error) {
	path := d.Path(name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", status.ErrServiceNotPublished, name)
		}
		return "", fmt.Errorf("lookup %s: %w", name, err)
	}
	if info.Mode()&fs.ModeSocket == 0 {
		return "", fmt.Errorf("%w: %s is not a socket", status.ErrServiceNotPublished, path)
	}
	return path, nil
}
