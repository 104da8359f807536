// Package atomicfile provides the single write-to-temp-then-rename
// primitive shared by the State Store and the Checkpoint Store, so
// durable writes never leave readers with a partial document.
package atomicfile

import (
	"os"
	"path/filepath"
)

// Write durably writes data to path: it creates a uniquely-named
// temporary file in path's directory, writes the full contents,
// fsyncs, and renames it into place. The rename is the commit point —
// a crash at any earlier step leaves the prior contents of path
// untouched.
func Write(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return nil
}
