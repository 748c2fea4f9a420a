//go:build windows

package persist

import (
	"io"
	"os"
	"path/filepath"
)

// renameio has no Windows implementation; write a sibling temp file and
// rename it over the target, which MoveFileEx does in one step.
func writeAtomic(path string, fn func(io.Writer) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
