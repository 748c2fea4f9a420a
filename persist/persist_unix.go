//go:build !windows

package persist

import (
	"io"

	"github.com/google/renameio/v2"
)

func writeAtomic(path string, fn func(io.Writer) error) error {
	t, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return err
	}
	defer t.Cleanup()

	if err := fn(t); err != nil {
		return err
	}

	return t.CloseAtomicallyReplace()
}
