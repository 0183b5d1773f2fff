package converter

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// writeFileAtomic stores data at path by writing a temporary file in the same
// directory and renaming it over path. On failure the temporary file is removed
// and whatever was at path before is left as it was.
//
// Arguments:
// - path: Final location of the file.
// - data: Complete file contents.
// - perm: Permission bits of the final file.
//
// Returns:
// - error: An error if any step of create, write, sync or rename fails.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temporary file")
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return errors.Wrap(err, "write temporary file")
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrap(err, "sync temporary file")
	}
	if err = tmp.Chmod(perm); err != nil {
		return errors.Wrap(err, "chmod temporary file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close temporary file")
	}
	if err = os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "replace destination")
	}

	return nil
}
