package fsys

import (
	"fmt"
	"path"
)

// RemoveTree deletes path and everything below it. Symbolic links are removed
// as links and never followed. The first failure aborts the walk.
func RemoveTree(fs FS, dir string) error {
	info, err := fs.Lstat(dir)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		if err := fs.Remove(dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
		return nil
	}

	entries, err := fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if name == "." || name == ".." {
			continue
		}
		full := path.Join(dir, name)
		if entry.IsDir() {
			if err := RemoveTree(fs, full); err != nil {
				return err
			}
			continue
		}
		if err := fs.Remove(full); err != nil {
			return fmt.Errorf("failed to remove %s: %w", full, err)
		}
	}

	if err := fs.Remove(dir); err != nil {
		return fmt.Errorf("failed to remove directory %s: %w", dir, err)
	}
	return nil
}
