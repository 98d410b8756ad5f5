package fsys

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
)

// CopyTree copies a file, symbolic link or directory tree from source to dest.
//
// Symbolic links are recreated with the same target rather than followed.
// Directories are copied entry by entry; a failing child does not stop the
// remaining entries from being copied, and every child failure is returned
// joined. A nil error means the whole tree was copied.
func CopyTree(fs FS, source, dest string) error {
	info, err := fs.Lstat(source)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", source, err)
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return copySymlink(fs, source, dest)
	case info.Mode().IsRegular():
		return copyFile(fs, source, dest, info.Mode().Perm())
	case info.IsDir():
		return copyDir(fs, source, dest)
	default:
		return fmt.Errorf("failed to copy %s: unsupported file type %s", source, info.Mode().Type())
	}
}

func copySymlink(fs FS, source, dest string) error {
	target, err := fs.Readlink(source)
	if err != nil {
		return fmt.Errorf("failed to read link %s: %w", source, err)
	}
	if err := fs.Symlink(target, dest); err != nil {
		return fmt.Errorf("failed to create link %s -> %s: %w", dest, target, err)
	}
	return nil
}

func copyFile(fs FS, source, dest string, perm os.FileMode) error {
	in, err := fs.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", source, err)
	}
	defer func() { _ = in.Close() }()

	out, err := fs.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", source, dest, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dest, err)
	}
	return nil
}

func copyDir(fs FS, source, dest string) error {
	exists, err := Exists(fs, dest)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", dest, err)
	}
	if !exists {
		if err := fs.MkdirAll(dest, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dest, err)
		}
	}

	entries, err := fs.ReadDir(source)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", source, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var errs []error
	for _, entry := range entries {
		name := entry.Name()
		if name == "." || name == ".." {
			continue
		}
		if err := CopyTree(fs, path.Join(source, name), path.Join(dest, name)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
