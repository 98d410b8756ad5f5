// Package fsys defines the filesystem capability used by the scaffolding
// pipeline and the recursive copy/remove helpers built on top of it.
package fsys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
)

// FS is the subset of billy.Filesystem the pipeline needs, plus an atomic
// directory create. Paths are relative to the filesystem root.
type FS interface {
	billy.Basic
	billy.Dir
	billy.Symlink

	// Mkdir creates a single directory and fails with os.ErrExist if the
	// path is already present.
	Mkdir(path string, perm os.FileMode) error
}

// osFS is a disk-backed FS rooted at a directory.
type osFS struct {
	billy.Filesystem
	root string
}

// NewOS returns an FS rooted at root on the local disk.
func NewOS(root string) FS {
	return &osFS{Filesystem: osfs.New(root), root: root}
}

// Mkdir uses os.Mkdir directly so the existence check and the create are a
// single syscall.
func (o *osFS) Mkdir(path string, perm os.FileMode) error {
	return os.Mkdir(o.abs(path), perm)
}

// Symlink writes target verbatim. The chroot helper would rebase absolute
// targets onto root.
func (o *osFS) Symlink(target, link string) error {
	return os.Symlink(target, o.abs(link))
}

// Readlink returns the target as stored on disk.
func (o *osFS) Readlink(link string) (string, error) {
	return os.Readlink(o.abs(link))
}

func (o *osFS) abs(name string) string {
	return filepath.Join(o.root, filepath.FromSlash(name))
}

// Chmod is forwarded when the underlying filesystem supports it.
func (o *osFS) Chmod(name string, mode os.FileMode) error {
	if ch, ok := o.Filesystem.(billy.Change); ok {
		return ch.Chmod(name, mode)
	}
	return os.Chmod(o.abs(name), mode)
}

// memFS is an in-memory FS, used by tests.
type memFS struct {
	billy.Filesystem
}

// NewMemory returns an empty in-memory FS.
func NewMemory() FS {
	return &memFS{Filesystem: memfs.New()}
}

// Mkdir on the in-memory filesystem is check-then-create; memfs has no
// exclusive directory create and is only ever used from one goroutine.
func (m *memFS) Mkdir(path string, perm os.FileMode) error {
	if _, err := m.Lstat(path); err == nil {
		return &os.PathError{Op: "mkdir", Path: path, Err: os.ErrExist}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	parent := filepath.Dir(path)
	if parent != "." && parent != "/" {
		if _, err := m.Stat(parent); err != nil {
			return &os.PathError{Op: "mkdir", Path: path, Err: os.ErrNotExist}
		}
	}
	return m.MkdirAll(path, perm)
}

// Rename moves directories by copying and removing them. memfs renames
// descendants one by one and can lose entries of a directory tree.
func (m *memFS) Rename(from, to string) error {
	info, err := m.Lstat(from)
	if err != nil {
		return &os.LinkError{Op: "rename", Old: from, New: to, Err: err}
	}
	if !info.IsDir() {
		return m.Filesystem.Rename(from, to)
	}
	if _, err := m.Lstat(to); err == nil {
		return &os.LinkError{Op: "rename", Old: from, New: to, Err: os.ErrExist}
	}
	if err := CopyTree(m, from, to); err != nil {
		return err
	}
	return RemoveTree(m, from)
}

// Chmod is forwarded to memfs.
func (m *memFS) Chmod(name string, mode os.FileMode) error {
	if ch, ok := m.Filesystem.(billy.Change); ok {
		return ch.Chmod(name, mode)
	}
	return fmt.Errorf("chmod not supported for %s", name)
}

// CreateDir creates path, failing with an error wrapping os.ErrExist if it
// is already present.
func CreateDir(fs FS, path string) error {
	if err := fs.Mkdir(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path is present, without following a final symlink.
func Exists(fs FS, path string) (bool, error) {
	_, err := fs.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
