// Package extractor unpacks template archives into a directory of an fsys.FS.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"github.com/mholt/archives"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/leopaglia/blumen-installer/internal/core/fsys"
)

var (
	// ErrArchiveUnreadable is wrapped when the archive cannot be opened,
	// identified or parsed, or when an entry would land outside the target.
	ErrArchiveUnreadable = errors.New("archive unreadable or corrupt")
	// ErrMissingCapability is wrapped when the archive format is recognised
	// but cannot be extracted.
	ErrMissingCapability = errors.New("archive format does not support extraction")
)

// Extractor writes archive entries to FS.
type Extractor struct {
	FS fsys.FS
	// Progress receives an entry counter; nil disables it.
	Progress io.Writer
	Logger   zerolog.Logger
}

// New returns an Extractor for fs.
func New(fs fsys.FS) *Extractor {
	return &Extractor{FS: fs, Logger: zerolog.Nop()}
}

// Extract unpacks archivePath into targetDir, keeping the archive's internal
// directory structure. targetDir is created if needed.
func (e *Extractor) Extract(ctx context.Context, archivePath, targetDir string) error {
	file, err := e.FS.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w: %w", archivePath, ErrArchiveUnreadable, err)
	}
	defer func() { _ = file.Close() }()

	format, _, err := archives.Identify(ctx, archivePath, file)
	if err != nil {
		return fmt.Errorf("failed to identify archive %s: %w: %w", archivePath, ErrArchiveUnreadable, err)
	}
	ex, ok := format.(archives.Extractor)
	if !ok {
		return fmt.Errorf("failed to extract %s (%T): %w", archivePath, format, ErrMissingCapability)
	}
	// Identify may have consumed the header; zip needs the whole file.
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind archive %s: %w: %w", archivePath, ErrArchiveUnreadable, err)
	}

	if err := e.FS.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", targetDir, err)
	}

	var bar *progressbar.ProgressBar
	if e.Progress != nil {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(e.Progress),
			progressbar.OptionSetDescription("Extracting"),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		defer func() { _ = bar.Finish() }()
	}

	var entryErr error
	count := 0
	handler := func(ctx context.Context, f archives.FileInfo) error {
		if err := e.writeEntry(targetDir, f); err != nil {
			entryErr = err
			return err
		}
		count++
		if bar != nil {
			_ = bar.Add(1)
		}
		return nil
	}

	if err := ex.Extract(ctx, file, handler); err != nil {
		if entryErr != nil {
			return entryErr
		}
		return fmt.Errorf("failed to extract %s: %w: %w", archivePath, ErrArchiveUnreadable, err)
	}

	e.Logger.Debug().Str("archive", archivePath).Str("target", targetDir).Int("entries", count).Msg("Archive extracted")
	return nil
}

func (e *Extractor) writeEntry(targetDir string, f archives.FileInfo) error {
	name := path.Clean(strings.TrimLeft(f.NameInArchive, "/"))
	if name == "." {
		return nil
	}
	if name == ".." || strings.HasPrefix(name, "../") {
		return fmt.Errorf("entry %q escapes %s: %w", f.NameInArchive, targetDir, ErrArchiveUnreadable)
	}
	dest := path.Join(targetDir, name)
	if err := e.refuseLinkedPath(targetDir, name); err != nil {
		return err
	}

	if f.IsDir() {
		if err := e.FS.MkdirAll(dest, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dest, err)
		}
		return nil
	}

	if err := e.FS.MkdirAll(path.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path.Dir(dest), err)
	}

	if f.Mode()&fs.ModeSymlink != 0 {
		return e.writeSymlink(dest, f)
	}

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0644
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open entry %s: %w: %w", f.NameInArchive, ErrArchiveUnreadable, err)
	}
	defer func() { _ = rc.Close() }()

	out, err := e.FS.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dest, err)
	}
	return nil
}

func (e *Extractor) writeSymlink(dest string, f archives.FileInfo) error {
	target := f.LinkTarget
	if target == "" {
		// zip stores the link target as the entry body
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open entry %s: %w: %w", f.NameInArchive, ErrArchiveUnreadable, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return fmt.Errorf("failed to read link %s: %w: %w", f.NameInArchive, ErrArchiveUnreadable, err)
		}
		target = string(data)
	}
	if err := e.FS.Symlink(target, dest); err != nil {
		return fmt.Errorf("failed to create link %s -> %s: %w", dest, target, err)
	}
	return nil
}

// refuseLinkedPath fails if any existing component of targetDir/name is a
// symbolic link. Writing through a link extracted earlier could land outside
// targetDir.
func (e *Extractor) refuseLinkedPath(targetDir, name string) error {
	cur := targetDir
	for _, part := range strings.Split(name, "/") {
		cur = path.Join(cur, part)
		info, err := e.FS.Lstat(cur)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", cur, err)
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("entry %q would be written through link %s: %w", name, cur, ErrArchiveUnreadable)
		}
	}
	return nil
}
