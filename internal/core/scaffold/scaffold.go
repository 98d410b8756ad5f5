// Package scaffold runs the fetch, extract, flatten and clean-up pipeline that
// turns a template archive into a new project directory.
package scaffold

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"

	"github.com/rs/zerolog"

	"github.com/leopaglia/blumen-installer/internal/core/fsys"
	"github.com/leopaglia/blumen-installer/internal/core/hasher"
	"github.com/leopaglia/blumen-installer/internal/core/logging"
)

var (
	// ErrTargetExists is returned when the project directory is already present.
	ErrTargetExists = errors.New("application already exists")
	// ErrUnexpectedArchiveLayout is returned when the extracted archive does
	// not consist of exactly one top-level directory.
	ErrUnexpectedArchiveLayout = errors.New("unexpected archive layout")
)

// State is the last stage a pipeline run reached.
type State int

const (
	// StateNone means the target directory was not created.
	StateNone State = iota
	// StateCreated means the empty target directory exists.
	StateCreated
	// StateFetched means the archive was downloaded to a temporary file.
	StateFetched
	// StateExtracted means the archive was unpacked into the target.
	StateExtracted
	// StateFlattening means entries are being moved out of the archive root.
	StateFlattening
	// StateCleanedUp means the run finished and the archive root is gone
	// unless stragglers kept it.
	StateCleanedUp
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateFetched:
		return "fetched"
	case StateExtracted:
		return "extracted"
	case StateFlattening:
		return "flattening"
	case StateCleanedUp:
		return "cleaned-up"
	default:
		return "none"
	}
}

// Fetcher downloads url to a temporary file on the pipeline's FS and returns
// its path.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Extractor unpacks archivePath into targetDir.
type Extractor interface {
	Extract(ctx context.Context, archivePath, targetDir string) error
}

// chmodder is implemented by filesystems that can change permissions.
type chmodder interface {
	Chmod(name string, mode os.FileMode) error
}

// Pipeline wires the stages together. All paths are relative to FS.
type Pipeline struct {
	FS        fsys.FS
	Fetcher   Fetcher
	Extractor Extractor
	Logger    zerolog.Logger
}

// Request describes one scaffolding run.
type Request struct {
	// Target is the project directory to create.
	Target string
	// ArchiveURL is the template archive to fetch.
	ArchiveURL string
}

// Result describes a completed run.
type Result struct {
	Target string
	// Root is the name of the archive's top-level folder.
	Root string
	// Copied is the copy ledger: sources under Root that were copied and
	// then removed.
	Copied []string
	// Stragglers are entries that could not be copied. They are left under
	// Root, which is kept for that reason.
	Stragglers    []string
	ArchiveDigest string
	State         State
}

// New returns a Pipeline with a component logger.
func New(fs fsys.FS, fetcher Fetcher, extractor Extractor) *Pipeline {
	return &Pipeline{
		FS:        fs,
		Fetcher:   fetcher,
		Extractor: extractor,
		Logger:    logging.GetLogger("scaffold"),
	}
}

// Run creates req.Target, downloads and extracts the archive into it and
// flattens the archive's top-level folder. The target must not exist.
//
// If fetching or extracting fails the target directory is removed again.
// Copy failures during flattening are not fatal; see Result.Stragglers.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{Target: req.Target}

	if err := fsys.CreateDir(p.FS, req.Target); err != nil {
		if errors.Is(err, os.ErrExist) {
			return res, fmt.Errorf("%s: %w", req.Target, ErrTargetExists)
		}
		return res, err
	}
	p.enter(res, StateCreated)

	archivePath, err := p.Fetcher.Fetch(ctx, req.ArchiveURL)
	if err != nil {
		p.rollback(req.Target)
		return res, fmt.Errorf("failed to fetch template: %w", err)
	}
	defer p.cleanUp(archivePath)
	p.enter(res, StateFetched)

	if digest, err := hasher.HashFile(p.FS, archivePath); err != nil {
		p.Logger.Debug().Err(err).Msg("Failed to digest archive")
	} else {
		res.ArchiveDigest = digest
		p.Logger.Info().Str("archive", archivePath).Str("digest", digest).Msg("Template archive downloaded")
	}

	if err := p.Extractor.Extract(ctx, archivePath, req.Target); err != nil {
		p.rollback(req.Target)
		return res, fmt.Errorf("failed to extract template: %w", err)
	}
	p.enter(res, StateExtracted)

	p.enter(res, StateFlattening)
	flat, err := Flatten(p.FS, req.Target, p.Logger)
	if flat != nil {
		res.Root = flat.Root
		res.Copied = flat.Copied
		res.Stragglers = flat.Stragglers
	}
	if err != nil {
		return res, err
	}

	p.enter(res, StateCleanedUp)
	return res, nil
}

func (p *Pipeline) enter(res *Result, s State) {
	res.State = s
	p.Logger.Debug().Str("target", res.Target).Stringer("state", s).Msg("Pipeline state changed")
}

// rollback removes a target directory this run created. Best effort.
func (p *Pipeline) rollback(target string) {
	if err := fsys.RemoveTree(p.FS, target); err != nil {
		p.Logger.Warn().Err(err).Str("target", target).Msg("Failed to remove partially created project")
	}
}

// cleanUp removes the temporary archive. Failures are logged and swallowed.
func (p *Pipeline) cleanUp(archivePath string) {
	if ch, ok := p.FS.(chmodder); ok {
		if err := ch.Chmod(archivePath, 0777); err != nil {
			p.Logger.Debug().Err(err).Str("archive", archivePath).Msg("Failed to reset archive permissions")
		}
	}
	if err := p.FS.Remove(archivePath); err != nil {
		p.Logger.Debug().Err(err).Str("archive", archivePath).Msg("Failed to remove temporary archive")
		return
	}
	p.Logger.Debug().Str("archive", archivePath).Msg("Removed temporary archive")
}

// FlattenResult is the outcome of Flatten.
type FlattenResult struct {
	Root       string
	Copied     []string
	Stragglers []string
}

// Flatten moves the contents of target's single top-level directory up into
// target. Every entry is copied first; only entries whose copy succeeded are
// deleted from the nested folder, which is removed once it is empty.
func Flatten(fs fsys.FS, target string, logger zerolog.Logger) (*FlattenResult, error) {
	defer logging.LogOperationStart(logger, "flatten")()

	rootName, err := findRoot(fs, target)
	if err != nil {
		return nil, err
	}
	res := &FlattenResult{Root: rootName}
	root := path.Join(target, rootName)

	entries, err := readNames(fs, root)
	if err != nil {
		return res, err
	}

	// An entry named like the root would be copied onto the root itself.
	for _, name := range entries {
		if name == rootName {
			root, err = moveAside(fs, target, rootName)
			if err != nil {
				return res, err
			}
			break
		}
	}

	for _, name := range entries {
		src := path.Join(root, name)
		dst := path.Join(target, name)
		if err := fsys.CopyTree(fs, src, dst); err != nil {
			logger.Info().Err(err).Str("entry", name).Msg("Failed to copy template entry, leaving it in place")
			res.Stragglers = append(res.Stragglers, src)
			continue
		}
		res.Copied = append(res.Copied, src)
	}

	for _, src := range res.Copied {
		if err := retire(fs, src); err != nil {
			return res, err
		}
	}

	if len(res.Stragglers) > 0 {
		logger.Info().Str("root", root).Int("stragglers", len(res.Stragglers)).Msg("Keeping extracted root folder")
		return res, nil
	}
	if err := fs.Remove(root); err != nil {
		return res, fmt.Errorf("failed to remove extracted root %s: %w", root, err)
	}
	return res, nil
}

// findRoot returns the name of the only entry in target, which must be a
// directory.
func findRoot(fs fsys.FS, target string) (string, error) {
	infos, err := fs.ReadDir(target)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", target, err)
	}
	var dirs, others []string
	for _, info := range infos {
		switch name := info.Name(); {
		case name == "." || name == "..":
		case info.IsDir():
			dirs = append(dirs, name)
		default:
			others = append(others, name)
		}
	}
	if len(dirs) != 1 || len(others) != 0 {
		return "", fmt.Errorf("expected exactly one top-level directory in %s, found %d directories and %d other entries: %w",
			target, len(dirs), len(others), ErrUnexpectedArchiveLayout)
	}
	return dirs[0], nil
}

func readNames(fs fsys.FS, dir string) ([]string, error) {
	infos, err := fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if n := info.Name(); n != "." && n != ".." {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

// moveAside renames target/rootName to an unused sibling name.
func moveAside(fs fsys.FS, target, rootName string) (string, error) {
	for i := 1; ; i++ {
		candidate := path.Join(target, fmt.Sprintf(".%s.flatten-%d", rootName, i))
		exists, err := fsys.Exists(fs, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", candidate, err)
		}
		if exists {
			continue
		}
		if err := fs.Rename(path.Join(target, rootName), candidate); err != nil {
			return "", fmt.Errorf("failed to move %s aside: %w", rootName, err)
		}
		return candidate, nil
	}
}

// retire deletes a source that has already been copied.
func retire(fs fsys.FS, src string) error {
	info, err := fs.Lstat(src)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if info.IsDir() {
		return fsys.RemoveTree(fs, src)
	}
	if err := fs.Remove(src); err != nil {
		return fmt.Errorf("failed to remove %s: %w", src, err)
	}
	return nil
}
