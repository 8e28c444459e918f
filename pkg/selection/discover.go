package selection

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/pystyle/pkg/pysyntax"
)

// ErrRootNotDir is returned when the lint root is not a directory.
var ErrRootNotDir = errors.New("root is not a directory")

const gitDir = ".git"

// Options tune discovery.
type Options struct {
	// Ignore lists root-relative paths to skip. Nil ignores nothing.
	Ignore *IgnoreList
	// SkipVendor skips paths enry recognises as vendored code.
	SkipVendor bool
}

// Discover returns every Python file under root that is not ignored, sorted
// lexically. Returned paths are root joined with the relative path.
func Discover(ctx context.Context, root string, opts Options) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDir, root)
	}

	var files []string

	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		ctxErr := ctx.Err()
		if ctxErr != nil {
			return ctxErr
		}

		if path == root {
			return nil
		}

		skip, err := shouldSkip(root, path, entry, opts)
		if skip || err != nil {
			return err
		}

		files = append(files, path)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	slices.Sort(files)

	return files, nil
}

// shouldSkip decides whether a walk entry is excluded. For directories the
// returned error is filepath.SkipDir when the subtree is excluded.
func shouldSkip(root, path string, entry fs.DirEntry, opts Options) (bool, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return true, fmt.Errorf("relative path: %w", err)
	}

	rel = filepath.ToSlash(rel)

	if entry.IsDir() {
		if entry.Name() == gitDir || opts.Ignore.Match(rel) || (opts.SkipVendor && enry.IsVendor(rel+"/")) {
			return true, filepath.SkipDir
		}

		return true, nil
	}

	if !entry.Type().IsRegular() || !pysyntax.IsSupported(path) {
		return true, nil
	}

	if opts.Ignore.Match(rel) || (opts.SkipVendor && enry.IsVendor(rel)) {
		return true, nil
	}

	return false, nil
}
