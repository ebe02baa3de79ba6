package backfill

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrNoDataDir is returned when no data directory was configured.
	ErrNoDataDir = errors.New("backfill data directory is not configured")
	// ErrPathOutsideRoot rejects request paths that resolve outside the data directory.
	ErrPathOutsideRoot = errors.New("path is outside the data directory")
)

// dataRoot confines request paths to one directory tree.
type dataRoot struct {
	dir string
}

func newDataRoot(dir string) (*dataRoot, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, ErrNoDataDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("data directory %s: %w", dir, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("data directory %s: %w", dir, err)
	}
	return &dataRoot{dir: resolved}, nil
}

// Resolve maps a request path to its resolved location under the root.
// Relative paths are taken relative to the root. Symlinks are followed
// before the containment check.
func (d *dataRoot) Resolve(p string) (string, error) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(d.dir, p)
	}
	resolved, err := filepath.EvalSymlinks(filepath.Clean(p))
	if err != nil {
		// Report the lexical location so missing paths outside the root
		// are still refused as such.
		if !d.contains(filepath.Clean(p)) {
			return "", fmt.Errorf("%s: %w", p, ErrPathOutsideRoot)
		}
		return "", err
	}
	if !d.contains(resolved) {
		return "", fmt.Errorf("%s: %w", p, ErrPathOutsideRoot)
	}
	return resolved, nil
}

func (d *dataRoot) contains(p string) bool {
	rel, err := filepath.Rel(d.dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
