package api

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/tomes/pkg/material"
)

var (
	// ErrFileSyncDisabled is returned for file items when no file root is
	// configured.
	ErrFileSyncDisabled = errors.New("file sync is disabled: no ingest file root configured")

	// ErrOutsideFileRoot is returned for file paths that resolve outside the
	// configured root.
	ErrOutsideFileRoot = errors.New("file is outside the ingest file root")
)

// confineItem rewrites a file item's path to its location under root.
// Relative paths are taken relative to root; symlinks are resolved before
// the containment check. Text and link items pass through unchanged.
func confineItem(item material.Item, root string) (material.Item, error) {
	src, ok := item.Source.(material.FileSource)
	if !ok {
		return item, nil
	}
	if root == "" {
		return item, ErrFileSyncDisabled
	}

	path, err := resolveUnder(root, src.Path)
	if err != nil {
		return item, err
	}

	src.Path = path
	item.Source = src
	return item, nil
}

func resolveUnder(root, path string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving file root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}

	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(absRoot, candidate)
	}
	candidate = filepath.Clean(candidate)
	// A missing file resolves through its parent and fails later at extraction.
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	} else if dir, err := filepath.EvalSymlinks(filepath.Dir(candidate)); err == nil {
		candidate = filepath.Join(dir, filepath.Base(candidate))
	}

	rel, err := filepath.Rel(absRoot, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s", ErrOutsideFileRoot, path)
	}
	return candidate, nil
}
