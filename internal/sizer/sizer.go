// Package sizer walks a directory tree and annotates it with byte sizes.
//
// The walk is depth-first in lexical order and total over whatever the
// filesystem exposes: entries that cannot be sized (dangling symlinks,
// permission errors) become [SkipRecord] warnings rather than failures.
// Only a missing or non-directory root is fatal.
package sizer

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/scansplit/scansplit/internal/errors"
)

// Options configures a sizing walk.
type Options struct {
	// Exclude lists directory patterns to omit from the tree entirely.
	// A pattern matches either the directory's base name or its full path,
	// using path.Match glob syntax. Excluded directories contribute size 0.
	Exclude []string
}

// SizeTree walks root and returns the size-annotated tree plus the list of
// entries that could not be sized. It fails only if root does not exist or
// is not a directory; every other failure is recorded as a SkipRecord and
// the walk continues.
func SizeTree(root string, opts Options) (*Node, []SkipRecord, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, errors.NewNotFoundError(root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, errors.NewNotFoundError(abs, errors.ErrTargetNotFound)
		}
		return nil, nil, errors.NewNotFoundError(abs, err)
	}
	if !info.IsDir() {
		return nil, nil, errors.NewNotFoundError(abs, errors.ErrNotADirectory)
	}

	w := &walker{exclude: opts.Exclude}
	node := w.walkDir(abs)
	return node, w.skips, nil
}

type walker struct {
	exclude []string
	skips   []SkipRecord
}

func (w *walker) skip(path string, reason error) {
	w.skips = append(w.skips, SkipRecord{Path: path, Reason: reason.Error()})
}

// excluded reports whether a directory matches any exclude pattern, by base
// name or full path.
func (w *walker) excluded(dir string) bool {
	base := filepath.Base(dir)
	for _, pattern := range w.exclude {
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
		if ok, _ := path.Match(pattern, filepath.ToSlash(dir)); ok {
			return true
		}
	}
	return false
}

// walkDir builds the node for one directory, post-order. dir must be an
// absolute path to an existing directory.
func (w *walker) walkDir(dir string) *Node {
	node := &Node{Path: dir, Kind: KindDir}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.skip(dir, err)
		return node
	}

	// os.ReadDir sorts entries by name, which is the traversal order the
	// partitioner's determinism relies on.
	for _, entry := range entries {
		child := w.walkEntry(filepath.Join(dir, entry.Name()), entry)
		if child == nil {
			continue
		}
		node.Children = append(node.Children, child)
		node.Size += child.Size
		node.Files += child.Files
	}
	return node
}

// walkEntry builds the node for a single directory entry, or returns nil if
// the entry produced no node (excluded or skipped).
func (w *walker) walkEntry(path string, entry fs.DirEntry) *Node {
	if entry.IsDir() {
		if w.excluded(path) {
			return nil
		}
		return w.walkDir(path)
	}

	if entry.Type()&fs.ModeSymlink != 0 {
		return w.walkSymlink(path)
	}

	info, err := entry.Info()
	if err != nil {
		w.skip(path, err)
		return nil
	}
	if !info.Mode().IsRegular() {
		w.skip(path, errors.New("not a regular file"))
		return nil
	}
	return &Node{Path: path, Kind: KindFile, Size: info.Size(), Files: 1}
}

// walkSymlink sizes a symlink entry without following directory links.
// A link to a regular file counts with the target's size; a dangling link
// or a link to a directory becomes a SkipRecord.
func (w *walker) walkSymlink(path string) *Node {
	info, err := os.Stat(path)
	if err != nil {
		w.skip(path, err)
		return nil
	}
	if info.IsDir() {
		w.skip(path, errors.New("symbolic link to directory not followed"))
		return nil
	}
	return &Node{Path: path, Kind: KindFile, Size: info.Size(), Files: 1}
}
