package detect

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/scansplit/scansplit/internal/partition"
	"github.com/scansplit/scansplit/internal/sizer"
)

// Target is the filesystem view Detect is pointed at for one group: a
// source path plus exclusion patterns for everything under it that belongs
// to other groups.
type Target struct {
	// SourcePath is the directory (or single file) Detect scans.
	SourcePath string
	// Excludes are signature scanner exclusion patterns relative to
	// SourcePath, in the scanner's /path/ form.
	Excludes []string
}

// target resolves a group to its Detect target. A single-member group is
// scanned directly. A multi-member group is scanned as the deepest common
// ancestor directory of its members, excluding every subtree under that
// ancestor that the group does not cover.
func (e *DetectExecutor) target(group partition.Group) Target {
	if len(group.Members) == 1 {
		return Target{SourcePath: group.Members[0]}
	}

	source := commonParent(group.Members)
	node, ok := e.index[source]
	if !ok {
		return Target{SourcePath: source}
	}

	covered := make(map[string]bool, len(group.Members))
	for _, m := range group.Members {
		covered[m] = true
	}

	var excludes []string
	collectExcludes(node, covered, group.Members, source, &excludes)
	sort.Strings(excludes)
	return Target{SourcePath: source, Excludes: excludes}
}

// collectExcludes walks the subtree under dir and records an exclusion
// pattern for every entry the group does not cover. Partially-covered
// directories are descended instead of excluded whole.
func collectExcludes(dir *sizer.Node, covered map[string]bool, members []string, source string, out *[]string) {
	for _, child := range dir.Children {
		if covered[child.Path] {
			continue
		}
		if child.Kind == sizer.KindDir && containsAny(child.Path, members) {
			collectExcludes(child, covered, members, source, out)
			continue
		}
		*out = append(*out, excludePattern(child, source))
	}
}

// excludePattern renders the scanner exclusion pattern for one subtree,
// relative to the scan source path.
func excludePattern(n *sizer.Node, source string) string {
	rel := strings.TrimPrefix(n.Path, source)
	rel = filepath.ToSlash(rel)
	if n.Kind == sizer.KindDir && !strings.HasSuffix(rel, "/") {
		rel += "/"
	}
	return rel
}

// containsAny reports whether any member path lies inside dir.
func containsAny(dir string, members []string) bool {
	prefix := dir + string(filepath.Separator)
	for _, m := range members {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

// commonParent returns the deepest directory containing every path.
func commonParent(paths []string) string {
	parent := filepath.Dir(paths[0])
	for _, p := range paths[1:] {
		for !within(parent, p) {
			next := filepath.Dir(parent)
			if next == parent {
				break
			}
			parent = next
		}
	}
	return parent
}

// within reports whether p lies inside dir (or is dir itself).
func within(dir, p string) bool {
	return p == dir || strings.HasPrefix(p, dir+string(filepath.Separator))
}
