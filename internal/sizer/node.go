package sizer

// Kind identifies what a Node represents on disk.
type Kind int

const (
	// KindFile is a regular file (or a symlink resolving to one).
	KindFile Kind = iota
	// KindDir is a directory.
	KindDir
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	default:
		return "unknown"
	}
}

// Node is one entry of the sized tree. A directory's Size and Files are the
// sums over its descendants, computed post-order at snapshot time; the tree
// is not kept consistent with later filesystem mutation.
type Node struct {
	// Path is the absolute path of the entry.
	Path string
	// Kind distinguishes files from directories.
	Kind Kind
	// Size is the byte size of a file, or the cumulative size of all
	// descendant files for a directory. Entries that could not be sized
	// contribute 0.
	Size int64
	// Files is the number of descendant files (1 for a file node). A
	// directory with Files == 0 contains nothing scannable.
	Files int
	// Children holds a directory's entries in lexical order. Nil for files.
	Children []*Node
}

// SkipRecord notes a filesystem entry that could not be sized. Skips never
// abort a walk; they are surfaced to the user as warnings and the entry
// contributes size 0 to every ancestor aggregate.
type SkipRecord struct {
	// Path is the absolute path of the skipped entry.
	Path string `json:"path"`
	// Reason describes why the entry was skipped.
	Reason string `json:"reason"`
}
