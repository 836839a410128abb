// Package partition splits a sized directory tree into scan units bounded
// by a maximum cumulative byte size.
//
// The strategy is greedy depth-first bin packing with subtree affinity:
// whole subtrees are kept together in one group whenever they fit, and a
// directory is only broken apart when it is too large to fit even in an
// empty group. Files are never split; a single file larger than the limit
// becomes its own group, flagged oversized.
//
// Given the same tree and limit, the output is always identical: the walk
// follows the tree's child order, which the sizer guarantees is lexical.
package partition

import (
	"github.com/scansplit/scansplit/internal/errors"
	"github.com/scansplit/scansplit/internal/sizer"
)

// Group is one scan unit: an ordered set of filesystem paths whose total
// size does not exceed the configured limit, except when the group is a
// single oversized file.
type Group struct {
	// Members are the paths in this group, each a file or a whole
	// directory subtree, in traversal order.
	Members []string `json:"members"`
	// Size is the cumulative byte size of all members.
	Size int64 `json:"size"`
	// Oversized marks a group holding a single file larger than the limit.
	Oversized bool `json:"oversized,omitempty"`
}

// Partition packs the files under root into groups of at most limit bytes.
// It fails only for a non-positive limit; filesystem-read failures were
// already isolated into SkipRecords by the sizer and cannot surface here.
func Partition(root *sizer.Node, limit int64) ([]Group, error) {
	if limit <= 0 {
		return nil, errors.NewConfigError("scan.max_scan_size_bytes", limit, errors.ErrInvalidSizeLimit)
	}

	p := &packer{limit: limit}
	if root.Kind == sizer.KindFile {
		p.packChildren([]*sizer.Node{root})
	} else {
		p.packChildren(root.Children)
	}
	p.flush()
	return p.groups, nil
}

type packer struct {
	limit  int64
	groups []Group
	cur    Group
}

// remaining is the capacity left in the current group.
func (p *packer) remaining() int64 {
	return p.limit - p.cur.Size
}

// add appends a whole subtree to the current group.
func (p *packer) add(n *sizer.Node) {
	p.cur.Members = append(p.cur.Members, n.Path)
	p.cur.Size += n.Size
}

// flush emits the current group, if non-empty, and starts a fresh one.
func (p *packer) flush() {
	if len(p.cur.Members) > 0 {
		p.groups = append(p.groups, p.cur)
	}
	p.cur = Group{}
}

// packChildren packs one directory level in order. The accumulator carries
// across levels: recursing into an over-limit directory continues filling
// the current group with that directory's children.
func (p *packer) packChildren(children []*sizer.Node) {
	for _, child := range children {
		switch {
		case child.Kind == sizer.KindDir && child.Files == 0:
			// Nothing scannable underneath.
		case child.Size <= p.remaining():
			p.add(child)
		case child.Kind == sizer.KindFile && child.Size > p.limit:
			// A file can never be split. Emit it alone and flagged.
			p.flush()
			p.groups = append(p.groups, Group{
				Members:   []string{child.Path},
				Size:      child.Size,
				Oversized: true,
			})
		case child.Kind == sizer.KindDir && child.Size > p.limit:
			// Too big for any group whole; break it apart.
			p.packChildren(child.Children)
		default:
			// Fits in an empty group but not the current remainder.
			p.flush()
			p.add(child)
		}
	}
}
