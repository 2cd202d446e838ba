// Package layout implements the binary split-tree that tiles a
// window's panes into non-overlapping rectangles. Every mutating
// operation is a pure function of the tree: it returns a new tree (or
// an error) and never touches the tree passed in, so a failed split or
// close leaves the caller holding the original, untouched value.
package layout

import (
	"sort"

	"github.com/texelmux/texelmux/muxerr"
	"github.com/texelmux/texelmux/rect"
)

// PaneID identifies a pane within a window's layout tree.
type PaneID uint32

// Direction is the axis a split divides along.
type Direction int

const (
	// Horizontal stacks children top over bottom.
	Horizontal Direction = iota
	// Vertical stacks children side by side.
	Vertical
)

func (d Direction) String() string {
	if d == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

const (
	minRatio = 0.1
	maxRatio = 0.9
)

func clampRatio(r float64) float64 {
	if r < minRatio {
		return minRatio
	}
	if r > maxRatio {
		return maxRatio
	}
	return r
}

// Node is a binary layout tree node: either a Leaf holding a pane, or
// a Split dividing First and Second along Dir at Ratio.
type Node struct {
	// Pane is valid only when the node is a leaf (First == nil && Second == nil).
	Pane PaneID

	Dir    Direction
	Ratio  float64
	First  *Node
	Second *Node
}

// NewLeaf builds a leaf node holding pane.
func NewLeaf(pane PaneID) *Node {
	return &Node{Pane: pane}
}

// IsLeaf reports whether n holds a pane directly rather than two children.
func (n *Node) IsLeaf() bool {
	return n.First == nil && n.Second == nil
}

// clone returns a shallow copy of n; used so pure operations can
// rebuild only the spine of the tree that changed.
func (n *Node) clone() *Node {
	c := *n
	return &c
}

// Tree wraps the root of a window's layout.
type Tree struct {
	Root *Node
}

// NewTree builds a single-leaf tree holding pane.
func NewTree(pane PaneID) *Tree {
	return &Tree{Root: NewLeaf(pane)}
}

// Find reports whether target exists anywhere in the tree.
func (t *Tree) Find(target PaneID) bool {
	return findNode(t.Root, target)
}

func findNode(n *Node, target PaneID) bool {
	if n == nil {
		return false
	}
	if n.IsLeaf() {
		return n.Pane == target
	}
	return findNode(n.First, target) || findNode(n.Second, target)
}

// PaneIDs returns every pane id in the tree, depth-first, first child
// before second child.
func (t *Tree) PaneIDs() []PaneID {
	var ids []PaneID
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.IsLeaf() {
			ids = append(ids, n.Pane)
			return
		}
		walk(n.First)
		walk(n.Second)
	}
	walk(t.Root)
	return ids
}

// Count returns the number of panes in the tree.
func (t *Tree) Count() int {
	return len(t.PaneIDs())
}

// Traverse calls fn for every leaf node, depth-first.
func (t *Tree) Traverse(fn func(pane PaneID)) {
	for _, id := range t.PaneIDs() {
		fn(id)
	}
}

// Split replaces the leaf holding target with a new split whose first
// child is the original leaf and whose second child is a new leaf
// holding newPane. It returns a new *Tree; on error the receiver is
// returned untouched (the tree value itself is immutable, so there is
// nothing to roll back, but callers must use the returned tree, not t).
func (t *Tree) Split(target PaneID, dir Direction, ratio float64, newPane PaneID) (*Tree, error) {
	newRoot, found := splitNode(t.Root, target, dir, clampRatio(ratio), newPane)
	if !found {
		return t, muxerr.PaneNotFound(uint32(target))
	}
	return &Tree{Root: newRoot}, nil
}

func splitNode(n *Node, target PaneID, dir Direction, ratio float64, newPane PaneID) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	if n.IsLeaf() {
		if n.Pane != target {
			return n, false
		}
		return &Node{
			Dir:    dir,
			Ratio:  ratio,
			First:  NewLeaf(n.Pane),
			Second: NewLeaf(newPane),
		}, true
	}

	if first, ok := splitNode(n.First, target, dir, ratio, newPane); ok {
		c := n.clone()
		c.First = first
		return c, true
	}
	if second, ok := splitNode(n.Second, target, dir, ratio, newPane); ok {
		c := n.clone()
		c.Second = second
		return c, true
	}
	return n, false
}

// Close removes the leaf holding target. If the tree becomes empty
// (target was the sole pane), it returns (nil, true, nil); callers
// must treat a nil *Tree as "window now has no panes" and typically
// close the owning window. Otherwise the surviving sibling is promoted
// in place of its parent split.
func (t *Tree) Close(target PaneID) (*Tree, bool, error) {
	newRoot, removed, found := closeNode(t.Root, target)
	if !found {
		return t, false, muxerr.PaneNotFound(uint32(target))
	}
	if removed {
		return nil, true, nil
	}
	return &Tree{Root: newRoot}, false, nil
}

// closeNode returns (newSubtree, subtreeNowEmpty, found).
func closeNode(n *Node, target PaneID) (*Node, bool, bool) {
	if n == nil {
		return nil, false, false
	}
	if n.IsLeaf() {
		if n.Pane != target {
			return n, false, false
		}
		return nil, true, true
	}

	if newFirst, firstEmpty, found := closeNode(n.First, target); found {
		if firstEmpty {
			return n.Second, false, true
		}
		c := n.clone()
		c.First = newFirst
		return c, false, true
	}
	if newSecond, secondEmpty, found := closeNode(n.Second, target); found {
		if secondEmpty {
			return n.First, false, true
		}
		c := n.clone()
		c.Second = newSecond
		return c, false, true
	}
	return n, false, false
}

// Resize adjusts the ratio of every ancestor split of target whose
// orientation matches dir, by delta, clamped to [0.1, 0.9]. Ancestors
// where target is reached through First grow by delta; through Second
// shrink by delta (symmetric to original_source's resize_pane). If no
// ancestor of target has the requested orientation, Resize is a no-op
// and returns nil. This is the REDESIGN FLAG resolution: the
// direction argument actually filters which splits move, rather than
// adjusting every ancestor regardless of axis.
func (t *Tree) Resize(target PaneID, dir Direction, delta float64) (*Tree, error) {
	newRoot, found, _ := resizeNode(t.Root, target, dir, delta)
	if !found {
		return t, muxerr.PaneNotFound(uint32(target))
	}
	return &Tree{Root: newRoot}, nil
}

// resizeNode returns (newSubtree, targetFound, subtreeChanged).
func resizeNode(n *Node, target PaneID, dir Direction, delta float64) (*Node, bool, bool) {
	if n == nil {
		return nil, false, false
	}
	if n.IsLeaf() {
		return n, n.Pane == target, false
	}

	inFirst := findNode(n.First, target)
	inSecond := findNode(n.Second, target)
	if !inFirst && !inSecond {
		return n, false, false
	}

	newFirst, _, firstChanged := resizeNode(n.First, target, dir, delta)
	newSecond, _, secondChanged := resizeNode(n.Second, target, dir, delta)

	c := n.clone()
	c.First = newFirst
	c.Second = newSecond

	if n.Dir == dir {
		if inFirst {
			c.Ratio = clampRatio(n.Ratio + delta)
		} else {
			c.Ratio = clampRatio(n.Ratio - delta)
		}
		return c, true, true
	}
	return c, true, firstChanged || secondChanged
}

// CalculateRects assigns a rect.Rect to every pane, recursively
// splitting area according to each split node's direction and ratio.
func (t *Tree) CalculateRects(area rect.Rect) map[PaneID]rect.Rect {
	out := make(map[PaneID]rect.Rect, t.Count())
	calculateRects(t.Root, area, out)
	return out
}

func calculateRects(n *Node, area rect.Rect, out map[PaneID]rect.Rect) {
	if n == nil {
		return
	}
	if n.IsLeaf() {
		out[n.Pane] = area
		return
	}

	var first, second rect.Rect
	if n.Dir == Horizontal {
		first, second = area.SplitHorizontal(n.Ratio)
	} else {
		first, second = area.SplitVertical(n.Ratio)
	}
	calculateRects(n.First, first, out)
	calculateRects(n.Second, second, out)
}

// FindNeighbor returns the pane id adjacent to target along dir, if
// any exists in the tree. It is a thin convenience built on PaneIDs
// and CalculateRects: callers needing neighbor-based pane navigation
// (rather than tree-order cycling) can use this against a known area.
func (t *Tree) FindNeighbor(target PaneID, area rect.Rect, dir Direction) (PaneID, bool) {
	rects := t.CalculateRects(area)
	targetRect, ok := rects[target]
	if !ok {
		return 0, false
	}

	ids := t.PaneIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var best PaneID
	var bestDist uint32
	found := false
	for _, id := range ids {
		if id == target {
			continue
		}
		r := rects[id]
		if !isNeighbor(targetRect, r, dir) {
			continue
		}
		dist := distance(targetRect, r)
		if !found || dist < bestDist {
			best, bestDist, found = id, dist, true
		}
	}
	return best, found
}

func isNeighbor(from, to rect.Rect, dir Direction) bool {
	switch dir {
	case Horizontal:
		return to.Y+to.H == from.Y || from.Y+from.H == to.Y
	default:
		return to.X+to.W == from.X || from.X+from.W == to.X
	}
}

func distance(a, b rect.Rect) uint32 {
	dx := int32(a.X) - int32(b.X)
	dy := int32(a.Y) - int32(b.Y)
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return uint32(dx) + uint32(dy)
}
