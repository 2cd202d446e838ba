// Package window implements a single tiled window: a layout tree plus
// the pane metadata and focus state layered on top of it.
package window

import (
	"github.com/texelmux/texelmux/layout"
	"github.com/texelmux/texelmux/rect"
)

// WindowID identifies a window within a session.
type WindowID uint32

// Pane holds metadata for one leaf of a window's layout tree. Its
// lifecycle is independent of the layout tree itself: Close runs a
// hook that can release whatever external resource (a PTY, in the
// common case) the pane owns, but carries no PTY import itself, per
// the core/collaborator boundary.
type Pane struct {
	ID    layout.PaneID
	Title string

	onClose func()
}

// Close invokes the pane's close hook, if one was registered.
func (p *Pane) Close() {
	if p.onClose != nil {
		p.onClose()
	}
}

// SetCloseHook registers fn to run when the pane is closed. The server
// package does not use it: it tears down PTYs through session.Hooks.
func (p *Pane) SetCloseHook(fn func()) {
	p.onClose = fn
}

// Window owns a layout tree, the pane metadata for every leaf in it,
// and the currently focused pane.
type Window struct {
	ID         WindowID
	Name       string
	Layout     *layout.Tree
	ActivePane layout.PaneID
	Zoomed     bool

	Panes      map[layout.PaneID]*Pane
	NextPaneID uint32
}

// New creates a window with a single pane (id 0).
func New(id WindowID, name string) *Window {
	w := &Window{
		ID:         id,
		Name:       name,
		Layout:     layout.NewTree(0),
		ActivePane: 0,
		Panes:      map[layout.PaneID]*Pane{0: {ID: 0}},
		NextPaneID: 1,
	}
	return w
}

// Restore reconstructs a Window from its persisted fields: a layout
// tree root, the focused pane, the zoom flag, and the id counter for
// future splits. Pane metadata (titles) are restored separately by the
// caller via Pane(id).Title, since the layout tree alone doesn't carry
// them.
func Restore(id WindowID, name string, root *layout.Node, activePane layout.PaneID, zoomed bool, nextPaneID uint32) *Window {
	tree := &layout.Tree{Root: root}
	w := &Window{
		ID:         id,
		Name:       name,
		Layout:     tree,
		ActivePane: activePane,
		Zoomed:     zoomed,
		Panes:      make(map[layout.PaneID]*Pane),
		NextPaneID: nextPaneID,
	}
	for _, paneID := range tree.PaneIDs() {
		w.Panes[paneID] = &Pane{ID: paneID}
	}
	return w
}

// Pane returns the metadata for id, if present.
func (w *Window) Pane(id layout.PaneID) (*Pane, bool) {
	p, ok := w.Panes[id]
	return p, ok
}

// PaneOrder returns every pane id in depth-first tree order.
func (w *Window) PaneOrder() []layout.PaneID {
	return w.Layout.PaneIDs()
}

// PaneCount returns the number of panes in the window.
func (w *Window) PaneCount() int {
	return w.Layout.Count()
}

// Split divides the pane at target along dir, allocating a new pane
// id and clearing zoom (a split implicitly changes the tiling, which
// zoom state no longer faithfully describes). Returns the new pane's
// id.
func (w *Window) Split(target layout.PaneID, dir layout.Direction) (layout.PaneID, error) {
	newID := layout.PaneID(w.NextPaneID)
	next, err := w.Layout.Split(target, dir, 0.5, newID)
	if err != nil {
		return 0, err
	}
	w.Layout = next
	w.NextPaneID++
	w.Panes[newID] = &Pane{ID: newID}
	w.Zoomed = false
	return newID, nil
}

// ClosePane removes target from the layout and its metadata map. It
// reports whether the window is now empty (the caller should then
// close the window itself). Active-pane focus is preserved if it
// still exists; otherwise it moves to the first pane in tree order.
func (w *Window) ClosePane(target layout.PaneID) (empty bool, err error) {
	next, emptied, err := w.Layout.Close(target)
	if err != nil {
		return false, err
	}

	if p, ok := w.Panes[target]; ok {
		p.Close()
	}
	delete(w.Panes, target)
	w.Zoomed = false

	if emptied {
		return true, nil
	}
	w.Layout = next
	if w.ActivePane == target {
		order := w.Layout.PaneIDs()
		if len(order) > 0 {
			w.ActivePane = order[0]
		}
	}
	return false, nil
}

// NextPane moves focus to the pane following ActivePane in tree
// order, wrapping around.
func (w *Window) NextPane() {
	w.cyclePane(1)
}

// PrevPane moves focus to the pane preceding ActivePane in tree
// order, wrapping around.
func (w *Window) PrevPane() {
	w.cyclePane(-1)
}

func (w *Window) cyclePane(delta int) {
	order := w.Layout.PaneIDs()
	if len(order) == 0 {
		return
	}
	pos := 0
	for i, id := range order {
		if id == w.ActivePane {
			pos = i
			break
		}
	}
	n := len(order)
	pos = ((pos+delta)%n + n) % n
	w.ActivePane = order[pos]
}

// Resize adjusts the ratio of the split ancestors of target that
// match dir, by delta. See layout.Tree.Resize for the exact semantics.
func (w *Window) Resize(target layout.PaneID, dir layout.Direction, delta float64) error {
	next, err := w.Layout.Resize(target, dir, delta)
	if err != nil {
		return err
	}
	w.Layout = next
	return nil
}

// ToggleZoom flips the window's zoom flag. Zoom is metadata only:
// PaneRects always reports the full tiled layout, per spec.md's zoom
// design note; a renderer decides what to actually draw.
func (w *Window) ToggleZoom() {
	w.Zoomed = !w.Zoomed
}

// PaneRects computes the rect for every pane given the window's total
// drawable area.
func (w *Window) PaneRects(area rect.Rect) map[layout.PaneID]rect.Rect {
	return w.Layout.CalculateRects(area)
}

// Rename sets the window's display name.
func (w *Window) Rename(name string) {
	w.Name = name
}

// ActivePanePosition returns the 1-based position of ActivePane in
// tree order and the total pane count, for status-line rendering.
func (w *Window) ActivePanePosition() (pos, total int) {
	order := w.PaneOrder()
	total = len(order)
	for i, id := range order {
		if id == w.ActivePane {
			return i + 1, total
		}
	}
	return 0, total
}
