package session

import (
	"log"
	"strconv"

	"github.com/texelmux/texelmux/layout"
)

// CommandKind identifies which MuxCommand variant a Command carries.
type CommandKind int

const (
	SplitHorizontal CommandKind = iota
	SplitVertical
	ClosePane
	NextPane
	PrevPane
	NewWindow
	CloseWindow
	NextWindow
	PrevWindow
	SwitchToWindow
	ToggleZoom
	RenameWindow
	DetachSession
	NavigatePane
	ResizePane
	ScrollbackMode
)

// Command is a single multiplexer command, as decoded from a client's
// protocol.ClientMessage. Fields only apply to the variants that use
// them: Dir for pane-direction commands, Delta for ResizePane, N for
// SwitchToWindow, Name for RenameWindow.
type Command struct {
	Kind  CommandKind
	Dir   layout.Direction
	Delta float64
	N     int
	Name  string
}

// Hooks lets a caller (the server package's dispatch) observe pane
// lifecycle side effects without session importing a PTY package.
// Either field may be nil.
type Hooks struct {
	// OnSpawn is called after a new pane is created (split or new
	// window), with the new pane's id.
	OnSpawn func(pane layout.PaneID)
	// OnKill is called before a pane's metadata is discarded, with the
	// pane's id.
	OnKill func(pane layout.PaneID)
}

// Dispatch applies cmd to s and reports whether the session's visible
// state changed (and therefore a StateSync should be sent). Errors
// from commands that reference something absent (a closed pane, an
// out-of-range window) are logged once and swallowed: per spec.md §7
// these are recoverable, client-caused conditions, not protocol
// failures.
func Dispatch(s *Session, cmd Command, hooks Hooks) (redraw bool) {
	switch cmd.Kind {
	case SplitHorizontal:
		return dispatchSplit(s, layout.Horizontal, hooks)
	case SplitVertical:
		return dispatchSplit(s, layout.Vertical, hooks)
	case ClosePane:
		return dispatchClosePane(s, hooks)
	case NextPane:
		w, ok := s.ActiveWin()
		if !ok {
			return false
		}
		w.NextPane()
		return true
	case PrevPane:
		w, ok := s.ActiveWin()
		if !ok {
			return false
		}
		w.PrevPane()
		return true
	case NewWindow:
		s.AddWindow(windowDefaultName(len(s.Windows)))
		return true
	case CloseWindow:
		if err := s.CloseWindow(s.ActiveWindow); err != nil {
			log.Printf("session: CloseWindow: %v", err)
			return false
		}
		return true
	case NextWindow:
		s.NextWindow()
		return true
	case PrevWindow:
		s.PrevWindow()
		return true
	case SwitchToWindow:
		if err := s.SwitchToWindow(cmd.N); err != nil {
			log.Printf("session: SwitchToWindow: %v", err)
			return false
		}
		return true
	case ToggleZoom:
		w, ok := s.ActiveWin()
		if !ok {
			return false
		}
		w.ToggleZoom()
		return true
	case RenameWindow:
		w, ok := s.ActiveWin()
		if !ok {
			return false
		}
		w.Rename(cmd.Name)
		return true
	case DetachSession:
		// Handled by the server connection layer, not the session
		// itself: detaching doesn't change session state.
		return false
	case NavigatePane:
		// No-op at session level, per spec.md §4.4: direction-aware
		// pane focus is reserved for a renderer that knows each pane's
		// rect (layout.Tree.FindNeighbor), which the session layer
		// doesn't have.
		return false
	case ResizePane:
		w, ok := s.ActiveWin()
		if !ok {
			return false
		}
		if err := w.Resize(w.ActivePane, cmd.Dir, cmd.Delta); err != nil {
			log.Printf("session: ResizePane: %v", err)
			return false
		}
		return true
	case ScrollbackMode:
		// No session-level state; scrollback is a renderer concern.
		return false
	default:
		return false
	}
}

func dispatchSplit(s *Session, dir layout.Direction, hooks Hooks) bool {
	newPane, err := s.SplitActive(dir)
	if err != nil {
		log.Printf("session: split: %v", err)
		return false
	}
	if hooks.OnSpawn != nil {
		hooks.OnSpawn(newPane)
	}
	return true
}

func dispatchClosePane(s *Session, hooks Hooks) bool {
	w, ok := s.ActiveWin()
	if !ok {
		return false
	}
	target := w.ActivePane
	if hooks.OnKill != nil {
		hooks.OnKill(target)
	}
	empty, err := w.ClosePane(target)
	if err != nil {
		log.Printf("session: close pane: %v", err)
		return false
	}
	if empty {
		if err := s.CloseWindow(s.ActiveWindow); err != nil {
			log.Printf("session: close empty window: %v", err)
		}
	}
	return true
}

func windowDefaultName(count int) string {
	return strconv.Itoa(count)
}
