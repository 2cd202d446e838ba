// Package session implements the top-level session state machine: an
// ordered list of windows with one active window, addressed by a
// stable SessionID.
package session

import (
	"github.com/google/uuid"

	"github.com/texelmux/texelmux/layout"
	"github.com/texelmux/texelmux/muxerr"
	"github.com/texelmux/texelmux/window"
)

// SessionID uniquely and stably identifies a session, including
// across a server restart (persisted alongside the session's content).
type SessionID = uuid.UUID

// Session owns an ordered list of windows and tracks which one is
// active. Closing the last window leaves the session empty but still
// in place: IsEmpty then reports true and the active-window accessors
// report ok=false.
type Session struct {
	ID   SessionID
	Name string

	Windows      []*window.Window
	ActiveWindow int

	NextWindowID uint32
}

// ParseID parses the string form of a SessionID, as stored in a
// persisted session file.
func ParseID(s string) (SessionID, error) {
	return uuid.Parse(s)
}

// New creates a session with a fresh id and one default window named "0".
func New(name string) *Session {
	s := &Session{
		ID:   uuid.New(),
		Name: name,
	}
	s.AddWindow("0")
	return s
}

// IsEmpty reports whether the session has no windows left.
func (s *Session) IsEmpty() bool {
	return len(s.Windows) == 0
}

// AddWindow appends a new window named name and focuses it.
func (s *Session) AddWindow(name string) *window.Window {
	w := window.New(window.WindowID(s.NextWindowID), name)
	s.NextWindowID++
	s.Windows = append(s.Windows, w)
	s.ActiveWindow = len(s.Windows) - 1
	return w
}

// CloseWindow removes the window at idx. Per the REDESIGN FLAG
// resolution (SPEC_FULL.md §9): if idx is strictly less than
// ActiveWindow, ActiveWindow decrements to keep tracking the same
// logical window; the result is then clamped into range. This differs
// from original_source's clamp-only policy, which lets focus silently
// jump to a different window when a window before the active one is
// closed.
func (s *Session) CloseWindow(idx int) error {
	if idx < 0 || idx >= len(s.Windows) {
		return muxerr.WindowNotFound(idx)
	}
	s.Windows = append(s.Windows[:idx], s.Windows[idx+1:]...)

	if len(s.Windows) == 0 {
		s.ActiveWindow = 0
		return nil
	}
	if idx < s.ActiveWindow {
		s.ActiveWindow--
	}
	if s.ActiveWindow >= len(s.Windows) {
		s.ActiveWindow = len(s.Windows) - 1
	}
	return nil
}

// NextWindow moves focus to the following window, wrapping around. A
// no-op on an empty session.
func (s *Session) NextWindow() {
	if len(s.Windows) == 0 {
		return
	}
	s.ActiveWindow = (s.ActiveWindow + 1) % len(s.Windows)
}

// PrevWindow moves focus to the preceding window, wrapping around. A
// no-op on an empty session.
func (s *Session) PrevWindow() {
	if len(s.Windows) == 0 {
		return
	}
	if s.ActiveWindow == 0 {
		s.ActiveWindow = len(s.Windows) - 1
		return
	}
	s.ActiveWindow--
}

// SwitchToWindow focuses the window at idx, if in range.
func (s *Session) SwitchToWindow(idx int) error {
	if idx < 0 || idx >= len(s.Windows) {
		return muxerr.WindowNotFound(idx)
	}
	s.ActiveWindow = idx
	return nil
}

// ActiveWin returns the currently focused window, if any.
func (s *Session) ActiveWin() (*window.Window, bool) {
	if len(s.Windows) == 0 {
		return nil, false
	}
	return s.Windows[s.ActiveWindow], true
}

// ActivePaneID returns the focused pane of the active window, if any.
func (s *Session) ActivePaneID() (layout.PaneID, bool) {
	w, ok := s.ActiveWin()
	if !ok {
		return 0, false
	}
	return w.ActivePane, true
}

// ActiveLayout returns the layout tree of the active window, if any.
func (s *Session) ActiveLayout() (*layout.Tree, bool) {
	w, ok := s.ActiveWin()
	if !ok {
		return nil, false
	}
	return w.Layout, true
}

// SplitActive splits the active window's active pane along dir,
// returning the new pane id.
func (s *Session) SplitActive(dir layout.Direction) (layout.PaneID, error) {
	w, ok := s.ActiveWin()
	if !ok {
		return 0, muxerr.New(muxerr.KindSession, "no active window")
	}
	return w.Split(w.ActivePane, dir)
}
