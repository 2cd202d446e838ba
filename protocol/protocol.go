// Package protocol implements the wire format between a muxd server
// and its attached clients: length-prefixed JSON messages over a Unix
// domain socket. Every frame is a 4-byte big-endian length followed by
// that many bytes of UTF-8 JSON.
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/texelmux/texelmux/layout"
	"github.com/texelmux/texelmux/session"
	"github.com/texelmux/texelmux/window"
)

const lengthPrefixSize = 4

// ClientMessageType discriminates the ClientMessage variants.
type ClientMessageType string

const (
	ClientAttach  ClientMessageType = "attach"
	ClientDetach  ClientMessageType = "detach"
	ClientInput   ClientMessageType = "input"
	ClientResize  ClientMessageType = "resize"
	ClientCommand ClientMessageType = "command"
)

// ClientMessage is a single client-to-server message.
type ClientMessage struct {
	Type ClientMessageType `json:"type"`

	// Input carries raw bytes to write to the active pane's PTY.
	Input []byte `json:"input,omitempty"`

	// Resize carries the client's terminal dimensions.
	Rows uint16 `json:"rows,omitempty"`
	Cols uint16 `json:"cols,omitempty"`

	// Command carries a decoded multiplexer command.
	Command *CommandWire `json:"command,omitempty"`
}

// ServerMessageType discriminates the ServerMessage variants.
type ServerMessageType string

const (
	ServerOutput      ServerMessageType = "output"
	ServerStateSync   ServerMessageType = "state_sync"
	ServerPaneExited  ServerMessageType = "pane_exited"
	ServerShutdown    ServerMessageType = "shutdown"
)

// ServerMessage is a single server-to-client message.
type ServerMessage struct {
	Type ServerMessageType `json:"type"`

	// Output carries PTY bytes produced by PaneID.
	PaneID uint32 `json:"pane_id,omitempty"`
	Output []byte `json:"output,omitempty"`

	// Session carries a full session snapshot, sent in response to
	// Attach and after every applied Command.
	Session *SessionSnapshot `json:"session,omitempty"`
}

// CommandWire is the JSON rendition of session.Command: the Kind enum
// is rendered as its name so the wire format is self-describing and
// stable across a reordering of the CommandKind iota values.
type CommandWire struct {
	Kind  string           `json:"kind"`
	Dir   string           `json:"dir,omitempty"`
	Delta float64          `json:"delta,omitempty"`
	N     int              `json:"n,omitempty"`
	Name  string           `json:"name,omitempty"`
}

var kindNames = map[session.CommandKind]string{
	session.SplitHorizontal: "split_horizontal",
	session.SplitVertical:   "split_vertical",
	session.ClosePane:       "close_pane",
	session.NextPane:        "next_pane",
	session.PrevPane:        "prev_pane",
	session.NewWindow:       "new_window",
	session.CloseWindow:     "close_window",
	session.NextWindow:      "next_window",
	session.PrevWindow:      "prev_window",
	session.SwitchToWindow:  "switch_to_window",
	session.ToggleZoom:      "toggle_zoom",
	session.RenameWindow:    "rename_window",
	session.DetachSession:   "detach_session",
	session.NavigatePane:    "navigate_pane",
	session.ResizePane:      "resize_pane",
	session.ScrollbackMode:  "scrollback_mode",
}

var namesToKind = func() map[string]session.CommandKind {
	m := make(map[string]session.CommandKind, len(kindNames))
	for k, v := range kindNames {
		m[v] = k
	}
	return m
}()

// EncodeCommand converts a session.Command into its wire form.
func EncodeCommand(cmd session.Command) CommandWire {
	return CommandWire{
		Kind:  kindNames[cmd.Kind],
		Dir:   dirName(cmd.Dir),
		Delta: cmd.Delta,
		N:     cmd.N,
		Name:  cmd.Name,
	}
}

// DecodeCommand converts a wire command back into a session.Command.
func DecodeCommand(w CommandWire) (session.Command, error) {
	kind, ok := namesToKind[w.Kind]
	if !ok {
		return session.Command{}, errors.Errorf("protocol: unknown command kind %q", w.Kind)
	}
	dir, err := dirFromName(w.Dir)
	if err != nil {
		return session.Command{}, err
	}
	return session.Command{Kind: kind, Dir: dir, Delta: w.Delta, N: w.N, Name: w.Name}, nil
}

func dirName(d layout.Direction) string {
	if d == layout.Vertical {
		return "vertical"
	}
	return "horizontal"
}

func dirFromName(name string) (layout.Direction, error) {
	switch name {
	case "", "horizontal":
		return layout.Horizontal, nil
	case "vertical":
		return layout.Vertical, nil
	default:
		return layout.Horizontal, errors.Errorf("protocol: unknown direction %q", name)
	}
}

// SessionSnapshot is the JSON rendition of a session.Session, sent to
// clients in a StateSync message.
type SessionSnapshot struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	ActiveWindow int              `json:"active_window"`
	Windows      []WindowSnapshot `json:"windows"`
}

// WindowSnapshot is the JSON rendition of a window.Window.
type WindowSnapshot struct {
	ID         uint32                  `json:"id"`
	Name       string                  `json:"name"`
	ActivePane uint32                  `json:"active_pane"`
	Zoomed     bool                    `json:"zoomed"`
	Layout     *layout.Node            `json:"layout"`
	Panes      map[uint32]PaneSnapshot `json:"panes"`
}

// PaneSnapshot is the JSON rendition of a window.Pane.
type PaneSnapshot struct {
	ID    uint32 `json:"id"`
	Title string `json:"title"`
}

// Snapshot builds the wire snapshot of a live session.
func Snapshot(s *session.Session) *SessionSnapshot {
	snap := &SessionSnapshot{
		ID:           s.ID.String(),
		Name:         s.Name,
		ActiveWindow: s.ActiveWindow,
		Windows:      make([]WindowSnapshot, 0, len(s.Windows)),
	}
	for _, w := range s.Windows {
		snap.Windows = append(snap.Windows, snapshotWindow(w))
	}
	return snap
}

func snapshotWindow(w *window.Window) WindowSnapshot {
	panes := make(map[uint32]PaneSnapshot, len(w.Panes))
	for id, p := range w.Panes {
		panes[uint32(id)] = PaneSnapshot{ID: uint32(p.ID), Title: p.Title}
	}
	return WindowSnapshot{
		ID:         uint32(w.ID),
		Name:       w.Name,
		ActivePane: uint32(w.ActivePane),
		Zoomed:     w.Zoomed,
		Layout:     w.Layout.Root,
		Panes:      panes,
	}
}

// WriteFrame writes msg to w as a length-prefixed JSON frame.
func WriteFrame(w io.Writer, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "protocol: marshal frame")
	}
	var lenBuf [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return errors.Wrap(err, "protocol: write frame length")
	}
	if _, err := w.Write(body); err != nil {
		return errors.Wrap(err, "protocol: write frame body")
	}
	return nil
}

// ReadFrame reads one length-prefixed JSON frame from r and unmarshals
// it into out.
func ReadFrame(r io.Reader, out any) error {
	var lenBuf [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return errors.Wrap(err, "protocol: read frame length")
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return errors.Wrap(err, "protocol: read frame body")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "protocol: unmarshal frame")
	}
	return nil
}

// Reader incrementally assembles frames out of a byte stream arriving
// in arbitrary-sized chunks, for callers reading from a socket
// directly rather than through ReadFrame's blocking io.Reader calls.
type Reader struct {
	buf []byte
}

// Feed appends newly read bytes to the reader's internal buffer.
func (r *Reader) Feed(b []byte) {
	r.buf = append(r.buf, b...)
}

// Next extracts and unmarshals the next complete frame, if one is
// buffered. ok is false if the buffer doesn't yet hold a full frame.
func (r *Reader) Next(out any) (ok bool, err error) {
	if len(r.buf) < lengthPrefixSize {
		return false, nil
	}
	n := binary.BigEndian.Uint32(r.buf[:lengthPrefixSize])
	total := lengthPrefixSize + int(n)
	if len(r.buf) < total {
		return false, nil
	}
	body := r.buf[lengthPrefixSize:total]
	if err := json.Unmarshal(body, out); err != nil {
		return false, errors.Wrap(err, "protocol: unmarshal frame")
	}
	r.buf = r.buf[total:]
	return true, nil
}
