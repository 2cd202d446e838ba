// Command muxctl attaches a terminal to a running muxd session: it
// puts the local terminal into raw mode, forwards typed input to the
// active pane (intercepting the leader-key sequence locally), and
// streams PTY output and status-line updates back to the screen.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/term"

	"github.com/texelmux/texelmux/config"
	"github.com/texelmux/texelmux/input"
	"github.com/texelmux/texelmux/persistence"
	"github.com/texelmux/texelmux/protocol"
	"github.com/texelmux/texelmux/session"
	"github.com/texelmux/texelmux/statusbar"
)

func main() {
	name := flag.String("session", "default", "session name to attach to")
	flag.Parse()

	fileCfg := config.Load(config.ConfigPath())
	fileCfg.ApplyDirOverrides()

	path := filepath.Join(persistence.SocketDir(), *name+".sock")
	conn, err := net.Dial("unix", path)
	if err != nil {
		log.Fatalf("muxctl: dial %s: %v", path, err)
	}
	defer conn.Close()

	cfg := fileCfg.ToInputConfig()

	fd := int(os.Stdin.Fd())
	prevState, err := term.MakeRaw(fd)
	if err != nil {
		log.Fatalf("muxctl: enter raw mode: %v", err)
	}
	defer term.Restore(fd, prevState)

	if err := protocol.WriteFrame(conn, protocol.ClientMessage{Type: protocol.ClientAttach}); err != nil {
		log.Fatalf("muxctl: attach: %v", err)
	}

	done := make(chan struct{})
	go readLoop(conn, done)

	writeLoop(conn, cfg)
	<-done
}

// readLoop drains server frames: PTY output goes straight to stdout,
// state-sync snapshots print the status line via drawStatus.
func readLoop(conn net.Conn, done chan struct{}) {
	defer close(done)
	for {
		var msg protocol.ServerMessage
		if err := protocol.ReadFrame(conn, &msg); err != nil {
			return
		}
		switch msg.Type {
		case protocol.ServerOutput:
			os.Stdout.Write(msg.Output)
		case protocol.ServerStateSync:
			drawStatus(msg.Session)
		case protocol.ServerShutdown:
			return
		}
	}
}

// drawStatus renders the session snapshot's status line to stderr at
// the current cursor row: a carriage return, an erase-line sequence,
// the line, then a new line. The cursor is not saved or restored, so
// the line is interleaved with whatever the active pane has drawn.
// Row/column geometry for a precise bottom line belongs to the
// external renderer per spec.md §1; this is a minimal stand-in.
func drawStatus(snap *protocol.SessionSnapshot) {
	if snap == nil {
		return
	}
	content := statusbar.Content{SessionName: snap.Name}
	for i, w := range snap.Windows {
		content.Windows = append(content.Windows, statusbar.WindowEntry{
			Index:  i,
			Name:   w.Name,
			Active: i == snap.ActiveWindow,
		})
	}
	if len(snap.Windows) > 0 {
		aw := snap.Windows[snap.ActiveWindow]
		content.PaneInfo = fmt.Sprintf("%d panes", len(aw.Panes))
	}
	line := statusbar.RenderLine(content, 80)
	fmt.Fprintf(os.Stderr, "\r\x1b[K%s\r\n", line)
}

// writeLoop reads raw key bytes from stdin, runs them through the
// leader-key interpreter, and forwards either the raw bytes (Normal
// passthrough, or a stale/double-tap leader) or a decoded Command.
func writeLoop(conn net.Conn, cfg *input.Config) {
	r := bufio.NewReader(os.Stdin)
	state := input.State{Kind: input.Normal}
	for {
		raw, ev, err := readKey(r)
		if err != nil {
			return
		}
		var result input.Result
		state, result = input.Process(state, ev, cfg, time.Now())

		switch {
		case result.Command != nil:
			wire := protocol.EncodeCommand(*result.Command)
			if err := protocol.WriteFrame(conn, protocol.ClientMessage{Type: protocol.ClientCommand, Command: &wire}); err != nil {
				return
			}
			if result.Command.Kind == session.DetachSession {
				return
			}
		case result.Forward:
			if err := protocol.WriteFrame(conn, protocol.ClientMessage{Type: protocol.ClientInput, Input: raw}); err != nil {
				return
			}
		}
	}
}
