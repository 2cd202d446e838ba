package server

import (
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"github.com/texelmux/texelmux/protocol"
	"github.com/texelmux/texelmux/session"
)

const readDeadline = 200 * time.Millisecond

// connection serves one attached client: a blocking-read goroutine
// that submits decoded commands to the server's session actor and
// writes back the resulting state. A short SetReadDeadline lets the
// loop notice server shutdown promptly without true non-blocking
// sockets, matching SPEC_FULL.md §5's concurrency rendition. writeMu
// guards conn.Write against the connection's own reply goroutine and
// the server's PTY-output broadcast goroutine writing concurrently.
type connection struct {
	conn    net.Conn
	server  *Server
	writeMu sync.Mutex
}

func (c *connection) serve() {
	c.server.registerConn(c)
	defer c.server.unregisterConn(c)

	for {
		select {
		case <-c.server.quit:
			return
		default:
		}

		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		var msg protocol.ClientMessage
		if err := protocol.ReadFrame(c.conn, &msg); err != nil {
			if isTimeout(err) {
				continue
			}
			return
		}

		if !c.handle(msg) {
			return
		}
	}
}

// handle processes one client message, returning false when the
// connection should be closed.
func (c *connection) handle(msg protocol.ClientMessage) bool {
	switch msg.Type {
	case protocol.ClientDetach:
		return false

	case protocol.ClientAttach:
		c.server.touchAttached()
		c.sendStateSync()
		return true

	case protocol.ClientInput:
		c.server.writeActivePaneInput(msg.Input)
		return true

	case protocol.ClientResize:
		c.server.resizeAllPanes(msg.Rows, msg.Cols)
		return true

	case protocol.ClientCommand:
		if msg.Command == nil {
			return true
		}
		cmd, err := protocol.DecodeCommand(*msg.Command)
		if err != nil {
			log.Printf("server: decode command: %v", err)
			return true
		}
		if cmd.Kind == session.DetachSession {
			// session.Dispatch treats this as a no-op; the connection
			// layer owns what "detach" means, same as ClientDetach.
			return false
		}
		c.server.dispatch(cmd)
		c.sendStateSync()
		return true

	default:
		log.Printf("server: unknown client message type %q", msg.Type)
		return true
	}
}

func (c *connection) sendStateSync() {
	var snap *protocol.SessionSnapshot
	c.server.withSession(func(s *session.Session) {
		snap = protocol.Snapshot(s)
	})
	c.send(protocol.ServerMessage{Type: protocol.ServerStateSync, Session: snap})
}

// send writes msg to the client, serialized against other writers
// (the PTY output broadcaster) on the same connection.
func (c *connection) send(msg protocol.ServerMessage) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := protocol.WriteFrame(c.conn, msg); err != nil {
		log.Printf("server: write to client: %v", err)
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
