// Package server implements the multiplexer daemon: one Unix domain
// socket per named session, a session-actor goroutine serializing
// every command, and one goroutine per attached client.
package server

import (
	"context"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/texelmux/texelmux/layout"
	"github.com/texelmux/texelmux/persistence"
	"github.com/texelmux/texelmux/protocol"
	"github.com/texelmux/texelmux/ptyshell"
	"github.com/texelmux/texelmux/rect"
	"github.com/texelmux/texelmux/session"
)

// Server runs one named session and accepts client connections on a
// Unix domain socket.
type Server struct {
	name      string
	shellPath string

	actor    *actor
	registry *persistence.Registry

	listener net.Listener
	guard    *SocketGuard

	quit chan struct{}
	wg   sync.WaitGroup

	panesMu sync.Mutex
	panes   map[layout.PaneID]*ptyshell.Process
	area    rect.Rect

	connsMu sync.Mutex
	conns   map[*connection]struct{}
}

// NewServer builds a server for session name, restoring its previously
// saved content via persistence.LoadSession if a snapshot exists on
// disk, else starting a fresh single-window session. shellPath is the
// program spawned behind each pane's PTY (e.g. the user's $SHELL).
// registry may be nil to skip SQLite indexing.
func NewServer(name, shellPath string, registry *persistence.Registry) *Server {
	sess := restoreOrNewSession(name)
	return &Server{
		name:      name,
		shellPath: shellPath,
		actor:     newActor(sess),
		registry:  registry,
		quit:      make(chan struct{}),
		panes:     make(map[layout.PaneID]*ptyshell.Process),
		area:      rect.New(0, 0, 80, 24),
		conns:     make(map[*connection]struct{}),
	}
}

// restoreOrNewSession loads name's saved snapshot if one exists on
// disk, matching original_source's startup session-restore flow;
// otherwise it builds a fresh session. A stat check (rather than
// inspecting LoadSession's error) keeps "no saved session yet" from
// being logged as a failure.
func restoreOrNewSession(name string) *session.Session {
	path := filepath.Join(persistence.SessionDir(), name+".json")
	if _, err := os.Stat(path); err != nil {
		return session.New(name)
	}
	sess, err := persistence.LoadSession(name)
	if err != nil {
		log.Printf("server: load saved session %q: %v (starting fresh)", name, err)
		return session.New(name)
	}
	return sess
}

func (s *Server) registerConn(c *connection) {
	s.connsMu.Lock()
	s.conns[c] = struct{}{}
	s.connsMu.Unlock()
}

func (s *Server) unregisterConn(c *connection) {
	s.connsMu.Lock()
	delete(s.conns, c)
	s.connsMu.Unlock()
}

// broadcastOutput fans a PTY output chunk from pane out to every
// attached client. Each connection serializes the write against its
// own reply path via connection.send.
func (s *Server) broadcastOutput(pane layout.PaneID, chunk []byte) {
	msg := protocol.ServerMessage{Type: protocol.ServerOutput, PaneID: uint32(pane), Output: chunk}
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for c := range s.conns {
		c.send(msg)
	}
}

// broadcastShutdown tells every attached client the server is going
// away, before Stop tears down the listener and panes.
func (s *Server) broadcastShutdown() {
	msg := protocol.ServerMessage{Type: protocol.ServerShutdown}
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for c := range s.conns {
		c.send(msg)
	}
}

// Start binds the session's socket, spawns each existing pane's shell,
// and begins accepting client connections.
func (s *Server) Start(ctx context.Context) error {
	path := filepath.Join(persistence.SocketDir(), s.name+".sock")
	listener, guard, err := Listen(path)
	if err != nil {
		return err
	}
	s.listener = listener
	s.guard = guard

	go s.actor.run()

	s.spawnExistingPanes(ctx)

	if s.registry != nil {
		s.withSession(func(sess *session.Session) {
			if err := s.registry.RecordCreated(sess, time.Now()); err != nil {
				log.Printf("server: record created: %v", err)
			}
		})
	}

	s.wg.Add(1)
	go s.acceptLoop(ctx)
	return nil
}

// spawnExistingPanes starts a PTY for every pane already present in
// the session: the single default pane of a fresh session, or every
// pane across every window of one just restored from a saved file.
// Either way their previous PTY process is gone (it died with the
// last muxd, if any), so each pane needs a fresh shell.
func (s *Server) spawnExistingPanes(ctx context.Context) {
	var ids []layout.PaneID
	s.withSession(func(sess *session.Session) {
		for _, w := range sess.Windows {
			ids = append(ids, w.PaneOrder()...)
		}
	})
	for _, id := range ids {
		if err := s.spawnPane(ctx, id); err != nil {
			log.Printf("server: spawn pane %d: %v", id, err)
		}
	}
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				log.Printf("server: accept: %v", err)
				return
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			c := &connection{conn: conn, server: s}
			c.serve()
		}()
	}
}

// Stop broadcasts a shutdown notice to every attached client, saves
// the session to disk, closes the listener, signals every connection
// and the session actor to exit, and waits for them up to ctx's
// deadline.
func (s *Server) Stop(ctx context.Context) error {
	close(s.quit)
	s.broadcastShutdown()
	if s.listener != nil {
		s.listener.Close()
	}
	s.saveSession()
	s.actor.stop()
	s.closeAllPanes()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "server: stop timed out")
	}
	if s.guard != nil {
		return s.guard.Close()
	}
	return nil
}

// withSession runs fn against the authoritative session on the actor
// goroutine, blocking until it completes.
func (s *Server) withSession(fn func(*session.Session)) {
	s.actor.submit(fn)
}

// dispatch applies cmd to the session on the actor goroutine, wiring
// pane spawn/kill side effects to this server's PTY pool.
func (s *Server) dispatch(cmd session.Command) {
	hooks := session.Hooks{
		OnSpawn: func(pane layout.PaneID) { s.onPaneSpawn(pane) },
		OnKill:  func(pane layout.PaneID) { s.onPaneKill(pane) },
	}
	s.withSession(func(sess *session.Session) {
		session.Dispatch(sess, cmd, hooks)
	})
	if s.registry != nil {
		s.withSession(func(sess *session.Session) {
			if err := s.registry.RecordAttached(sess, time.Now()); err != nil {
				log.Printf("server: record attached: %v", err)
			}
		})
	}
}

func (s *Server) touchAttached() {
	if s.registry == nil {
		return
	}
	s.withSession(func(sess *session.Session) {
		if err := s.registry.RecordAttached(sess, time.Now()); err != nil {
			log.Printf("server: record attached: %v", err)
		}
	})
}

// saveSession writes the session's current content to disk so a
// future muxd invocation for the same name can restore it. Must run
// before actor.stop(), since submit depends on the actor goroutine
// still draining requests.
func (s *Server) saveSession() {
	s.withSession(func(sess *session.Session) {
		if err := persistence.SaveSession(sess); err != nil {
			log.Printf("server: save session: %v", err)
		}
	})
}

func (s *Server) onPaneSpawn(pane layout.PaneID) {
	if err := s.spawnPane(context.Background(), pane); err != nil {
		log.Printf("server: spawn pane %d: %v", pane, err)
	}
}

func (s *Server) onPaneKill(pane layout.PaneID) {
	s.panesMu.Lock()
	p, ok := s.panes[pane]
	delete(s.panes, pane)
	s.panesMu.Unlock()
	if ok {
		p.Close()
	}
}

func (s *Server) spawnPane(ctx context.Context, pane layout.PaneID) error {
	p, err := ptyshell.Spawn(ctx, s.shellPath, s.area)
	if err != nil {
		return err
	}
	s.panesMu.Lock()
	s.panes[pane] = p
	s.panesMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for chunk := range p.Output() {
			s.broadcastOutput(pane, chunk)
		}
	}()
	return nil
}

func (s *Server) closeAllPanes() {
	s.panesMu.Lock()
	defer s.panesMu.Unlock()
	for id, p := range s.panes {
		p.Close()
		delete(s.panes, id)
	}
}

// writeActivePaneInput forwards raw input bytes to the session's
// currently active pane, if its PTY is still running.
func (s *Server) writeActivePaneInput(data []byte) {
	var active layout.PaneID
	var ok bool
	s.withSession(func(sess *session.Session) {
		active, ok = sess.ActivePaneID()
	})
	if !ok {
		return
	}
	s.panesMu.Lock()
	p := s.panes[active]
	s.panesMu.Unlock()
	if p == nil {
		return
	}
	if _, err := p.Write(data); err != nil {
		log.Printf("server: write pane input: %v", err)
	}
}

// resizeAllPanes updates the server's notion of terminal area and
// resizes every running pane's PTY to it. The protocol's Resize
// message doesn't carry per-pane geometry, so every pane gets the same
// area; a renderer that wants per-pane PTY sizing computes individual
// rects client-side from the StateSync layout tree.
func (s *Server) resizeAllPanes(rows, cols uint16) {
	s.area = rect.New(0, 0, cols, rows)
	s.panesMu.Lock()
	defer s.panesMu.Unlock()
	for id, p := range s.panes {
		if err := p.Resize(s.area); err != nil {
			log.Printf("server: resize pane %d: %v", id, err)
		}
	}
}
