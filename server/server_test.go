package server

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/texelmux/texelmux/persistence"
	"github.com/texelmux/texelmux/protocol"
	"github.com/texelmux/texelmux/session"
)

func startTestServer(t *testing.T, name string) (*Server, func()) {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	s := NewServer(name, "/bin/sh", nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Start: %v", err)
	}
	cleanup := func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		s.Stop(stopCtx)
		cancel()
	}
	return s, cleanup
}

func socketPathForTest(s *Server) string {
	return filepath.Join(persistence.SocketDir(), s.name+".sock")
}

// TestAttachReceivesStateSync is scenario S3: an Attach message
// produces a single StateSync reply describing the current session.
func TestAttachReceivesStateSync(t *testing.T) {
	s, cleanup := startTestServer(t, "s3")
	defer cleanup()

	conn, err := net.Dial("unix", socketPathForTest(s))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := protocol.WriteFrame(conn, protocol.ClientMessage{Type: protocol.ClientAttach}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply protocol.ServerMessage
	if err := protocol.ReadFrame(conn, &reply); err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if reply.Type != protocol.ServerStateSync {
		t.Fatalf("reply.Type = %q, want %q", reply.Type, protocol.ServerStateSync)
	}
	if reply.Session == nil || reply.Session.Name != "s3" {
		t.Fatalf("reply.Session = %+v, want session named s3", reply.Session)
	}
}

// TestCommandSequenceProducesMatchingStateSyncs is scenario S4: each
// Command fully applies and its StateSync reflects the new state
// before the next message is processed.
func TestCommandSequenceProducesMatchingStateSyncs(t *testing.T) {
	s, cleanup := startTestServer(t, "s4")
	defer cleanup()

	conn, err := net.Dial("unix", socketPathForTest(s))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	splitWire := protocol.EncodeCommand(session.Command{Kind: session.SplitHorizontal})
	if err := protocol.WriteFrame(conn, protocol.ClientMessage{Type: protocol.ClientCommand, Command: &splitWire}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply protocol.ServerMessage
	if err := protocol.ReadFrame(conn, &reply); err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if reply.Session == nil || len(reply.Session.Windows) == 0 {
		t.Fatalf("missing session in reply: %+v", reply)
	}
	if len(reply.Session.Windows[0].Panes) != 2 {
		t.Fatalf("expected 2 panes after SplitHorizontal, got %d", len(reply.Session.Windows[0].Panes))
	}

	zoomWire := protocol.EncodeCommand(session.Command{Kind: session.ToggleZoom})
	if err := protocol.WriteFrame(conn, protocol.ClientMessage{Type: protocol.ClientCommand, Command: &zoomWire}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	var second protocol.ServerMessage
	for second.Type != protocol.ServerStateSync {
		second = protocol.ServerMessage{}
		if err := protocol.ReadFrame(conn, &second); err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
	}
	active := second.Session.Windows[second.Session.ActiveWindow]
	if !active.Zoomed || len(active.Panes) != 2 {
		t.Fatalf("second StateSync: zoomed=%v panes=%d, want zoomed=true panes=2", active.Zoomed, len(active.Panes))
	}
}

func TestDetachClosesConnectionWithoutReply(t *testing.T) {
	s, cleanup := startTestServer(t, "s-detach")
	defer cleanup()

	conn, err := net.Dial("unix", socketPathForTest(s))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := protocol.WriteFrame(conn, protocol.ClientMessage{Type: protocol.ClientDetach}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err == nil {
		t.Fatalf("expected the server to close the connection after Detach without replying")
	}
}

// TestDetachCommandClosesConnection verifies the session.DetachSession
// command is intercepted by the connection layer (per its documented
// contract in session.Dispatch) rather than producing a no-op StateSync.
func TestDetachCommandClosesConnection(t *testing.T) {
	s, cleanup := startTestServer(t, "s-detach-cmd")
	defer cleanup()

	conn, err := net.Dial("unix", socketPathForTest(s))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	wire := protocol.EncodeCommand(session.Command{Kind: session.DetachSession})
	if err := protocol.WriteFrame(conn, protocol.ClientMessage{Type: protocol.ClientCommand, Command: &wire}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err == nil {
		t.Fatalf("expected the server to close the connection after a DetachSession command")
	}
}

// TestAttachedClientReceivesPaneOutput is scenario-adjacent to S3/S4:
// bytes written into pane 0's shell arrive at an attached client as
// ServerOutput frames.
func TestAttachedClientReceivesPaneOutput(t *testing.T) {
	s, cleanup := startTestServer(t, "s-output")
	defer cleanup()

	conn, err := net.Dial("unix", socketPathForTest(s))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := protocol.WriteFrame(conn, protocol.ClientMessage{Type: protocol.ClientAttach}); err != nil {
		t.Fatalf("WriteFrame attach: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var sync protocol.ServerMessage
	if err := protocol.ReadFrame(conn, &sync); err != nil {
		t.Fatalf("ReadFrame state sync: %v", err)
	}

	echo := []byte("echo hi\n")
	if err := protocol.WriteFrame(conn, protocol.ClientMessage{Type: protocol.ClientInput, Input: echo}); err != nil {
		t.Fatalf("WriteFrame input: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg protocol.ServerMessage
		if err := protocol.ReadFrame(conn, &msg); err != nil {
			t.Fatalf("ReadFrame output: %v", err)
		}
		if msg.Type == protocol.ServerOutput && len(msg.Output) > 0 {
			return
		}
	}
}

// TestSessionSurvivesRestart is the persistence-wiring counterpart to
// persistence_test.go's marshal/unmarshal coverage: a server that
// renames a window, then Stops, must hand a fresh server for the same
// name back the renamed window rather than a blank default session.
func TestSessionSurvivesRestart(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	s1 := NewServer("s-restart", "/bin/sh", nil)
	ctx1, cancel1 := context.WithCancel(context.Background())
	if err := s1.Start(ctx1); err != nil {
		cancel1()
		t.Fatalf("Start: %v", err)
	}
	s1.withSession(func(sess *session.Session) {
		sess.Windows[0].Rename("work")
	})

	stopCtx1, stopCancel1 := context.WithTimeout(context.Background(), 2*time.Second)
	err := s1.Stop(stopCtx1)
	stopCancel1()
	cancel1()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}

	s2 := NewServer("s-restart", "/bin/sh", nil)
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	if err := s2.Start(ctx2); err != nil {
		t.Fatalf("Start (restored): %v", err)
	}
	defer func() {
		stopCtx2, stopCancel2 := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel2()
		s2.Stop(stopCtx2)
	}()

	var name string
	s2.withSession(func(sess *session.Session) {
		name = sess.Windows[0].Name
	})
	if name != "work" {
		t.Fatalf("restored window name = %q, want %q", name, "work")
	}
}

// TestStopBroadcastsShutdownToAttachedClients verifies spec.md §4.6's
// "Server shutdown broadcasts ServerShutdown to each client before
// closing": an attached client must see a ServerShutdown frame, not
// just a dropped connection, when Stop runs.
func TestStopBroadcastsShutdownToAttachedClients(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	s := NewServer("s-shutdown", "/bin/sh", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	conn, err := net.Dial("unix", socketPathForTest(s))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := protocol.WriteFrame(conn, protocol.ClientMessage{Type: protocol.ClientAttach}); err != nil {
		t.Fatalf("WriteFrame attach: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var sync protocol.ServerMessage
	if err := protocol.ReadFrame(conn, &sync); err != nil {
		t.Fatalf("ReadFrame state sync: %v", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	go s.Stop(stopCtx)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg protocol.ServerMessage
	if err := protocol.ReadFrame(conn, &msg); err != nil {
		t.Fatalf("ReadFrame shutdown: %v", err)
	}
	if msg.Type != protocol.ServerShutdown {
		t.Fatalf("msg.Type = %q, want ServerShutdown", msg.Type)
	}
}

func TestStaleSocketIsReclaimedOnStart(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	path := socketPathForTest(NewServer("stale", "/bin/sh", nil))
	if err := makeStaleSocketFile(path); err != nil {
		t.Fatalf("makeStaleSocketFile: %v", err)
	}

	s := NewServer("stale", "/bin/sh", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start must reclaim a stale socket file, got: %v", err)
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	s.Stop(stopCtx)
}

func makeStaleSocketFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, nil, 0o644)
}
