// Command muxd runs a single named multiplexer session, accepting
// client connections on a Unix domain socket.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/texelmux/texelmux/config"
	"github.com/texelmux/texelmux/persistence"
	"github.com/texelmux/texelmux/server"
)

func main() {
	name := flag.String("session", "default", "session name")
	shell := flag.String("shell", defaultShell(), "shell to spawn behind each pane's PTY")
	flag.Parse()

	// muxd has no use for the leader-key bindings table (that lives in
	// muxctl), but DataDir/SocketDir overrides apply to the server side
	// too: it's muxd that creates the socket and writes session files.
	config.Load(config.ConfigPath()).ApplyDirOverrides()

	registry, err := persistence.OpenRegistry()
	if err != nil {
		log.Printf("muxd: open registry: %v (continuing without it)", err)
		registry = nil
	} else {
		defer registry.Close()
	}

	s := server.NewServer(*name, *shell, registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		log.Fatalf("muxd: start: %v", err)
	}
	log.Printf("muxd: session %q listening", *name)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Printf("muxd: shutting down")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := s.Stop(stopCtx); err != nil {
		log.Printf("muxd: stop: %v", err)
	}
}

func defaultShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}
