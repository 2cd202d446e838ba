// Package ptyshell is the concrete PTY collaborator adapter: it spawns
// a real shell behind a pseudo-terminal and exposes the narrow
// read/write/resize contract spec.md's PTY collaborator boundary
// requires, without taking on any terminal-emulation responsibility
// (no escape-sequence parsing, no screen buffer); those remain
// excluded per spec.md §1.
package ptyshell

import (
	"context"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	"github.com/pkg/errors"

	"github.com/texelmux/texelmux/rect"
)

const outputChunkSize = 4096

// Process is one pane's PTY-backed shell process.
type Process struct {
	cmd  *exec.Cmd
	ptmx *os.File

	output    chan []byte
	closeOnce sync.Once
}

// Spawn starts shellPath behind a PTY sized to initial and begins
// streaming its output on a background goroutine. The caller consumes
// that output from Output(); it is closed when the PTY reaches EOF.
func Spawn(ctx context.Context, shellPath string, initial rect.Rect) (*Process, error) {
	cmd := exec.CommandContext(ctx, shellPath)
	ptmx, err := pty.StartWithSize(cmd, toPtySize(initial))
	if err != nil {
		return nil, errors.Wrap(err, "ptyshell: start pty")
	}

	p := &Process{
		cmd:    cmd,
		ptmx:   ptmx,
		output: make(chan []byte, 64),
	}
	go p.readLoop()
	return p, nil
}

func (p *Process) readLoop() {
	defer close(p.output)
	buf := make([]byte, outputChunkSize)
	for {
		n, err := p.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.output <- chunk
		}
		if err != nil {
			return
		}
	}
}

// Output returns the channel of PTY output chunks. It is closed when
// the pane's shell exits.
func (p *Process) Output() <-chan []byte {
	return p.output
}

// Write sends input bytes to the shell's stdin (the PTY's master side).
func (p *Process) Write(b []byte) (int, error) {
	n, err := p.ptmx.Write(b)
	if err != nil {
		return n, errors.Wrap(err, "ptyshell: write")
	}
	return n, nil
}

// Resize informs the PTY of a new terminal size.
func (p *Process) Resize(area rect.Rect) error {
	if err := pty.Setsize(p.ptmx, toPtySize(area)); err != nil {
		return errors.Wrap(err, "ptyshell: resize")
	}
	return nil
}

// Wait blocks until the shell process exits.
func (p *Process) Wait() error {
	if err := p.cmd.Wait(); err != nil {
		return errors.Wrap(err, "ptyshell: wait")
	}
	return nil
}

// Close releases the PTY file descriptor. Safe to call more than once.
func (p *Process) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.ptmx.Close()
	})
	if err != nil {
		return errors.Wrap(err, "ptyshell: close")
	}
	return nil
}

func toPtySize(area rect.Rect) *pty.Winsize {
	return &pty.Winsize{
		Rows: area.H,
		Cols: area.W,
	}
}
