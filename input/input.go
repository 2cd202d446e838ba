// Package input implements the leader-key interpreter: a two-state
// machine that watches a raw key stream for a configured leader
// sequence and, once triggered, maps the following key to a
// session.Command.
package input

import (
	"strconv"
	"strings"
	"time"

	"github.com/texelmux/texelmux/layout"
	"github.com/texelmux/texelmux/session"
)

// KeyEvent is the renderer-agnostic key event the core consumes. A
// real event loop (excluded from this module's scope, per spec.md §1)
// is expected to translate its own key type into this one.
type KeyEvent struct {
	// Char holds the typed rune for character keys; 0 if Named is set.
	Char rune
	// Named holds a non-character key name: "Up", "Down", "Left",
	// "Right", "Space". Empty if Char is set instead.
	Named string
	Ctrl  bool
}

// StateKind distinguishes the two states of the leader-key machine.
type StateKind int

const (
	// Normal: keys are forwarded to the active pane's PTY unmodified.
	Normal StateKind = iota
	// WaitingForCommand: the leader key was just seen; the next key is
	// either another leader key (forwarded, a "double tap"), a bound
	// command key, or (if EnteredAt exceeds the configured timeout)
	// treated as stale and forwarded on its own.
	WaitingForCommand
)

// State is the leader-key machine's current state.
type State struct {
	Kind      StateKind
	EnteredAt time.Time
}

// Result is the outcome of processing one key event.
type Result struct {
	// Forward is true when the key (or, in the stale-timeout case, the
	// triggering key) should be sent on to the active pane's PTY.
	Forward bool
	// Command is set when the key resolved to a bound command. Nil
	// otherwise, including when the leader was consumed with no
	// follow-up command recognized; that case is silently discarded,
	// matching spec.md §7's "unbound command key while waiting" policy.
	Command *session.Command
}

// Config holds the leader-key specs, timeout, and key bindings driving Process.
type Config struct {
	LeaderKeys []string
	Timeout    time.Duration
	Bindings   map[string]session.Command
}

// Process advances the leader-key state machine by one key event,
// returning the new state and the result to act on.
func Process(state State, ev KeyEvent, cfg *Config, now time.Time) (State, Result) {
	switch state.Kind {
	case Normal:
		if isLeaderKey(ev, cfg.LeaderKeys) {
			return State{Kind: WaitingForCommand, EnteredAt: now}, Result{}
		}
		return State{Kind: Normal}, Result{Forward: true}

	case WaitingForCommand:
		if cfg.Timeout > 0 && now.Sub(state.EnteredAt) > cfg.Timeout {
			// Stale leader: only this key forwards, not the leader itself.
			return State{Kind: Normal}, Result{Forward: true}
		}
		if isLeaderKey(ev, cfg.LeaderKeys) {
			// Double tap: send the leader key itself through to the PTY.
			return State{Kind: Normal}, Result{Forward: true}
		}
		spec, ok := KeyToString(ev)
		if !ok {
			return State{Kind: Normal}, Result{}
		}
		cmd, ok := cfg.Bindings[spec]
		if !ok {
			return State{Kind: Normal}, Result{}
		}
		cmdCopy := cmd
		return State{Kind: Normal}, Result{Command: &cmdCopy}

	default:
		return State{Kind: Normal}, Result{}
	}
}

// KeyToString canonicalizes a KeyEvent into the binding-table key
// format: a bare character ("a"), a named key ("Up", "Space"), with a
// "Ctrl-" prefix when the Ctrl modifier is held. Returns ok=false for
// events that carry no recognizable key (neither Char nor Named set).
func KeyToString(ev KeyEvent) (string, bool) {
	var base string
	switch {
	case ev.Named != "":
		base = ev.Named
	case ev.Char != 0:
		base = string(ev.Char)
	default:
		return "", false
	}
	if ev.Ctrl {
		return "Ctrl-" + base, true
	}
	return base, true
}

func isLeaderKey(ev KeyEvent, specs []string) bool {
	for _, spec := range specs {
		if matchesLeaderSpec(ev, spec) {
			return true
		}
	}
	return false
}

// matchesLeaderSpec checks a single leader spec like "Control-Space"
// or "Control-b" against an event. The modifier token ("Control") may
// be spelled "Control" or "Ctrl"; everything after the last "-" is the
// key name.
func matchesLeaderSpec(ev KeyEvent, spec string) bool {
	parts := strings.Split(spec, "-")
	keyPart := parts[len(parts)-1]
	wantCtrl := false
	for _, mod := range parts[:len(parts)-1] {
		if mod == "Control" || mod == "Ctrl" {
			wantCtrl = true
		}
	}
	if wantCtrl != ev.Ctrl {
		return false
	}
	if keyPart == "Space" {
		return ev.Named == "Space"
	}
	if len(keyPart) == 1 {
		return ev.Char == rune(keyPart[0])
	}
	return ev.Named == keyPart
}

// DefaultBindings returns the default key-to-command table from
// spec.md §6, plus numeric 0-9 bound to SwitchToWindow(n).
func DefaultBindings() map[string]session.Command {
	b := map[string]session.Command{
		"\"":         {Kind: session.SplitHorizontal},
		"-":          {Kind: session.SplitHorizontal},
		"%":          {Kind: session.SplitVertical},
		"|":          {Kind: session.SplitVertical},
		"x":          {Kind: session.ClosePane},
		"o":          {Kind: session.NextPane},
		";":          {Kind: session.PrevPane},
		"c":          {Kind: session.NewWindow},
		"n":          {Kind: session.NextWindow},
		"p":          {Kind: session.PrevWindow},
		"d":          {Kind: session.DetachSession},
		",":          {Kind: session.RenameWindow},
		"z":          {Kind: session.ToggleZoom},
		"[":          {Kind: session.ScrollbackMode},
		"Up":         {Kind: session.NavigatePane, Dir: layout.Horizontal},
		"Down":       {Kind: session.NavigatePane, Dir: layout.Horizontal},
		"Left":       {Kind: session.NavigatePane, Dir: layout.Vertical},
		"Right":      {Kind: session.NavigatePane, Dir: layout.Vertical},
		"Ctrl-Up":    {Kind: session.ResizePane, Dir: layout.Horizontal, Delta: -0.05},
		"Ctrl-Down":  {Kind: session.ResizePane, Dir: layout.Horizontal, Delta: 0.05},
		"Ctrl-Left":  {Kind: session.ResizePane, Dir: layout.Vertical, Delta: -0.05},
		"Ctrl-Right": {Kind: session.ResizePane, Dir: layout.Vertical, Delta: 0.05},
	}
	for i := 0; i <= 9; i++ {
		b[strconv.Itoa(i)] = session.Command{Kind: session.SwitchToWindow, N: i}
	}
	return b
}

// DefaultLeaderKeys returns the default leader key specs from spec.md §6.
func DefaultLeaderKeys() []string {
	return []string{"Control-Space", "Control-b"}
}
