package config

import (
	"fmt"
	"time"

	"github.com/texelmux/texelmux/layout"
	"github.com/texelmux/texelmux/session"
)

// namedCommands maps a TOML-facing binding name to the full Command it
// resolves to. Parameterized commands (direction, resize delta, window
// index) each get their own name rather than sharing a bare Kind name,
// since a flat string->string bindings table can't carry struct fields,
// the same approach tmux's own named bind-key targets take.
var namedCommands = func() map[string]session.Command {
	m := map[string]session.Command{
		"split_horizontal":         {Kind: session.SplitHorizontal},
		"split_vertical":           {Kind: session.SplitVertical},
		"close_pane":               {Kind: session.ClosePane},
		"next_pane":                {Kind: session.NextPane},
		"prev_pane":                {Kind: session.PrevPane},
		"new_window":               {Kind: session.NewWindow},
		"close_window":             {Kind: session.CloseWindow},
		"next_window":              {Kind: session.NextWindow},
		"prev_window":              {Kind: session.PrevWindow},
		"toggle_zoom":              {Kind: session.ToggleZoom},
		"rename_window":            {Kind: session.RenameWindow},
		"detach":                   {Kind: session.DetachSession},
		"scrollback_mode":          {Kind: session.ScrollbackMode},
		"navigate_horizontal":      {Kind: session.NavigatePane, Dir: layout.Horizontal},
		"navigate_vertical":        {Kind: session.NavigatePane, Dir: layout.Vertical},
		"resize_horizontal_grow":   {Kind: session.ResizePane, Dir: layout.Horizontal, Delta: 0.05},
		"resize_horizontal_shrink": {Kind: session.ResizePane, Dir: layout.Horizontal, Delta: -0.05},
		"resize_vertical_grow":     {Kind: session.ResizePane, Dir: layout.Vertical, Delta: 0.05},
		"resize_vertical_shrink":   {Kind: session.ResizePane, Dir: layout.Vertical, Delta: -0.05},
	}
	for i := 0; i <= 9; i++ {
		m[fmt.Sprintf("switch_to_window_%d", i)] = session.Command{Kind: session.SwitchToWindow, N: i}
	}
	return m
}()

// commandToName inverts namedCommands for Default()'s bindings table.
var commandToName = func() map[session.Command]string {
	out := make(map[session.Command]string, len(namedCommands))
	for name, cmd := range namedCommands {
		out[cmd] = name
	}
	return out
}()

func commandName(cmd session.Command) (string, bool) {
	name, ok := commandToName[cmd]
	return name, ok
}

func commandKind(name string) (session.Command, bool) {
	cmd, ok := namedCommands[name]
	return cmd, ok
}

func msToDuration(ms uint64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
