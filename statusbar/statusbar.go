// Package statusbar builds a renderer-agnostic status line describing
// a session's windows and the active pane's position, the way a
// terminal multiplexer's bottom bar does. It is a supplement over the
// distilled core spec: the feature exists in original_source but was
// dropped from the minimal spec and is restored here.
package statusbar

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/texelmux/texelmux/session"
)

// WindowEntry describes one window's status-line token.
type WindowEntry struct {
	Index  int
	Name   string
	Active bool
}

// Content is the renderer-agnostic status line description.
type Content struct {
	SessionName string
	Windows     []WindowEntry
	PaneInfo    string
}

// BuildStatus captures the pieces of s needed to render a status line.
func BuildStatus(s *session.Session) Content {
	c := Content{SessionName: s.Name}
	for i, w := range s.Windows {
		c.Windows = append(c.Windows, WindowEntry{
			Index:  i,
			Name:   w.Name,
			Active: i == s.ActiveWindow,
		})
	}
	if w, ok := s.ActiveWin(); ok {
		pos, total := w.ActivePanePosition()
		c.PaneInfo = fmt.Sprintf("pane %d/%d", pos, total)
	}
	return c
}

func formatWindowEntry(e WindowEntry) string {
	marker := ""
	if e.Active {
		marker = "*"
	}
	return fmt.Sprintf(" %d:%s%s", e.Index, e.Name, marker)
}

// RenderLine lays out content into a single line exactly width cells
// wide: "[session]" on the left, the window list centered in the space
// between, and the pane position on the right. Content wider than
// width is not truncated; the line is then longer than width.
// Padding is computed with go-runewidth so
// multi-byte window names don't throw off alignment; original_source
// pads by byte length, which misrenders non-ASCII names.
func RenderLine(content Content, width int) string {
	left := fmt.Sprintf("[%s]", content.SessionName)

	var center strings.Builder
	for _, e := range content.Windows {
		center.WriteString(formatWindowEntry(e))
	}

	right := content.PaneInfo

	leftW := runewidth.StringWidth(left)
	centerW := runewidth.StringWidth(center.String())
	rightW := runewidth.StringWidth(right)

	pad := width - leftW - centerW - rightW
	if pad < 0 {
		pad = 0
	}

	leftPad := pad / 2
	var line strings.Builder
	line.WriteString(left)
	line.WriteString(strings.Repeat(" ", leftPad))
	line.WriteString(center.String())
	line.WriteString(strings.Repeat(" ", pad-leftPad))
	line.WriteString(right)
	return line.String()
}
