package statusbar

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/texelmux/texelmux/session"
)

func TestBuildStatusMarksActiveWindow(t *testing.T) {
	s := session.New("main")
	s.AddWindow("logs")

	content := BuildStatus(s)
	if content.SessionName != "main" {
		t.Fatalf("SessionName = %q, want %q", content.SessionName, "main")
	}
	if len(content.Windows) != 2 {
		t.Fatalf("len(Windows) = %d, want 2", len(content.Windows))
	}
	if !content.Windows[1].Active || content.Windows[0].Active {
		t.Fatalf("expected only window 1 (\"logs\") to be marked active: %+v", content.Windows)
	}
}

func TestBuildStatusPaneInfoReflectsPosition(t *testing.T) {
	s := session.New("main")
	content := BuildStatus(s)
	if content.PaneInfo != "pane 1/1" {
		t.Fatalf("PaneInfo = %q, want %q", content.PaneInfo, "pane 1/1")
	}
}

func TestRenderLinePadsToExactWidth(t *testing.T) {
	content := Content{
		SessionName: "main",
		Windows:     []WindowEntry{{Index: 0, Name: "0", Active: true}},
		PaneInfo:    "pane 1/1",
	}
	line := RenderLine(content, 40)
	if runewidth.StringWidth(line) != 40 {
		t.Fatalf("rendered line width = %d, want 40 (line=%q)", runewidth.StringWidth(line), line)
	}
}

func TestRenderLineMultiByteWindowNameStaysAligned(t *testing.T) {
	content := Content{
		SessionName: "main",
		Windows:     []WindowEntry{{Index: 0, Name: "日本語", Active: true}},
		PaneInfo:    "pane 1/1",
	}
	line := RenderLine(content, 40)
	if runewidth.StringWidth(line) != 40 {
		t.Fatalf("rendered line width = %d, want 40 (line=%q)", runewidth.StringWidth(line), line)
	}
	if !strings.Contains(line, "日本語") {
		t.Fatalf("rendered line must contain the window name: %q", line)
	}
}

func TestRenderLineNeverPanicsWhenContentExceedsWidth(t *testing.T) {
	content := Content{
		SessionName: "a-very-long-session-name-indeed",
		Windows: []WindowEntry{
			{Index: 0, Name: "alpha", Active: true},
			{Index: 1, Name: "beta"},
		},
		PaneInfo: "pane 1/1",
	}
	_ = RenderLine(content, 5)
}
