// Package persistence saves and restores sessions as pretty-printed
// JSON files, and maintains a small SQLite registry indexing sessions
// across server restarts. The JSON files are the source of truth for
// session content; the registry is a queryable supplement over them,
// never authoritative.
package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/texelmux/texelmux/layout"
	"github.com/texelmux/texelmux/muxerr"
	"github.com/texelmux/texelmux/session"
	"github.com/texelmux/texelmux/window"
)

const appName = "texelmux"

// dataDirOverride and socketDirOverride let config.Config's DataDir/
// SocketDir fields replace the XDG-derived defaults below. They're set
// once at startup (SetDataDirOverride/SetSocketDirOverride), before any
// connection goroutine is running, so no locking guards them.
var (
	dataDirOverride   string
	socketDirOverride string
)

// SetDataDirOverride makes DataDir (and anything derived from it)
// return path instead of the XDG-derived default. An empty path
// restores the default.
func SetDataDirOverride(path string) {
	dataDirOverride = path
}

// SetSocketDirOverride makes SocketDir return path instead of
// <DataDir>/sockets. An empty path restores the default.
func SetSocketDirOverride(path string) {
	socketDirOverride = path
}

// DataDir returns the root data directory: the configured override if
// set, else $XDG_DATA_HOME/texelmux if set, else
// $HOME/.local/share/texelmux, else /tmp/texelmux as a last resort
// fallback (mirrors original_source's dirs_or_default).
func DataDir() string {
	if dataDirOverride != "" {
		return dataDirOverride
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".local", "share", appName)
	}
	return filepath.Join(os.TempDir(), appName)
}

// SessionDir returns the directory holding per-session JSON snapshots.
func SessionDir() string {
	return filepath.Join(DataDir(), "sessions")
}

// SocketDir returns the directory holding per-session Unix sockets: the
// configured override if set, else <DataDir>/sockets.
func SocketDir() string {
	if socketDirOverride != "" {
		return socketDirOverride
	}
	return filepath.Join(DataDir(), "sockets")
}

// file is the on-disk JSON shape of a session. It carries enough state
// (NextWindowID, per-window NextPaneID, pane titles) to reconstruct a
// session.Session exactly, not just a read-only snapshot.
type file struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ActiveWindow int          `json:"active_window"`
	NextWindowID uint32       `json:"next_window_id"`
	Windows      []fileWindow `json:"windows"`
}

type fileWindow struct {
	ID         uint32       `json:"id"`
	Name       string       `json:"name"`
	ActivePane uint32       `json:"active_pane"`
	Zoomed     bool         `json:"zoomed"`
	NextPaneID uint32       `json:"next_pane_id"`
	Layout     *layout.Node `json:"layout"`
	Panes      []filePane   `json:"panes"`
}

type filePane struct {
	ID    uint32 `json:"id"`
	Title string `json:"title"`
}

func toFile(s *session.Session) file {
	f := file{
		ID:           s.ID.String(),
		Name:         s.Name,
		ActiveWindow: s.ActiveWindow,
		NextWindowID: s.NextWindowID,
	}
	for _, w := range s.Windows {
		fw := fileWindow{
			ID:         uint32(w.ID),
			Name:       w.Name,
			ActivePane: uint32(w.ActivePane),
			Zoomed:     w.Zoomed,
			NextPaneID: w.NextPaneID,
			Layout:     w.Layout.Root,
		}
		for id, p := range w.Panes {
			fw.Panes = append(fw.Panes, filePane{ID: uint32(id), Title: p.Title})
		}
		sort.Slice(fw.Panes, func(i, j int) bool { return fw.Panes[i].ID < fw.Panes[j].ID })
		f.Windows = append(f.Windows, fw)
	}
	return f
}

func fromFile(f file) (*session.Session, error) {
	id, err := session.ParseID(f.ID)
	if err != nil {
		return nil, muxerr.Wrap(muxerr.KindPersistence, "parse session id", err)
	}
	s := &session.Session{
		ID:           id,
		Name:         f.Name,
		ActiveWindow: f.ActiveWindow,
		NextWindowID: f.NextWindowID,
	}
	for _, fw := range f.Windows {
		nextPaneID := fw.NextPaneID
		if nextPaneID == 0 {
			// A file without next_pane_id continues past the highest
			// pane id in its saved layout, so no id is reused.
			for _, id := range (&layout.Tree{Root: fw.Layout}).PaneIDs() {
				if uint32(id) >= nextPaneID {
					nextPaneID = uint32(id) + 1
				}
			}
		}
		w := window.Restore(window.WindowID(fw.ID), fw.Name, fw.Layout, layout.PaneID(fw.ActivePane), fw.Zoomed, nextPaneID)
		for _, fp := range fw.Panes {
			if p, ok := w.Pane(layout.PaneID(fp.ID)); ok {
				p.Title = fp.Title
			}
		}
		if f.NextWindowID == 0 && fw.ID >= s.NextWindowID {
			s.NextWindowID = fw.ID + 1
		}
		s.Windows = append(s.Windows, w)
	}
	return s, nil
}

// SaveSession writes s to <SessionDir>/<name>.json as pretty-printed JSON.
func SaveSession(s *session.Session) error {
	dir := SessionDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "persistence: create session dir")
	}
	body, err := json.MarshalIndent(toFile(s), "", "  ")
	if err != nil {
		return errors.Wrap(err, "persistence: marshal session")
	}
	path := filepath.Join(dir, s.Name+".json")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return errors.Wrap(err, "persistence: write session file")
	}
	return nil
}

// LoadSession reads and reconstructs the session named name.
func LoadSession(name string) (*session.Session, error) {
	path := filepath.Join(SessionDir(), name+".json")
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "persistence: read session file")
	}
	var f file
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, errors.Wrap(err, "persistence: unmarshal session")
	}
	return fromFile(f)
}

// ListSessions returns the names of every saved session, sorted.
func ListSessions() ([]string, error) {
	entries, err := os.ReadDir(SessionDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "persistence: list session dir")
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// DeleteSession removes the saved snapshot for name, if present.
func DeleteSession(name string) error {
	path := filepath.Join(SessionDir(), name+".json")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "persistence: delete session file")
	}
	return nil
}
