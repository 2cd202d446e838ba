package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/texelmux/texelmux/input"
	"github.com/texelmux/texelmux/persistence"
)

func TestDefaultMatchesInputDefaults(t *testing.T) {
	cfg := Default()
	if cfg.LeaderTimeoutMS != 1000 {
		t.Fatalf("LeaderTimeoutMS = %d, want 1000", cfg.LeaderTimeoutMS)
	}
	if len(cfg.LeaderKeys) != 2 {
		t.Fatalf("LeaderKeys = %v, want 2 entries", cfg.LeaderKeys)
	}
	if cfg.Bindings["x"] != "close_pane" {
		t.Fatalf("Bindings[\"x\"] = %q, want %q", cfg.Bindings["x"], "close_pane")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "missing.toml"))
	want := Default()
	if cfg.LeaderTimeoutMS != want.LeaderTimeoutMS {
		t.Fatalf("Load on a missing file must return defaults")
	}
}

func TestLoadOverridesLeaderTimeout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "texelmux.toml")
	body := "leader_timeout_ms = 2500\n\n[bindings]\nx = \"close_pane\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg := Load(path)
	if cfg.LeaderTimeoutMS != 2500 {
		t.Fatalf("LeaderTimeoutMS = %d, want 2500", cfg.LeaderTimeoutMS)
	}
	// A partial [bindings] table is decoded into the map Default()
	// already filled, so the keys it names are set and the other
	// default bindings stay in place.
	if cfg.Bindings["x"] != "close_pane" {
		t.Fatalf("Bindings[\"x\"] = %q, want %q", cfg.Bindings["x"], "close_pane")
	}
}

func TestLoadMalformedTomlFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "texelmux.toml")
	os.WriteFile(path, []byte("not valid [[[ toml"), 0o644)

	cfg := Load(path)
	want := Default()
	if cfg.LeaderTimeoutMS != want.LeaderTimeoutMS {
		t.Fatalf("malformed TOML must fall back to defaults")
	}
}

func TestToInputConfigDropsUnknownBinding(t *testing.T) {
	cfg := Config{
		LeaderKeys:      []string{"Control-b"},
		LeaderTimeoutMS: 1000,
		Bindings: map[string]string{
			"x": "close_pane",
			"q": "not_a_real_command",
		},
	}
	ic := cfg.ToInputConfig()
	if _, ok := ic.Bindings["x"]; !ok {
		t.Fatalf("expected known binding \"x\" to survive")
	}
	if _, ok := ic.Bindings["q"]; ok {
		t.Fatalf("unknown command binding must be dropped")
	}
}

func TestApplyDirOverridesReachesPersistence(t *testing.T) {
	defer persistence.SetDataDirOverride("")
	defer persistence.SetSocketDirOverride("")

	cfg := Config{DataDir: "/tmp/texelmux-test-data", SocketDir: "/tmp/texelmux-test-sockets"}
	cfg.ApplyDirOverrides()

	if got := persistence.DataDir(); got != cfg.DataDir {
		t.Fatalf("persistence.DataDir() = %q, want %q", got, cfg.DataDir)
	}
	if got := persistence.SocketDir(); got != cfg.SocketDir {
		t.Fatalf("persistence.SocketDir() = %q, want %q", got, cfg.SocketDir)
	}
}

func TestCommandNameRoundTrip(t *testing.T) {
	for name, cmd := range namedCommands {
		gotName, ok := commandName(cmd)
		if !ok || gotName != name {
			t.Fatalf("commandName(%v) = (%q, %v), want (%q, true)", cmd, gotName, ok, name)
		}
		gotCmd, ok := commandKind(name)
		if !ok || gotCmd != cmd {
			t.Fatalf("commandKind(%q) = (%v, %v), want (%v, true)", name, gotCmd, ok, cmd)
		}
	}
}

// TestDefaultRoundTripPreservesCommandParameters guards against losing
// a bound command's Dir/Delta/N fields on the way through the TOML
// string-name representation and back.
func TestDefaultRoundTripPreservesCommandParameters(t *testing.T) {
	original := input.DefaultBindings()
	restored := Default().ToInputConfig().Bindings

	for key, want := range original {
		got, ok := restored[key]
		if !ok {
			t.Fatalf("binding %q dropped on round trip", key)
		}
		if got != want {
			t.Fatalf("binding %q round-tripped to %+v, want %+v", key, got, want)
		}
	}
}
