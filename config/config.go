// Package config loads the multiplexer's leader-key and keybinding
// configuration from a TOML file, merging it over built-in defaults.
package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/texelmux/texelmux/input"
	"github.com/texelmux/texelmux/persistence"
	"github.com/texelmux/texelmux/session"
)

const appName = "texelmux"

// Config is the multiplexer's user-facing configuration.
type Config struct {
	LeaderKeys      []string          `toml:"leader_keys"`
	LeaderTimeoutMS uint64            `toml:"leader_timeout_ms"`
	Bindings        map[string]string `toml:"bindings"`
	// DataDir and SocketDir override persistence's XDG-derived
	// defaults when non-empty. Left empty, both packages fall back to
	// $XDG_DATA_HOME (or $HOME/.local/share) as usual.
	DataDir   string `toml:"data_dir"`
	SocketDir string `toml:"socket_dir"`
}

// Default returns the built-in configuration matching spec.md §6's
// default bindings table.
func Default() Config {
	bindings := make(map[string]string)
	for key, cmd := range input.DefaultBindings() {
		name, ok := commandName(cmd)
		if !ok {
			log.Printf("config: default binding %q has no named command, dropping", key)
			continue
		}
		bindings[key] = name
	}
	return Config{
		LeaderKeys:      input.DefaultLeaderKeys(),
		LeaderTimeoutMS: 1000,
		Bindings:        bindings,
	}
}

// ApplyDirOverrides pushes cfg's DataDir/SocketDir fields into the
// persistence package, so every later persistence.DataDir/SocketDir
// call (in both cmd/muxd and cmd/muxctl) resolves the same paths.
// Called once at process startup, before persistence is touched.
func (c Config) ApplyDirOverrides() {
	persistence.SetDataDirOverride(c.DataDir)
	persistence.SetSocketDirOverride(c.SocketDir)
}

// ConfigPath returns <config-dir>/texelmux/texelmux.toml, using
// $XDG_CONFIG_HOME if set, else $HOME/.config.
func ConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, appName+".toml")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return filepath.Join(home, ".config", appName, appName+".toml")
}

// Load reads the TOML file at path into a copy of Default(), so any
// field or binding the file omits keeps its built-in value. A missing
// file is not an error: Load returns defaults unchanged. Malformed
// TOML logs once and falls back to defaults entirely, per spec.md §7's
// "malformed bindings... are logged once" policy. This is a one-shot
// load with no filesystem watcher, per the config-hot-reload Non-goal.
func Load(path string) Config {
	cfg := Default()

	body, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("config: read %s: %v", path, err)
		}
		return cfg
	}

	if _, err := toml.Decode(string(body), &cfg); err != nil {
		log.Printf("config: parse %s: %v, falling back to defaults", path, err)
		return Default()
	}
	return cfg
}

// ToInputConfig resolves cfg's string binding table into an
// input.Config, dropping (and logging) any binding naming a command
// this build doesn't recognize.
func (c Config) ToInputConfig() *input.Config {
	bindings := make(map[string]session.Command, len(c.Bindings))
	for key, name := range c.Bindings {
		cmd, ok := commandKind(name)
		if !ok {
			log.Printf("config: unknown command %q bound to %q, ignoring", name, key)
			continue
		}
		bindings[key] = cmd
	}
	return &input.Config{
		LeaderKeys: c.LeaderKeys,
		Timeout:    msToDuration(c.LeaderTimeoutMS),
		Bindings:   bindings,
	}
}
