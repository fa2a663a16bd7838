// Package config loads the JSON configuration used by the daemon and CLI
// entry points: backing file paths, volume layout, the adapter listen
// address, and logging level.
//
// Grounded on internal/config/config.go's struct-plus-JSON-unmarshal shape
// and on iamNilotpal-ignite/pkg/options's defaults-constant-block pattern;
// this repo's volume has none of that file's multi-tenant token or W64F
// protocol concerns, so the struct itself was rewritten from scratch for
// the store's actual configuration surface.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	DefaultDataPath    = "./data/volume.data"
	DefaultDirPath     = "./data/volume.dir"
	DefaultHashPath    = "./data/volume.hash"
	DefaultListen      = "127.0.0.1:9064"
	DefaultNProc       = 4
	DefaultLogLevel    = "info"
	DefaultMaxSlots    = 256
	DefaultDataLenByte = 16 * 1024 * 1024 // 16MiB, used only by `vaultctl init`
)

// Config controls where a volume's three backing files live and how the
// daemon/CLI talk to the store.
type Config struct {
	DataPath string `json:"data_path"`
	DirPath  string `json:"dir_path"`
	HashPath string `json:"hash_path"`

	// NProcessors bounds the worker fan-out used by the initial full rehash
	// on open (§10.3); it has no effect on correctness.
	NProcessors int `json:"n_processors"`

	// Listen is the adapter's TCP listen address (internal/adapter).
	Listen string `json:"listen"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `json:"log_level"`
}

func Default() Config {
	return Config{
		DataPath:    DefaultDataPath,
		DirPath:     DefaultDirPath,
		HashPath:    DefaultHashPath,
		NProcessors: DefaultNProc,
		Listen:      DefaultListen,
		LogLevel:    DefaultLogLevel,
	}
}

// Load reads a JSON config file, falling back to Default() for any field
// left unset by an empty/missing path.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DataPath == "" || c.DirPath == "" || c.HashPath == "" {
		return fmt.Errorf("config: data_path, dir_path and hash_path are all required")
	}
	if c.NProcessors <= 0 {
		c.NProcessors = DefaultNProc
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	case "":
		c.LogLevel = DefaultLogLevel
	default:
		return fmt.Errorf("config: invalid log_level %q", c.LogLevel)
	}
	return nil
}
