/*
Package config manages the TOML configuration for jdict.

A missing or partially invalid file never prevents startup: unknown or
out-of-range values fall back to the built-in defaults with a warning.

	[store]
	bundle_path = "assets/jdict.db"
	index_name = "jdict.db"

	[search]
	result_cap = 50
	browse_cap = 100
	candidate_limit = 200
	order_by = "priority"

	[session]
	debounce_ms = 300
*/
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Store   StoreConfig   `toml:"store"`
	Search  SearchConfig  `toml:"search"`
	Session SessionConfig `toml:"session"`
	Build   BuildConfig   `toml:"build"`
	Log     LogConfig     `toml:"log"`
}

// StoreConfig locates the bundled snapshot and the local working copy.
type StoreConfig struct {
	BundlePath string `toml:"bundle_path"`
	DataDir    string `toml:"data_dir"`
	IndexName  string `toml:"index_name"`
}

// SearchConfig holds result caps and candidate retrieval options.
type SearchConfig struct {
	ResultCap      int    `toml:"result_cap"`
	BrowseCap      int    `toml:"browse_cap"`
	CandidateLimit int    `toml:"candidate_limit"`
	OrderBy        string `toml:"order_by"`
}

// SessionConfig holds typing session options.
type SessionConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

// BuildConfig holds index builder options.
type BuildConfig struct {
	SourcePath string `toml:"source_path"`
	JLPTDir    string `toml:"jlpt_dir"`
	Workers    int    `toml:"workers"`
	BatchSize  int    `toml:"batch_size"`
}

// LogConfig holds logging options.
type LogConfig struct {
	Level string `toml:"level"`
}

// IndexPath returns the path of the installed working index.
func (s StoreConfig) IndexPath() string {
	return filepath.Join(s.DataDir, s.IndexName)
}

// Debounce returns the debounce window as a duration.
func (s SessionConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			BundlePath: filepath.Join("assets", "jdict.db"),
			DataDir:    defaultDataDir(),
			IndexName:  "jdict.db",
		},
		Search: SearchConfig{
			ResultCap:      50,
			BrowseCap:      100,
			CandidateLimit: 200,
			OrderBy:        "priority",
		},
		Session: SessionConfig{
			DebounceMS: 300,
		},
		Build: BuildConfig{
			SourcePath: "jmdict-eng-common.json",
			Workers:    4,
			BatchSize:  500,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "jdict")
	}
	return "."
}

// DefaultConfigPath returns [UserConfigDir]/jdict/config.toml.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "jdict", "config.toml"), nil
}

// Load decodes a TOML file over the defaults and repairs invalid values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.sanitize()
	return cfg, nil
}

// LoadWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/jdict/config.toml, when it exists
// 3. Builtin defaults
// The returned path is empty when the defaults are used.
func LoadWithPriority(customPath string) (*Config, string) {
	if customPath != "" {
		cfg, err := Load(customPath)
		if err == nil {
			log.Debugf("Loaded config from custom path: %s", customPath)
			return cfg, customPath
		}
		log.Warnf("Failed to load config from %s: %v. Trying default path...", customPath, err)
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), ""
	}
	if _, err := os.Stat(defaultPath); err != nil {
		return DefaultConfig(), ""
	}
	cfg, err := Load(defaultPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", defaultPath, err)
		return DefaultConfig(), ""
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return cfg, defaultPath
}

// Save writes cfg as TOML to path, creating the parent directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

var orderKeys = map[string]bool{"priority": true, "rank": true, "id": true}

func (c *Config) sanitize() {
	def := DefaultConfig()
	fixInt := func(name string, v *int, fallback int) {
		if *v <= 0 {
			log.Warnf("Invalid %s=%d in config, using default %d", name, *v, fallback)
			*v = fallback
		}
	}
	fixInt("search.result_cap", &c.Search.ResultCap, def.Search.ResultCap)
	fixInt("search.browse_cap", &c.Search.BrowseCap, def.Search.BrowseCap)
	fixInt("search.candidate_limit", &c.Search.CandidateLimit, def.Search.CandidateLimit)
	fixInt("build.workers", &c.Build.Workers, def.Build.Workers)
	fixInt("build.batch_size", &c.Build.BatchSize, def.Build.BatchSize)
	if c.Session.DebounceMS < 0 {
		log.Warnf("Invalid session.debounce_ms=%d in config, using default %d", c.Session.DebounceMS, def.Session.DebounceMS)
		c.Session.DebounceMS = def.Session.DebounceMS
	}
	if c.Search.CandidateLimit < c.Search.ResultCap {
		c.Search.CandidateLimit = c.Search.ResultCap
	}
	if !orderKeys[c.Search.OrderBy] {
		log.Warnf("Unknown search.order_by %q in config, using %q", c.Search.OrderBy, def.Search.OrderBy)
		c.Search.OrderBy = def.Search.OrderBy
	}
	if c.Store.IndexName == "" {
		c.Store.IndexName = def.Store.IndexName
	}
	if c.Store.DataDir == "" {
		c.Store.DataDir = def.Store.DataDir
	}
}
