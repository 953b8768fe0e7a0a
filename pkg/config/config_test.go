package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 50, cfg.Search.ResultCap)
	assert.Equal(t, 100, cfg.Search.BrowseCap)
	assert.Equal(t, 300*time.Millisecond, cfg.Session.Debounce())
	assert.Equal(t, "priority", cfg.Search.OrderBy)
	assert.Equal(t, filepath.Join(cfg.Store.DataDir, "jdict.db"), cfg.Store.IndexPath())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[search]
result_cap = 20
order_by = "rank"

[session]
debounce_ms = 150
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Search.ResultCap)
	assert.Equal(t, "rank", cfg.Search.OrderBy)
	assert.Equal(t, 150*time.Millisecond, cfg.Session.Debounce())
	// Untouched sections keep their defaults.
	assert.Equal(t, 100, cfg.Search.BrowseCap)
	assert.Equal(t, "jdict.db", cfg.Store.IndexName)
}

func TestLoadRepairsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[search]
result_cap = -1
candidate_limit = 5
order_by = "meaning; DROP TABLE dict_index"

[session]
debounce_ms = -10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Search.ResultCap)
	assert.Equal(t, 50, cfg.Search.CandidateLimit, "candidate limit is raised to the result cap")
	assert.Equal(t, "priority", cfg.Search.OrderBy)
	assert.Equal(t, 300, cfg.Session.DebounceMS)
}

func TestLoadWithPriorityFallsBack(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[search\nresult_cap = "), 0o644))

	cfg, _ := LoadWithPriority(bad)
	require.NotNil(t, cfg)
	assert.Equal(t, 50, cfg.Search.ResultCap)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := DefaultConfig()
	cfg.Search.BrowseCap = 42
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Search.BrowseCap)
}
