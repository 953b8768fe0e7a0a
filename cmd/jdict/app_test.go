package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/jdict/internal/testutil"
	"github.com/japaniel/jdict/pkg/config"
	"github.com/japaniel/jdict/pkg/store"
)

// runApp runs the CLI with a config pointing at bundle and a temp data dir.
func runApp(t *testing.T, bundle string, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Store.BundlePath = bundle
	cfg.Store.DataDir = filepath.Join(dir, "data")
	cfg.Log.Level = "error"
	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, config.Save(cfg, cfgPath))

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.RunContext(context.Background(), append([]string{"jdict", "--config", cfgPath}, args...))
	return out.String(), err
}

// assertOrder checks that each want appears in out after the previous one.
func assertOrder(t *testing.T, out string, want ...string) {
	t.Helper()
	last := -1
	for _, w := range want {
		i := strings.Index(out, w)
		if !assert.Greater(t, i, last, "%q out of order in:\n%s", w, out) {
			return
		}
		last = i
	}
}

func TestLookupCommand(t *testing.T) {
	out, err := runApp(t, testutil.SampleBundle(t), "lookup", "to", "eat")
	require.NoError(t, err)

	assert.Contains(t, out, "MEANING")
	assertOrder(t, out, "食べる", "食事", "食べ物")
	assert.NotContains(t, out, "飲む")
}

func TestLookupNoResults(t *testing.T) {
	out, err := runApp(t, testutil.SampleBundle(t), "lookup", "zebra")
	require.NoError(t, err)
	assert.Equal(t, "no entries\n", out)
}

func TestBrowseCommand(t *testing.T) {
	out, err := runApp(t, testutil.SampleBundle(t), "browse", "--limit", "2")
	require.NoError(t, err)
	assertOrder(t, out, "食事", "たべもの")
	assert.NotContains(t, out, "食べ物")
}

func TestGetCommand(t *testing.T) {
	bundle := testutil.SampleBundle(t)
	out, err := runApp(t, bundle, "get", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "食[た]べる")
	assert.Contains(t, out, "to live on")
	assert.Contains(t, out, "1358280")

	_, err = runApp(t, bundle, "get", "404")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, ExitCodeNotFound, exitCode(err))

	_, err = runApp(t, bundle, "get", "abc")
	assert.ErrorIs(t, err, ErrFlagParse)
}

func TestCompleteCommand(t *testing.T) {
	out, err := runApp(t, testutil.SampleBundle(t), "complete", "食")
	require.NoError(t, err)
	assertOrder(t, out, "食事", "食べ物", "食べる")
}

func TestInstallCommand(t *testing.T) {
	out, err := runApp(t, testutil.SampleBundle(t), "install", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "format_version")
	assert.Contains(t, out, "testutil")
}

func TestInstallMissingBundle(t *testing.T) {
	_, err := runApp(t, filepath.Join(t.TempDir(), "missing.db"), "lookup", "eat")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrInstallFailed))
	assert.Equal(t, ExitCodeInstallError, exitCode(err))
}

func TestAnnotateTextCommand(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(doc, []byte("机で食べる。"), 0o644))

	out, err := runApp(t, testutil.SampleBundle(t), "annotate", "--text", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "desk")
	assert.Contains(t, out, "to eat")
}

const sourceJSON = `{"version": "test", "words": [
 {"id": "1", "kanji": [{"text": "猫", "common": true}], "kana": [{"text": "ねこ", "common": true}],
  "sense": [{"partOfSpeech": ["n"], "gloss": [{"lang": "eng", "text": "cat"}]}]},
 {"id": "2", "kanji": [{"text": "犬", "common": false}], "kana": [{"text": "いぬ", "common": false}],
  "sense": [{"partOfSpeech": ["n"], "gloss": [{"lang": "eng", "text": "dog"}]}]}
]}`

func TestBuildThenLookup(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.json")
	require.NoError(t, os.WriteFile(src, []byte(sourceJSON), 0o644))
	bundle := filepath.Join(dir, "jdict.db")

	out, err := runApp(t, bundle, "build", "--source", src, "--no-readings", "--dictzip")
	require.NoError(t, err)
	assert.Contains(t, out, "written")
	assert.FileExists(t, bundle+".dz")

	out, err = runApp(t, bundle+".dz", "lookup", "neko")
	require.NoError(t, err)
	assert.Contains(t, out, "猫")
	assert.NotContains(t, out, "犬")
}

func TestBuildMissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := runApp(t, filepath.Join(dir, "jdict.db"), "build", "--source", filepath.Join(dir, "none.json"))
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestVersionCommand(t *testing.T) {
	out, err := runApp(t, "", "version")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
