package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, "0.0.0.0", d.Host)
	assert.Equal(t, 50051, d.Port)
	assert.True(t, d.Batching())
	assert.Equal(t, 8, d.Batch.MaxBatchSize)
	assert.Equal(t, ":9090", d.MetricsAddr)
}

func TestLoadWithNoPathReturnsDefaults(t *testing.T) {
	opts, err := Load("", ServeOptions{})
	require.NoError(t, err)
	assert.Equal(t, Defaults(), opts)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blazerpc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: 127.0.0.1\nport: 9000\nlog_level: debug\n"), 0o644))

	opts, err := Load(path, ServeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", opts.Host)
	assert.Equal(t, 9000, opts.Port)
	assert.Equal(t, "debug", opts.LogLevel)
	// fields absent from the file fall back to Defaults()
	assert.True(t, opts.Batching())
	assert.Equal(t, 8, opts.Batch.MaxBatchSize)
}

func TestLoadFileCanDisableBatching(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blazerpc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batching_enabled: false\n"), 0o644))

	opts, err := Load(path, ServeOptions{})
	require.NoError(t, err)
	assert.False(t, opts.Batching())
}

func TestLoadOverrideCanDisableBatching(t *testing.T) {
	disabled := false
	opts, err := Load("", ServeOptions{BatchingEnabled: &disabled})
	require.NoError(t, err)
	assert.False(t, opts.Batching())
}

func TestLoadOverrideDisableWinsOverEnabledFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blazerpc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batching_enabled: true\n"), 0o644))

	disabled := false
	opts, err := Load(path, ServeOptions{BatchingEnabled: &disabled})
	require.NoError(t, err)
	assert.False(t, opts.Batching())
}

func TestLoadExplicitOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blazerpc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: 127.0.0.1\nport: 9000\n"), 0o644))

	opts, err := Load(path, ServeOptions{Port: 7777})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", opts.Host) // untouched by the override
	assert.Equal(t, 7777, opts.Port)        // override wins
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), ServeOptions{})
	require.Error(t, err)
}

func TestLoadMalformedYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: [this is not\nvalid yaml"), 0o644))

	_, err := Load(path, ServeOptions{})
	require.Error(t, err)
}

func TestLoadPreservesDurationFields(t *testing.T) {
	opts, err := Load("", ServeOptions{GracePeriod: 30 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, opts.GracePeriod)
}
