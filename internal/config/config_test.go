package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/jolt/internal/finder"
)

// isolate keeps auto-discovery away from any real config file.
func isolate(t *testing.T) {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "table", cfg.Output)
	assert.Equal(t, finder.DefaultCount, cfg.Finder.Count)
	assert.Equal(t, finder.DefaultCeiling, cfg.Finder.Ceiling)
	assert.Equal(t, finder.DefaultBuffer, cfg.Finder.Buffer)
	assert.Zero(t, cfg.Finder.IdleTimeout)
	assert.Equal(t, finder.DefaultDenylist, cfg.Finder.Denylist)
	assert.Equal(t, "/var/log", cfg.Search.LogDir)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Server.ProgressInterval)
	assert.Equal(t, 10, cfg.Server.DefaultCount)
}

func TestDefault(t *testing.T) {
	isolate(t)

	loaded, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, loaded, Default())
}

func TestLoad_FileAndEnv(t *testing.T) {
	isolate(t)

	file := filepath.Join(t.TempDir(), "jolt.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
finder:
  count: 5
  idle_timeout: 5s
  strict: true
  denylist:
    - /snap/**
server:
  port: 9090
`), 0o600))

	t.Setenv("JOLT_FINDER_CEILING", "4")

	cfg, err := Load(viper.New(), file)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Finder.Count)
	assert.Equal(t, 4, cfg.Finder.Ceiling)
	assert.Equal(t, 5*time.Second, cfg.Finder.IdleTimeout)
	assert.True(t, cfg.Finder.Strict)
	assert.Equal(t, []string{"/snap/**"}, cfg.Finder.Denylist)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_AutoDiscoveredFile(t *testing.T) {
	isolate(t)

	require.NoError(t, os.WriteFile(FileName+".yaml", []byte("output: json\n"), 0o600))

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Output)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorContains(t, err, "reading config file")
}

func TestFinderConfig_Options(t *testing.T) {
	f := FinderConfig{
		Count:       3,
		Ceiling:     7,
		Buffer:      16,
		IdleTimeout: time.Second,
		Strict:      true,
		MinSize:     "1MiB",
		Excludes:    []string{"x"},
		Denylist:    []string{"/d"},
	}

	opt, err := f.Options("/data")
	require.NoError(t, err)

	assert.Equal(t, "/data", opt.Path)
	assert.Equal(t, 3, opt.Count)
	assert.Equal(t, 7, opt.Ceiling)
	assert.Equal(t, 16, opt.Buffer)
	assert.Equal(t, time.Second, opt.IdleTimeout)
	assert.Equal(t, finder.EvictSmaller, opt.Policy)
	assert.Equal(t, int64(1<<20), opt.MinSize)
	assert.Equal(t, []string{"x"}, opt.Excludes)
	assert.Equal(t, []string{"/d"}, opt.Denylist)

	f.Strict = false
	opt, err = f.Options("")
	require.NoError(t, err)
	assert.Equal(t, finder.EvictAlways, opt.Policy)

	f.MinSize = "lots"
	_, err = f.Options("")
	require.ErrorContains(t, err, "invalid min-size")

	f.MinSize = "0B"
	f.Count = finder.MaxCount + 1
	_, err = f.Options("")
	require.ErrorContains(t, err, "exceeds the maximum")

	f.Count = 3
	f.Ceiling = -1
	_, err = f.Options("")
	require.Error(t, err)
}
