package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goretk/symcache"
)

func TestLoadDefaults(t *testing.T) {
	assert := assert.New(t)
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(DefaultOutput, cfg.Output)
	assert.Equal(symcache.DefaultRoots(), cfg.Roots)
	assert.Equal([]string{".dll", ".exe"}, cfg.Extensions)
	assert.Equal(".pdb", cfg.SymbolExt)
	assert.Equal(SearchWalk, cfg.Search)
	assert.True(cfg.Recursive)
	assert.Equal(symcache.DefaultSearchTimeout, cfg.Timeout)
	assert.Equal(1, cfg.Workers)
	assert.Equal(symcache.ReportJSON, cfg.ReportFormat)
	assert.Equal("info", cfg.Log.Level)
	assert.NoError(cfg.Validate())
}

func TestLoadEnv(t *testing.T) {
	assert := assert.New(t)
	t.Setenv("SYMCACHE_ROOTS", "/r1,/r2")
	t.Setenv("SYMCACHE_EXTENSIONS", "DLL, .sys")
	t.Setenv("SYMCACHE_WORKERS", "4")
	t.Setenv("SYMCACHE_TIMEOUT", "5s")
	t.Setenv("SYMCACHE_LOG_LEVEL", "debug")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal([]string{"/r1", "/r2"}, cfg.Roots)
	assert.Equal([]string{".dll", ".sys"}, cfg.Extensions)
	assert.Equal(4, cfg.Workers)
	assert.Equal(5*time.Second, cfg.Timeout)
	assert.Equal("debug", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	assert := assert.New(t)
	file := filepath.Join(t.TempDir(), "symcache.yaml")
	content := `
output: out.txt
roots:
  - /opt/lib
  - /usr/lib
search: WHERE
recursive: false
report: report.yaml
report_format: yaml
log:
  level: warn
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	cfg, err := Load(file, nil)
	require.NoError(t, err)

	assert.Equal("out.txt", cfg.Output)
	assert.Equal([]string{"/opt/lib", "/usr/lib"}, cfg.Roots)
	assert.Equal(SearchWhere, cfg.Search)
	assert.False(cfg.Recursive)
	assert.Equal("report.yaml", cfg.Report)
	assert.Equal(symcache.ReportYAML, cfg.ReportFormat)
	assert.Equal("warn", cfg.Log.Level)
	assert.NoError(cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.ErrorIs(t, err, symcache.ErrConfig)
}

func TestLoadFlagsOverride(t *testing.T) {
	assert := assert.New(t)
	t.Setenv("SYMCACHE_OUTPUT", "env.txt")
	t.Setenv("SYMCACHE_WORKERS", "8")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("output", "o", DefaultOutput, "")
	flags.StringArray(RootFlag, nil, "")
	flags.Int("workers", 1, "")
	require.NoError(t, flags.Parse([]string{"-o", "flag.txt", "--root", "/a", "--root", "/b"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal("flag.txt", cfg.Output)
	assert.Equal([]string{"/a", "/b"}, cfg.Roots)
	// Unchanged flags leave lower sources alone.
	assert.Equal(8, cfg.Workers)
}

func TestLoadRootsWithComma(t *testing.T) {
	t.Setenv("SYMCACHE_ROOTS", "/env1,/env2")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringArray(RootFlag, nil, "")
	require.NoError(t, flags.Parse([]string{"--root", `C:\Program Files\A,B`, "--root", "/b"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, []string{`C:\Program Files\A,B`, "/b"}, cfg.Roots)

	file := filepath.Join(t.TempDir(), "symcache.yaml")
	require.NoError(t, os.WriteFile(file, []byte("roots:\n  - /x,y\n  - /z\n"), 0o644))
	t.Setenv("SYMCACHE_ROOTS", "")
	cfg, err = Load(file, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/x,y", "/z"}, cfg.Roots)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("", nil)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty output", func(c *Config) { c.Output = "" }, "output"},
		{"no roots", func(c *Config) { c.Roots = nil }, "roots"},
		{"no extensions", func(c *Config) { c.Extensions = nil }, "extensions"},
		{"no symbol ext", func(c *Config) { c.SymbolExt = "" }, "symbol_ext"},
		{"bad search", func(c *Config) { c.Search = "locate" }, "search"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "timeout"},
		{"no workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"bad report format", func(c *Config) { c.ReportFormat = "xml" }, "report_format"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := valid()
			test.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, symcache.ErrConfig)
			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, test.field, cerr.Field)
		})
	}
}

func TestCacheDirFrom(t *testing.T) {
	envDir := t.TempDir()
	cfg := &Config{CacheDir: "/from/config"}

	t.Run("argument wins", func(t *testing.T) {
		t.Setenv(LegacyCacheEnv, envDir)
		dir, err := cfg.CacheDirFrom([]string{"/from/args"})
		require.NoError(t, err)
		assert.Equal(t, "/from/args", dir)
	})

	t.Run("legacy env", func(t *testing.T) {
		t.Setenv(LegacyCacheEnv, envDir)
		dir, err := cfg.CacheDirFrom(nil)
		require.NoError(t, err)
		assert.Equal(t, envDir, dir)
	})

	t.Run("legacy env not a directory", func(t *testing.T) {
		t.Setenv(LegacyCacheEnv, filepath.Join(envDir, "missing"))
		dir, err := cfg.CacheDirFrom(nil)
		require.NoError(t, err)
		assert.Equal(t, "/from/config", dir)
	})

	t.Run("nothing set", func(t *testing.T) {
		t.Setenv(LegacyCacheEnv, "")
		_, err := (&Config{}).CacheDirFrom(nil)
		assert.ErrorIs(t, err, symcache.ErrConfig)
	})
}

func TestSearcher(t *testing.T) {
	cfg := &Config{Search: SearchWhere, Recursive: false, Timeout: time.Second}
	ws, ok := cfg.Searcher().(*symcache.WhereSearcher)
	require.True(t, ok)
	assert.True(t, ws.Shallow)
	assert.Equal(t, time.Second, ws.Timeout)

	cfg = &Config{Search: SearchWalk, Recursive: true}
	wk, ok := cfg.Searcher().(*symcache.WalkSearcher)
	require.True(t, ok)
	assert.False(t, wk.Shallow)
}
