// Package config loads the symcache2exe run configuration from defaults, an
// optional config file, SYMCACHE_* environment variables and command line
// flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/goretk/symcache"
)

const (
	// EnvPrefix prefixes the environment variables mapped onto config keys.
	EnvPrefix = "SYMCACHE"
	// LegacyCacheEnv names the symbol cache when no directory is given on the
	// command line.
	LegacyCacheEnv = "SYMBOL_CACHE"
	// DefaultOutput is the default destination of the executable list.
	DefaultOutput = "executables.txt"
	// RootsEnv lists search roots separated by commas.
	RootsEnv = EnvPrefix + "_ROOTS"
	// DefaultConfigName is looked up in the working directory when no config
	// file is given.
	DefaultConfigName = "symcache"
)

// Search backends.
const (
	SearchWalk  = "walk"
	SearchWhere = "where"
)

// Config is the configuration of a resolution run.
type Config struct {
	CacheDir     string        `mapstructure:"cache_dir"`
	Output       string        `mapstructure:"output"`
	Roots        []string      `mapstructure:"roots"`
	Extensions   []string      `mapstructure:"extensions"`
	SymbolExt    string        `mapstructure:"symbol_ext"`
	Search       string        `mapstructure:"search"`
	Recursive    bool          `mapstructure:"recursive"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Workers      int           `mapstructure:"workers"`
	Report       string        `mapstructure:"report"`
	ReportFormat string        `mapstructure:"report_format"`
	Inspect      bool          `mapstructure:"inspect"`
	Log          LogConfig     `mapstructure:"log"`
}

// LogConfig configures console logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// RootFlag is the repeatable search root flag. Its values are taken as is,
// Windows paths may contain commas.
const RootFlag = "root"

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"output":        "output",
	"ext":           "extensions",
	"symbol-ext":    "symbol_ext",
	"search":        "search",
	"recursive":     "recursive",
	"timeout":       "timeout",
	"workers":       "workers",
	"report":        "report",
	"report-format": "report_format",
	"inspect":       "inspect",
	"log-level":     "log.level",
	"log-pretty":    "log.pretty",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache_dir", "")
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("roots", symcache.DefaultRoots())
	v.SetDefault("extensions", symcache.DefaultExecutableExtensions)
	v.SetDefault("symbol_ext", symcache.DefaultSymbolExtension)
	v.SetDefault("search", SearchWalk)
	v.SetDefault("recursive", true)
	v.SetDefault("timeout", symcache.DefaultSearchTimeout)
	v.SetDefault("workers", 1)
	v.SetDefault("report", "")
	v.SetDefault("report_format", symcache.ReportJSON)
	v.SetDefault("inspect", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

// Load reads the configuration. An explicit configFile must exist; otherwise
// symcache.yaml (or .json/.toml) in the working directory is used if present.
// Flags that were set on the command line override every other source.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, &ConfigError{Field: "config", Message: err.Error()}
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, &ConfigError{Field: key, Message: err.Error()}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Field: "config", Message: err.Error()}
	}
	if env := os.Getenv(RootsEnv); env != "" {
		cfg.Roots = splitList([]string{env})
	}
	if flags != nil {
		if f := flags.Lookup(RootFlag); f != nil && f.Changed {
			roots, err := flags.GetStringArray(RootFlag)
			if err != nil {
				return nil, &ConfigError{Field: "roots", Message: err.Error()}
			}
			cfg.Roots = roots
		}
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	exts := make([]string, 0, len(c.Extensions))
	for _, e := range splitList(c.Extensions) {
		if e = symcache.NormalizeExtension(e); e != "" {
			exts = append(exts, e)
		}
	}
	c.Extensions = exts
	roots := make([]string, 0, len(c.Roots))
	for _, r := range c.Roots {
		if r = strings.TrimSpace(r); r != "" {
			roots = append(roots, r)
		}
	}
	c.Roots = roots
	c.SymbolExt = symcache.NormalizeExtension(c.SymbolExt)
	c.Search = strings.ToLower(strings.TrimSpace(c.Search))
	c.ReportFormat = strings.ToLower(strings.TrimSpace(c.ReportFormat))
}

// splitList flattens comma separated elements. Environment variables arrive
// as one element holding the whole list.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch {
	case c.Output == "":
		return &ConfigError{Field: "output", Message: "must not be empty"}
	case len(c.Roots) == 0:
		return &ConfigError{Field: "roots", Message: "at least one search root is required"}
	case len(c.Extensions) == 0:
		return &ConfigError{Field: "extensions", Message: "at least one executable extension is required"}
	case c.SymbolExt == "":
		return &ConfigError{Field: "symbol_ext", Message: "must not be empty"}
	case c.Search != SearchWalk && c.Search != SearchWhere:
		return &ConfigError{Field: "search", Message: fmt.Sprintf("unknown search backend %q", c.Search)}
	case c.Timeout < 0:
		return &ConfigError{Field: "timeout", Message: "must not be negative"}
	case c.Workers < 1:
		return &ConfigError{Field: "workers", Message: "must be at least 1"}
	case c.ReportFormat != symcache.ReportJSON && c.ReportFormat != symcache.ReportYAML:
		return &ConfigError{Field: "report_format", Message: fmt.Sprintf("unknown report format %q", c.ReportFormat)}
	}
	return nil
}

// CacheDirFrom picks the symbol cache directory. A command line argument
// wins. Without one, SYMBOL_CACHE is used if it names an existing directory,
// then the cache_dir setting.
func (c *Config) CacheDirFrom(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if dir := os.Getenv(LegacyCacheEnv); dir != "" && isDir(dir) {
		return dir, nil
	}
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}
	return "", &ConfigError{
		Field:   "cache_dir",
		Message: "no symbol cache directory given and " + LegacyCacheEnv + " is not set to a directory",
	}
}

// Searcher returns the search primitive selected by the configuration.
func (c *Config) Searcher() symcache.Searcher {
	if c.Search == SearchWhere {
		return &symcache.WhereSearcher{Shallow: !c.Recursive, Timeout: c.Timeout}
	}
	return &symcache.WalkSearcher{Shallow: !c.Recursive}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// Unwrap makes every ConfigError match symcache.ErrConfig.
func (e *ConfigError) Unwrap() error {
	return symcache.ErrConfig
}
