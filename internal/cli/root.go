// Package cli implements the symcache2exe command line.
package cli

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/goretk/symcache"
	"github.com/goretk/symcache/internal/config"
	"github.com/goretk/symcache/internal/logging"
)

// NewRootCmd returns the symcache2exe command tree.
func NewRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "symcache2exe [symbol-cache-dir]",
		Short: "Find the executables described by a debugger symbol cache",
		Long: `Find executables from a Visual Studio symbol cache directory.

Every program database in the cache is looked up by name in the search roots,
in order. The first root holding a matching executable wins and the search
stops once every symbol is resolved. The resolved paths are written one per
line to the output file.

If no directory is given, the SYMBOL_CACHE environment variable is used when it
names an existing directory.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, configFile, "resolve")
			if err != nil {
				return err
			}
			cacheDir, err := cfg.CacheDirFrom(args)
			if err != nil {
				return err
			}
			_, err = resolveAndWrite(cmd.Context(), cfg, cacheDir, logger)
			return err
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default ./symcache.yaml if present)")
	pf.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.Bool("log-pretty", true, "human readable console logs")

	addResolveFlags(cmd.Flags())

	cmd.AddCommand(newWatchCmd(&configFile))
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func addResolveFlags(fs *pflag.FlagSet) {
	fs.StringP("output", "o", config.DefaultOutput, "output file for executables")
	fs.StringArray(config.RootFlag, nil, "search root, in priority order (repeatable, default Windows system directories)")
	fs.StringSlice("ext", nil, "executable extensions (default .dll,.exe)")
	fs.String("symbol-ext", symcache.DefaultSymbolExtension, "symbol file extension")
	fs.String("search", config.SearchWalk, "search backend (walk, where)")
	fs.Bool("recursive", true, "search below the roots recursively")
	fs.Duration("timeout", symcache.DefaultSearchTimeout, "timeout of a single where search")
	fs.Int("workers", 1, "symbols searched concurrently within a root")
	fs.String("report", "", "write a resolution report to this file")
	fs.String("report-format", symcache.ReportJSON, "report format (json, yaml)")
	fs.Bool("inspect", false, "describe the image of every executable in the report")
}

// setup loads and validates the configuration and builds the logger of the
// named component.
func setup(cmd *cobra.Command, configFile, component string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	lc := logging.DefaultConfig()
	lc.Level = cfg.Log.Level
	lc.Pretty = cfg.Log.Pretty
	lc.Output = cmd.OutOrStdout()
	return cfg, logging.NewWithComponent(lc, component), nil
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
