package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/goretk/symcache/internal/watch"
)

func newWatchCmd(configFile *string) *cobra.Command {
	var delay = watch.DefaultDelay

	cmd := &cobra.Command{
		Use:   "watch [symbol-cache-dir]",
		Short: "Resolve again whenever symbols are added to the cache",
		Long: `Resolve the symbol cache once, then keep watching it and rewrite the output
file whenever program databases are added or removed, for example while a
debugger is downloading symbols. Stops on interrupt.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, *configFile, "watch")
			if err != nil {
				return err
			}
			cacheDir, err := cfg.CacheDirFrom(args)
			if err != nil {
				return err
			}
			return watch.Run(cmd.Context(), watch.Config{
				Dir:    cacheDir,
				Ext:    cfg.SymbolExt,
				Delay:  delay,
				Logger: logger,
			}, func(ctx context.Context) error {
				_, err := resolveAndWrite(ctx, cfg, cacheDir, logger)
				return err
			})
		},
	}

	addResolveFlags(cmd.Flags())
	cmd.Flags().DurationVar(&delay, "delay", delay, "quiet period after a cache change before resolving")
	return cmd
}
