package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/goretk/symcache"
	"github.com/goretk/symcache/internal/config"
)

// resolveAndWrite collects the symbols of cacheDir, resolves them and writes
// the output file and the optional report. Only an unreadable cache or a
// failed write is an error; unresolved symbols are reported as a warning.
func resolveAndWrite(ctx context.Context, cfg *config.Config, cacheDir string, logger zerolog.Logger) (*symcache.Result, error) {
	syms, err := symcache.CollectExt(cacheDir, cfg.SymbolExt)
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("symbols", len(syms)).Str("cache_dir", cacheDir).Msg("Collected symbols")

	r := symcache.NewResolver(cfg.Searcher(),
		symcache.WithExtensions(cfg.Extensions...),
		symcache.WithWorkers(cfg.Workers),
		symcache.WithLogger(logger),
	)
	res := r.Resolve(ctx, symcache.Stems(syms), cfg.Roots)

	err = writeFile(cfg.Output, func(w io.Writer) error {
		return symcache.WriteList(w, res)
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Msgf("Wrote %d executables to %s", len(res.Candidates), cfg.Output)

	if n := len(res.Unresolved); n > 0 {
		logger.Warn().Strs("symbols", res.Unresolved).Msgf("%d symbols were not found", n)
	}

	if cfg.Report != "" {
		rep := symcache.NewReport(cacheDir, cfg.Roots, res, cfg.Inspect)
		err = writeFile(cfg.Report, func(w io.Writer) error {
			return rep.Encode(w, cfg.ReportFormat)
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("format", cfg.ReportFormat).Msgf("Wrote report to %s", cfg.Report)
	}
	return res, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
