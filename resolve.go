// This file is part of symcache.
//
// Copyright (C) 2019-2024 GoRE Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package symcache

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultExecutableExtensions are the suffixes a search match must carry to
// count as an executable.
var DefaultExecutableExtensions = []string{".dll", ".exe"}

// Candidate is an executable found for a symbol stem.
type Candidate struct {
	// Stem is the symbol stem the executable was searched for.
	Stem string `json:"stem" yaml:"stem"`
	// Path is the location of the executable.
	Path string `json:"path" yaml:"path"`
	// Root is the search root the executable was found under.
	Root string `json:"root" yaml:"root"`
}

// Result is the outcome of a resolution run.
type Result struct {
	// Candidates holds every executable in discovery order: root-major,
	// stem-minor.
	Candidates []Candidate
	// Resolved maps a stem to the paths found for it.
	Resolved map[string][]string
	// Unresolved lists the stems without any executable, in input order.
	Unresolved []string
	// Searched is the number of searcher invocations.
	Searched int
	// EarlyExit is set if the run stopped before all roots were searched
	// because every stem had been resolved.
	EarlyExit bool
}

// Paths returns the path of every candidate, in discovery order.
func (r *Result) Paths() []string {
	paths := make([]string, len(r.Candidates))
	for i, c := range r.Candidates {
		paths[i] = c.Path
	}
	return paths
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithExtensions sets the executable extensions. A missing leading dot is
// added and the comparison is case-insensitive.
func WithExtensions(exts ...string) Option {
	return func(r *Resolver) {
		r.exts = extensionSet(exts)
	}
}

// WithWorkers sets how many stems of a single root are searched
// concurrently. Roots are always searched one after the other.
func WithWorkers(n int) Option {
	return func(r *Resolver) {
		if n < 1 {
			n = 1
		}
		r.workers = n
	}
}

// WithLogger sets the logger used to report hits and misses.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// Resolver maps symbol stems to executables by searching a list of roots in
// priority order.
type Resolver struct {
	searcher Searcher
	exts     map[string]struct{}
	workers  int
	logger   zerolog.Logger
}

// NewResolver returns a resolver using s as search primitive.
func NewResolver(s Searcher, opts ...Option) *Resolver {
	r := &Resolver{
		searcher: s,
		exts:     extensionSet(DefaultExecutableExtensions),
		workers:  1,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve searches the roots in order for an executable named after each
// stem. A stem found under a root is not searched for under any later root,
// and the search stops once all stems are found. Duplicate stems are one
// target. A search failure only means no executable under that root; Resolve
// never fails. If ctx is done, the stems not found so far are unresolved.
func (r *Resolver) Resolve(ctx context.Context, stems []string, roots []string) *Result {
	targets := uniqueStems(stems)
	res := &Result{Resolved: make(map[string][]string)}
	found := make(map[string]struct{}, len(targets))

	for i, root := range roots {
		if ctx.Err() != nil {
			break
		}

		pending := make([]string, 0, len(targets)-len(found))
		for _, stem := range targets {
			if _, ok := found[stem]; !ok {
				pending = append(pending, stem)
			}
		}

		for _, h := range r.searchRoot(ctx, root, pending) {
			if !h.searched {
				continue
			}
			res.Searched++
			pattern := SymbolPattern(h.stem)
			if h.err != nil {
				r.logger.Info().Err(h.err).Str("pattern", pattern).Str("root", root).Msg("Could not find pattern")
				continue
			}
			for _, p := range h.paths {
				if !r.isExecutable(p) {
					r.logger.Debug().Str("path", p).Str("stem", h.stem).Msg("Skipping match, not an executable")
					continue
				}
				res.Candidates = append(res.Candidates, Candidate{Stem: h.stem, Path: p, Root: root})
				res.Resolved[h.stem] = append(res.Resolved[h.stem], p)
				found[h.stem] = struct{}{}
				r.logger.Info().Str("path", p).Str("root", root).Msg("Found executable")
			}
		}

		if len(found) == len(targets) {
			if i < len(roots)-1 {
				res.EarlyExit = true
				r.logger.Info().Int("roots_skipped", len(roots)-i-1).Msg("Found all executables, exiting early")
			}
			break
		}
	}

	for _, stem := range targets {
		if _, ok := found[stem]; !ok {
			res.Unresolved = append(res.Unresolved, stem)
		}
	}
	return res
}

type rootHit struct {
	stem     string
	searched bool
	paths    []string
	err      error
}

// searchRoot searches root for every stem and returns the hits in stem order.
// The hits of a root are only merged after all its searches completed, so a
// concurrent run reports the same result as a sequential one.
func (r *Resolver) searchRoot(ctx context.Context, root string, stems []string) []rootHit {
	hits := make([]rootHit, len(stems))
	search := func(ctx context.Context, i int) {
		paths, err := r.searcher.Search(ctx, root, SymbolPattern(stems[i]))
		hits[i] = rootHit{stem: stems[i], searched: true, paths: paths, err: err}
	}

	if r.workers <= 1 {
		for i := range stems {
			if ctx.Err() != nil {
				break
			}
			search(ctx, i)
		}
		return hits
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range stems {
		i := i
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			search(gctx, i)
			return nil
		})
	}
	// Workers never return an error.
	_ = g.Wait()
	return hits
}

func (r *Resolver) isExecutable(path string) bool {
	_, ok := r.exts[strings.ToLower(filepath.Ext(path))]
	return ok
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = NormalizeExtension(e)
		if e == "" {
			continue
		}
		set[e] = struct{}{}
	}
	return set
}

// NormalizeExtension lower-cases ext and makes sure it starts with a dot.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func uniqueStems(stems []string) []string {
	seen := make(map[string]struct{}, len(stems))
	out := make([]string, 0, len(stems))
	for _, s := range stems {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
