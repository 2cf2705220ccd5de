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
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Searcher finds the filesystem entries below root whose name matches a
// wildcard pattern such as "ntdll.*". '*' matches any run of characters and
// '?' a single one; every other character is literal. When nothing matches,
// the returned error wraps ErrNotFound. Implementations report an
// inaccessible root the same way.
type Searcher interface {
	Search(ctx context.Context, root, pattern string) ([]string, error)
}

// SymbolPattern returns the search pattern used for a symbol stem.
func SymbolPattern(stem string) string {
	return stem + ".*"
}

var _ Searcher = (*WalkSearcher)(nil)

// WalkSearcher searches by walking the directory tree below the root and
// matching every file name against the pattern.
type WalkSearcher struct {
	// Shallow limits the search to the direct children of the root.
	Shallow bool
	// CaseSensitive disables case folding when matching names. Windows
	// file systems are case insensitive so the default is to fold.
	CaseSensitive bool
}

// Search implements Searcher.
func (w *WalkSearcher) Search(ctx context.Context, root, pattern string) ([]string, error) {
	if !w.CaseSensitive {
		pattern = strings.ToLower(pattern)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s: %w", ErrNotFound, pattern, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s in %s: not a directory", ErrNotFound, pattern, root)
	}

	var matches []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			// Unreadable parts of the tree are skipped, like where does.
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if w.Shallow && p != root {
				return fs.SkipDir
			}
			return nil
		}
		if w.match(pattern, d.Name()) {
			matches = append(matches, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s: %w", ErrNotFound, pattern, root, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, pattern, root)
	}
	return matches, nil
}

func (w *WalkSearcher) match(pattern, name string) bool {
	if !w.CaseSensitive {
		name = strings.ToLower(name)
	}
	return matchWildcard(pattern, name)
}

// matchWildcard matches name the way where does. Brackets and backslashes
// are plain characters, so stems like "foo[1]" match themselves.
func matchWildcard(pattern, name string) bool {
	p, n := []rune(pattern), []rune(name)
	pi, ni := 0, 0
	star, mark := -1, 0
	for ni < len(n) {
		switch {
		case pi < len(p) && p[pi] == '*':
			star, mark = pi, ni
			pi++
		case pi < len(p) && (p[pi] == '?' || p[pi] == n[ni]):
			pi++
			ni++
		case star >= 0:
			// Let the last star swallow one more character.
			mark++
			pi, ni = star+1, mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}
