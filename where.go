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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	// DefaultWhereCommand is the Windows file search command.
	DefaultWhereCommand = "where"
	// DefaultSearchTimeout bounds a single where invocation.
	DefaultSearchTimeout = 30 * time.Second
)

var _ Searcher = (*WhereSearcher)(nil)

// WhereSearcher searches by running the Windows where command. A non-zero
// exit code, empty output or a timeout is reported as ErrNotFound.
type WhereSearcher struct {
	// Command is the executable to run. Defaults to DefaultWhereCommand.
	Command string
	// Shallow runs "where root:pattern" instead of "where /r root pattern".
	Shallow bool
	// Timeout for a single search. Zero means no timeout.
	Timeout time.Duration
}

// Search implements Searcher.
func (w *WhereSearcher) Search(ctx context.Context, root, pattern string) ([]string, error) {
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}

	// #nosec G204 -- arguments are passed as argv, no shell is involved
	cmd := exec.CommandContext(ctx, w.command(), w.args(root, pattern)...)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s in %s: %w", ErrNotFound, pattern, root, err)
	}

	paths := parseWhereOutput(out)
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, pattern, root)
	}
	return paths, nil
}

func (w *WhereSearcher) command() string {
	if w.Command == "" {
		return DefaultWhereCommand
	}
	return w.Command
}

func (w *WhereSearcher) args(root, pattern string) []string {
	if w.Shallow {
		return []string{root + ":" + pattern}
	}
	return []string{"/r", root, pattern}
}

// parseWhereOutput returns one path per non-empty output line. where writes
// CRLF line endings.
func parseWhereOutput(out []byte) []string {
	var paths []string
	s := bufio.NewScanner(bytes.NewReader(out))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}
	return paths
}
