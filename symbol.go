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
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSymbolExtension is the suffix of the program database files written
// to a debugger symbol cache.
const DefaultSymbolExtension = ".pdb"

// Symbol is an entry of a symbol cache.
type Symbol struct {
	// Stem is the entry name without its extension. It names the executable the
	// symbols were generated from.
	Stem string
	// Path is the full path to the entry.
	Path string
}

// Collect returns the program database entries found directly in cacheDir.
func Collect(cacheDir string) ([]Symbol, error) {
	return CollectExt(cacheDir, DefaultSymbolExtension)
}

// CollectExt returns the entries of cacheDir with the extension ext. The
// directory is not searched recursively. Both files and directories are
// returned since symbol servers store every PDB in a directory named after it
// (ntdll.pdb/<GUID>/ntdll.pdb). The extension is compared case-insensitively.
func CollectExt(cacheDir, ext string) ([]Symbol, error) {
	info, err := os.Stat(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrCacheDir, cacheDir)
	}

	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheDir, err)
	}

	var syms []Symbol
	for _, e := range entries {
		name := e.Name()
		suffix := filepath.Ext(name)
		if !strings.EqualFold(suffix, ext) {
			continue
		}
		stem := strings.TrimSuffix(name, suffix)
		// A bare ".pdb" is a dot file, not a symbol.
		if stem == "" {
			continue
		}
		syms = append(syms, Symbol{Stem: stem, Path: filepath.Join(cacheDir, name)})
	}
	return syms, nil
}

// Stems returns the stem of every symbol, in order.
func Stems(syms []Symbol) []string {
	stems := make([]string, len(syms))
	for i, s := range syms {
		stems[i] = s.Stem
	}
	return stems
}
