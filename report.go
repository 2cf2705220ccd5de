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
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Report formats.
const (
	ReportJSON = "json"
	ReportYAML = "yaml"
)

// WriteList writes the path of every candidate, one per line, in discovery
// order.
func WriteList(w io.Writer, res *Result) error {
	bw := bufio.NewWriter(w)
	for _, c := range res.Candidates {
		if _, err := fmt.Fprintln(bw, c.Path); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Report is a structured description of a resolution run.
type Report struct {
	CacheDir    string        `json:"cache_dir" yaml:"cache_dir"`
	Roots       []string      `json:"roots" yaml:"roots"`
	Symbols     int           `json:"symbols" yaml:"symbols"`
	Executables int           `json:"executables" yaml:"executables"`
	Searched    int           `json:"searched" yaml:"searched"`
	EarlyExit   bool          `json:"early_exit" yaml:"early_exit"`
	Resolved    []ReportEntry `json:"resolved" yaml:"resolved"`
	Unresolved  []string      `json:"unresolved" yaml:"unresolved"`
}

// ReportEntry lists the executables found for one stem.
type ReportEntry struct {
	Stem        string             `json:"stem" yaml:"stem"`
	Root        string             `json:"root" yaml:"root"`
	Executables []ReportExecutable `json:"executables" yaml:"executables"`
}

// ReportExecutable is a single executable of a report entry.
type ReportExecutable struct {
	Path       string     `json:"path" yaml:"path"`
	Image      *ImageInfo `json:"image,omitempty" yaml:"image,omitempty"`
	ImageError string     `json:"image_error,omitempty" yaml:"image_error,omitempty"`
}

// NewReport builds a report for res. The symbol count is the number of
// distinct stems given to the resolver. If inspect is set, every executable
// is opened to describe its image.
func NewReport(cacheDir string, roots []string, res *Result, inspect bool) *Report {
	rep := &Report{
		CacheDir:    cacheDir,
		Roots:       roots,
		Symbols:     len(res.Resolved) + len(res.Unresolved),
		Executables: len(res.Candidates),
		Searched:    res.Searched,
		EarlyExit:   res.EarlyExit,
		Resolved:    []ReportEntry{},
		Unresolved:  []string{},
	}
	rep.Unresolved = append(rep.Unresolved, res.Unresolved...)

	index := make(map[string]int)
	for _, c := range res.Candidates {
		i, ok := index[c.Stem]
		if !ok {
			i = len(rep.Resolved)
			index[c.Stem] = i
			rep.Resolved = append(rep.Resolved, ReportEntry{Stem: c.Stem, Root: c.Root})
		}
		exe := ReportExecutable{Path: c.Path}
		if inspect {
			info, err := Inspect(c.Path)
			if err != nil {
				exe.ImageError = err.Error()
			} else {
				exe.Image = info
			}
		}
		rep.Resolved[i].Executables = append(rep.Resolved[i].Executables, exe)
	}
	return rep
}

// Encode writes the report to w in the given format.
func (r *Report) Encode(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case ReportJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case ReportYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: unknown report format %q", ErrConfig, format)
	}
}
