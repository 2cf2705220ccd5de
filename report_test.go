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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResult() *Result {
	return &Result{
		Candidates: []Candidate{
			{Stem: "foo", Path: "/r1/x64/foo.dll", Root: "/r1"},
			{Stem: "foo", Path: "/r1/x86/foo.dll", Root: "/r1"},
			{Stem: "bar", Path: "/r2/bar.exe", Root: "/r2"},
		},
		Resolved: map[string][]string{
			"foo": {"/r1/x64/foo.dll", "/r1/x86/foo.dll"},
			"bar": {"/r2/bar.exe"},
		},
		Unresolved: []string{"baz"},
		Searched:   5,
	}
}

func TestWriteList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteList(&buf, sampleResult()))
	assert.Equal(t, "/r1/x64/foo.dll\n/r1/x86/foo.dll\n/r2/bar.exe\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteList(&buf, &Result{}))
	assert.Empty(t, buf.String())
}

func TestNewReport(t *testing.T) {
	assert := assert.New(t)
	rep := NewReport("/cache", []string{"/r1", "/r2"}, sampleResult(), false)

	assert.Equal(3, rep.Symbols)
	assert.Equal(3, rep.Executables)
	assert.Equal(5, rep.Searched)
	assert.Equal([]string{"baz"}, rep.Unresolved)
	assert.Equal([]ReportEntry{
		{Stem: "foo", Root: "/r1", Executables: []ReportExecutable{{Path: "/r1/x64/foo.dll"}, {Path: "/r1/x86/foo.dll"}}},
		{Stem: "bar", Root: "/r2", Executables: []ReportExecutable{{Path: "/r2/bar.exe"}}},
	}, rep.Resolved)
}

func TestNewReportInspect(t *testing.T) {
	dir := t.TempDir()
	dll := filepath.Join(dir, "foo.dll")
	require.NoError(t, os.WriteFile(dll, minimalPE(t, 0x14c, 0x2102), 0o644))
	bogus := filepath.Join(dir, "bar.exe")
	require.NoError(t, os.WriteFile(bogus, []byte("not an image"), 0o644))

	res := &Result{
		Candidates: []Candidate{{Stem: "foo", Path: dll, Root: dir}, {Stem: "bar", Path: bogus, Root: dir}},
		Resolved:   map[string][]string{"foo": {dll}, "bar": {bogus}},
	}
	rep := NewReport(dir, []string{dir}, res, true)

	require.Len(t, rep.Resolved, 2)
	foo := rep.Resolved[0].Executables[0]
	require.NotNil(t, foo.Image)
	assert.Equal(t, FormatPE, foo.Image.Format)
	assert.True(t, foo.Image.Library)
	assert.Empty(t, foo.ImageError)

	bar := rep.Resolved[1].Executables[0]
	assert.Nil(t, bar.Image)
	assert.Contains(t, bar.ImageError, "unsupported file")
}

func TestReportEncode(t *testing.T) {
	rep := NewReport("/cache", []string{"/r1", "/r2"}, sampleResult(), false)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, rep.Encode(&buf, ReportJSON))
		var got Report
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, *rep, got)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, rep.Encode(&buf, "YAML"))
		assert.Contains(t, buf.String(), "cache_dir: /cache")
		var got Report
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, *rep, got)
	})

	t.Run("unknown", func(t *testing.T) {
		err := rep.Encode(&bytes.Buffer{}, "xml")
		assert.ErrorIs(t, err, ErrConfig)
	})
}

func TestReportEmptyListsEncoded(t *testing.T) {
	rep := NewReport("/cache", nil, &Result{Resolved: map[string][]string{}}, false)
	var buf bytes.Buffer
	require.NoError(t, rep.Encode(&buf, ReportJSON))
	assert.Contains(t, buf.String(), `"resolved": []`)
	assert.Contains(t, buf.String(), `"unresolved": []`)
}
