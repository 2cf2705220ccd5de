// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package symcache

import "errors"

var (
	// ErrNotEnoughBytesRead is returned if read call returned less bytes than what is needed.
	ErrNotEnoughBytesRead = errors.New("not enough bytes read")
	// ErrUnsupportedFile is returned if the file is not a PE, ELF or Mach-O image.
	ErrUnsupportedFile = errors.New("unsupported file")
	// ErrSectionDoesNotExist is returned when accessing a section that does not exist.
	ErrSectionDoesNotExist = errors.New("section does not exist")
	// ErrNoBuildID is returned if the image carries no debug identifier.
	ErrNoBuildID = errors.New("no build id found")
	// ErrNotFound is returned by a Searcher when a pattern has no match under a root.
	// The root being inaccessible, a malformed pattern or a search timeout are
	// reported the same way.
	ErrNotFound = errors.New("no match found")
	// ErrCacheDir is returned if the symbol cache directory can not be read.
	ErrCacheDir = errors.New("symbol cache directory not readable")
	// ErrConfig is returned for a missing or invalid run configuration.
	ErrConfig = errors.New("invalid configuration")
)
