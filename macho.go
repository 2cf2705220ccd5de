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
	"io"

	"github.com/blacktop/go-macho"
	"github.com/blacktop/go-macho/types"
)

func openMachO(r io.ReaderAt) (*machoFile, error) {
	f, err := macho.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("error when parsing the Mach-O file: %w", err)
	}
	return &machoFile{file: f, reader: r}, nil
}

var _ fileHandler = (*machoFile)(nil)

type machoFile struct {
	file   *macho.File
	reader io.ReaderAt
}

func (m *machoFile) Close() error {
	err := m.file.Close()
	if err != nil {
		return err
	}
	return tryClose(m.reader)
}

func (m *machoFile) getBuildID() (string, string, error) {
	id, err := parseMachOUUID(m.reader, m.file.ByteOrder)
	return id, "", err
}

func (m *machoFile) getFileInfo() *ImageInfo {
	fi := &ImageInfo{
		Format:    FormatMachO,
		ByteOrder: m.file.ByteOrder,
		OS:        "macOS",
		Library:   m.file.Type == types.MH_DYLIB,
	}
	switch m.file.CPU {
	case types.CPUI386:
		fi.WordSize = intSize32
		fi.Arch = Arch386
	case types.CPUArm:
		fi.WordSize = intSize32
		fi.Arch = ArchARM
	case types.CPUAmd64:
		fi.WordSize = intSize64
		fi.Arch = ArchAMD64
	case types.CPUArm64:
		fi.WordSize = intSize64
		fi.Arch = ArchARM64
	}
	return fi
}
