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
	"debug/pe"
	"encoding/binary"
	"fmt"
	"io"
)

func openPE(r io.ReaderAt) (peF *peFile, err error) {
	// Parsing by the file by debug/pe can panic if the PE file is malformed.
	// To prevent a crash, we recover the panic and return it as an error
	// instead.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("error when processing PE file, probably corrupt: %s", rec)
		}
	}()

	f, err := pe.NewFile(r)
	if err != nil {
		err = fmt.Errorf("error when parsing the PE file: %w", err)
		return
	}

	peF = &peFile{file: f, reader: r}
	return
}

var _ fileHandler = (*peFile)(nil)

type peFile struct {
	file   *pe.File
	reader io.ReaderAt
}

func (p *peFile) Close() error {
	err := p.file.Close()
	if err != nil {
		return err
	}
	return tryClose(p.reader)
}

const (
	peDebugDirSize         = 28
	imageDebugTypeCodeView = 2
)

func (p *peFile) getBuildID() (string, string, error) {
	var dd pe.DataDirectory
	switch hdr := p.file.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if hdr.NumberOfRvaAndSizes <= pe.IMAGE_DIRECTORY_ENTRY_DEBUG {
			return "", "", ErrNoBuildID
		}
		dd = hdr.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_DEBUG]
	case *pe.OptionalHeader64:
		if hdr.NumberOfRvaAndSizes <= pe.IMAGE_DIRECTORY_ENTRY_DEBUG {
			return "", "", ErrNoBuildID
		}
		dd = hdr.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_DEBUG]
	default:
		return "", "", ErrNoBuildID
	}
	if dd.VirtualAddress == 0 || dd.Size == 0 {
		return "", "", ErrNoBuildID
	}

	dir, err := p.rvaData(dd.VirtualAddress, dd.Size)
	if err != nil {
		return "", "", err
	}
	for off := 0; off+peDebugDirSize <= len(dir); off += peDebugDirSize {
		if binary.LittleEndian.Uint32(dir[off+12:]) != imageDebugTypeCodeView {
			continue
		}
		size := binary.LittleEndian.Uint32(dir[off+16:])
		ptr := binary.LittleEndian.Uint32(dir[off+24:])
		if size == 0 || size > maxDebugBlock {
			return "", "", fmt.Errorf("invalid CodeView record size %d", size)
		}
		raw := make([]byte, size)
		if _, err := p.reader.ReadAt(raw, int64(ptr)); err != nil {
			return "", "", fmt.Errorf("error when reading the CodeView record: %w", err)
		}
		return parseCodeView(raw)
	}
	return "", "", ErrNoBuildID
}

// rvaData returns size bytes at the relative virtual address rva.
func (p *peFile) rvaData(rva, size uint32) ([]byte, error) {
	for _, s := range p.file.Sections {
		if rva < s.VirtualAddress || rva-s.VirtualAddress >= max(s.VirtualSize, s.Size) {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, fmt.Errorf("error when reading section %s: %w", s.Name, err)
		}
		start := rva - s.VirtualAddress
		if uint64(start)+uint64(size) > uint64(len(data)) {
			return nil, fmt.Errorf("debug directory exceeds section %s", s.Name)
		}
		return data[start : start+size], nil
	}
	return nil, ErrSectionDoesNotExist
}

func (p *peFile) getFileInfo() *ImageInfo {
	fi := &ImageInfo{
		Format:    FormatPE,
		ByteOrder: binary.LittleEndian,
		OS:        "windows",
		Library:   p.file.Characteristics&pe.IMAGE_FILE_DLL != 0,
	}
	switch p.file.Machine {
	case pe.IMAGE_FILE_MACHINE_I386:
		fi.WordSize = intSize32
		fi.Arch = Arch386
	case pe.IMAGE_FILE_MACHINE_ARMNT:
		fi.WordSize = intSize32
		fi.Arch = ArchARM
	case pe.IMAGE_FILE_MACHINE_AMD64:
		fi.WordSize = intSize64
		fi.Arch = ArchAMD64
	case pe.IMAGE_FILE_MACHINE_ARM64:
		fi.WordSize = intSize64
		fi.Arch = ArchARM64
	default:
		// The optional header still tells PE32 from PE32+.
		if _, ok := p.file.OptionalHeader.(*pe.OptionalHeader64); ok {
			fi.WordSize = intSize64
		} else {
			fi.WordSize = intSize32
		}
	}
	return fi
}
