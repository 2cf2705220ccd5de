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
	"debug/elf"
	"fmt"
	"io"
	"strings"
)

func openELF(r io.ReaderAt) (*elfFile, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("error when parsing the ELF file: %w", err)
	}
	return &elfFile{file: f, reader: r}, nil
}

var _ fileHandler = (*elfFile)(nil)

type elfFile struct {
	file   *elf.File
	reader io.ReaderAt
}

func (e *elfFile) Close() error {
	err := e.file.Close()
	if err != nil {
		return err
	}
	return tryClose(e.reader)
}

func (e *elfFile) getBuildID() (string, string, error) {
	s := e.file.Section(".note.gnu.build-id")
	if s == nil {
		return "", "", ErrNoBuildID
	}
	data, err := s.Data()
	if err != nil {
		return "", "", fmt.Errorf("error when reading the build ID note: %w", err)
	}
	id, err := parseGNUBuildID(data, e.file.ByteOrder)
	return id, "", err
}

func (e *elfFile) getFileInfo() *ImageInfo {
	var wordSize int
	class := e.file.FileHeader.Class
	if class == elf.ELFCLASS32 {
		wordSize = intSize32
	}
	if class == elf.ELFCLASS64 {
		wordSize = intSize64
	}

	var arch string
	switch e.file.Machine {
	case elf.EM_386:
		arch = Arch386
	case elf.EM_MIPS:
		arch = ArchMIPS
	case elf.EM_X86_64:
		arch = ArchAMD64
	case elf.EM_ARM:
		arch = ArchARM
	case elf.EM_AARCH64:
		arch = ArchARM64
	}

	return &ImageInfo{
		Format:    FormatELF,
		ByteOrder: e.file.FileHeader.ByteOrder,
		OS:        elfOS(e.file.OSABI),
		WordSize:  wordSize,
		Arch:      arch,
		Library:   e.file.Type == elf.ET_DYN && e.file.Section(".interp") == nil,
	}
}

// elfOS maps the OS ABI byte to an OS name. Most toolchains leave it at
// ELFOSABI_NONE, which in practice means Linux.
func elfOS(abi elf.OSABI) string {
	switch abi {
	case elf.ELFOSABI_NONE, elf.ELFOSABI_LINUX:
		return "linux"
	default:
		return strings.ToLower(strings.TrimPrefix(abi.String(), "ELFOSABI_"))
	}
}
