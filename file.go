// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package symcache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	elfMagic       = []byte{0x7f, 0x45, 0x4c, 0x46}
	peMagic        = []byte{0x4d, 0x5a}
	maxMagicBufLen = 4
	machoMagic1    = []byte{0xfe, 0xed, 0xfa, 0xce}
	machoMagic2    = []byte{0xfe, 0xed, 0xfa, 0xcf}
	machoMagic3    = []byte{0xce, 0xfa, 0xed, 0xfe}
	machoMagic4    = []byte{0xcf, 0xfa, 0xed, 0xfe}
)

// Format is an executable image format.
type Format string

const (
	FormatPE    Format = "pe"
	FormatELF   Format = "elf"
	FormatMachO Format = "macho"
)

const (
	ArchAMD64 = "amd64"
	ArchARM   = "arm"
	ArchARM64 = "arm64"
	Arch386   = "i386"
	ArchMIPS  = "mips"
)

const (
	intSize32 = 4
	intSize64 = 8
)

// ImageInfo holds information about an executable image.
type ImageInfo struct {
	// Format is the container format of the image.
	Format Format `json:"format" yaml:"format"`
	// Arch is the architecture the image is compiled for. Empty if unknown.
	Arch string `json:"arch,omitempty" yaml:"arch,omitempty"`
	// OS is the operating system the image targets.
	OS string `json:"os" yaml:"os"`
	// WordSize is the natural integer size used by the image.
	WordSize int `json:"word_size" yaml:"word_size"`
	// Library is set for shared libraries (DLL, shared object, dylib).
	Library bool `json:"library" yaml:"library"`
	// BuildID identifies the build the image belongs to: the symbol server
	// signature for PE, the GNU build ID for ELF and the UUID for Mach-O.
	BuildID string `json:"build_id,omitempty" yaml:"build_id,omitempty"`
	// PDB is the symbol file path recorded in a PE image.
	PDB string `json:"pdb,omitempty" yaml:"pdb,omitempty"`
	// ByteOrder is the byte order.
	ByteOrder binary.ByteOrder `json:"-" yaml:"-"`
}

// Inspect opens the executable image at filePath and describes it. Files
// that are not PE, ELF or Mach-O images return ErrUnsupportedFile.
func Inspect(filePath string) (*ImageInfo, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, maxMagicBufLen)
	n, err := io.ReadFull(f, buf)
	if n < maxMagicBufLen {
		f.Close()
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("error when reading the file header: %w", err)
		}
		return nil, ErrNotEnoughBytesRead
	}

	var fh fileHandler
	switch {
	case fileMagicMatch(buf, elfMagic):
		fh, err = openELF(f)
	case fileMagicMatch(buf, peMagic):
		fh, err = openPE(f)
	case fileMagicMatch(buf, machoMagic1) || fileMagicMatch(buf, machoMagic2) ||
		fileMagicMatch(buf, machoMagic3) || fileMagicMatch(buf, machoMagic4):
		fh, err = openMachO(f)
	default:
		err = ErrUnsupportedFile
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	defer fh.Close()

	fi := fh.getFileInfo()
	// Images without a debug identifier are still described.
	if id, pdb, err := fh.getBuildID(); err == nil {
		fi.BuildID = id
		fi.PDB = pdb
	}
	return fi, nil
}

type fileHandler interface {
	io.Closer
	getFileInfo() *ImageInfo
	getBuildID() (string, string, error)
}

func fileMagicMatch(buf, magic []byte) bool {
	return bytes.HasPrefix(buf, magic)
}
