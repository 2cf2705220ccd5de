// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package symcache

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

var (
	codeViewRSDS  = []byte("RSDS")
	codeViewNB10  = []byte("NB10")
	gnuNoteName   = []byte("GNU\x00")
	ntGNUBuildID  = uint32(3)
	lcUUID        = uint32(0x1b)
	maxDebugBlock = uint32(1 << 16)
)

// parseCodeView parses a CodeView debug record of a PE image. It returns the
// symbol server signature (GUID and age, or timestamp and age for NB10) and
// the PDB path the image was linked with.
func parseCodeView(data []byte) (string, string, error) {
	switch {
	case bytes.HasPrefix(data, codeViewRSDS):
		if len(data) < 24 {
			return "", "", fmt.Errorf("RSDS record too short: %d bytes", len(data))
		}
		guid := data[4:20]
		age := binary.LittleEndian.Uint32(data[20:24])
		sig := fmt.Sprintf("%08X%04X%04X%s%X",
			binary.LittleEndian.Uint32(guid[0:4]),
			binary.LittleEndian.Uint16(guid[4:6]),
			binary.LittleEndian.Uint16(guid[6:8]),
			strings.ToUpper(hex.EncodeToString(guid[8:16])),
			age)
		return sig, cString(data[24:]), nil

	case bytes.HasPrefix(data, codeViewNB10):
		if len(data) < 16 {
			return "", "", fmt.Errorf("NB10 record too short: %d bytes", len(data))
		}
		stamp := binary.LittleEndian.Uint32(data[8:12])
		age := binary.LittleEndian.Uint32(data[12:16])
		return fmt.Sprintf("%08X%X", stamp, age), cString(data[16:]), nil
	}
	return "", "", ErrNoBuildID
}

// parseGNUBuildID parses the .note.gnu.build-id note of an ELF image.
func parseGNUBuildID(data []byte, byteOrder binary.ByteOrder) (string, error) {
	r := bytes.NewReader(data)
	var nameLen, idLen, tag uint32
	for _, v := range []*uint32{&nameLen, &idLen, &tag} {
		if err := binary.Read(r, byteOrder, v); err != nil {
			return "", fmt.Errorf("error when reading the build ID note header: %w", err)
		}
	}

	if tag != ntGNUBuildID {
		return "", fmt.Errorf("build ID does not match expected value. 0x%x parsed", tag)
	}

	nameEnd := 12 + int(nameLen)
	if nameEnd > len(data) || !bytes.Equal(data[12:nameEnd], gnuNoteName) {
		return "", fmt.Errorf("note name not as expected")
	}
	// The descriptor is 4 byte aligned.
	start := 12 + (int(nameLen)+3)&^3
	if start+int(idLen) > len(data) {
		return "", fmt.Errorf("build ID note truncated")
	}
	return hex.EncodeToString(data[start : start+int(idLen)]), nil
}

// parseMachOUUID walks the load commands of a thin Mach-O image for LC_UUID.
func parseMachOUUID(r io.ReaderAt, byteOrder binary.ByteOrder) (string, error) {
	hdr := make([]byte, 32)
	if _, err := r.ReadAt(hdr, 0); err != nil {
		return "", fmt.Errorf("error when reading the Mach-O header: %w", err)
	}
	offset := int64(28)
	if fileMagicMatch(hdr, machoMagic2) || fileMagicMatch(hdr, machoMagic4) {
		offset = 32
	}
	ncmds := byteOrder.Uint32(hdr[16:20])

	cmd := make([]byte, 8)
	for i := uint32(0); i < ncmds; i++ {
		if _, err := r.ReadAt(cmd, offset); err != nil {
			return "", fmt.Errorf("error when reading load command %d: %w", i, err)
		}
		kind := byteOrder.Uint32(cmd[0:4])
		size := byteOrder.Uint32(cmd[4:8])
		if kind == lcUUID {
			uuid := make([]byte, 16)
			if _, err := r.ReadAt(uuid, offset+8); err != nil {
				return "", fmt.Errorf("error when reading the UUID: %w", err)
			}
			return formatUUID(uuid), nil
		}
		if size < 8 {
			return "", fmt.Errorf("malformed load command %d", i)
		}
		offset += int64(size)
	}
	return "", ErrNoBuildID
}

func formatUUID(b []byte) string {
	s := strings.ToUpper(hex.EncodeToString(b))
	return s[0:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:32]
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
