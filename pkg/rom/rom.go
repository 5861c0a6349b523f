// Copyright © 2019 mg
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package rom provides the ROM byte-source contract the analysis engine
// depends on, plus a concrete LoROM/HiROM file-backed implementation.
package rom

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"unicode"

	"github.com/mg6502/gilgamesh/pkg/errgm"
)

// Provider is the external collaborator the symbolic CPU reads through.
// Implementations translate a 24-bit SNES address into wherever the bytes
// actually live and decide whether an address names RAM (not analyzable).
type Provider interface {
	IsRAM(addr uint32) bool
	ReadByte(addr uint32) (uint8, error)
	ReadWord(addr uint32) (uint16, error)
	ReadAddress(addr uint32) (uint32, error)
	ResetVector() (uint32, error)
	NMIVector() (uint32, error)
}

// Type names the SNES cartridge memory-map layout.
type Type int

const (
	LoROM Type = iota
	HiROM
)

func (t Type) String() string {
	if t == HiROM {
		return "HiROM"
	}
	return "LoROM"
}

// Header offsets into SNES address space, per the standard cartridge header.
const (
	HeaderTitle = 0xFFC0
	HeaderType  = 0xFFD6
	HeaderSize  = 0xFFD7
	HeaderNMI   = 0xFFEA
	HeaderReset = 0xFFFC
)

// File is a file-backed Provider implementing LoROM/HiROM address
// translation and cartridge-header reads.
type File struct {
	Path string
	Data []byte
	Type Type
}

// Open reads a ROM file and auto-detects its memory layout.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rom: opening %s: %w", path, err)
	}
	f := &File{Path: path, Data: data}
	f.Type = f.discoverType()
	return f, nil
}

// Size returns the declared ROM size in bytes from the header's size byte.
func (f *File) Size() (int, error) {
	b, err := f.ReadByte(HeaderSize)
	if err != nil {
		return 0, err
	}
	return 0x400 << b, nil
}

// Title returns the 21-character cartridge title, truncated at the first
// NUL byte.
func (f *File) Title() (string, error) {
	var sb []rune
	for i := 0; i < 21; i++ {
		c, err := f.ReadByte(HeaderTitle + uint32(i))
		if err != nil {
			return "", err
		}
		if c == 0 {
			break
		}
		sb = append(sb, rune(c))
	}
	return string(sb), nil
}

// ResetVector reads the reset vector from the header.
func (f *File) ResetVector() (uint32, error) {
	w, err := f.ReadWord(HeaderReset)
	return uint32(w), err
}

// NMIVector reads the NMI vector from the header.
func (f *File) NMIVector() (uint32, error) {
	w, err := f.ReadWord(HeaderNMI)
	return uint32(w), err
}

// IsRAM reports whether addr names SNES work RAM ($7E0000-$7FFFFF, plus the
// low-page RAM mirror at bank $00-$3F/$80-$BF, $0000-$1FFF) rather than ROM.
func (f *File) IsRAM(addr uint32) bool {
	bank := (addr >> 16) & 0xFF
	offset := addr & 0xFFFF
	if bank == 0x7E || bank == 0x7F {
		return true
	}
	if (bank <= 0x3F || (bank >= 0x80 && bank <= 0xBF)) && offset < 0x2000 {
		return true
	}
	return false
}

// ReadByte translates addr and returns the byte there.
func (f *File) ReadByte(addr uint32) (uint8, error) {
	off, err := f.translate(addr)
	if err != nil {
		return 0, err
	}
	return f.Data[off], nil
}

// ReadWord reads a little-endian 16-bit value at addr.
func (f *File) ReadWord(addr uint32) (uint16, error) {
	lo, err := f.ReadByte(addr)
	if err != nil {
		return 0, err
	}
	hi, err := f.ReadByte(addr + 1)
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// ReadAddress reads a little-endian 24-bit value at addr.
func (f *File) ReadAddress(addr uint32) (uint32, error) {
	lo, err := f.ReadWord(addr)
	if err != nil {
		return 0, err
	}
	hi, err := f.ReadByte(addr + 2)
	if err != nil {
		return 0, err
	}
	return uint32(hi)<<16 | uint32(lo), nil
}

// Read returns nBytes consecutive bytes starting at addr.
func (f *File) Read(addr uint32, nBytes int) ([]byte, error) {
	out := make([]byte, nBytes)
	for i := 0; i < nBytes; i++ {
		b, err := f.ReadByte(addr + uint32(i))
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// SHA1 returns the hex SHA-1 digest of the whole ROM image.
func (f *File) SHA1() string {
	sum := sha1.Sum(f.Data)
	return hex.EncodeToString(sum[:])
}

// translate converts a 24-bit SNES address into a linear file offset.
func (f *File) translate(addr uint32) (uint32, error) {
	var off uint32
	if f.Type == HiROM {
		off = addr & 0x3FFFFF
	} else {
		off = ((addr & 0x7F0000) >> 1) | (addr & 0x7FFF)
	}
	if int(off) >= len(f.Data) {
		return 0, fmt.Errorf("rom: %w: address $%06X (offset $%X) out of range", errgm.ErrInvalidAddress, addr, off)
	}
	return off, nil
}

func (f *File) discoverType() Type {
	if len(f.Data) <= 0x8000 {
		return LoROM
	}
	loScore := f.typeScore(LoROM)
	hiScore := f.typeScore(HiROM)
	if hiScore > loScore {
		return HiROM
	}
	return LoROM
}

// typeScore scores the printability of the 21-byte title string at the
// file offset rom_type's header would place it at, without going through
// translate (the whole point is to guess the type before it's known).
func (f *File) typeScore(t Type) int {
	title := HeaderTitle
	if t == LoROM {
		title -= 0x8000
	}
	score := 0
	for i := 0; i < 21; i++ {
		idx := title + i
		if idx < 0 || idx >= len(f.Data) {
			return 0
		}
		c := f.Data[idx]
		switch {
		case c == 0x00:
			score++
		case unicode.IsPrint(rune(c)):
			score += 2
		default:
			return 0
		}
	}
	return score
}
