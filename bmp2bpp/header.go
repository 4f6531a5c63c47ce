// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmp2bpp

import (
	"encoding/binary"
	"fmt"
)

const (
	fileHeaderSize = 14
	infoHeaderSize = 40
	bitsPerPixel   = 2
	paletteColors  = 4
)

// Header is the subset of the BMP file and info headers describing the 2bpp
// layout.
type Header struct {
	Magic       [2]byte
	FileSize    uint32
	DataOffset  uint32
	InfoSize    uint32
	Width       int32
	Height      int32 // Negative for top-down rows.
	Planes      uint16
	BitCount    uint16
	Compression uint32
	ImageSize   uint32
	ColorsUsed  uint32
}

// ParseHeader reads the header from the first 54 bytes of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < headerSize {
		return Header{}, fmt.Errorf("%w: %d of %d bytes", ErrMalformedHeader, len(b), headerSize)
	}
	le := binary.LittleEndian
	h := Header{
		FileSize:    le.Uint32(b[2:]),
		DataOffset:  le.Uint32(b[10:]),
		InfoSize:    le.Uint32(b[14:]),
		Width:       int32(le.Uint32(b[18:])),
		Height:      int32(le.Uint32(b[22:])),
		Planes:      le.Uint16(b[26:]),
		BitCount:    le.Uint16(b[28:]),
		Compression: le.Uint32(b[30:]),
		ImageSize:   le.Uint32(b[34:]),
		ColorsUsed:  le.Uint32(b[46:]),
	}
	copy(h.Magic[:], b[0:2])
	return h, nil
}

// Validate checks that h describes a width x height image in the layout read
// by Decode. A positive or negative height is accepted; rows are always read
// top to bottom.
func (h *Header) Validate(width, height int) error {
	switch {
	case h.Magic != [2]byte{'B', 'M'}:
		return fmt.Errorf("%w: magic %q", ErrMalformedHeader, h.Magic[:])
	case h.InfoSize != infoHeaderSize:
		return fmt.Errorf("%w: info header size %d", ErrMalformedHeader, h.InfoSize)
	case h.BitCount != bitsPerPixel:
		return fmt.Errorf("%w: %d bits per pixel", ErrMalformedHeader, h.BitCount)
	case h.Compression != 0:
		return fmt.Errorf("%w: compression %d", ErrMalformedHeader, h.Compression)
	case h.ColorsUsed > paletteColors:
		return fmt.Errorf("%w: %d palette colors", ErrMalformedHeader, h.ColorsUsed)
	case h.DataOffset != DataOffset:
		return fmt.Errorf("%w: pixel data at %d", ErrMalformedHeader, h.DataOffset)
	}

	hh := int(h.Height)
	if hh < 0 {
		hh = -hh
	}
	if int(h.Width) != width || hh != height {
		return fmt.Errorf("%w: image is %dx%d, want %dx%d", ErrMalformedHeader, h.Width, hh, width, height)
	}
	return nil
}

func (h *Header) marshal(b []byte) {
	le := binary.LittleEndian
	copy(b[0:2], h.Magic[:])
	le.PutUint32(b[2:], h.FileSize)
	le.PutUint32(b[10:], h.DataOffset)
	le.PutUint32(b[14:], h.InfoSize)
	le.PutUint32(b[18:], uint32(h.Width))
	le.PutUint32(b[22:], uint32(h.Height))
	le.PutUint16(b[26:], h.Planes)
	le.PutUint16(b[28:], h.BitCount)
	le.PutUint32(b[30:], h.Compression)
	le.PutUint32(b[34:], h.ImageSize)
	le.PutUint32(b[46:], h.ColorsUsed)
}
