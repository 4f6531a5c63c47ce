// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmp2bpp

import (
	"errors"
	"fmt"
	"io"
)

const (
	headerSize    = 54
	paletteOffset = headerSize
	paletteSize   = 16
	// DataOffset is the position of the first pixel byte.
	DataOffset = paletteOffset + paletteSize

	pixelsPerByte = 4
)

var (
	// ErrStreamExhausted is returned when the source ends before the palette
	// or the last pixel row.
	ErrStreamExhausted = errors.New("bmp2bpp: stream exhausted")
	// ErrBitmapGeometry is returned for bitmaps that cannot receive packed
	// pixel bytes.
	ErrBitmapGeometry = errors.New("bmp2bpp: unusable bitmap geometry")
	// ErrMalformedHeader is returned by DecodeStrict for headers that do not
	// describe the expected layout.
	ErrMalformedHeader = errors.New("bmp2bpp: malformed header")
)

// ChunkSource produces the encoded image as a sequence of byte buffers.
//
// Next returns the following chunk, or io.EOF once the stream is drained.
// Chunks can have any length, including zero. The decoder does not retain a
// chunk after the next call to Next.
type ChunkSource interface {
	Next() ([]byte, error)
}

// Decode reads one image from src into bm and pal and reports whether any
// cell of bm changed.
//
// The header is not validated. The palette is overwritten as soon as it has
// been read, and cells are written in raster order as bytes arrive. On error
// both containers can be partially overwritten and must not be relied upon.
// Decoding stops at the last row; bytes after it are not read.
func Decode(src ChunkSource, bm *Bitmap, pal *Palette) (bool, error) {
	return decode(src, bm, pal, false)
}

// DecodeStrict is like Decode but checks the header against bm's geometry
// before touching bm or pal.
func DecodeStrict(src ChunkSource, bm *Bitmap, pal *Palette) (bool, error) {
	return decode(src, bm, pal, true)
}

func decode(src ChunkSource, bm *Bitmap, pal *Palette, strict bool) (bool, error) {
	if err := bm.check(); err != nil {
		return false, err
	}

	buf, err := accumulate(src, DataOffset)
	if err != nil {
		return false, err
	}

	if strict {
		h, err := ParseHeader(buf)
		if err != nil {
			return false, err
		}
		if err := h.Validate(bm.Width, bm.Height); err != nil {
			return false, err
		}
	}

	for i := range pal {
		o := paletteOffset + 4*i
		pal[i] = uint32(buf[o+2])<<16 | uint32(buf[o+1])<<8 | uint32(buf[o])
	}

	c := cursor{bm: bm}
	if c.feed(buf[DataOffset:]) {
		return c.changed, nil
	}

	for {
		chunk, err := src.Next()
		if errors.Is(err, io.EOF) {
			return false, fmt.Errorf("%w: %d of %d rows decoded", ErrStreamExhausted, c.y, bm.Height)
		}
		if err != nil {
			return false, fmt.Errorf("bmp2bpp: reading pixels: %w", err)
		}
		if c.feed(chunk) {
			return c.changed, nil
		}
	}
}

// accumulate pulls chunks until at least n bytes are available. The returned
// buffer holds every byte read so far.
func accumulate(src ChunkSource, n int) ([]byte, error) {
	var buf []byte
	for len(buf) < n {
		chunk, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %d of %d header bytes", ErrStreamExhausted, len(buf), n)
		}
		if err != nil {
			return nil, fmt.Errorf("bmp2bpp: reading header: %w", err)
		}
		// Sources may reuse chunk buffers.
		buf = append(buf, chunk...)
	}
	return buf, nil
}

// cursor is the raster write position of one decode pass.
type cursor struct {
	bm      *Bitmap
	x, y    int
	changed bool
}

// feed writes the pixels packed in p and reports whether the last row has
// been completed. Bytes after the last row are ignored.
func (c *cursor) feed(p []byte) bool {
	w, h := c.bm.Width, c.bm.Height
	for _, v := range p {
		if c.y >= h {
			return true
		}

		px := [pixelsPerByte]uint8{v >> 6 & 3, v >> 4 & 3, v >> 2 & 3, v & 3}
		cells := c.bm.Pix[c.y*w+c.x : c.y*w+c.x+pixelsPerByte]

		// Every cell is written; only the comparison stops once a
		// difference has been seen.
		if !c.changed && (cells[0] != px[0] || cells[1] != px[1] || cells[2] != px[2] || cells[3] != px[3]) {
			c.changed = true
		}
		copy(cells, px[:])

		c.x += pixelsPerByte
		if c.x >= w {
			c.x = 0
			c.y++
		}
	}
	return c.y >= h
}
