// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmp2bpp

import (
	"fmt"
	"image"
	"image/color"
)

// Palette holds the four colors referenced by Bitmap cells. Each entry is a
// 24-bit 0xRRGGBB value.
type Palette [4]uint32

// DefaultPalette is the palette written by the drawing server: white, black,
// red and an unused yellow slot.
var DefaultPalette = Palette{0xFFFFFF, 0x000000, 0xFF0000, 0xFFFF00}

// Color returns entry i as an opaque color.RGBA.
func (p *Palette) Color(i uint8) color.RGBA {
	v := p[i&3]
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
}

// ColorPalette converts p for use with the image packages.
func (p *Palette) ColorPalette() color.Palette {
	out := make(color.Palette, len(p))
	for i := range p {
		out[i] = p.Color(uint8(i))
	}
	return out
}

// String implements fmt.Stringer.
func (p *Palette) String() string {
	return fmt.Sprintf("[%06X %06X %06X %06X]", p[0], p[1], p[2], p[3])
}

// Bitmap is a grid of palette indices in raster order, one byte per cell.
type Bitmap struct {
	Width  int
	Height int
	// Pix holds Width*Height cells with values in [0, 3].
	Pix []uint8
}

// NewBitmap returns a zeroed Bitmap.
func NewBitmap(width, height int) *Bitmap {
	return &Bitmap{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// Bounds returns the rectangle covered by the bitmap.
func (b *Bitmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// Index returns the palette index stored at (x, y).
func (b *Bitmap) Index(x, y int) uint8 {
	return b.Pix[y*b.Width+x]
}

// SetIndex stores the palette index v at (x, y).
func (b *Bitmap) SetIndex(x, y int, v uint8) {
	b.Pix[y*b.Width+x] = v & 3
}

// Paletted returns an image view sharing the bitmap's pixels. Writes to the
// bitmap are visible through the view.
func (b *Bitmap) Paletted(p *Palette) *image.Paletted {
	return &image.Paletted{
		Pix:     b.Pix,
		Stride:  b.Width,
		Rect:    b.Bounds(),
		Palette: p.ColorPalette(),
	}
}

// check verifies the bitmap can hold whole packed bytes.
func (b *Bitmap) check() error {
	if b.Width <= 0 || b.Height <= 0 || b.Width%pixelsPerByte != 0 {
		return fmt.Errorf("%w: %dx%d", ErrBitmapGeometry, b.Width, b.Height)
	}
	if len(b.Pix) != b.Width*b.Height {
		return fmt.Errorf("%w: %d cells for %dx%d", ErrBitmapGeometry, len(b.Pix), b.Width, b.Height)
	}
	return nil
}
