// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare7in5bv3

import (
	"image"
	"image/color"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Inks are the indices of Palette.
const (
	inkWhite = iota
	inkBlack
	inkRed
)

// Palette lists the colors the panel can show.
var Palette = color.Palette{
	color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
	color.RGBA{0x00, 0x00, 0x00, 0xFF},
	color.RGBA{0xFF, 0x00, 0x00, 0xFF},
}

// planes holds the two RAM images of the controller. A set bit in black
// leaves the pixel white; a set bit in red turns it red.
type planes struct {
	black *image1bit.VerticalLSB
	red   *image1bit.VerticalLSB
}

// newPlanes allocates white planes. The horizontal size is rounded up to a
// whole byte.
func newPlanes(size image.Point) planes {
	r := image.Rectangle{Max: image.Pt((size.X+7)/8*8, size.Y)}

	p := planes{
		black: image1bit.NewVerticalLSB(r),
		red:   image1bit.NewVerticalLSB(r),
	}
	p.fill(r, inkWhite)

	return p
}

func (p *planes) set(x, y, ink int) {
	p.black.SetBit(x, y, image1bit.Bit(ink != inkBlack))
	p.red.SetBit(x, y, image1bit.Bit(ink == inkRed))
}

func (p *planes) fill(r image.Rectangle, ink int) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			p.set(x, y, ink)
		}
	}
}

// inkAt returns the ink shown for the pixel at (x, y) in the planes.
func (p *planes) inkAt(x, y int) int {
	switch {
	case bool(p.red.BitAt(x, y)):
		return inkRed
	case bool(p.black.BitAt(x, y)):
		return inkWhite
	default:
		return inkBlack
	}
}

// draw converts the area of src aligned with dstRect and returns the part of
// the display that was covered.
func (p *planes) draw(bounds, dstRect image.Rectangle, src image.Image, sp image.Point) image.Rectangle {
	r := dstRect.Intersect(bounds)
	if r.Empty() {
		return r
	}

	offset := sp.Sub(dstRect.Min)

	// Indexed sources are converted once per palette entry.
	var inks []int
	if pi, ok := src.(image.PalettedImage); ok {
		if cp, ok := pi.ColorModel().(color.Palette); ok {
			inks = make([]int, len(cp))
			for i, c := range cp {
				inks[i] = Palette.Index(c)
			}

			for y := r.Min.Y; y < r.Max.Y; y++ {
				for x := r.Min.X; x < r.Max.X; x++ {
					p.set(x, y, inks[pi.ColorIndexAt(x+offset.X, y+offset.Y)])
				}
			}
			return r
		}
	}

	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			p.set(x, y, Palette.Index(src.At(x+offset.X, y+offset.Y)))
		}
	}

	return r
}
