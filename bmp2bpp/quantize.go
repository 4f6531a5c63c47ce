// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmp2bpp

import (
	"image"
)

// Indices of DefaultPalette.
const (
	White uint8 = iota
	Black
	Red
	Unused
)

// Quantize maps every pixel of img to the closest of white, black and red
// by the sum of absolute channel differences. Ties go to white, then red.
// The returned bitmap uses DefaultPalette indices and img's size, anchored
// at (0, 0).
func Quantize(img image.Image) *Bitmap {
	r := img.Bounds()
	bm := NewBitmap(r.Dx(), r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			r16, g16, b16, _ := img.At(x, y).RGBA()
			bm.Pix[(y-r.Min.Y)*bm.Width+x-r.Min.X] = nearest(int(r16>>8), int(g16>>8), int(b16>>8))
		}
	}
	return bm
}

func nearest(r, g, b int) uint8 {
	white := abs(r-255) + abs(g-255) + abs(b-255)
	red := abs(r-255) + g + b
	black := r + g + b

	switch {
	case white <= red && white <= black:
		return White
	case red <= black:
		return Red
	default:
		return Black
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
