// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare7in5bv3

import (
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// inks returns the ink of every pixel in r, row by row.
func (p *planes) inks(r image.Rectangle) [][]int {
	out := make([][]int, 0, r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := make([]int, 0, r.Dx())
		for x := r.Min.X; x < r.Max.X; x++ {
			row = append(row, p.inkAt(x, y))
		}
		out = append(out, row)
	}
	return out
}

func TestNewPlanes(t *testing.T) {
	p := newPlanes(image.Pt(13, 3))

	if diff := cmp.Diff(p.black.Bounds(), image.Rect(0, 0, 16, 3)); diff != "" {
		t.Errorf("black.Bounds() difference (-got +want):\n%s", diff)
	}

	want := make([][]int, 3)
	for i := range want {
		want[i] = make([]int, 16)
	}
	if diff := cmp.Diff(p.inks(p.black.Bounds()), want); diff != "" {
		t.Errorf("inks difference (-got +want):\n%s", diff)
	}
}

func TestPlanesDraw(t *testing.T) {
	bounds := image.Rect(0, 0, 4, 2)

	paletted := image.NewPaletted(image.Rect(0, 0, 4, 2), color.Palette{
		color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
		color.RGBA{0x00, 0x00, 0x00, 0xFF},
		color.RGBA{0xFF, 0x00, 0x00, 0xFF},
		color.RGBA{0xFF, 0xFF, 0x00, 0xFF},
	})
	copy(paletted.Pix, []uint8{
		0, 1, 2, 3,
		3, 2, 1, 0,
	})

	nrgba := image.NewNRGBA(image.Rect(10, 10, 14, 12))
	for i, c := range []color.NRGBA{
		{0x10, 0x10, 0x10, 0xFF}, {0xF0, 0xF0, 0xF0, 0xFF}, {0xD0, 0x20, 0x20, 0xFF}, {0x20, 0x00, 0x00, 0xFF},
		{0xFF, 0xFF, 0xFF, 0xFF}, {0x00, 0x00, 0x00, 0xFF}, {0xFF, 0x00, 0x00, 0xFF}, {0xA0, 0xA0, 0xA0, 0xFF},
	} {
		nrgba.SetNRGBA(10+i%4, 10+i/4, c)
	}

	for _, tc := range []struct {
		name    string
		dstRect image.Rectangle
		src     image.Image
		sp      image.Point
		want    [][]int
		wantR   image.Rectangle
	}{
		{
			name:    "paletted",
			dstRect: bounds,
			src:     paletted,
			want: [][]int{
				{inkWhite, inkBlack, inkRed, inkWhite},
				{inkWhite, inkRed, inkBlack, inkWhite},
			},
			wantR: bounds,
		},
		{
			name:    "direct colors with source offset",
			dstRect: bounds,
			src:     nrgba,
			sp:      image.Pt(10, 10),
			want: [][]int{
				{inkBlack, inkWhite, inkRed, inkBlack},
				{inkWhite, inkBlack, inkRed, inkWhite},
			},
			wantR: bounds,
		},
		{
			name:    "clipped",
			dstRect: image.Rect(2, 1, 9, 9),
			src:     &image.Uniform{C: color.Black},
			want: [][]int{
				{inkWhite, inkWhite, inkWhite, inkWhite},
				{inkWhite, inkWhite, inkBlack, inkBlack},
			},
			wantR: image.Rect(2, 1, 4, 2),
		},
		{
			name:    "outside",
			dstRect: image.Rect(5, 5, 9, 9),
			src:     &image.Uniform{C: color.Black},
			want: [][]int{
				{inkWhite, inkWhite, inkWhite, inkWhite},
				{inkWhite, inkWhite, inkWhite, inkWhite},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := newPlanes(bounds.Max)

			gotR := p.draw(bounds, tc.dstRect, tc.src, tc.sp)

			if diff := cmp.Diff(p.inks(bounds), tc.want); diff != "" {
				t.Errorf("inks difference (-got +want):\n%s", diff)
			}
			if !tc.wantR.Empty() || !gotR.Empty() {
				if diff := cmp.Diff(gotR, tc.wantR); diff != "" {
					t.Errorf("draw() difference (-got +want):\n%s", diff)
				}
			}
		})
	}
}
