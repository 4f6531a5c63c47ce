// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package screen2d

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/disintegration/gift"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
)

// DefaultColumns is the number of terminal cells used per row when
// Opts.Columns is zero.
const DefaultColumns = 80

// Opts represents the options available for this display.
type Opts struct {
	Width  int
	Height int
	// Columns is the preview width in blocks. The frame is never upscaled.
	Columns int
	Palette *ansi256.Palette

	_ struct{}
}

// Dev is a display emulator that outputs to the console.
type Dev struct {
	w       io.Writer
	palette ansi256.Palette
	g       *gift.GIFT

	frame   *image.NRGBA
	preview *image.NRGBA
	buf     bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	return NewWriter(colorable.NewColorableStdout(), opts)
}

// NewWriter returns a Dev that writes the escape sequences to w.
func NewWriter(w io.Writer, opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}

	cols := opts.Columns
	if cols <= 0 {
		cols = DefaultColumns
	}
	if cols > opts.Width {
		cols = opts.Width
	}

	frame := image.NewNRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(frame, frame.Bounds(), image.White, image.Point{}, draw.Src)

	g := gift.New(gift.Resize(cols, 0, gift.BoxResampling))

	return &Dev{
		w:       w,
		palette: *p,
		g:       g,
		frame:   frame,
		preview: image.NewNRGBA(g.Bounds(frame.Bounds())),
	}
}

func (d *Dev) String() string {
	return fmt.Sprintf("Screen2D{%dx%d}", d.frame.Rect.Dx(), d.frame.Rect.Dy())
}

// Halt implements conn.Resource.
//
// It resets the terminal attributes.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\033[0m\n"))
	return err
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.frame.Rect
}

// PreviewBounds returns the size of the rendered preview in blocks.
func (d *Dev) PreviewBounds() image.Rectangle {
	return d.preview.Rect
}

// Draw implements display.Drawer.
//
// The area is copied into the frame and the whole frame is printed again.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if r = r.Intersect(d.frame.Rect); r.Empty() {
		return nil
	}
	draw.Draw(d.frame, r, src, sp, draw.Src)
	return d.refresh()
}

func (d *Dev) refresh() error {
	if d.preview.Rect.Empty() {
		return nil
	}
	d.g.Draw(d.preview, d.frame)

	d.buf.Reset()
	_, _ = d.buf.WriteString("\033[0m")
	for y := d.preview.Rect.Min.Y; y < d.preview.Rect.Max.Y; y++ {
		for x := d.preview.Rect.Min.X; x < d.preview.Rect.Max.X; x++ {
			_, _ = io.WriteString(&d.buf, d.palette.Block(d.preview.NRGBAAt(x, y)))
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
