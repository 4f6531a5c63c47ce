// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"sync"

	"github.com/GermanBionicSystems/epdframe/bmp2bpp"
	"github.com/fogleman/gg"
)

// Size of the panel the drawings are made for.
const (
	Width  = 800
	Height = 480
)

// maxFillQueue bounds the pending pixels of a flood fill. Larger fills stop
// early and leave the rest of the area untouched.
const maxFillQueue = 10000

// Point is a position in canvas pixels. Clients send fractional positions.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Canvas is an RGBA drawing surface safe for concurrent use.
type Canvas struct {
	mu sync.Mutex
	im *image.RGBA
	dc *gg.Context
}

// New returns a white canvas.
func New(width, height int) *Canvas {
	im := image.NewRGBA(image.Rect(0, 0, width, height))
	c := &Canvas{
		im: im,
		dc: gg.NewContextForRGBA(im),
	}
	c.clearLocked()
	return c
}

// Bounds returns the canvas rectangle.
func (c *Canvas) Bounds() image.Rectangle {
	return c.im.Rect
}

// Draw strokes a line through points. A single point stamps once.
func (c *Canvas) Draw(points []Point, col string, size int) error {
	ink, err := ParseColor(col)
	if err != nil {
		return err
	}
	if err := checkBrushSize(size); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	src := &image.Uniform{C: ink}
	if len(points) == 1 {
		c.stroke(points[0], points[0], size, src)
		return nil
	}
	for i := 1; i < len(points); i++ {
		c.stroke(points[i-1], points[i], size, src)
	}
	return nil
}

// stroke stamps a size x size square at every unit step from one point
// towards the other, excluding the end point itself.
func (c *Canvas) stroke(from, to Point, size int, src image.Image) {
	half := float64((size - size%2) / 2)

	if from == to {
		c.stamp(from.X-half, from.Y-half, size, src)
		return
	}

	dist := math.Hypot(to.X-from.X, to.Y-from.Y)
	angle := math.Atan2(to.X-from.X, to.Y-from.Y)
	sin, cos := math.Sincos(angle)
	for i := 0.0; i < dist; i++ {
		c.stamp(from.X+sin*i-half, from.Y+cos*i-half, size, src)
	}
}

func (c *Canvas) stamp(x, y float64, size int, src image.Image) {
	min := image.Pt(roundHalfUp(x), roundHalfUp(y))
	draw.Draw(c.im, image.Rectangle{Min: min, Max: min.Add(image.Pt(size, size))}, src, image.Point{}, draw.Src)
}

// roundHalfUp rounds halves toward positive infinity, so -0.5 becomes 0.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// Fill flood fills the 4-connected area of the color found at (x, y).
func (c *Canvas) Fill(x, y int, col string) error {
	ink, err := ParseColor(col)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !image.Pt(x, y).In(c.im.Rect) {
		return nil
	}

	start := c.im.RGBAAt(x, y)
	if sameRGB(start, ink) {
		return nil
	}

	w, h := c.im.Rect.Dx(), c.im.Rect.Dy()
	visited := make([]bool, w*h)
	queue := []image.Point{{x, y}}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		i := p.Y*w + p.X
		if visited[i] || !sameRGB(c.im.RGBAAt(p.X, p.Y), start) {
			continue
		}
		c.im.SetRGBA(p.X, p.Y, ink)
		visited[i] = true

		if p.X > 0 {
			queue = append(queue, image.Pt(p.X-1, p.Y))
		}
		if p.X < w-1 {
			queue = append(queue, image.Pt(p.X+1, p.Y))
		}
		if p.Y > 0 {
			queue = append(queue, image.Pt(p.X, p.Y-1))
		}
		if p.Y < h-1 {
			queue = append(queue, image.Pt(p.X, p.Y+1))
		}

		if len(queue) > maxFillQueue {
			break
		}
	}
	return nil
}

func sameRGB(a, b color.RGBA) bool {
	return a.R == b.R && a.G == b.G && a.B == b.B
}

// Clear paints the canvas white.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *Canvas) clearLocked() {
	c.dc.SetColor(color.White)
	c.dc.Clear()
}

// Load replaces the canvas content with bm drawn in the colors of pal.
func (c *Canvas) Load(bm *bmp2bpp.Bitmap, pal *bmp2bpp.Palette) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
	draw.Draw(c.im, c.im.Rect, bm.Paletted(pal), image.Point{}, draw.Src)
}

// LoadImage replaces the canvas content with img, aligned at the top left.
func (c *Canvas) LoadImage(img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
	draw.Draw(c.im, c.im.Rect, img, img.Bounds().Min, draw.Src)
}

// Snapshot returns a copy of the canvas.
func (c *Canvas) Snapshot() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	im := image.NewRGBA(c.im.Rect)
	copy(im.Pix, c.im.Pix)
	return im
}

// Bitmap returns the canvas quantized to white, black and red.
func (c *Canvas) Bitmap() *bmp2bpp.Bitmap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bmp2bpp.Quantize(c.im)
}

// WriteBMP encodes the canvas as a 2 bits per pixel bitmap.
func (c *Canvas) WriteBMP(w io.Writer) error {
	return bmp2bpp.Encode(w, c.Bitmap(), &bmp2bpp.DefaultPalette)
}

// WritePNG encodes the canvas as PNG.
func (c *Canvas) WritePNG(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dc.EncodePNG(w)
}
