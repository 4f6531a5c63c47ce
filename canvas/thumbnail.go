// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package canvas

import (
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/gift"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
)

const captionSize = 12

var (
	captionOnce sync.Once
	captionFont *truetype.Font
)

// newCaptionFace returns a face owned by the caller; truetype faces keep a
// glyph buffer and cannot be shared between goroutines.
func newCaptionFace() font.Face {
	captionOnce.Do(func() {
		captionFont, _ = truetype.Parse(goregular.TTF)
	})
	if captionFont == nil {
		// Only if the embedded font is broken.
		return basicfont.Face7x13
	}
	return truetype.NewFace(captionFont, &truetype.Options{Size: captionSize, Hinting: font.HintingFull})
}

// Thumbnail returns a copy of img scaled to width pixels with caption written
// on a white band along the bottom edge. An empty caption adds no band.
func Thumbnail(img image.Image, width int, caption string) *image.RGBA {
	g := gift.New(gift.Resize(width, 0, gift.LinearResampling))
	scaled := image.NewRGBA(g.Bounds(img.Bounds()))
	g.Draw(scaled, img)

	if caption == "" {
		return scaled
	}

	face := newCaptionFace()
	band := face.Metrics().Height.Ceil() + 4

	size := scaled.Rect.Size()
	dc := gg.NewContext(size.X, size.Y+band)
	dc.SetColor(color.White)
	dc.Clear()
	dc.DrawImage(scaled, 0, 0)

	dc.SetFontFace(face)
	dc.SetColor(color.Black)
	dc.DrawStringAnchored(caption, float64(size.X)/2, float64(size.Y)+float64(band)/2, 0.5, 0.35)

	return dc.Image().(*image.RGBA)
}

// Thumbnail returns a scaled copy of the canvas, see Thumbnail.
func (c *Canvas) Thumbnail(width int, caption string) *image.RGBA {
	return Thumbnail(c.Snapshot(), width, caption)
}
