// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package previewsink

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"sync"

	"github.com/GermanBionicSystems/epdframe/bmp2bpp"
)

// bufferPool stores reusable []byte instances.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return []byte(nil)
	},
}

func getBuffer() []byte {
	return bufferPool.Get().([]byte)[:0]
}

func putBuffer(b []byte) {
	if b != nil {
		//lint:ignore SA6002 buffer is []byte and thus pointer-like
		bufferPool.Put(b)
	}
}

type pngBufferPool sync.Pool

func (p *pngBufferPool) Get() *png.EncoderBuffer {
	buf, _ := (*sync.Pool)(p).Get().(*png.EncoderBuffer)
	return buf
}

func (p *pngBufferPool) Put(buf *png.EncoderBuffer) {
	(*sync.Pool)(p).Put(buf)
}

// encoder turns the frame buffer into one of the supported formats.
type encoder struct {
	png     png.Encoder
	jpeg    jpeg.Options
	palette bmp2bpp.Palette
}

func newEncoder(opt *Options) *encoder {
	e := &encoder{
		png: png.Encoder{
			CompressionLevel: opt.PNGCompression,
			BufferPool:       &pngBufferPool{},
		},
		jpeg:    jpeg.Options{Quality: opt.JPEGQuality},
		palette: bmp2bpp.DefaultPalette,
	}
	if e.jpeg.Quality <= 0 {
		e.jpeg.Quality = jpeg.DefaultQuality
	}
	if opt.Palette != nil {
		e.palette = *opt.Palette
	}
	return e
}

func (e *encoder) encode(img image.Image, format ImageFormat) ([]byte, error) {
	buf := bytes.NewBuffer(getBuffer())

	var err error
	switch format {
	case PNG:
		err = e.png.Encode(buf, img)
	case JPEG:
		err = jpeg.Encode(buf, img, &e.jpeg)
	case BMP:
		err = bmp2bpp.Encode(buf, bmp2bpp.Quantize(img), &e.palette)
	default:
		err = fmt.Errorf("unhandled image format %s", format)
	}
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
