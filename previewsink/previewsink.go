// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package previewsink

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"sync"

	"github.com/GermanBionicSystems/epdframe/bmp2bpp"
	"periph.io/x/conn/v3/display"
)

// Options for preview sinks.
type Options struct {
	// Width and height of the image buffer.
	Width, Height int

	// Format specifies the default image format sent to clients.
	Format ImageFormat

	// JPEGQuality ranges from 1 to 100. Zero selects jpeg.DefaultQuality.
	JPEGQuality int
	// PNGCompression is the zlib level used for PNG frames.
	PNGCompression png.CompressionLevel
	// Palette is written into BMP frames. Defaults to bmp2bpp.DefaultPalette.
	Palette *bmp2bpp.Palette
}

// Sink keeps the last drawn frame and streams it to HTTP clients.
type Sink struct {
	defaultFormat ImageFormat
	enc           *encoder

	mu       sync.Mutex
	buffer   *image.RGBA
	frames   uint64
	clients  map[*client]struct{}
	snapshot map[ImageFormat][]byte
}

var _ display.Drawer = (*Sink)(nil)
var _ http.Handler = (*Sink)(nil)

// New creates a sink with a white frame.
func New(opt *Options) *Sink {
	buffer := image.NewRGBA(image.Rect(0, 0, opt.Width, opt.Height))
	draw.Draw(buffer, buffer.Bounds(), image.White, image.Point{}, draw.Src)

	return &Sink{
		defaultFormat: opt.Format,
		enc:           newEncoder(opt),
		buffer:        buffer,
		clients:       map[*client]struct{}{},
		snapshot:      map[ImageFormat][]byte{},
	}
}

// String returns the name of the device.
func (s *Sink) String() string {
	return fmt.Sprintf("PreviewSink{%dx%d, %s}", s.buffer.Rect.Dx(), s.buffer.Rect.Dy(), s.defaultFormat)
}

// Halt implements conn.Resource and terminates all running client requests
// asynchronously.
func (s *Sink) Halt() error {
	s.mu.Lock()
	for c := range s.clients {
		c.signal(c.terminate)
	}
	s.mu.Unlock()

	return nil
}

// ColorModel implements display.Drawer.
func (s *Sink) ColorModel() color.Model {
	return s.buffer.ColorModel()
}

// Bounds implements display.Drawer.
func (s *Sink) Bounds() image.Rectangle {
	return s.buffer.Bounds()
}

// Draw implements display.Drawer.
func (s *Sink) Draw(dstRect image.Rectangle, src image.Image, srcPts image.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draw.Draw(s.buffer, dstRect, src, srcPts, draw.Src)
	s.frames++

	for format, encoded := range s.snapshot {
		putBuffer(encoded)
		delete(s.snapshot, format)
	}
	for c := range s.clients {
		c.signal(c.refresh)
	}

	return nil
}

// Frames returns the number of Draw calls so far.
func (s *Sink) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Snapshot returns the current frame encoded as format. The caller owns the
// returned slice.
func (s *Sink) Snapshot(format ImageFormat) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	encoded, ok := s.snapshot[format]
	if !ok {
		var err error
		if encoded, err = s.enc.encode(s.buffer, format); err != nil {
			return nil, err
		}
		s.snapshot[format] = encoded
	}

	return append(getBuffer(), encoded...), nil
}
