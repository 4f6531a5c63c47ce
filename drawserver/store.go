// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package drawserver

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/GermanBionicSystems/epdframe/bmp2bpp"
	"github.com/GermanBionicSystems/epdframe/canvas"
)

// saver writes the canvas to disk at most once per throttle period. The
// last change within a period is always written when the period ends.
type saver struct {
	path     string
	throttle time.Duration
	canvas   *canvas.Canvas
	log      *log.Logger
	now      func() time.Time

	mu       sync.Mutex
	lastSave time.Time
	timer    *time.Timer
}

func newSaver(path string, throttle time.Duration, c *canvas.Canvas, l *log.Logger) *saver {
	return &saver{
		path:     path,
		throttle: throttle,
		canvas:   c,
		log:      l,
		now:      time.Now,
		lastSave: time.Now(),
	}
}

// touch records a change of the canvas.
func (s *saver) touch() {
	if s.path == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	if now := s.now(); now.Sub(s.lastSave) >= s.throttle {
		s.saveLocked()
		return
	}

	var t *time.Timer
	t = time.AfterFunc(s.throttle, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.timer == t {
			s.timer = nil
			s.saveLocked()
		}
	})
	s.timer = t
}

// flush writes a pending change right away.
func (s *saver) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
		s.saveLocked()
	}
}

func (s *saver) saveLocked() {
	s.lastSave = s.now()
	if err := writeBMP(s.path, s.canvas); err != nil {
		s.log.Printf("Failed to save drawing: %v", err)
	}
}

// writeBMP replaces path atomically.
func writeBMP(path string, c *canvas.Canvas) error {
	var buf bytes.Buffer
	if err := c.WriteBMP(&buf); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, ".drawing-*.bmp")
	if err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), path)
}

// loadBMP draws the bitmap saved at path onto c. A missing file is not an
// error.
func loadBMP(path string, c *canvas.Canvas) (bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	size := c.Bounds().Size()
	bm := bmp2bpp.NewBitmap(size.X, size.Y)
	var pal bmp2bpp.Palette
	if _, err := bmp2bpp.Decode(bmp2bpp.NewReaderSource(f, bmp2bpp.DefaultChunkSize), bm, &pal); err != nil {
		return false, err
	}

	c.Load(bm, &pal)
	return true, nil
}
