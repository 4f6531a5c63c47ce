// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmp2bpp

import (
	"errors"
	"io"
)

// DefaultChunkSize is the read size used by NewReaderSource when size is not
// positive.
const DefaultChunkSize = 1024

// ChunkSourceFunc adapts a function to the ChunkSource interface.
type ChunkSourceFunc func() ([]byte, error)

// Next implements ChunkSource.
func (f ChunkSourceFunc) Next() ([]byte, error) {
	return f()
}

// Chunks is an in-memory ChunkSource. Next hands out the buffers in order and
// removes them from the slice.
type Chunks [][]byte

// Next implements ChunkSource.
func (c *Chunks) Next() ([]byte, error) {
	if len(*c) == 0 {
		return nil, io.EOF
	}
	chunk := (*c)[0]
	*c = (*c)[1:]
	return chunk, nil
}

// Split cuts data into chunks of at most size bytes.
func Split(data []byte, size int) *Chunks {
	if size <= 0 {
		size = len(data)
	}
	c := Chunks{}
	for len(data) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		c = append(c, data[:n:n])
		data = data[n:]
	}
	return &c
}

type readerSource struct {
	r   io.Reader
	buf []byte
	err error
}

// NewReaderSource returns a ChunkSource pulling at most size bytes per chunk
// from r. The returned chunks share one buffer and are only valid until the
// next call to Next.
func NewReaderSource(r io.Reader, size int) ChunkSource {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &readerSource{r: r, buf: make([]byte, size)}
}

func (s *readerSource) Next() ([]byte, error) {
	for s.err == nil {
		n, err := s.r.Read(s.buf)
		s.err = err
		if n > 0 {
			return s.buf[:n], nil
		}
	}
	if errors.Is(s.err, io.EOF) || errors.Is(s.err, io.ErrUnexpectedEOF) {
		return nil, io.EOF
	}
	return nil, s.err
}
