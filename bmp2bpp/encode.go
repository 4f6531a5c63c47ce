// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmp2bpp

import (
	"bufio"
	"io"
)

// Encode writes bm and pal in the layout read by Decode. Rows are stored top
// to bottom, which the header announces with a negative height.
func Encode(w io.Writer, bm *Bitmap, pal *Palette) error {
	if err := bm.check(); err != nil {
		return err
	}

	stride := bm.Width / pixelsPerByte
	imageSize := stride * bm.Height

	h := Header{
		Magic:      [2]byte{'B', 'M'},
		FileSize:   uint32(DataOffset + imageSize),
		DataOffset: DataOffset,
		InfoSize:   infoHeaderSize,
		Width:      int32(bm.Width),
		Height:     -int32(bm.Height),
		Planes:     1,
		BitCount:   bitsPerPixel,
		ImageSize:  uint32(imageSize),
		ColorsUsed: paletteColors,
	}

	var head [DataOffset]byte
	h.marshal(head[:])
	for i, v := range pal {
		o := paletteOffset + 4*i
		head[o] = uint8(v)
		head[o+1] = uint8(v >> 8)
		head[o+2] = uint8(v >> 16)
		head[o+3] = 0xFF
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(head[:]); err != nil {
		return err
	}

	row := make([]byte, stride)
	for y := 0; y < bm.Height; y++ {
		cells := bm.Pix[y*bm.Width : (y+1)*bm.Width]
		for i := range row {
			c := cells[i*pixelsPerByte:]
			row[i] = (c[0]&3)<<6 | (c[1]&3)<<4 | (c[2]&3)<<2 | c[3]&3
		}
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// EncodedSize returns the number of bytes Encode writes for a width x height
// bitmap.
func EncodedSize(width, height int) int {
	return DataOffset + width*height/pixelsPerByte
}
