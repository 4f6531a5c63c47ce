// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bmp2bpp decodes and encodes the 2 bits per pixel indexed bitmaps
// consumed by tri-color e-paper frames.
//
// The format is a fixed subset of BMP: a 54 byte header, a 4 entry palette
// stored as blue, green, red and padding, followed by the pixels packed four
// per byte, most significant bits first, rows top to bottom.
//
// Decode reads the image from a ChunkSource one chunk at a time and writes it
// into a caller-owned Bitmap and Palette. It never buffers more than the first
// chunks needed to reach the palette, and reports whether any pixel differs
// from what the Bitmap held before the call. That flag is what gates the slow
// physical refresh of the panel.
//
// Layout
//
//   0-53    header (BITMAPFILEHEADER + BITMAPINFOHEADER)
//   54-69   palette, 4 entries of blue, green, red, padding
//   70-     pixels, width*height/4 bytes
package bmp2bpp
