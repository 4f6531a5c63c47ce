// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epdframe is a container for the packages of a shared drawing
// frame: a canvas server producing 2 bits per pixel bitmaps and a client
// showing them on a Waveshare 7.5" tri-color e-paper panel.
//
// See cmd/epdframe for the binary.
package epdframe
