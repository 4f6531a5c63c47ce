// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package canvas implements the shared drawing surface behind the draw
// server.
//
// Strokes are stamped with square brushes without anti-aliasing, so every
// pixel is one of white, black or red and the surface quantizes losslessly
// to the 2 bits per pixel bitmap shown on the panel.
package canvas
