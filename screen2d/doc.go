// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package screen2d implements a 2D display.Drawer that outputs to terminal
// (stdout) using ANSI color codes.
//
// The frame is downscaled to fit a column budget, so an 800x480 e-paper
// image can be previewed over ssh before the panel is wired.
package screen2d
