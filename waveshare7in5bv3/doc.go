// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package waveshare7in5bv3 controls the Waveshare 7.5 inch (B) v3 tri-color
// e-paper display.
//
// The panel is driven by an UC8179 controller and shows white, black and red.
// Images are converted to the closest of these three colors and uploaded as a
// black/white plane and a red plane before a full refresh.
//
// Datasheets
//
// https://www.waveshare.com/w/upload/8/8c/7.5inch-e-paper-b-v3-specification.pdf
//
// Product page:
//
// https://www.waveshare.com/wiki/7.5inch_e-Paper_HAT_(B)
//
package waveshare7in5bv3
