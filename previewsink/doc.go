// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package previewsink provides a display driver implementing an HTTP request
// handler, standing in for an e-paper panel during development.
//
// Every request receives a multipart/x-mixed-replace stream. The first part
// is the current frame and a new part follows each Draw. Frames are sent as
// PNG by default; JPEG and the 2 bits per pixel BMP served to the panel can be
// selected with Options.Format or the "format" URL parameter. The "once"
// parameter returns a single image instead of a stream.
package previewsink
