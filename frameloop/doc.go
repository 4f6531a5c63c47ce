// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package frameloop periodically fetches a 2 bits per pixel bitmap over HTTP
// and redraws a display only when the decoded pixels changed.
//
// A Loop owns one bitmap and one palette for its whole lifetime. Every cycle
// streams the response body through bmp2bpp.Decode in fixed size chunks, so
// the encoded image is never held in memory. Consecutive failures are counted
// and, past a limit, a reset hook is invoked.
package frameloop
