// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package drawserver serves a shared drawing to browsers over WebSocket and
// to e-paper frames as a 2 bits per pixel bitmap.
//
// Routes:
//
//	GET /drawing.bmp  the canvas as served to frameloop (gzip when accepted)
//	GET /drawing.png  the canvas as PNG
//	GET /health       "OK"
//	GET /ws           WebSocket for drawing clients
//
// WebSocket messages are JSON objects with a "type" field. Clients send
// draw, fill, clear, wave, get-history, save-to-history, restore and
// delete-history. The server sends init, history-update and presence-update.
package drawserver
