// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package previewsink

import (
	"errors"
	"fmt"
)

// ImageFormat selects the encoding of the frames sent to clients.
type ImageFormat int

const (
	PNG ImageFormat = iota
	JPEG
	// BMP is the palette-indexed 2 bits per pixel bitmap read by the frame
	// loop. Frames are quantized to white, black and red.
	BMP

	// DefaultFormat is the format used when not set explicitly in options or
	// as a URL parameter.
	DefaultFormat = PNG
)

// ErrUnknownFormat is returned for format names that are not recognized.
var ErrUnknownFormat = errors.New("previewsink: unrecognized image format")

func (f ImageFormat) String() string {
	switch f {
	case PNG:
		return "PNG"
	case JPEG:
		return "JPEG"
	case BMP:
		return "BMP"
	default:
		return fmt.Sprint(int(f))
	}
}

func (f ImageFormat) mimeType() string {
	switch f {
	case PNG:
		return "image/png"
	case JPEG:
		return "image/jpeg"
	case BMP:
		return "image/bmp"
	}

	return "application/octet-stream"
}

// ParseImageFormat returns the ImageFormat value for the given format
// abbreviation.
func ParseImageFormat(value string) (ImageFormat, error) {
	switch value {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "bmp":
		return BMP, nil
	}

	return DefaultFormat, fmt.Errorf("%w %q", ErrUnknownFormat, value)
}
