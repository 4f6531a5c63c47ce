// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package canvas

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Colors accepted by Draw and Fill.
const (
	Black = "#000000"
	White = "#ffffff"
	Red   = "#ff0000"
)

// Brush sizes accepted by Draw.
const (
	BrushSmall  = 2
	BrushMedium = 5
	BrushLarge  = 10
)

var (
	// ErrColor is returned for colors other than Black, White and Red.
	ErrColor = errors.New("canvas: unsupported color")
	// ErrBrushSize is returned for brush sizes other than the predefined ones.
	ErrBrushSize = errors.New("canvas: unsupported brush size")
)

var inks = map[string]bool{Black: true, White: true, Red: true}

// ParseColor returns the RGBA value of one of the accepted colors. Hex digits
// may be upper or lower case.
func ParseColor(s string) (color.RGBA, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %v", ErrColor, err)
	}
	if !inks[c.Hex()] {
		return color.RGBA{}, fmt.Errorf("%w %q", ErrColor, s)
	}
	r, g, b := c.RGB255()
	return color.RGBA{r, g, b, 0xFF}, nil
}

func checkBrushSize(size int) error {
	switch size {
	case BrushSmall, BrushMedium, BrushLarge:
		return nil
	}
	return fmt.Errorf("%w %d", ErrBrushSize, size)
}
