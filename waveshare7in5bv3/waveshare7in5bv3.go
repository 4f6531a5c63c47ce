// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare7in5bv3

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3/rpi"
)

// Commands
const (
	panelSetting               byte = 0x00
	powerSetting               byte = 0x01
	powerOff                   byte = 0x02
	powerOn                    byte = 0x04
	deepSleep                  byte = 0x07
	dataStartTransmission1     byte = 0x10
	displayRefresh             byte = 0x12
	dataStartTransmission2     byte = 0x13
	dualSPI                    byte = 0x15
	vcomAndDataIntervalSetting byte = 0x50
	tconSetting                byte = 0x60
	resolutionSetting          byte = 0x61
	gateSourceStartSetting     byte = 0x65
)

const deepSleepCheckCode byte = 0xA5

const (
	busyPollInterval = 10 * time.Millisecond
	// A full tri-color refresh takes about 20 seconds.
	defaultBusyTimeout = 45 * time.Second
)

// ErrBusyTimeout is returned when the controller stays busy for longer than
// Opts.BusyTimeout.
var ErrBusyTimeout = errors.New("waveshare7in5bv3: timed out waiting for the display")

// Dev defines the handler which is used to access the display.
type Dev struct {
	c conn.Conn

	dc   gpio.PinOut
	cs   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIn

	bounds image.Rectangle
	planes planes

	opts *Opts
}

// Opts definies the structure of the display configuration.
type Opts struct {
	Width  int
	Height int

	// BusyTimeout bounds every wait on the busy line. Zero selects a default
	// long enough for a full refresh.
	BusyTimeout time.Duration
}

// EPD7in5bv3 contains display configuration for the Waveshare 7in5 (B) v3.
var EPD7in5bv3 = Opts{
	Width:  800,
	Height: 480,
}

// New creates new handler which is used to access the display.
func New(p spi.Port, dc, cs, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Dev, error) {
	c, err := p.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}

	if err := busy.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, err
	}

	size := image.Pt(opts.Width, opts.Height)

	d := &Dev{
		c:      c,
		dc:     dc,
		cs:     cs,
		rst:    rst,
		busy:   busy,
		bounds: image.Rectangle{Max: size},
		planes: newPlanes(size),
		opts:   opts,
	}

	return d, nil
}

// NewHat creates new handler which is used to access the display. Default Waveshare Hat configuration is used.
func NewHat(p spi.Port, opts *Opts) (*Dev, error) {
	dc := rpi.P1_22
	cs := rpi.P1_24
	rst := rpi.P1_11
	busy := rpi.P1_18
	return New(p, dc, cs, rst, busy, opts)
}

// Init resets the controller and runs the power-on sequence. It must be
// called before drawing and after Sleep.
func (d *Dev) Init() error {
	if err := d.Reset(); err != nil {
		return err
	}

	eh := errorHandler{d: *d}

	initDisplay(&eh, d.opts)

	return eh.err
}

// ColorModel returns the white, black and red palette.
func (d *Dev) ColorModel() color.Model {
	return Palette
}

// Bounds returns the bounds for the configurated display.
func (d *Dev) Bounds() image.Rectangle {
	return d.bounds
}

// Draw draws the given image to the display. Every pixel is mapped to the
// closest panel color. The whole frame is uploaded and refreshed, which takes
// about 20 seconds.
func (d *Dev) Draw(dstRect image.Rectangle, src image.Image, srcPts image.Point) error {
	d.planes.draw(d.bounds, dstRect, src, srcPts)

	eh := errorHandler{d: *d}

	uploadPlanes(&eh, &d.planes, d.bounds.Max)
	refreshDisplay(&eh)

	return eh.err
}

// Refresh redraws the panel from the controller RAM.
func (d *Dev) Refresh() error {
	eh := errorHandler{d: *d}

	refreshDisplay(&eh)

	return eh.err
}

// Clear fills the display with the panel color closest to c.
func (d *Dev) Clear(c color.Color) error {
	return d.Draw(d.bounds, &image.Uniform{C: c}, image.Point{})
}

// Halt clears the display and puts the controller into deep sleep.
func (d *Dev) Halt() error {
	if err := d.Clear(color.White); err != nil {
		return err
	}
	return d.Sleep()
}

// Sleep powers the panel off and enters deep sleep. Init wakes it up again.
func (d *Dev) Sleep() error {
	eh := errorHandler{d: *d}

	sleepDisplay(&eh)

	return eh.err
}

// Reset the hardware.
func (d *Dev) Reset() error {
	eh := errorHandler{d: *d}

	eh.rstOut(gpio.High)
	time.Sleep(20 * time.Millisecond)
	eh.rstOut(gpio.Low)
	time.Sleep(2 * time.Millisecond)
	eh.rstOut(gpio.High)
	time.Sleep(20 * time.Millisecond)

	return eh.err
}

// String returns a string containing configuration information.
func (d *Dev) String() string {
	return fmt.Sprintf("epd.Dev{%s, %s, Width: %d, Height: %d}", d.c, d.dc, d.bounds.Dx(), d.bounds.Dy())
}

func (d *Dev) busyTimeout() time.Duration {
	if d.opts.BusyTimeout > 0 {
		return d.opts.BusyTimeout
	}
	return defaultBusyTimeout
}

var _ display.Drawer = &Dev{}
