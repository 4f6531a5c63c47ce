// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package frameloop

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/GermanBionicSystems/epdframe/bmp2bpp"
	"periph.io/x/conn/v3/display"
)

// ErrTooManyFailures is returned by Run when the consecutive failure limit
// is exceeded and no reset hook recovered from it.
var ErrTooManyFailures = errors.New("frameloop: too many consecutive failures")

// ResetFunc brings the device back to a known state after repeated
// failures, for example by re-initializing the panel.
type ResetFunc func(ctx context.Context) error

// Opts configures a Loop.
type Opts struct {
	// URL of the 2 bits per pixel bitmap.
	URL string

	// Interval is the wait after a successful cycle.
	Interval time.Duration
	// RetryDelay is the wait after a failed cycle.
	RetryDelay time.Duration
	// MaxErrors is the number of consecutive failures tolerated before
	// Reset is called.
	MaxErrors int
	// ChunkSize bounds the bytes read from the response per decode step.
	ChunkSize int
	// Strict validates the bitmap header before decoding.
	Strict bool

	Client *http.Client
	Reset  ResetFunc
	// Logger receives progress messages. Nil discards them.
	Logger *log.Logger
}

// DefaultOpts polls every three minutes and retries every ten seconds.
var DefaultOpts = Opts{
	Interval:   180 * time.Second,
	RetryDelay: 10 * time.Second,
	MaxErrors:  20,
	ChunkSize:  bmp2bpp.DefaultChunkSize,
}

// Loop fetches, decodes and draws frames onto a display.
type Loop struct {
	d    display.Drawer
	opts Opts
	log  *log.Logger

	bm  *bmp2bpp.Bitmap
	pal bmp2bpp.Palette
	// shown is false until the bitmap is known to match the display.
	shown    bool
	failures int
}

// New returns a Loop drawing onto d. The bitmap has the size of d.Bounds().
// Zero fields of opts are taken from DefaultOpts.
func New(d display.Drawer, opts *Opts) (*Loop, error) {
	size := d.Bounds().Size()
	if size.X <= 0 || size.X%4 != 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: display is %dx%d", bmp2bpp.ErrBitmapGeometry, size.X, size.Y)
	}

	o := *opts
	if o.Interval <= 0 {
		o.Interval = DefaultOpts.Interval
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultOpts.RetryDelay
	}
	if o.MaxErrors <= 0 {
		o.MaxErrors = DefaultOpts.MaxErrors
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultOpts.ChunkSize
	}

	l := o.Logger
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}

	return &Loop{
		d:    d,
		opts: o,
		log:  l,
		bm:   bmp2bpp.NewBitmap(size.X, size.Y),
	}, nil
}

// Failures returns the current number of consecutive failed cycles.
func (l *Loop) Failures() int {
	return l.failures
}

// Cycle fetches and decodes one frame and draws it when it differs from the
// one on the display. It reports whether the display was redrawn.
func (l *Loop) Cycle(ctx context.Context) (bool, error) {
	src, body, err := Fetch(ctx, l.opts.Client, l.opts.URL, l.opts.ChunkSize)
	if err != nil {
		return false, err
	}
	defer body.Close()

	decode := bmp2bpp.Decode
	if l.opts.Strict {
		decode = bmp2bpp.DecodeStrict
	}

	changed, err := decode(src, l.bm, &l.pal)
	if err != nil {
		// The bitmap is partially overwritten.
		l.shown = false
		return false, err
	}

	if !changed && l.shown {
		return false, nil
	}

	if err := l.d.Draw(l.d.Bounds(), l.bm.Paletted(&l.pal), image.Point{}); err != nil {
		l.shown = false
		return false, fmt.Errorf("frameloop: drawing: %w", err)
	}
	l.shown = true

	return true, nil
}

// Run repeats Cycle until ctx is done or too many cycles failed in a row.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if l.failures > l.opts.MaxErrors {
			if err := l.reset(ctx); err != nil {
				return err
			}
		}

		wait := l.opts.Interval

		changed, err := l.Cycle(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			l.failures++
			l.log.Printf("Cycle failed (%d in a row): %v", l.failures, err)
			wait = l.opts.RetryDelay
		case changed:
			l.failures = 0
			l.log.Printf("Display refreshed with palette %s", l.pal.String())
		default:
			l.failures = 0
			l.log.Printf("No changes")
		}

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (l *Loop) reset(ctx context.Context) error {
	l.log.Printf("Too many errors (%d), resetting", l.failures)

	if l.opts.Reset == nil {
		return fmt.Errorf("%w: %d", ErrTooManyFailures, l.failures)
	}
	if err := l.opts.Reset(ctx); err != nil {
		return fmt.Errorf("%w: reset failed: %v", ErrTooManyFailures, err)
	}

	l.failures = 0
	l.shown = false
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
