// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// epdframe drives a Waveshare 7.5" tri-color e-paper frame from a 2 bits per
// pixel bitmap served over HTTP, and serves that bitmap from a shared drawing
// canvas.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/epdframe/bmp2bpp"
	"github.com/GermanBionicSystems/epdframe/drawserver"
	"github.com/GermanBionicSystems/epdframe/frameloop"
	"github.com/GermanBionicSystems/epdframe/history"
	"github.com/GermanBionicSystems/epdframe/previewsink"
	"github.com/GermanBionicSystems/epdframe/screen2d"
	"github.com/GermanBionicSystems/epdframe/waveshare7in5bv3"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/spi/spireg"
	host "periph.io/x/host/v3"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", log.LstdFlags)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func main() {
	app := cli.NewApp()

	app.Name = "epdframe"
	app.Usage = "Shared drawing canvas for a tri-color e-paper frame"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:  "run",
			Usage: "Poll a bitmap URL and show it on a display",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "url",
					EnvVars:  []string{"EPDFRAME_URL"},
					Usage:    "URL of the 2 bits per pixel bitmap",
					Required: true,
				},
				&cli.DurationFlag{
					Name:    "interval",
					EnvVars: []string{"EPDFRAME_INTERVAL"},
					Value:   frameloop.DefaultOpts.Interval,
					Usage:   "wait between two successful fetches",
				},
				&cli.DurationFlag{
					Name:    "retry-delay",
					EnvVars: []string{"EPDFRAME_RETRY_DELAY"},
					Value:   frameloop.DefaultOpts.RetryDelay,
					Usage:   "wait after a failed fetch",
				},
				&cli.IntFlag{
					Name:    "max-errors",
					EnvVars: []string{"EPDFRAME_MAX_ERRORS"},
					Value:   frameloop.DefaultOpts.MaxErrors,
					Usage:   "consecutive failures before the display is reset",
				},
				&cli.IntFlag{
					Name:    "chunk-size",
					EnvVars: []string{"EPDFRAME_CHUNK_SIZE"},
					Value:   frameloop.DefaultOpts.ChunkSize,
					Usage:   "bytes read from the response per decode step",
				},
				&cli.BoolFlag{
					Name:    "strict",
					EnvVars: []string{"EPDFRAME_STRICT"},
					Usage:   "validate the bitmap header",
				},
				&cli.StringFlag{
					Name:    "display",
					EnvVars: []string{"EPDFRAME_DISPLAY"},
					Value:   "waveshare",
					Usage:   "output device: waveshare, terminal or preview",
				},
				&cli.StringFlag{
					Name:    "preview-addr",
					EnvVars: []string{"EPDFRAME_PREVIEW_ADDR"},
					Value:   ":8080",
					Usage:   "listen address of the preview display",
				},
			},
			Action: func(c *cli.Context) error {
				if err := runFrame(c); err != nil {
					return cli.Exit(err, 1)
				}
				return nil
			},
		},
		{
			Name:  "serve",
			Usage: "Serve the shared drawing canvas",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "addr",
					EnvVars: []string{"EPDFRAME_ADDR", "PORT"},
					Value:   drawserver.DefaultOpts.Addr,
					Usage:   "listen address",
				},
				&cli.StringFlag{
					Name:    "save-path",
					EnvVars: []string{"EPDFRAME_SAVE_PATH"},
					Value:   drawserver.DefaultOpts.SavePath,
					Usage:   "bitmap the canvas is persisted to",
				},
				&cli.StringFlag{
					Name:    "db",
					EnvVars: []string{"EPDFRAME_DB"},
					Usage:   "path to the history database, empty disables history",
				},
				&cli.StringFlag{
					Name:    "clear-cron",
					EnvVars: []string{"EPDFRAME_CLEAR_CRON", "CLEAR_CRON"},
					Usage:   "cron expression at which the canvas is cleared",
				},
			},
			Action: func(c *cli.Context) error {
				if err := serve(c); err != nil {
					return cli.Exit(err, 1)
				}
				return nil
			},
		},
		{
			Name:      "show",
			Usage:     "Print a 2 bits per pixel bitmap on the terminal",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "columns",
					Value: screen2d.DefaultColumns,
					Usage: "terminal columns used",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}
				if err := show(c.Args().First(), c.Int("columns")); err != nil {
					return cli.Exit(err, 1)
				}
				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func runFrame(c *cli.Context) error {
	logger := newLogger(c)

	ctx, stop := signalContext(c)
	defer stop()

	opts := frameloop.Opts{
		URL:        c.String("url"),
		Interval:   c.Duration("interval"),
		RetryDelay: c.Duration("retry-delay"),
		MaxErrors:  c.Int("max-errors"),
		ChunkSize:  c.Int("chunk-size"),
		Strict:     c.Bool("strict"),
		Client:     &http.Client{Timeout: time.Minute},
		Logger:     logger,
	}

	g, ctx := errgroup.WithContext(ctx)

	// The panel keeps its picture without power, so it is put to sleep
	// rather than halted.
	var d display.Drawer
	halt := func() error { return d.Halt() }
	switch name := c.String("display"); name {
	case "waveshare":
		dev, closer, err := openPanel()
		if err != nil {
			return err
		}
		defer closer.Close()
		halt = dev.Sleep

		opts.Reset = panelReset(dev)
		d = dev

	case "terminal":
		d = screen2d.New(&screen2d.Opts{
			Width:  waveshare7in5bv3.EPD7in5bv3.Width,
			Height: waveshare7in5bv3.EPD7in5bv3.Height,
		})

	case "preview":
		sink := previewsink.New(&previewsink.Options{
			Width:  waveshare7in5bv3.EPD7in5bv3.Width,
			Height: waveshare7in5bv3.EPD7in5bv3.Height,
			Format: previewsink.PNG,
		})
		srv := &http.Server{Addr: c.String("preview-addr"), Handler: sink}
		g.Go(func() error {
			logger.Printf("Preview on %s", srv.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			_ = sink.Halt()
			return srv.Shutdown(context.Background())
		})
		d = sink

	default:
		return fmt.Errorf("unknown display %q", name)
	}
	defer halt()

	loop, err := frameloop.New(d, &opts)
	if err != nil {
		return err
	}

	g.Go(func() error {
		err := loop.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}

// panelReset re-initializes the panel. Init starts with a hardware reset.
func panelReset(p interface{ Init() error }) frameloop.ResetFunc {
	return func(context.Context) error {
		return p.Init()
	}
}

func openPanel() (*waveshare7in5bv3.Dev, io.Closer, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, err
	}

	p, err := spireg.Open("")
	if err != nil {
		return nil, nil, err
	}

	dev, err := waveshare7in5bv3.NewHat(p, &waveshare7in5bv3.EPD7in5bv3)
	if err != nil {
		p.Close()
		return nil, nil, err
	}
	if err := dev.Init(); err != nil {
		p.Close()
		return nil, nil, err
	}
	return dev, p, nil
}

func serve(c *cli.Context) error {
	logger := newLogger(c)

	ctx, stop := signalContext(c)
	defer stop()

	opts := drawserver.DefaultOpts
	opts.Addr = c.String("addr")
	if _, _, err := net.SplitHostPort(opts.Addr); err != nil {
		// Bare port numbers, as set in PORT.
		opts.Addr = ":" + opts.Addr
	}
	opts.SavePath = c.String("save-path")
	opts.ClearCron = c.String("clear-cron")
	opts.Logger = logger

	if db := c.String("db"); db != "" {
		if err := os.MkdirAll(filepath.Dir(db), 0o755); err != nil {
			return err
		}
		store, err := history.Open(db)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.History = store
	}

	s, err := drawserver.New(&opts)
	if err != nil {
		return err
	}

	return s.Run(ctx)
}

func show(file string, columns int) error {
	b, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	h, err := bmp2bpp.ParseHeader(b)
	if err != nil {
		return err
	}
	height := int(h.Height)
	if height < 0 {
		height = -height
	}

	bm := bmp2bpp.NewBitmap(int(h.Width), height)
	var pal bmp2bpp.Palette
	if _, err := bmp2bpp.DecodeStrict(bmp2bpp.Split(b, 0), bm, &pal); err != nil {
		return err
	}

	d := screen2d.New(&screen2d.Opts{Width: bm.Width, Height: bm.Height, Columns: columns})
	defer d.Halt()
	return d.Draw(d.Bounds(), bm.Paletted(&pal), bm.Bounds().Min)
}
