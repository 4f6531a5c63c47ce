// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package drawserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/GermanBionicSystems/epdframe/canvas"
	"github.com/GermanBionicSystems/epdframe/history"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// Opts configures a Server.
type Opts struct {
	// Addr is the listen address used by Run.
	Addr string
	// Width and Height of the canvas.
	Width, Height int

	// SavePath receives the canvas as a 2 bits per pixel bitmap and is read
	// back at start. Empty disables persistence.
	SavePath string
	// SaveThrottle is the minimum time between two writes of SavePath.
	SaveThrottle time.Duration
	// BroadcastInterval is the period of the full canvas broadcast that
	// resynchronizes clients.
	BroadcastInterval time.Duration
	// ClearCron is a cron expression, with optional seconds, at which the
	// canvas is cleared. Empty disables it.
	ClearCron string
	// ThumbnailWidth is the width of history images sent to clients.
	ThumbnailWidth int

	// History stores snapshots. Nil disables the history actions.
	History *history.Store
	// Logger receives progress messages. Nil discards them.
	Logger *log.Logger
}

// DefaultOpts serves an 800x480 canvas on port 3001.
var DefaultOpts = Opts{
	Addr:              ":3001",
	Width:             canvas.Width,
	Height:            canvas.Height,
	SavePath:          "drawings/current.bmp",
	SaveThrottle:      5 * time.Second,
	BroadcastInterval: 5 * time.Second,
	ThumbnailWidth:    200,
}

// ErrHistoryDisabled is returned by history operations without a store.
var ErrHistoryDisabled = errors.New("drawserver: history is disabled")

// Server owns the canvas and its clients.
type Server struct {
	opts   Opts
	log    *log.Logger
	canvas *canvas.Canvas
	hub    *hub
	saver  *saver
	cron   *cron.Cron
	e      *echo.Echo

	upgrader websocket.Upgrader
}

// New returns a Server with the canvas loaded from opts.SavePath when it
// exists. Zero fields of opts are taken from DefaultOpts, except SavePath,
// ClearCron and History.
func New(opts *Opts) (*Server, error) {
	o := *opts
	if o.Addr == "" {
		o.Addr = DefaultOpts.Addr
	}
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = DefaultOpts.Width, DefaultOpts.Height
	}
	if o.SaveThrottle <= 0 {
		o.SaveThrottle = DefaultOpts.SaveThrottle
	}
	if o.BroadcastInterval <= 0 {
		o.BroadcastInterval = DefaultOpts.BroadcastInterval
	}
	if o.ThumbnailWidth <= 0 {
		o.ThumbnailWidth = DefaultOpts.ThumbnailWidth
	}

	l := o.Logger
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}

	s := &Server{
		opts:   o,
		log:    l,
		canvas: canvas.New(o.Width, o.Height),
		hub:    newHub(),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
	}
	s.saver = newSaver(o.SavePath, o.SaveThrottle, s.canvas, l)

	if o.SavePath != "" {
		switch loaded, err := loadBMP(o.SavePath, s.canvas); {
		case err != nil:
			l.Printf("Error loading existing drawing, starting blank: %v", err)
		case loaded:
			l.Printf("Loaded %s", o.SavePath)
		}
	}

	if o.ClearCron != "" {
		s.cron = cron.New(
			cron.WithParser(cron.NewParser(cron.SecondOptional|cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
			cron.WithLogger(cron.PrintfLogger(l)),
			cron.WithChain(cron.Recover(cron.PrintfLogger(l))),
		)
		if _, err := s.cron.AddFunc(o.ClearCron, func() {
			l.Printf("Clearing drawing")
			if err := s.Clear(); err != nil {
				l.Printf("Scheduled clear: %v", err)
			}
		}); err != nil {
			return nil, fmt.Errorf("drawserver: clear schedule %q: %w", o.ClearCron, err)
		}
	}

	s.e = s.routes()
	return s, nil
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetOutput(s.log.Writer())

	e.Use(middleware.Recover())

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "epdframe draw server")
	})
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/drawing.bmp", echo.WrapHandler(gzhttp.GzipHandler(http.HandlerFunc(s.serveBMP))))
	e.GET("/drawing.png", func(c echo.Context) error {
		var buf bytes.Buffer
		if err := s.canvas.WritePNG(&buf); err != nil {
			return err
		}
		return c.Blob(http.StatusOK, "image/png", buf.Bytes())
	})
	e.GET("/ws", s.serveWS)

	return e
}

func (s *Server) serveBMP(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.canvas.WriteBMP(&buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/bmp")
	w.Header().Set("Content-Disposition", "attachment; filename=drawing.bmp")
	_, _ = w.Write(buf.Bytes())
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Canvas returns the shared canvas.
func (s *Server) Canvas() *canvas.Canvas {
	return s.canvas
}

// Clear saves the current drawing to the history, when enabled, and paints
// the canvas white.
func (s *Server) Clear() error {
	var err error
	if s.opts.History != nil {
		if _, err = s.saveToHistory(""); err == nil {
			err = s.broadcastHistory()
		}
	}

	s.canvas.Clear()
	s.saver.touch()
	return err
}

func (s *Server) initMessage(historyID string) (*initMessage, error) {
	var buf bytes.Buffer
	if err := s.canvas.WritePNG(&buf); err != nil {
		return nil, err
	}
	return &initMessage{
		Type:      typeInit,
		Image:     base64.StdEncoding.EncodeToString(buf.Bytes()),
		HistoryID: historyID,
	}, nil
}

// broadcastState sends the full canvas to every client.
func (s *Server) broadcastState() error {
	if s.hub.len() == 0 {
		return nil
	}
	msg, err := s.initMessage("")
	if err != nil {
		return err
	}
	return s.hub.broadcastJSON(msg, nil)
}

// Run serves on opts.Addr until ctx is done. The last change is saved
// before returning.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run with a caller provided listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.saver.flush()

	g, ctx := errgroup.WithContext(ctx)

	s.e.Listener = ln
	g.Go(func() error {
		s.log.Printf("Listening on %s", ln.Addr())
		if err := s.e.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.e.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		t := time.NewTicker(s.opts.BroadcastInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				if err := s.broadcastState(); err != nil {
					s.log.Printf("Broadcast failed: %v", err)
				}
			}
		}
	})

	if s.cron != nil {
		s.cron.Start()
		g.Go(func() error {
			<-ctx.Done()
			<-s.cron.Stop().Done()
			return nil
		})
	}

	return g.Wait()
}
