// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package drawserver

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GermanBionicSystems/epdframe/bmp2bpp"
	"github.com/GermanBionicSystems/epdframe/canvas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = log.New(io.Discard, "", 0)

func newTestServer(t *testing.T, opts Opts) (*Server, *httptest.Server) {
	t.Helper()

	s, err := New(&opts)
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func decodeFile(t *testing.T, path string) *bmp2bpp.Bitmap {
	t.Helper()

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	bm := bmp2bpp.NewBitmap(canvas.Width, canvas.Height)
	var pal bmp2bpp.Palette
	_, err = bmp2bpp.DecodeStrict(bmp2bpp.Split(b, 0), bm, &pal)
	require.NoError(t, err)
	return bm
}

func TestRoutes(t *testing.T) {
	_, srv := newTestServer(t, Opts{})

	for path, want := range map[string]string{
		"/":       "epdframe draw server",
		"/health": "OK",
	} {
		resp, err := srv.Client().Get(srv.URL + path)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, want, string(body), path)
	}

	resp, err := srv.Client().Get(srv.URL + "/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDrawingBMP(t *testing.T) {
	s, srv := newTestServer(t, Opts{})
	require.NoError(t, s.Canvas().Draw([]canvas.Point{{X: 10, Y: 10}}, canvas.Red, canvas.BrushLarge))

	resp, err := srv.Client().Get(srv.URL + "/drawing.bmp")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/bmp", resp.Header.Get("Content-Type"))
	assert.Equal(t, "attachment; filename=drawing.bmp", resp.Header.Get("Content-Disposition"))
	// The transport asked for gzip and decompressed the body.
	assert.True(t, resp.Uncompressed)

	bm := bmp2bpp.NewBitmap(canvas.Width, canvas.Height)
	var pal bmp2bpp.Palette
	changed, err := bmp2bpp.DecodeStrict(bmp2bpp.NewReaderSource(resp.Body, 1024), bm, &pal)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, bmp2bpp.DefaultPalette, pal)
	assert.Equal(t, bmp2bpp.Red, bm.Index(10, 10))
	assert.Equal(t, bmp2bpp.White, bm.Index(100, 100))
}

func TestDrawingPNG(t *testing.T) {
	_, srv := newTestServer(t, Opts{Width: 40, Height: 20})

	resp, err := srv.Client().Get(srv.URL + "/drawing.png")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())
}

func TestLoadSaved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "current.bmp")

	bm := bmp2bpp.NewBitmap(canvas.Width, canvas.Height)
	bm.SetIndex(5, 6, bmp2bpp.Black)
	var buf bytes.Buffer
	require.NoError(t, bmp2bpp.Encode(&buf, bm, &bmp2bpp.DefaultPalette))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	s, err := New(&Opts{SavePath: path})
	require.NoError(t, err)

	got := s.Canvas().Bitmap()
	assert.Equal(t, bmp2bpp.Black, got.Index(5, 6))
	assert.Equal(t, bmp2bpp.White, got.Index(6, 6))
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "current.bmp")
	require.NoError(t, os.WriteFile(path, []byte("not a bitmap"), 0o644))

	s, err := New(&Opts{SavePath: path})
	require.NoError(t, err)
	assert.Equal(t, bmp2bpp.White, s.Canvas().Bitmap().Index(0, 0))
}

func TestClearCronInvalid(t *testing.T) {
	_, err := New(&Opts{ClearCron: "every tuesday"})
	assert.Error(t, err)
}

func TestSaverThrottle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drawings", "current.bmp")
	c := canvas.New(canvas.Width, canvas.Height)

	s := newSaver(path, time.Hour, c, discard)
	now := time.Now()
	s.now = func() time.Time { return now }
	s.lastSave = now.Add(-2 * time.Hour)

	require.NoError(t, c.Draw([]canvas.Point{{X: 1, Y: 1}}, canvas.Red, canvas.BrushSmall))
	s.touch()
	assert.Equal(t, bmp2bpp.Red, decodeFile(t, path).Index(1, 1), "first change is written right away")

	c.Clear()
	s.touch()
	assert.Equal(t, bmp2bpp.Red, decodeFile(t, path).Index(1, 1), "second change waits for the period")

	s.flush()
	assert.Equal(t, bmp2bpp.White, decodeFile(t, path).Index(1, 1), "flush writes the pending change")
}

func TestSaverTimer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "current.bmp")
	c := canvas.New(canvas.Width, canvas.Height)
	s := newSaver(path, 20*time.Millisecond, c, discard)

	s.touch()
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestServe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "current.bmp")
	s, err := New(&Opts{SavePath: path, SaveThrottle: time.Hour, BroadcastInterval: 20 * time.Millisecond})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	conn := dial(t, "http://"+ln.Addr().String())
	assert.Equal(t, typeInit, readMessage(t, conn)["type"])
	assert.Equal(t, typePresenceUpdate, readMessage(t, conn)["type"])
	// Periodic resynchronization.
	assert.Equal(t, typeInit, readMessage(t, conn)["type"])

	require.NoError(t, s.Canvas().Draw([]canvas.Point{{X: 3, Y: 3}}, canvas.Black, canvas.BrushSmall))
	s.saver.touch()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve() did not return")
	}

	assert.Equal(t, bmp2bpp.Black, decodeFile(t, path).Index(3, 3), "pending change saved on shutdown")
}

func TestServeClearCron(t *testing.T) {
	s, err := New(&Opts{ClearCron: "@every 1s"})
	require.NoError(t, err)
	require.NoError(t, s.Canvas().Fill(0, 0, canvas.Black))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Serve(ctx, ln)

	require.Eventually(t, func() bool {
		return s.Canvas().Bitmap().Index(0, 0) == bmp2bpp.White
	}, 10*time.Second, 50*time.Millisecond)
}
