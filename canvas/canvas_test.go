// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package canvas

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/GermanBionicSystems/epdframe/bmp2bpp"
	"github.com/google/go-cmp/cmp"
)

var (
	white = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	black = color.RGBA{0, 0, 0, 0xFF}
	red   = color.RGBA{0xFF, 0, 0, 0xFF}
)

// count returns the number of pixels of color col inside r.
func count(c *Canvas, r image.Rectangle, col color.RGBA) int {
	n := 0
	r = r.Intersect(c.im.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if c.im.RGBAAt(x, y) == col {
				n++
			}
		}
	}
	return n
}

func TestParseColor(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    color.RGBA
		wantErr error
	}{
		{in: Black, want: black},
		{in: White, want: white},
		{in: Red, want: red},
		{in: "#FF0000", want: red},
		{in: "#00ff00", wantErr: ErrColor},
		{in: "red", wantErr: ErrColor},
		{in: "", wantErr: ErrColor},
	} {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseColor(tc.in)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("ParseColor(%q) returned error %v, want %v", tc.in, err, tc.wantErr)
			}
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Errorf("ParseColor(%q) difference (-got +want):\n%s", tc.in, diff)
			}
		})
	}
}

func TestNew(t *testing.T) {
	c := New(Width, Height)
	if got, want := count(c, c.Bounds(), white), Width*Height; got != want {
		t.Errorf("New() has %d white pixels, want %d", got, want)
	}
}

func TestDrawSinglePoint(t *testing.T) {
	for _, tc := range []struct {
		size int
		want image.Rectangle
	}{
		{size: BrushSmall, want: image.Rect(9, 19, 11, 21)},
		{size: BrushMedium, want: image.Rect(8, 18, 13, 23)},
		{size: BrushLarge, want: image.Rect(5, 15, 15, 25)},
	} {
		c := New(40, 40)
		if err := c.Draw([]Point{{10, 20}}, Black, tc.size); err != nil {
			t.Fatalf("Draw() failed: %v", err)
		}

		if got, want := count(c, tc.want, black), tc.want.Dx()*tc.want.Dy(); got != want {
			t.Errorf("size %d: %d black pixels inside %v, want %d", tc.size, got, tc.want, want)
		}
		if got, want := count(c, c.Bounds(), black), tc.want.Dx()*tc.want.Dy(); got != want {
			t.Errorf("size %d: %d black pixels in total, want %d", tc.size, got, want)
		}
	}
}

func TestDrawHalfPixel(t *testing.T) {
	// (1.5, 10.5) with a medium brush stamps from (-0.5, 8.5); halves round up.
	c := New(40, 40)
	if err := c.Draw([]Point{{1.5, 10.5}}, Black, BrushMedium); err != nil {
		t.Fatalf("Draw() failed: %v", err)
	}

	want := image.Rect(0, 9, 5, 14)
	if got := count(c, want, black); got != 25 {
		t.Errorf("%d black pixels inside %v, want 25", got, want)
	}
	if got := count(c, c.Bounds(), black); got != 25 {
		t.Errorf("%d black pixels in total, want 25", got)
	}
}

func TestDrawLine(t *testing.T) {
	c := New(40, 10)
	if err := c.Draw([]Point{{2, 4}, {12, 4}}, Red, BrushSmall); err != nil {
		t.Fatal(err)
	}

	// Stamps at x = 1..10, the end point is not stamped.
	want := image.Rect(1, 3, 12, 5)
	if got := count(c, c.Bounds(), red); got != want.Dx()*want.Dy() {
		t.Errorf("%d red pixels, want %d", got, want.Dx()*want.Dy())
	}
	if got := count(c, want, red); got != want.Dx()*want.Dy() {
		t.Errorf("%d red pixels inside %v, want all", got, want)
	}
}

func TestDrawPolyline(t *testing.T) {
	c := New(20, 20)
	if err := c.Draw([]Point{{2, 2}, {2, 12}, {12, 12}}, Black, BrushSmall); err != nil {
		t.Fatal(err)
	}

	for _, p := range []image.Point{{2, 2}, {2, 11}, {5, 12}, {11, 12}} {
		if got := c.im.RGBAAt(p.X, p.Y); got != black {
			t.Errorf("pixel %v is %v, want black", p, got)
		}
	}
	if got := c.im.RGBAAt(15, 5); got != white {
		t.Errorf("pixel off the line is %v, want white", got)
	}
}

func TestDrawRejects(t *testing.T) {
	c := New(20, 20)

	if err := c.Draw([]Point{{1, 1}}, "#00ff00", BrushSmall); !errors.Is(err, ErrColor) {
		t.Errorf("Draw() with green returned %v, want %v", err, ErrColor)
	}
	if err := c.Draw([]Point{{1, 1}}, Black, 3); !errors.Is(err, ErrBrushSize) {
		t.Errorf("Draw() with size 3 returned %v, want %v", err, ErrBrushSize)
	}
	if err := c.Draw(nil, Black, BrushSmall); err != nil {
		t.Errorf("Draw() without points returned %v", err)
	}
	if got := count(c, c.Bounds(), white); got != 400 {
		t.Errorf("rejected draws changed %d pixels", 400-got)
	}
}

func TestFill(t *testing.T) {
	c := New(20, 20)
	// A closed black square from (5,5) to (14,14).
	for i := 5; i < 15; i++ {
		for _, p := range []image.Point{{i, 5}, {i, 14}, {5, i}, {14, i}} {
			c.im.SetRGBA(p.X, p.Y, black)
		}
	}

	if err := c.Fill(10, 10, Red); err != nil {
		t.Fatal(err)
	}
	if got, want := count(c, c.Bounds(), red), 8*8; got != want {
		t.Errorf("%d red pixels inside the square, want %d", got, want)
	}

	if err := c.Fill(0, 0, Red); err != nil {
		t.Fatal(err)
	}
	if got, want := count(c, c.Bounds(), red), 400-36; got != want {
		t.Errorf("%d red pixels after filling outside, want %d", got, want)
	}
}

func TestFillNoop(t *testing.T) {
	c := New(10, 10)

	for _, tc := range []struct {
		x, y int
		col  string
	}{
		{x: 3, y: 3, col: White},
		{x: -1, y: 3, col: Red},
		{x: 3, y: 10, col: Red},
	} {
		if err := c.Fill(tc.x, tc.y, tc.col); err != nil {
			t.Fatal(err)
		}
	}
	if got := count(c, c.Bounds(), white); got != 100 {
		t.Errorf("no-op fills changed %d pixels", 100-got)
	}

	if err := c.Fill(3, 3, "blue"); !errors.Is(err, ErrColor) {
		t.Errorf("Fill() with blue returned %v, want %v", err, ErrColor)
	}
}

func TestFillQueueLimit(t *testing.T) {
	// The pending queue of a fill from the center passes the limit once the
	// filled diamond reaches a radius of about 1250 pixels.
	const size = 1600
	c := New(size, size)
	if err := c.Fill(size/2, size/2, Black); err != nil {
		t.Fatal(err)
	}
	n := count(c, c.Bounds(), black)
	if n == 0 || n == size*size {
		t.Errorf("filled %d pixels, want a partial fill", n)
	}
}

func TestClear(t *testing.T) {
	c := New(10, 10)
	if err := c.Draw([]Point{{5, 5}}, Red, BrushLarge); err != nil {
		t.Fatal(err)
	}
	c.Clear()
	if got := count(c, c.Bounds(), white); got != 100 {
		t.Errorf("Clear() left %d pixels that are not white", 100-got)
	}
}

func TestBitmapRoundTrip(t *testing.T) {
	c := New(16, 4)
	if err := c.Draw([]Point{{1, 1}}, Black, BrushSmall); err != nil {
		t.Fatal(err)
	}
	if err := c.Draw([]Point{{13, 2}}, Red, BrushSmall); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := c.WriteBMP(&buf); err != nil {
		t.Fatal(err)
	}

	bm := bmp2bpp.NewBitmap(16, 4)
	var pal bmp2bpp.Palette
	if _, err := bmp2bpp.DecodeStrict(bmp2bpp.Split(buf.Bytes(), 7), bm, &pal); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(bm.Pix, c.Bitmap().Pix); diff != "" {
		t.Errorf("decoded bitmap difference (-got +want):\n%s", diff)
	}

	other := New(16, 4)
	other.Load(bm, &pal)
	if diff := cmp.Diff(other.im.Pix, c.im.Pix); diff != "" {
		t.Errorf("Load() difference (-got +want):\n%s", diff)
	}
}

func TestWritePNG(t *testing.T) {
	c := New(12, 6)
	if err := c.Fill(0, 0, Red); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := c.WritePNG(&buf); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}

	other := New(12, 6)
	other.LoadImage(img)
	if diff := cmp.Diff(other.im.Pix, c.im.Pix); diff != "" {
		t.Errorf("LoadImage() difference (-got +want):\n%s", diff)
	}
}

func TestThumbnail(t *testing.T) {
	c := New(Width, Height)

	plain := c.Thumbnail(200, "")
	if diff := cmp.Diff(plain.Rect, image.Rect(0, 0, 200, 120)); diff != "" {
		t.Errorf("Thumbnail() bounds difference (-got +want):\n%s", diff)
	}

	captioned := c.Thumbnail(200, "2025-01-02 15:04")
	if got := captioned.Rect.Dy(); got <= 120 {
		t.Errorf("captioned thumbnail height %d, want more than 120", got)
	}
	dark := 0
	for y := 120; y < captioned.Rect.Dy(); y++ {
		for x := 0; x < 200; x++ {
			if captioned.RGBAAt(x, y).R < 0x80 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Error("caption band has no text")
	}
}

func TestThumbnailConcurrent(t *testing.T) {
	c := New(Width, Height)
	if err := c.Draw([]Point{{100, 100}, {700, 400}}, Red, BrushLarge); err != nil {
		t.Fatalf("Draw() failed: %v", err)
	}
	const caption = "2025-01-02 15:04"
	want := c.Thumbnail(200, caption)

	var wg sync.WaitGroup
	got := make([]*image.RGBA, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				got[i] = c.Thumbnail(200, caption)
			}
		}(i)
	}
	wg.Wait()

	for i, img := range got {
		if !bytes.Equal(img.Pix, want.Pix) {
			t.Errorf("goroutine %d: thumbnail differs from the sequential one", i)
		}
	}
}
