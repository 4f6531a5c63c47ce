// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package previewsink

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"net/textproto"
	"sort"
	"strconv"
)

// randomBoundary generates a MIME multipart boundary compatible with RFC 2046
// (section 5.1.1).
func randomBoundary() string {
	var buf [30]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", buf[:])
}

type partWriter struct {
	w        io.Writer
	boundary string
	started  bool
	buf      bytes.Buffer
}

func newPartWriter(w io.Writer) *partWriter {
	return &partWriter{
		w:        w,
		boundary: randomBoundary(),
	}
}

// writePart sends one part followed by its closing boundary line so the
// client can show it right away. mime/multipart.Writer only emits the
// boundary when the next part starts.
//
// The caller-owned header gets a Content-Length.
func (pw *partWriter) writePart(header textproto.MIMEHeader, body []byte) error {
	header.Set("Content-Length", strconv.Itoa(len(body)))

	pw.buf.Reset()
	if !pw.started {
		fmt.Fprintf(&pw.buf, "--%s\r\n", pw.boundary)
		pw.started = true
	}

	names := make([]string, 0, len(header))
	for name := range header {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range header[name] {
			fmt.Fprintf(&pw.buf, "%s: %s\r\n", name, value)
		}
	}
	pw.buf.WriteString("\r\n")
	pw.buf.Write(body)
	fmt.Fprintf(&pw.buf, "\r\n--%s\r\n", pw.boundary)

	_, err := pw.buf.WriteTo(pw.w)
	return err
}
