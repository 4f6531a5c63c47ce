// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package previewsink

import (
	"log"
	"mime"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
)

type client struct {
	refresh   chan struct{}
	terminate chan struct{}
}

func newClient() *client {
	return &client{
		refresh:   make(chan struct{}, 1),
		terminate: make(chan struct{}, 1),
	}
}

// signal never blocks; pending signals are coalesced.
func (c *client) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (s *Sink) formatFromQuery(values url.Values) (ImageFormat, error) {
	if value := values.Get("format"); value != "" {
		return ParseImageFormat(value)
	}
	return s.defaultFormat, nil
}

// ServeHTTP handles HTTP GET requests and sends a stream of images
// representing the display buffer in response. Clients can explicitly
// request a format using the "format" parameter ("?format=png",
// "?format=jpeg", "?format=bmp") and a single image with "?once=1".
func (s *Sink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.Body.Close(); err != nil {
		log.Printf("Closing request body failed: %v", err)
	}

	if r.Method != http.MethodGet {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	format, err := s.formatFromQuery(query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if once, _ := strconv.ParseBool(query.Get("once")); once {
		s.serveOnce(w, format)
		return
	}

	s.serveStream(w, r, format)
}

func (s *Sink) serveOnce(w http.ResponseWriter, format ImageFormat) {
	payload, err := s.Snapshot(format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer putBuffer(payload)

	w.Header().Set("Content-Type", format.mimeType())
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	if _, err := w.Write(payload); err != nil {
		log.Printf("Writing snapshot failed: %v", err)
	}
}

func (s *Sink) serveStream(w http.ResponseWriter, r *http.Request, format ImageFormat) {
	pw := newPartWriter(w)

	w.Header().Set("Content-Type",
		mime.FormatMediaType("multipart/x-mixed-replace", map[string]string{
			"boundary": pw.boundary,
		}))

	c := newClient()

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
	}()

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Type", format.mimeType())

	for {
		payload, err := s.Snapshot(format)
		if err != nil {
			log.Printf("Encoding %s frame failed: %v", format, err)
			return
		}

		err = pw.writePart(partHeader, payload)
		putBuffer(payload)

		// There is no way to report an error inside an image stream.
		if err != nil {
			return
		}

		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}

		select {
		case <-c.refresh:
		case <-c.terminate:
			return
		case <-r.Context().Done():
			return
		}
	}
}
