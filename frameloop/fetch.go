// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package frameloop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/GermanBionicSystems/epdframe/bmp2bpp"
)

// ErrUnexpectedStatus is returned by Fetch for responses other than 200 OK.
var ErrUnexpectedStatus = errors.New("frameloop: unexpected HTTP status")

// Fetch requests url and returns the response body as a chunk source
// yielding at most chunkSize bytes per chunk. The caller must close the
// returned io.Closer.
func Fetch(ctx context.Context, client *http.Client, url string, chunkSize int) (bmp2bpp.ChunkSource, io.Closer, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("frameloop: %w", err)
	}
	req.Header.Set("Accept", "image/bmp")

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("frameloop: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	return bmp2bpp.NewReaderSource(resp.Body, chunkSize), resp.Body, nil
}
