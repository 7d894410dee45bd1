package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// HTTPOpener opens encoding streams over plain HTTP using the format's
// resolved stream URL.
type HTTPOpener struct {
	Client *http.Client
}

// NewHTTPOpener returns an Opener backed by the provided client, or
// http.DefaultClient when nil. No overall client timeout is set; callers
// bound the transfer through the request context.
func NewHTTPOpener(client *http.Client) *HTTPOpener {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPOpener{Client: client}
}

// Open issues a GET for the encoding stream. The returned length is the
// response's declared content length when present, falling back to the
// format's own declaration, and 0 when neither is known.
func (o *HTTPOpener) Open(ctx context.Context, format Format) (io.ReadCloser, int64, error) {
	if format.StreamURL == "" {
		return nil, 0, errors.New("open stream: format has no stream url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, format.StreamURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("open stream: %w", err)
	}

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("open stream: unexpected status %d", resp.StatusCode)
	}

	length := resp.ContentLength
	if length <= 0 {
		length = format.ContentLength
	}
	return resp.Body, length, nil
}
