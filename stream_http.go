package mdstream

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"golang.org/x/net/html/charset"
)

const markdownAccept = "text/markdown, text/plain;q=0.9, */*;q=0.1"

// HTTPRenderRequest configures HTTPRender.
type HTTPRenderRequest struct {
	URL string
	// Client defaults to http.DefaultClient.
	Client  *http.Client
	Writer  io.Writer
	Format  Format
	Width   int
	Theme   Theme
	Options []Option
	Stats   *Stats
}

// HTTPRender fetches a Markdown document over HTTP(S) and renders the body
// while it is still arriving. A body declared in a charset other than UTF-8
// is decoded first; image, audio, video and font bodies are refused.
func HTTPRender(ctx context.Context, req HTTPRenderRequest) error {
	if req.Writer == nil {
		return fmt.Errorf("stream http: writer is nil")
	}
	body, err := OpenURL(ctx, req.Client, req.URL)
	if err != nil {
		return err
	}
	defer body.Close()
	return Render(RenderRequest{
		Reader:  body,
		Writer:  req.Writer,
		Format:  req.Format,
		Width:   req.Width,
		Theme:   req.Theme,
		Options: req.Options,
		Stats:   req.Stats,
	})
}

type httpBody struct {
	io.Reader
	io.Closer
}

// OpenURL requests a Markdown document and returns its body once the
// response headers are in, decoded to UTF-8 when the response declares
// another charset. A nil client means http.DefaultClient.
func OpenURL(ctx context.Context, client *http.Client, rawURL string) (io.ReadCloser, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("stream http: URL is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("stream http: build request: %w", err)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return nil, fmt.Errorf("stream http: unsupported scheme %q", req.URL.Scheme)
	}
	req.Header.Set("Accept", markdownAccept)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream http: request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("stream http: status %s", resp.Status)
	}
	mediaType, params, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if binaryMediaType(mediaType) {
		resp.Body.Close()
		return nil, fmt.Errorf("stream http: %w: content type %s", ErrBinaryInput, mediaType)
	}
	label := strings.ToLower(params["charset"])
	if label == "" || label == "utf-8" || label == "utf8" || label == "us-ascii" {
		return resp.Body, nil
	}
	r, err := charset.NewReaderLabel(label, resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("stream http: charset %q: %w", label, err)
	}
	return httpBody{Reader: r, Closer: resp.Body}, nil
}

func binaryMediaType(mediaType string) bool {
	major, _, _ := strings.Cut(mediaType, "/")
	switch major {
	case "image", "audio", "video", "font":
		return true
	}
	return mediaType == "application/octet-stream"
}
