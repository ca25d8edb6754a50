package dataset

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// Fetcher retrieves the raw payload bytes for a source.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

// FileFetcher reads payloads from the local filesystem. Files ending in
// .gz are decompressed.
type FileFetcher struct{}

func (FileFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}
	if strings.HasSuffix(strings.ToLower(source), ".gz") {
		return gunzip(data)
	}
	return data, nil
}

// HTTPFetcher downloads payloads with a shared fasthttp client.
type HTTPFetcher struct {
	client  *fasthttp.Client
	timeout time.Duration
	headers map[string]string
}

// NewHTTPFetcher creates a fetcher; timeout <= 0 means 30s.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		client: &fasthttp.Client{
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: 256 << 20,
		},
		timeout: timeout,
		headers: map[string]string{
			"Accept":          "application/json",
			"Accept-Encoding": "gzip",
			"User-Agent":      "keyword-pivot/1.0",
		},
	}
}

// WithHeader adds a request header, e.g. an Authorization token.
func (h *HTTPFetcher) WithHeader(key, value string) *HTTPFetcher {
	h.headers[key] = value
	return h
}

func (h *HTTPFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(source)
	req.Header.SetMethod(fasthttp.MethodGet)
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	timeout := h.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}

	if err := h.client.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode()}
	}

	// The body buffer is released with resp, so copy it out.
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())

	if h.isGzipped(source, resp) {
		return gunzip(body)
	}
	return body, nil
}

func (h *HTTPFetcher) isGzipped(source string, resp *fasthttp.Response) bool {
	return strings.HasSuffix(strings.ToLower(source), ".gz") ||
		string(resp.Header.Peek("Content-Encoding")) == "gzip"
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}
	return out, nil
}

// StatusError is a non-200 response from a remote source.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// isRemote reports whether source should go through HTTP.
func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
