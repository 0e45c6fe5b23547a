// Package download fetches remote files over HTTP(S) with per-request
// timeouts and optional retries.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"

	"github.com/hostforge/hostforge/internal/config"
	"github.com/hostforge/hostforge/internal/util/retry"
)

// userAgent identifies hostforge to release servers.
const userAgent = "hostforge"

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Client downloads files.
type Client struct {
	HTTP         *http.Client
	Log          logr.Logger
	Timeout      time.Duration
	Retries      int
	InitialDelay time.Duration
}

// NewClient creates a client configured from timeouts.
func NewClient(log logr.Logger, t *config.Timeouts) *Client {
	return &Client{
		HTTP:         &http.Client{},
		Log:          log,
		Timeout:      t.Download,
		Retries:      t.DownloadRetries,
		InitialDelay: t.RetryInitialDelay,
	}
}

// Fetch writes the body of url to w and returns the number of bytes written.
// Retries restart from scratch, so w must tolerate being truncated by reset.
func (c *Client) Fetch(ctx context.Context, url string, w io.Writer, reset func() error) (int64, error) {
	var written int64
	err := retry.Do(ctx, func(ctx context.Context) error {
		if reset != nil {
			if err := reset(); err != nil {
				return retry.Fatal(err)
			}
		}
		n, err := c.fetchOnce(ctx, url, w)
		written = n
		return err
	},
		retry.WithMaxRetries(c.Retries),
		retry.WithInitialDelay(c.InitialDelay),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			c.Log.Info("download failed, retrying", "url", url, "attempt", attempt, "delay", delay, "error", err.Error())
		}),
	)
	if err != nil {
		return 0, err
	}
	return written, nil
}

// Bytes returns the body of url.
func (c *Client) Bytes(ctx context.Context, url string) ([]byte, error) {
	var buf bytesBuffer
	if _, err := c.Fetch(ctx, url, &buf, buf.reset); err != nil {
		return nil, err
	}
	return buf.b, nil
}

// ToFile downloads url into path, creating or truncating it.
func (c *Client) ToFile(ctx context.Context, url, path string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	// #nosec G304 - path is derived from configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}

	reset := func() error {
		if err := f.Truncate(0); err != nil {
			return err
		}
		_, err := f.Seek(0, io.SeekStart)
		return err
	}

	n, err := c.Fetch(ctx, url, f, reset)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close %s: %w", path, cerr)
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return n, nil
}

func (c *Client) fetchOnce(ctx context.Context, url string, w io.Writer) (int64, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, retry.Fatal(fmt.Errorf("invalid URL %q: %w", url, err))
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return 0, fmt.Errorf("GET %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{URL: url, StatusCode: resp.StatusCode}
		// client errors will not change on retry
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return 0, retry.Fatal(serr)
		}
		return 0, serr
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("GET %s: reading body: %w", url, err)
	}

	c.Log.V(1).Info("downloaded", "url", url, "size", humanize.Bytes(uint64(n)), "duration", time.Since(start).Round(time.Millisecond))
	return n, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound
}

type bytesBuffer struct {
	b []byte
}

func (b *bytesBuffer) Write(p []byte) (int, error) {
	b.b = append(b.b, p...)
	return len(p), nil
}

func (b *bytesBuffer) reset() error {
	b.b = b.b[:0]
	return nil
}
