// Package camera talks to the dashcam's built-in HTTP server.
package camera

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	listingPath = "blackvue_vod.cgi"
	recordPath  = "Record"

	defaultListTimeout     = 10 * time.Second
	defaultDownloadTimeout = 30 * time.Minute
)

// Progress describes how much of a file has been transferred
type Progress struct {
	Transferred int64
	Total       int64
}

// Percent returns the completion percentage, or -1 when the total is unknown
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return -1
	}
	return int(p.Transferred * 100 / p.Total)
}

// ProgressFunc is called synchronously after every chunk written to disk
type ProgressFunc func(p Progress)

// Client is a dashcam HTTP client
type Client struct {
	listClient     *http.Client
	downloadClient *http.Client
}

// NewClient creates a new camera client. Zero timeouts select the defaults.
func NewClient(listTimeout, downloadTimeout time.Duration) *Client {
	if listTimeout <= 0 {
		listTimeout = defaultListTimeout
	}
	if downloadTimeout <= 0 {
		downloadTimeout = defaultDownloadTimeout
	}
	return &Client{
		listClient:     &http.Client{Timeout: listTimeout},
		downloadClient: &http.Client{Timeout: downloadTimeout},
	}
}

// ListingURL returns the URL of the listing endpoint of the camera at address
func ListingURL(address string) string {
	return fmt.Sprintf("http://%s/%s", address, listingPath)
}

// FileURL returns the URL of a recorded file on the camera at address
func FileURL(address, filename string) string {
	return fmt.Sprintf("http://%s/%s/%s", address, recordPath, filename)
}

// Listing fetches the raw file listing body
func (c *Client) Listing(ctx context.Context, address string) (string, error) {
	url := ListingURL(address)

	resp, err := c.get(ctx, c.listClient, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wrap(url, fmt.Errorf("failed to read response: %w", err))
	}

	return string(body), nil
}

// Fetch streams a recorded file into dst and returns the number of bytes written.
// dst may hold a partial file when an error is returned.
func (c *Client) Fetch(ctx context.Context, address, filename, dst string, progress ProgressFunc) (int64, error) {
	url := FileURL(address, filename)

	resp, err := c.get(ctx, c.downloadClient, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	f, err := os.Create(dst)
	if err != nil {
		return 0, &Error{Kind: KindPath, URL: url, Err: fmt.Errorf("failed to create file: %w", err)}
	}

	w := &progressWriter{w: f, total: resp.ContentLength, fn: progress}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		f.Close()
		return n, wrap(url, fmt.Errorf("failed to copy file content: %w", err))
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return n, &Error{Kind: KindPath, URL: url, Err: fmt.Errorf("failed to sync file: %w", err)}
	}
	if err := f.Close(); err != nil {
		return n, &Error{Kind: KindPath, URL: url, Err: fmt.Errorf("failed to close file: %w", err)}
	}

	return n, nil
}

func (c *Client) get(ctx context.Context, hc *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: KindOther, URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, wrap(url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &Error{
			Kind:       KindHTTP,
			StatusCode: resp.StatusCode,
			URL:        url,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	return resp, nil
}

type progressWriter struct {
	w       io.Writer
	written int64
	total   int64
	fn      ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.fn != nil && n > 0 {
		p.fn(Progress{Transferred: p.written, Total: p.total})
	}
	return n, err
}
