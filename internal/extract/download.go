package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxAttachmentBytes caps attachment downloads at 25 MiB, the
// upper bound for files on the platforms we ingest from.
const DefaultMaxAttachmentBytes = 25 << 20

// Downloader fetches attachment bytes over HTTP.
type Downloader struct {
	client   *http.Client
	maxBytes int64
}

func NewDownloader(timeout time.Duration) *Downloader {
	return &Downloader{
		client:   &http.Client{Timeout: timeout},
		maxBytes: DefaultMaxAttachmentBytes,
	}
}

// Fetch downloads the resource at url, rejecting bodies over the size
// cap. CDN attachment URLs expire, so callers should archive what they
// fetch if they ever need to replay.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching attachment: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading attachment body: %w", err)
	}
	if int64(len(data)) > d.maxBytes {
		return nil, fmt.Errorf("attachment exceeds %d byte limit", d.maxBytes)
	}
	return data, nil
}
