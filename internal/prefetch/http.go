package prefetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// primeBytes bounds how much of a video asset the primer pulls. Enough for
// container headers plus the first decode buffer.
const primeBytes = 256 * 1024

// HTTPFetcher warms assets over plain HTTP. Warming an image pulls the full
// body so intermediary caches hold it; priming a video issues a bounded Range
// request so the CDN has the leading segment hot without downloading the file.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{}}
}

var _ Fetcher = (*HTTPFetcher)(nil)

func (f *HTTPFetcher) WarmImage(ctx context.Context, mediaURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("warm request returned status %d", resp.StatusCode)
	}

	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

func (f *HTTPFetcher) PrimeVideo(ctx context.Context, mediaURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", primeBytes-1))

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 200 means the origin ignored the Range header; cap the read either way.
	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("prime request returned status %d", resp.StatusCode)
	}

	_, err = io.Copy(io.Discard, io.LimitReader(resp.Body, primeBytes))
	return err
}
