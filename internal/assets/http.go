package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// HTTPFetcher GETs BaseURL/path+Ext. Server errors and transport failures are
// retried until the context expires or MaxTries is reached.
type HTTPFetcher struct {
	BaseURL  string
	Ext      string
	Client   *http.Client
	MaxTries uint
	Backoff  time.Duration // initial retry interval
}

func NewHTTPFetcher(baseURL, ext string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		Ext:      ext,
		Client:   http.DefaultClient,
		MaxTries: 3,
		Backoff:  200 * time.Millisecond,
	}
}

func (h *HTTPFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	url := h.BaseURL + "/" + strings.TrimPrefix(path, "/") + h.Ext

	b := backoff.NewExponentialBackOff()
	if h.Backoff > 0 {
		b.InitialInterval = h.Backoff
	}
	return backoff.Retry(ctx, func() ([]byte, error) {
		return h.get(ctx, url)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(max(h.MaxTries, 1)))
}

func (h *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrNotFound, url))
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, backoff.Permanent(fmt.Errorf("GET %s: %s", url, resp.Status))
	}
	return io.ReadAll(resp.Body)
}
