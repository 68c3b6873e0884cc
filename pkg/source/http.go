package source

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPFetcher はベースURL配下からフレームを取得する
type HTTPFetcher struct {
	base   *url.URL
	client *http.Client
	log    *slog.Logger
}

// HTTPOption は HTTPFetcher のオプションを設定する関数型
type HTTPOption func(*HTTPFetcher)

// WithHTTPClient はHTTPクライアントを設定する
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(h *HTTPFetcher) {
		h.client = client
	}
}

// WithHTTPLogger はロガーを設定する
func WithHTTPLogger(log *slog.Logger) HTTPOption {
	return func(h *HTTPFetcher) {
		h.log = log
	}
}

// NewHTTPFetcher は新しいHTTPFetcherを作成する
func NewHTTPFetcher(baseURL string, opts ...HTTPOption) (*HTTPFetcher, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	h := &HTTPFetcher{
		base:   base,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// URL はnameに対応するURLを返す
func (h *HTTPFetcher) URL(name string) string {
	return h.base.ResolveReference(&url.URL{Path: strings.TrimPrefix(name, "/")}).String()
}

// Fetch はフレームをGETしてデコードする
func (h *HTTPFetcher) Fetch(ctx context.Context, name string) (image.Image, error) {
	target := h.URL(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrFrameNotFound, target)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %s", target, resp.Status)
	}

	img, format, err := Decode(resp.Body)
	if err != nil {
		return nil, err
	}
	h.log.Debug("HTTPFetcher: decoded frame", "url", target, "format", format)
	return img, nil
}
