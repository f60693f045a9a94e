// Package assets loads question and answer images from the static site or a
// local copy of it.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/paperfinder/paperfinder/internal/domain"
	"github.com/paperfinder/paperfinder/internal/metrics"
)

const (
	service = "assets"

	// MaxAssetBytes bounds a single downloaded image.
	MaxAssetBytes = 20 << 20
)

// Config selects the asset source. Dir wins over BaseURL.
type Config struct {
	BaseURL string
	Dir     string
	Timeout time.Duration
}

// Fetcher reads assets by site path, e.g. "/edexcel-gcse-maths-questions/x.png".
type Fetcher struct {
	baseURL string
	fsys    fs.FS
	http    *http.Client
}

// New creates a fetcher.
func New(cfg Config) *Fetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	f := &Fetcher{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	if cfg.Dir != "" {
		f.fsys = os.DirFS(cfg.Dir)
	}
	return f
}

// NewFS creates a fetcher over an in-process filesystem.
func NewFS(fsys fs.FS) *Fetcher {
	return &Fetcher{fsys: fsys}
}

// Fetch returns the asset bytes. Missing assets wrap domain.ErrNotFound.
func (f *Fetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	if f.fsys != nil {
		return f.readFile(path)
	}
	if f.baseURL == "" {
		return nil, fmt.Errorf("asset source: %w", domain.ErrNotConfigured)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build asset request: %w", err)
	}
	start := time.Now()
	data, err := f.get(req, path)
	metrics.ObserveUpstream(service, time.Since(start).Seconds(), err)
	return data, err
}

func (f *Fetcher) readFile(path string) ([]byte, error) {
	data, err := fs.ReadFile(f.fsys, strings.TrimPrefix(path, "/"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("asset %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", path, err)
	}
	return data, nil
}

func (f *Fetcher) get(req *http.Request, path string) ([]byte, error) {
	resp, err := f.http.Do(req)
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues(service, "transport").Inc()
		return nil, fmt.Errorf("fetch asset %s: %w: %w", path, domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("asset %s: %w", path, domain.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		metrics.UpstreamErrorsTotal.WithLabelValues(service, "status").Inc()
		return nil, domain.NewUpstreamError(service, resp.StatusCode, path)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxAssetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w: %w", path, domain.ErrUpstream, err)
	}
	if len(data) > MaxAssetBytes {
		return nil, fmt.Errorf("%w: asset %s exceeds %d bytes", domain.ErrInvalidInput, path, MaxAssetBytes)
	}
	return data, nil
}
