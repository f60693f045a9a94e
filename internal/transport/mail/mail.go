// Package mail relays contact form submissions to hosted form services.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paperfinder/paperfinder/internal/domain"
	"github.com/paperfinder/paperfinder/internal/metrics"
)

const defaultTimeout = 15 * time.Second

// postJSON sends body to url and maps failures onto domain.ErrUpstream.
func postJSON(ctx context.Context, client *http.Client, service, url string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", service, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", service, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	err = send(client, service, req)
	metrics.ObserveUpstream(service, time.Since(start).Seconds(), err)
	return err
}

func send(client *http.Client, service string, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues(service, "transport").Inc()
		return fmt.Errorf("%s request: %w: %w", service, domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamErrorsTotal.WithLabelValues(service, "status").Inc()
		return domain.NewUpstreamError(service, resp.StatusCode, string(bytes.TrimSpace(data)))
	}
	return nil
}
