// Package fetcher performs HTTP requests against the giveaway host, retrying
// until they succeed, and single-shot requests against third-party APIs.
package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"autoenter/internal/clock"
)

// Retry delays used by Request.
const (
	NetworkRetryDelay   = 1 * time.Second
	ForbiddenRetryDelay = 60 * time.Second
	StatusRetryDelay    = 10 * time.Second
)

const maxBody = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned by Get for a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Fetcher issues requests for the rest of the application.
type Fetcher struct {
	client  HTTPClient
	baseURL string
	cookie  string
	sleep   clock.SleepFunc
	log     *slog.Logger
}

// New creates a Fetcher for the host at baseURL. cookie is sent verbatim as
// the Cookie header on host requests.
func New(client HTTPClient, baseURL, cookie string, log *slog.Logger) *Fetcher {
	return &Fetcher{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		cookie:  cookie,
		sleep:   clock.Sleep,
		log:     log,
	}
}

// SetSleep overrides how the fetcher waits between retries.
func (f *Fetcher) SetSleep(fn clock.SleepFunc) {
	f.sleep = fn
}

// Request sends a request to path on the host and returns the body of the
// first successful response. Network failures are retried after one second,
// 403 responses after a minute and other failing statuses after ten seconds,
// for as long as it takes. It only fails when ctx ends.
func (f *Fetcher) Request(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	url := f.baseURL + path
	for attempt := 1; ; attempt++ {
		data, status, err := f.attempt(ctx, method, url, body)
		if err == nil && status >= 200 && status < 300 {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		delay := StatusRetryDelay
		switch {
		case err != nil:
			delay = NetworkRetryDelay
			f.log.Debug("request failed, retrying", "path", path, "attempt", attempt, "error", err)
		case status == http.StatusForbidden:
			delay = ForbiddenRetryDelay
			f.log.Warn("request forbidden, backing off", "path", path, "attempt", attempt, "delay", delay)
		default:
			f.log.Debug("request returned error status, retrying", "path", path, "status", status, "attempt", attempt)
		}

		if err := f.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (f *Fetcher) attempt(ctx context.Context, method, url string, body []byte) ([]byte, int, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "autoenter/1.0")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return data, resp.StatusCode, nil
}

// Get performs a single GET against an absolute URL without retrying.
// Transport failures and non-2xx statuses are returned as errors.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "autoenter/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: redact(url), StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// redact drops the query string so API keys stay out of logs.
func redact(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}
