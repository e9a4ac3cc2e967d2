// Package linkcheck probes article urls before they are put into a report.
package linkcheck

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"IDCIntel/internal/ports"
)

const userAgent = "Mozilla/5.0 (compatible; IDCIntel/1.0)"

// Checker issues HEAD requests and falls back to GET when HEAD is refused.
type Checker struct {
	client *http.Client
}

var _ ports.LinkChecker = (*Checker)(nil)

// New builds a checker with the given per-request timeout.
func New(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Checker{client: &http.Client{Timeout: timeout}}
}

// Check reports whether url answers with 2xx or 3xx. Transport errors are
// returned so the caller can tell "dead" apart from "unreachable right now".
func (c *Checker) Check(ctx context.Context, url string) (bool, error) {
	status, err := c.do(ctx, http.MethodHead, url)
	if err != nil {
		return false, err
	}
	if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
		status, err = c.do(ctx, http.MethodGet, url)
		if err != nil {
			return false, err
		}
	}
	return status >= 200 && status < 400, nil
}

func (c *Checker) do(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "linkcheck: build %s request", method)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, eris.Wrapf(err, "linkcheck: %s %s", method, url)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, nil
}
