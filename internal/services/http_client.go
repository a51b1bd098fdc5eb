package services

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Browser-like headers the TCGplayer endpoints expect.
const (
	tcgUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	tcgReferer   = "https://infinite.tcgplayer.com/"
	tcgOrigin    = "https://infinite.tcgplayer.com"
)

// HTTPOptions configures the outbound client shared by the TCGplayer collaborators.
type HTTPOptions struct {
	Timeout            time.Duration
	Proxy              *url.URL
	InsecureSkipVerify bool
	RequestsPerSecond  float64
}

func newHTTPClient(opts HTTPOptions) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != nil {
		transport.Proxy = http.ProxyURL(opts.Proxy)
	}
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// newLimiter returns a fixed-rate limiter; zero or negative means unlimited.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

func setTCGHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", tcgUserAgent)
	req.Header.Set("Referer", tcgReferer)
	req.Header.Set("Origin", tcgOrigin)
}

// classifyTransportError wraps client.Do failures as transient.
func classifyTransportError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransientFetch, err)
}
