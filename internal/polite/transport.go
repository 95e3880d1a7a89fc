// Package polite wraps outgoing provider traffic with the courtesy
// rules third-party sources expect: robots.txt compliance, token-bucket
// rate limiting, and randomized spacing between calls.
package polite

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// Transport is an http.RoundTripper applying the courtesy pipeline in
// order: UserAgent → robots check → rate limiter → jitter → send.
type Transport struct {
	Base      http.RoundTripper
	Robots    *RobotsChecker
	Limiter   *rate.Limiter
	Jitter    *Jitter
	UserAgent string
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}

	if t.Robots != nil {
		allowed, err := t.Robots.IsAllowed(req.Header.Get("User-Agent"), req.URL.String())
		if err == nil && !allowed {
			return nil, fmt.Errorf("blocked by robots.txt: %s", req.URL.Path)
		}
	}

	if t.Limiter != nil {
		if err := t.Limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	if t.Jitter != nil {
		if err := t.Jitter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("jitter: %w", err)
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
