package provider

import (
	"net/http"
	"sync"
	"time"
)

// RateLimitTransport wraps an http.RoundTripper with a request rate limit.
// Responses, including 429s, are passed through unchanged.
type RateLimitTransport struct {
	ReqPerSec float64           // 0 = unlimited
	Base      http.RoundTripper // nil = http.DefaultTransport

	once    sync.Once
	limiter chan struct{}
}

func (t *RateLimitTransport) init() {
	if t.ReqPerSec > 0 {
		t.limiter = make(chan struct{}, 1)
		t.limiter <- struct{}{}
		interval := time.Duration(float64(time.Second) / t.ReqPerSec)
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for range ticker.C {
				select {
				case t.limiter <- struct{}{}:
				default:
				}
			}
		}()
	}
}

func (t *RateLimitTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (t *RateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.once.Do(t.init)

	if t.limiter != nil {
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-t.limiter:
		}
	}
	return t.base().RoundTrip(req)
}

// NewHTTPClient returns a client throttled to reqPerSec with the given
// overall timeout.
func NewHTTPClient(reqPerSec float64, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &RateLimitTransport{ReqPerSec: reqPerSec},
	}
}
