// Package httputil provides HTTP client construction with shared
// transport settings.
package httputil

import (
	"net/http"
	"time"
)

const (
	defaultTimeout = 30 * time.Second

	maxIdleConns        = 20
	maxIdleConnsPerHost = 4
	idleConnTimeout     = 60 * time.Second
)

// NewHTTPClient creates an HTTP client with the given timeout and a
// pooled transport. A timeout of 0 means no client-level timeout; the
// caller is expected to bound requests with a context instead.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        maxIdleConns,
			MaxIdleConnsPerHost: maxIdleConnsPerHost,
			IdleConnTimeout:     idleConnTimeout,
		},
	}
}

// NewDefaultHTTPClient creates an HTTP client with the default timeout.
func NewDefaultHTTPClient() *http.Client {
	return NewHTTPClient(defaultTimeout)
}
