// Package httpfetch downloads pages and images over plain HTTP.
package httpfetch

import (
	"fmt"
	"net/http"
	"time"
)

const maxRedirects = 5

// NewClient builds the HTTP client shared by the page extractor and the
// image fetcher.
func NewClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (limit: %d)", maxRedirects)
			}
			return nil
		},
	}
}
