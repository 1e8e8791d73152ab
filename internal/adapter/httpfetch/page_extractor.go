package httpfetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/user/image-scraper-service/internal/repository"
)

// PageExtractor implements repository.PageExtractor with a single GET and goquery.
type PageExtractor struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    *zap.Logger
}

// NewPageExtractor creates a PageExtractor. Each Extract call is bounded by timeout.
func NewPageExtractor(client *http.Client, timeout time.Duration, userAgent string, logger *zap.Logger) *PageExtractor {
	return &PageExtractor{client: client, timeout: timeout, userAgent: userAgent, logger: logger}
}

// Extract returns the src attribute of every <img> element in document order.
// The body is parsed whatever the response status; only a failed request is
// reported as ErrPageUnreachable.
func (e *PageExtractor) Extract(ctx context.Context, pageURL string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", repository.ErrPageUnreachable, pageURL, err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", repository.ErrPageUnreachable, pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		e.logger.Warn("page returned error status, parsing body anyway",
			zap.String("url", pageURL), zap.Int("status", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", repository.ErrPageUnreachable, pageURL, err)
	}
	return ExtractImageSources(doc), nil
}

// ExtractImageSources collects non-empty <img src> values from doc.
func ExtractImageSources(doc *goquery.Document) []string {
	sources := []string{}
	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok {
			return
		}
		if src = strings.TrimSpace(src); src != "" {
			sources = append(sources, src)
		}
	})
	return sources
}
