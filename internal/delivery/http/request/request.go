package request

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/user/image-scraper-service/internal/imaging"
	"github.com/user/image-scraper-service/internal/usecase"
)

// URLRequest is the body of every endpoint that takes a page or image URL.
type URLRequest struct {
	URL string `json:"url"`
}

// sizeKeywords maps named sizes to pixel bounds.
var sizeKeywords = map[string]int{
	"small":  256,
	"medium": 1024,
	"large":  2048,
}

// ParseRenderOptions reads width, height, format and quality from a query
// string. Unparseable values are ignored and fall back to their defaults.
func ParseRenderOptions(q url.Values) usecase.RenderOptions {
	return usecase.RenderOptions{
		Width:   parseSize(q.Get("width")),
		Height:  parseSize(q.Get("height")),
		Format:  strings.ToLower(strings.TrimSpace(q.Get("format"))),
		Quality: parseQuality(q.Get("quality")),
	}
}

func parseSize(raw string) *int {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if v, ok := sizeKeywords[raw]; ok {
		return &v
	}
	if !isDigits(raw) {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}

func parseQuality(raw string) int {
	raw = strings.TrimSpace(raw)
	if !isDigits(raw) {
		return imaging.DefaultQuality
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 || v > 100 {
		return imaging.DefaultQuality
	}
	return v
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
