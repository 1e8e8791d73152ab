package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/user/image-scraper-service/internal/adapter/httpfetch"
	"github.com/user/image-scraper-service/internal/repository"
	"github.com/user/image-scraper-service/internal/testutil"
	"github.com/user/image-scraper-service/pkg/utils"
)

func TestScrapeIncremental_InvalidURL(t *testing.T) {
	h := newHarness(t, ScraperOptions{})

	for _, raw := range []string{"sttps://a.b.c", "example.com", ""} {
		_, err := h.scraper.ScrapeIncremental(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
	}

	list, err := h.addresses.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestScrapeIncremental_UnreachablePageIsInvalidURL(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	_, err := h.scraper.ScrapeIncremental(context.Background(), url)
	assert.ErrorIs(t, err, ErrInvalidURL)
	assert.ErrorIs(t, err, repository.ErrPageUnreachable)
}

func TestScrapeIncremental_RepeatIsStable(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	s := stockSite(t)
	s.setPage("/1.png", "2.jpg", "/3.gif")
	ctx := context.Background()

	first, err := h.scraper.ScrapeIncremental(ctx, s.URL())
	require.NoError(t, err)
	require.Len(t, first, 3)
	fetches := s.fetches.Load()

	second, err := h.scraper.ScrapeIncremental(ctx, s.URL()+"//")
	require.NoError(t, err)
	assert.Equal(t, idsOf(first), idsOf(second))
	assert.Equal(t, fetches, s.fetches.Load(), "known references must not be fetched again")
	assert.Equal(t, 3, h.blobs.Len())
}

func TestScrapeIncremental_OnlyNewReferencesStored(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	s := stockSite(t)
	ctx := context.Background()

	s.setPage("/1.png", "/2.jpg")
	before, err := h.scraper.ScrapeIncremental(ctx, s.URL())
	require.NoError(t, err)
	require.Len(t, before, 2)

	s.setPage("/1.png", "/2.jpg", "/3.gif", "/5.png")
	after, err := h.scraper.ScrapeIncremental(ctx, s.URL())
	require.NoError(t, err)
	require.Len(t, after, 4)

	for i, img := range before {
		assert.Equal(t, img.ID, after[i].ID)
		assert.Equal(t, img.Name, after[i].Name)
		assert.Equal(t, img.BlobKey, after[i].BlobKey)
	}
	assert.Equal(t, s.URL()+"/3.gif", after[2].OriginalURL)
	assert.Equal(t, s.URL()+"/5.png", after[3].OriginalURL)

	cached, err := h.cache.Get(ctx, s.URL())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		s.URL() + "/1.png", s.URL() + "/2.jpg", s.URL() + "/3.gif", s.URL() + "/5.png",
	}, cached)
}

func TestScrapeIncremental_UnreachableImageIsSkipped(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	s := stockSite(t)
	s.setPage("/1.png", "/2.jpg", "/missing.png", "/3.gif", "/4.png")

	images, err := h.scraper.ScrapeIncremental(context.Background(), s.URL())
	require.NoError(t, err)
	assert.Len(t, images, 4)
}

func TestScrapeIncremental_NonImageAndDuplicatesSkipped(t *testing.T) {
	h := newHarness(t, ScraperOptions{Workers: 1})
	s := stockSite(t)
	s.addAsset("/pixel", []byte("GIF89 but not really"))
	s.setPage("/1.png", "1.png", "/pixel", "data:image/png;base64,AAAA")

	images, err := h.scraper.ScrapeIncremental(context.Background(), s.URL())
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, s.URL()+"/1.png", images[0].OriginalURL)
}

func TestScrapeIncremental_RecordsDecodedMetadata(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	s := newSite(t)
	// JPEG bytes behind a .png name: metadata and extension follow the content.
	s.addAsset("/photo.png", testutil.JPEG(t, 30, 12))
	s.setPage("/photo.png")

	images, err := h.scraper.ScrapeIncremental(context.Background(), s.URL())
	require.NoError(t, err)
	require.Len(t, images, 1)

	img := images[0]
	assert.Equal(t, "JPEG", img.Format)
	assert.Equal(t, "RGB", img.Mode)
	assert.Equal(t, 30, img.Width)
	assert.Equal(t, 12, img.Height)
	assert.True(t, strings.HasSuffix(img.Name, ".jpeg"), img.Name)
	assert.GreaterOrEqual(t, len(strings.TrimSuffix(img.Name, ".jpeg")), 32)

	netloc := strings.TrimPrefix(s.URL(), "http://")
	assert.Equal(t, netloc+"/"+img.Name, img.BlobKey)
	require.NotNil(t, img.Parent)
	assert.Equal(t, s.URL(), img.Parent.URL)
}

func TestScrapeDestructive_WipesEveryAddress(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	a := stockSite(t)
	b := stockSite(t)
	a.setPage("/1.png", "/2.jpg")
	b.setPage("/3.gif")
	ctx := context.Background()

	oldA, err := h.scraper.ScrapeIncremental(ctx, a.URL())
	require.NoError(t, err)
	_, err = h.scraper.ScrapeIncremental(ctx, b.URL())
	require.NoError(t, err)

	a.setPage("/1.png", "/2.jpg", "/5.png", "/5.png")
	newA, err := h.scraper.ScrapeDestructive(ctx, a.URL())
	require.NoError(t, err)
	require.Len(t, newA, 3)
	for _, img := range newA {
		assert.NotContains(t, idsOf(oldA), img.ID)
	}

	all, err := h.images.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, idsOf(newA), idsOf(all), "images of unrelated addresses are wiped too")
	assert.Equal(t, 3, h.blobs.Len())

	cached, err := h.cache.Get(ctx, a.URL())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.URL() + "/1.png", a.URL() + "/2.jpg", a.URL() + "/5.png"}, cached)
}

func TestScrapeDestructive_ScopedToAddress(t *testing.T) {
	h := newHarness(t, ScraperOptions{ScopeRestoreToAddress: true})
	a := stockSite(t)
	b := stockSite(t)
	a.setPage("/1.png")
	b.setPage("/3.gif")
	ctx := context.Background()

	_, err := h.scraper.ScrapeIncremental(ctx, a.URL())
	require.NoError(t, err)
	keptB, err := h.scraper.ScrapeIncremental(ctx, b.URL())
	require.NoError(t, err)

	_, err = h.scraper.ScrapeDestructive(ctx, a.URL())
	require.NoError(t, err)

	stillB, err := h.service.QueryByParentURL(ctx, b.URL())
	require.NoError(t, err)
	assert.Equal(t, idsOf(keptB), idsOf(stillB))
}

func TestScrapeIncremental_BlobFailureCreatesNoRecord(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	s := stockSite(t)
	s.setPage("/1.png", "/2.jpg")
	h.blobs.failPut.Store(true)

	images, err := h.scraper.ScrapeIncremental(context.Background(), s.URL())
	require.NoError(t, err)
	assert.Empty(t, images)

	all, err := h.images.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestScrapeIncremental_ConcurrentCallsDoNotDuplicate(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	s := stockSite(t)
	s.setPage("/1.png", "/2.jpg", "/3.gif")
	ctx := context.Background()

	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := h.scraper.ScrapeIncremental(ctx, s.URL())
			errs <- err
		}()
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-errs)
	}

	all, err := h.images.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestIsSkippable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("%w: x", repository.ErrImageFetch), true},
		{fmt.Errorf("%w: x", repository.ErrImageDecode), true},
		{fmt.Errorf("%w: x", ErrStorage), false},
		{errors.New("other"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isSkippable(tt.err), tt.err.Error())
	}

	assert.Equal(t, "decode", skipReason(fmt.Errorf("%w", repository.ErrImageDecode)))
	assert.Equal(t, "storage", skipReason(fmt.Errorf("%w", ErrStorage)))
	assert.Equal(t, "fetch", skipReason(fmt.Errorf("%w", repository.ErrImageFetch)))
}

// cancellingExtractor ends the scrape's context as soon as the page is read.
type cancellingExtractor struct {
	repository.PageExtractor
	cancel context.CancelFunc
}

func (c cancellingExtractor) Extract(ctx context.Context, pageURL string) ([]string, error) {
	refs, err := c.PageExtractor.Extract(ctx, pageURL)
	c.cancel()
	return refs, err
}

func TestScrapeIncremental_CancelledRunKeepsReferencesUnseen(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	s := stockSite(t)
	s.setPage("/1.png", "2.jpg", "/3.gif")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cut := h.scraperWith(t, cancellingExtractor{PageExtractor: h.extractor, cancel: cancel}, ScraperOptions{})

	_, err := cut.ScrapeIncremental(ctx, s.URL())
	require.ErrorIs(t, err, context.Canceled)

	seen, err := h.cache.Get(context.Background(), utils.NormalizeURL(s.URL()))
	require.NoError(t, err)
	assert.Empty(t, seen, "references cut short must not be remembered")

	images, err := h.scraper.ScrapeIncremental(context.Background(), s.URL())
	require.NoError(t, err)
	assert.Len(t, images, 3)
}

func TestScrapeDestructive_CancelledRunKeepsReferencesUnseen(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	s := stockSite(t)
	s.setPage("/1.png", "2.jpg")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cut := h.scraperWith(t, cancellingExtractor{PageExtractor: h.extractor, cancel: cancel}, ScraperOptions{})

	_, err := cut.ScrapeDestructive(ctx, s.URL())
	require.ErrorIs(t, err, context.Canceled)

	images, err := h.scraper.ScrapeIncremental(context.Background(), s.URL())
	require.NoError(t, err)
	assert.Len(t, images, 2)
}

func TestScrapeIncremental_StalledPageIsInvalidURL(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	slow := httpfetch.NewPageExtractor(httpfetch.NewClient(5*time.Second), 100*time.Millisecond, "test", zaptest.NewLogger(t))
	_, err := h.scraperWith(t, slow, ScraperOptions{}).ScrapeIncremental(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrInvalidURL)
	assert.ErrorIs(t, err, repository.ErrPageUnreachable)
}
