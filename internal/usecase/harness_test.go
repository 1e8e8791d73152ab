package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/user/image-scraper-service/internal/adapter/httpfetch"
	"github.com/user/image-scraper-service/internal/adapter/memory"
	"github.com/user/image-scraper-service/internal/entity"
	"github.com/user/image-scraper-service/internal/repository"
	"github.com/user/image-scraper-service/internal/testutil"
)

// site serves a page whose <img> list can be changed between scrapes, plus
// the images it references.
type site struct {
	srv     *httptest.Server
	mu      sync.Mutex
	srcs    []string
	assets  map[string][]byte
	fetches atomic.Int64
}

func newSite(t *testing.T) *site {
	t.Helper()
	s := &site{assets: make(map[string][]byte)}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *site) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.URL.Path == "/" || r.URL.Path == "" {
		var b strings.Builder
		b.WriteString("<html><body>")
		for _, src := range s.srcs {
			fmt.Fprintf(&b, `<img src="%s">`, src)
		}
		b.WriteString("</body></html>")
		w.Write([]byte(b.String()))
		return
	}

	s.fetches.Add(1)
	data, ok := s.assets[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Write(data)
}

func (s *site) setPage(srcs ...string) {
	s.mu.Lock()
	s.srcs = srcs
	s.mu.Unlock()
}

func (s *site) addAsset(path string, data []byte) {
	s.mu.Lock()
	s.assets[path] = data
	s.mu.Unlock()
}

func (s *site) URL() string { return s.srv.URL }

// failingBlobs wraps a memory blob store and fails Put or Delete on demand.
type failingBlobs struct {
	*memory.BlobStoreImpl
	failPut    atomic.Bool
	failDelete atomic.Bool
}

func (f *failingBlobs) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if f.failPut.Load() {
		return errors.New("blob store unavailable")
	}
	return f.BlobStoreImpl.Put(ctx, key, data, contentType)
}

func (f *failingBlobs) Delete(ctx context.Context, key string) error {
	if f.failDelete.Load() {
		return errors.New("blob store unavailable")
	}
	return f.BlobStoreImpl.Delete(ctx, key)
}

type harness struct {
	addresses *memory.AddressRepoImpl
	images    *memory.ImageRepoImpl
	blobs     *failingBlobs
	cache     *memory.DedupCacheImpl
	store     ImageStore
	extractor repository.PageExtractor
	fetcher   repository.ImageFetcher
	scraper   Scraper
	service   ImageService
	syncer    Syncer
}

func newHarness(t *testing.T, opts ScraperOptions) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)

	db := memory.NewStore()
	h := &harness{
		addresses: memory.NewAddressRepo(db),
		images:    memory.NewImageRepo(db),
		blobs:     &failingBlobs{BlobStoreImpl: memory.NewBlobStore()},
		cache:     memory.NewDedupCache(),
	}
	h.store = NewImageStore(h.images, h.blobs, logger)

	client := httpfetch.NewClient(5 * time.Second)
	h.extractor = httpfetch.NewPageExtractor(client, 5*time.Second, "test", logger)
	h.fetcher = httpfetch.NewImageFetcher(client, 5*time.Second, 1<<20, 1<<24, "test")
	h.scraper = h.scraperWith(t, h.extractor, opts)

	svc, err := NewImageService(h.addresses, h.images, h.blobs, h.cache, h.store, 16, logger)
	require.NoError(t, err)
	h.service = svc
	h.syncer = NewSyncer(h.addresses, h.scraper, logger)
	return h
}

// scraperWith builds a scraper over the harness stores that reads pages
// through extractor.
func (h *harness) scraperWith(t *testing.T, extractor repository.PageExtractor, opts ScraperOptions) Scraper {
	if opts.Workers == 0 {
		opts.Workers = 3
	}
	return NewScraper(h.addresses, h.images, h.cache, extractor, h.fetcher, h.store,
		memory.NewKeyedLocker(), zaptest.NewLogger(t), opts)
}

// stockSite returns a site with five images, one of each supported fixture.
func stockSite(t *testing.T) *site {
	s := newSite(t)
	s.addAsset("/1.png", testutil.PNG(t, 40, 20))
	s.addAsset("/2.jpg", testutil.JPEG(t, 30, 30))
	s.addAsset("/3.gif", testutil.GIF(t, 10, 10))
	s.addAsset("/4.png", testutil.TransparentPNG(t, 8, 16))
	s.addAsset("/5.png", testutil.PNG(t, 100, 50))
	return s
}

func idsOf(images []*entity.Image) []int64 {
	out := make([]int64, len(images))
	for i, img := range images {
		out[i] = img.ID
	}
	return out
}
