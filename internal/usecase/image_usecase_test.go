package usecase

import (
	"bytes"
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/image-scraper-service/internal/entity"
	"github.com/user/image-scraper-service/internal/imaging"
	"github.com/user/image-scraper-service/internal/repository"
)

func intPtr(v int) *int { return &v }

// scrapeOne stores a single 100x50 PNG and returns its record.
func scrapeOne(t *testing.T, h *harness) (*site, *entity.Image) {
	t.Helper()
	s := stockSite(t)
	s.setPage("/5.png")
	images, err := h.scraper.ScrapeIncremental(context.Background(), s.URL())
	require.NoError(t, err)
	require.Len(t, images, 1)
	return s, images[0]
}

func decodeConfig(t *testing.T, data []byte) (image.Config, string) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg, format
}

func TestRender_Resize(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	_, img := scrapeOne(t, h)
	ctx := context.Background()

	tests := []struct {
		name          string
		opts          RenderOptions
		width, height int
	}{
		{"no options", RenderOptions{}, 100, 50},
		{"width wins", RenderOptions{Width: intPtr(30), Height: intPtr(10)}, 30, 15},
		{"odd width floors", RenderOptions{Width: intPtr(33)}, 33, 16},
		{"height only", RenderOptions{Height: intPtr(20)}, 40, 20},
		{"width not smaller falls to height", RenderOptions{Width: intPtr(500), Height: intPtr(25)}, 50, 25},
		{"no upscale", RenderOptions{Width: intPtr(100), Height: intPtr(200)}, 100, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.service.Render(ctx, img.ID, tt.opts)
			require.NoError(t, err)

			cfg, format := decodeConfig(t, out.Data)
			assert.Equal(t, "png", format)
			assert.Equal(t, "image/png", out.ContentType)
			assert.Equal(t, tt.width, cfg.Width)
			assert.Equal(t, tt.height, cfg.Height)
		})
	}
}

func TestRender_Format(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	_, img := scrapeOne(t, h)
	ctx := context.Background()

	out, err := h.service.Render(ctx, img.ID, RenderOptions{Format: "JPEG", Quality: 40})
	require.NoError(t, err)
	_, format := decodeConfig(t, out.Data)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, "image/jpeg", out.ContentType)

	out, err = h.service.Render(ctx, img.ID, RenderOptions{Format: "svg"})
	require.NoError(t, err)
	assert.Equal(t, "image/png", out.ContentType)

	low, err := h.service.Render(ctx, img.ID, RenderOptions{Format: "jpeg", Quality: 1})
	require.NoError(t, err)
	high, err := h.service.Render(ctx, img.ID, RenderOptions{Format: "jpeg"})
	require.NoError(t, err)
	assert.Less(t, len(low.Data), len(high.Data))
}

func TestRender_DefaultsToStoredFormat(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	s := stockSite(t)
	s.setPage("/2.jpg")
	images, err := h.scraper.ScrapeIncremental(context.Background(), s.URL())
	require.NoError(t, err)
	require.Len(t, images, 1)
	require.Equal(t, "JPEG", images[0].Format)

	out, err := h.service.Render(context.Background(), images[0].ID, RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", out.ContentType)
	_, format := decodeConfig(t, out.Data)
	assert.Equal(t, "jpeg", format)
}

func TestRender_CachedVariantIsReused(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	_, img := scrapeOne(t, h)
	ctx := context.Background()

	first, err := h.service.Render(ctx, img.ID, RenderOptions{Width: intPtr(10)})
	require.NoError(t, err)

	// Remove the blob behind the service's back: a cached variant is still served.
	require.NoError(t, h.blobs.BlobStoreImpl.Delete(ctx, img.BlobKey))
	second, err := h.service.Render(ctx, img.ID, RenderOptions{Width: intPtr(10)})
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = h.service.Render(ctx, img.ID, RenderOptions{Width: intPtr(11)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRender_UnknownImage(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	_, err := h.service.Render(context.Background(), 42, RenderOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_RemovesBlobAndRecord(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	_, img := scrapeOne(t, h)
	ctx := context.Background()

	_, err := h.service.Render(ctx, img.ID, RenderOptions{})
	require.NoError(t, err)

	require.NoError(t, h.service.Delete(ctx, img.ID))

	_, err = h.blobs.Get(ctx, img.BlobKey)
	assert.ErrorIs(t, err, repository.ErrBlobNotFound)
	_, err = h.service.Get(ctx, img.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = h.service.Render(ctx, img.ID, RenderOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, h.service.Delete(ctx, img.ID), ErrNotFound)
	assert.Zero(t, h.service.(*imageUseCase).renders.Len())

	// The store itself tolerates a second delete of the same record.
	assert.NoError(t, h.store.Delete(ctx, img))
}

func TestDelete_BlobFailureStillRemovesRecord(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	_, img := scrapeOne(t, h)
	ctx := context.Background()
	h.blobs.failDelete.Store(true)

	require.NoError(t, h.service.Delete(ctx, img.ID))
	_, err := h.service.Get(ctx, img.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueries(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	s, img := scrapeOne(t, h)
	ctx := context.Background()

	byParent, err := h.service.QueryByParentURL(ctx, s.URL()+"///")
	require.NoError(t, err)
	assert.Equal(t, []int64{img.ID}, idsOf(byParent))

	byOrig, err := h.service.QueryByOriginalImageURL(ctx, s.URL()+"/5.png")
	require.NoError(t, err)
	assert.Equal(t, []int64{img.ID}, idsOf(byOrig))

	none, err := h.service.QueryByParentURL(ctx, "https://unknown.example.com")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteAddress_OrphansImagesAndResetsDedup(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	s, img := scrapeOne(t, h)
	ctx := context.Background()

	require.NotNil(t, img.ParentID)
	require.NoError(t, h.service.DeleteAddress(ctx, *img.ParentID))
	assert.ErrorIs(t, h.service.DeleteAddress(ctx, *img.ParentID), ErrNotFound)

	orphan, err := h.service.Get(ctx, img.ID)
	require.NoError(t, err)
	assert.Nil(t, orphan.ParentID)

	cached, err := h.cache.Get(ctx, s.URL())
	require.NoError(t, err)
	assert.Empty(t, cached)

	again, err := h.scraper.ScrapeIncremental(ctx, s.URL())
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.NotEqual(t, img.ID, again[0].ID)
}

func TestImageStore_PersistUnencodableKeepsRawBytes(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	ctx := context.Background()
	addr, err := h.addresses.GetOrCreate(ctx, "https://a.com")
	require.NoError(t, err)

	decoded := &imaging.Decoded{
		Image:  image.NewRGBA(image.Rect(0, 0, 4, 2)),
		Format: "WEBP",
		Mode:   "RGBA",
		Raw:    []byte("RIFF....WEBP"),
	}
	img, err := h.store.Persist(ctx, decoded, "https://a.com/x.webp", addr)
	require.NoError(t, err)
	assert.Regexp(t, `^a\.com/[0-9a-f]{32}\.webp$`, img.BlobKey)

	data, err := h.blobs.Get(ctx, img.BlobKey)
	require.NoError(t, err)
	assert.Equal(t, decoded.Raw, data)
}

func TestSyncAll(t *testing.T) {
	h := newHarness(t, ScraperOptions{})
	a := stockSite(t)
	b := stockSite(t)
	a.setPage("/1.png")
	b.setPage("/2.jpg")
	ctx := context.Background()

	_, err := h.scraper.ScrapeIncremental(ctx, a.URL())
	require.NoError(t, err)
	_, err = h.scraper.ScrapeIncremental(ctx, b.URL())
	require.NoError(t, err)

	a.setPage("/1.png", "/3.gif")
	b.srv.Close()

	synced, err := h.syncer.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	images, err := h.service.QueryByParentURL(ctx, a.URL())
	require.NoError(t, err)
	assert.Len(t, images, 2)
}
