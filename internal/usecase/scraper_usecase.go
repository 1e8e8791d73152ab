package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/image-scraper-service/internal/entity"
	"github.com/user/image-scraper-service/internal/repository"
	"github.com/user/image-scraper-service/pkg/metrics"
	"github.com/user/image-scraper-service/pkg/utils"
)

const (
	modeIncremental = "incremental"
	modeDestructive = "destructive"
)

// Scraper fetches a page and persists the images it references.
type Scraper interface {
	// ScrapeIncremental stores only references not seen on earlier scrapes of
	// the same address and returns every image the address owns.
	ScrapeIncremental(ctx context.Context, rawURL string) ([]*entity.Image, error)
	// ScrapeDestructive wipes stored images, re-fetches every reference on the
	// page and resets the address's dedup entry.
	ScrapeDestructive(ctx context.Context, rawURL string) ([]*entity.Image, error)
}

// ScraperOptions tunes the scrape pipeline.
type ScraperOptions struct {
	Workers int
	// ScopeRestoreToAddress limits the destructive wipe to the target address.
	ScopeRestoreToAddress bool
}

type scraperUseCase struct {
	addresses repository.AddressRepository
	images    repository.ImageRepository
	cache     repository.DedupCache
	extractor repository.PageExtractor
	fetcher   repository.ImageFetcher
	store     ImageStore
	locker    repository.Locker
	logger    *zap.Logger
	opts      ScraperOptions
}

// NewScraper creates a new instance of the scraper use case.
func NewScraper(
	addresses repository.AddressRepository,
	images repository.ImageRepository,
	cache repository.DedupCache,
	extractor repository.PageExtractor,
	fetcher repository.ImageFetcher,
	store ImageStore,
	locker repository.Locker,
	logger *zap.Logger,
	opts ScraperOptions,
) Scraper {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &scraperUseCase{
		addresses: addresses,
		images:    images,
		cache:     cache,
		extractor: extractor,
		fetcher:   fetcher,
		store:     store,
		locker:    locker,
		logger:    logger,
		opts:      opts,
	}
}

func (uc *scraperUseCase) ScrapeIncremental(ctx context.Context, rawURL string) ([]*entity.Image, error) {
	return uc.run(ctx, modeIncremental, rawURL, uc.incremental)
}

func (uc *scraperUseCase) ScrapeDestructive(ctx context.Context, rawURL string) ([]*entity.Image, error) {
	return uc.run(ctx, modeDestructive, rawURL, uc.destructive)
}

// run validates rawURL, resolves its address and executes step while holding
// the address lock.
func (uc *scraperUseCase) run(ctx context.Context, mode, rawURL string, step func(context.Context, *entity.Address) error) (images []*entity.Image, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		metrics.ScrapesTotal.WithLabelValues(mode, status).Inc()
		metrics.ScrapeDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}()

	if !utils.IsValidURL(rawURL) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	addr, err := uc.addresses.GetOrCreate(ctx, utils.NormalizeURL(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	release, err := uc.locker.Acquire(ctx, addr.URL)
	if err != nil {
		return nil, fmt.Errorf("lock address %s: %w", addr.URL, err)
	}
	defer release()

	if err := step(ctx, addr); err != nil {
		return nil, err
	}

	images, err = uc.images.FindByParentID(ctx, addr.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: list images of %s: %w", ErrStorage, addr.URL, err)
	}

	uc.logger.Info("scrape finished",
		zap.String("mode", mode),
		zap.String("url", addr.URL),
		zap.Int("images", len(images)),
		zap.Duration("duration", time.Since(start)))
	return images, nil
}

func (uc *scraperUseCase) incremental(ctx context.Context, addr *entity.Address) error {
	refs, err := uc.references(ctx, addr)
	if err != nil {
		return err
	}

	previous, err := uc.cache.Get(ctx, addr.URL)
	if err != nil {
		return fmt.Errorf("%w: read dedup entry for %s: %w", ErrStorage, addr.URL, err)
	}
	seen := make(map[string]struct{}, len(previous))
	for _, ref := range previous {
		seen[ref] = struct{}{}
	}

	var newRefs []string
	for _, ref := range refs {
		if _, ok := seen[ref]; !ok {
			newRefs = append(newRefs, ref)
		}
	}

	settled := uc.persistAll(ctx, addr, newRefs)

	if err := uc.cache.Set(context.WithoutCancel(ctx), addr.URL, append(previous, settled...)); err != nil {
		return fmt.Errorf("%w: write dedup entry for %s: %w", ErrStorage, addr.URL, err)
	}
	return interrupted(ctx, addr)
}

func (uc *scraperUseCase) destructive(ctx context.Context, addr *entity.Address) error {
	if err := uc.wipe(ctx, addr); err != nil {
		return err
	}

	refs, err := uc.references(ctx, addr)
	if err != nil {
		return err
	}

	settled := uc.persistAll(ctx, addr, refs)

	if err := uc.cache.Set(context.WithoutCancel(ctx), addr.URL, settled); err != nil {
		return fmt.Errorf("%w: write dedup entry for %s: %w", ErrStorage, addr.URL, err)
	}
	return interrupted(ctx, addr)
}

// interrupted reports a scrape whose context ended before every reference
// was handled. The references it did not reach stay out of the dedup entry.
func interrupted(ctx context.Context, addr *entity.Address) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("scrape of %s interrupted: %w", addr.URL, err)
	}
	return nil
}

// wipe deletes every stored image, or only the address's images when the
// restore is scoped.
func (uc *scraperUseCase) wipe(ctx context.Context, addr *entity.Address) error {
	var (
		victims []*entity.Image
		err     error
	)
	if uc.opts.ScopeRestoreToAddress {
		victims, err = uc.images.FindByParentID(ctx, addr.ID)
	} else {
		victims, err = uc.images.ListAll(ctx)
	}
	if err != nil {
		return fmt.Errorf("%w: list images to wipe: %w", ErrStorage, err)
	}

	for _, img := range victims {
		if err := uc.store.Delete(ctx, img); err != nil {
			return err
		}
	}
	uc.logger.Info("wiped images before restore",
		zap.String("url", addr.URL),
		zap.Bool("scoped", uc.opts.ScopeRestoreToAddress),
		zap.Int("deleted", len(victims)))
	return nil
}

// references extracts the page's image sources and resolves them against the
// address, dropping duplicates while keeping document order.
func (uc *scraperUseCase) references(ctx context.Context, addr *entity.Address) ([]string, error) {
	sources, err := uc.extractor.Extract(ctx, addr.URL)
	if err != nil {
		if errors.Is(err, repository.ErrPageUnreachable) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
		}
		return nil, err
	}

	refs := make([]string, 0, len(sources))
	seen := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		ref := utils.ResolveReference(src, addr.URL)
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs, nil
}

// persistAll fetches and stores refs on a bounded pool and returns, in order,
// the refs that were settled: stored, or rejected for a reason of their own.
// Refs cut short by ctx ending are left out. Workers never return an error so
// one failed reference cannot cancel the others.
func (uc *scraperUseCase) persistAll(ctx context.Context, addr *entity.Address, refs []string) []string {
	done := make([]bool, len(refs))

	var g errgroup.Group
	g.SetLimit(uc.opts.Workers)
	for i, ref := range refs {
		g.Go(func() error {
			done[i] = uc.persistOne(ctx, addr, ref)
			return nil
		})
	}
	_ = g.Wait()

	settled := make([]string, 0, len(refs))
	for i, ref := range refs {
		if done[i] {
			settled = append(settled, ref)
		}
	}
	return settled
}

func (uc *scraperUseCase) persistOne(ctx context.Context, addr *entity.Address, ref string) bool {
	decoded, err := uc.fetcher.FetchAndDecode(ctx, ref)
	if err == nil {
		_, err = uc.store.Persist(ctx, decoded, ref, addr)
	}
	if err == nil {
		return true
	}
	if ctx.Err() != nil {
		uc.logger.Debug("image reference interrupted", zap.String("ref", ref), zap.Error(err))
		return false
	}
	uc.skip(ref, err)
	return true
}

func (uc *scraperUseCase) skip(ref string, err error) {
	reason := skipReason(err)
	metrics.ReferencesSkipped.WithLabelValues(reason).Inc()

	if isSkippable(err) {
		uc.logger.Debug("skipping image reference", zap.String("ref", ref), zap.String("reason", reason), zap.Error(err))
		return
	}
	uc.logger.Warn("image reference not stored", zap.String("ref", ref), zap.String("reason", reason), zap.Error(err))
}

// isSkippable reports whether err is an expected per-image failure: the
// reference could not be fetched or was not an image.
func isSkippable(err error) bool {
	return errors.Is(err, repository.ErrImageFetch) || errors.Is(err, repository.ErrImageDecode)
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, repository.ErrImageDecode):
		return "decode"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "fetch"
	}
}
