package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/image-scraper-service/internal/repository"
)

// Syncer re-runs the incremental scrape for every known address.
type Syncer interface {
	// SyncAll returns the number of addresses scraped successfully. A failing
	// address is logged and does not stop the run.
	SyncAll(ctx context.Context) (int, error)
}

type syncUseCase struct {
	addresses repository.AddressRepository
	scraper   Scraper
	logger    *zap.Logger
}

// NewSyncer creates a new Syncer.
func NewSyncer(addresses repository.AddressRepository, scraper Scraper, logger *zap.Logger) Syncer {
	return &syncUseCase{addresses: addresses, scraper: scraper, logger: logger}
}

func (uc *syncUseCase) SyncAll(ctx context.Context) (int, error) {
	addresses, err := uc.addresses.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: list addresses: %w", ErrStorage, err)
	}

	synced := 0
	for _, addr := range addresses {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if _, err := uc.scraper.ScrapeIncremental(ctx, addr.URL); err != nil {
			uc.logger.Warn("sync failed for address", zap.String("url", addr.URL), zap.Error(err))
			continue
		}
		synced++
	}

	uc.logger.Info("sync finished", zap.Int("addresses", len(addresses)), zap.Int("synced", synced))
	return synced, nil
}
