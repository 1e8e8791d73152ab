package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/user/image-scraper-service/internal/usecase"
)

// SyncScheduler periodically re-scrapes every known address.
type SyncScheduler struct {
	cron   *cron.Cron
	syncer usecase.Syncer
	logger *zap.Logger
	budget time.Duration
}

// NewSyncScheduler parses a standard five-field cron spec or a descriptor
// such as "@hourly" or "@every 30m". A run still in progress when the next
// one is due is skipped.
func NewSyncScheduler(spec string, syncer usecase.Syncer, budget time.Duration, logger *zap.Logger) (*SyncScheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cl := cronLogger{logger.Sugar().Named("cron")}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	s := &SyncScheduler{cron: c, syncer: syncer, logger: logger, budget: budget}
	if _, err := c.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid SYNC_SCHEDULE %q: %w", spec, err)
	}
	return s, nil
}

func (s *SyncScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.budget)
	defer cancel()

	synced, err := s.syncer.SyncAll(ctx)
	if err != nil {
		s.logger.Error("scheduled sync failed", zap.Int("synced", synced), zap.Error(err))
		return
	}
	s.logger.Info("scheduled sync done", zap.Int("synced", synced))
}

func (s *SyncScheduler) Start() { s.cron.Start() }

// Stop prevents new runs and waits for a running one to finish or ctx to end.
func (s *SyncScheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// cronLogger adapts zap to cron.Logger. cron reports every wake-up and run
// at info, so those go to debug; a skipped overlapping run is kept at info.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		l.s.Infow("sync still running, skipping scheduled run", keysAndValues...)
		return
	}
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
