package notif

import (
	"context"
	"time"

	"go.uber.org/zap"

	"evently/internal/config"
)

// Sweeper moves notifications past the retention window out of the hot
// table. With an archiver wired, rows are copied to the archive before
// deletion; without one they are simply dropped. Archiving is an upsert by
// id, so re-running a partially failed sweep is safe.
type Sweeper struct {
	store     NotificationStore
	archive   Archiver
	retention time.Duration
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
}

func NewSweeper(cfg *config.Config, store NotificationStore, archive Archiver, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:     store,
		archive:   archive,
		retention: cfg.Retention(),
		interval:  cfg.SweepInterval(),
		batchSize: 500,
		logger:    logger,
	}
}

func (s *Sweeper) RunOnce(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-s.retention)

	total := 0
	for {
		rows, err := s.store.ExpiredBefore(ctx, cutoff, s.batchSize)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			break
		}

		if s.archive != nil {
			// Never delete rows that failed to archive.
			if err := s.archive.Archive(ctx, rows); err != nil {
				return err
			}
		}

		ids := make([]string, len(rows))
		for i, row := range rows {
			ids[i] = row.ID
		}
		if err := s.store.DeleteByIDs(ctx, ids); err != nil {
			return err
		}

		total += len(rows)
		if len(rows) < s.batchSize {
			break
		}
	}

	if total > 0 {
		s.logger.Info("retention sweep complete", zap.Int("archived", total))
	}
	return nil
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.RunOnce(ctx, time.Now()); err != nil {
				s.logger.Error("retention sweep failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}
