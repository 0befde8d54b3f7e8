package indexer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// NextRun returns the first time strictly after now that falls on hour:minute local time.
func NextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// RunDaily calls Rebuild every day at hour:minute until ctx is cancelled.
// Failed rebuilds are logged; the next attempt happens the following day.
func (idx *Indexer) RunDaily(ctx context.Context, hour, minute int) {
	for {
		wait := time.Until(NextRun(time.Now(), hour, minute))
		if idx.logger != nil {
			idx.logger.Debug("next scheduled rebuild", zap.Duration("in", wait))
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if _, err := idx.Rebuild(ctx); err != nil && idx.logger != nil {
			idx.logger.Error("scheduled rebuild failed", zap.Error(err))
		}
	}
}
