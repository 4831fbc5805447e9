package game

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reaper evicts sessions that have gone quiet. Runs independently of the
// message path; the registry is the only structure shared with it.
type Reaper struct {
	registry *Registry
	binder   Binder
	stats    Recorder
	archive  Archiver
	idle     time.Duration
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewReaper(registry *Registry, binder Binder, idle, interval time.Duration, logger *zap.Logger) *Reaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reaper{
		registry: registry,
		binder:   binder,
		idle:     idle,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// SetRecorder attaches an optional play-counter recorder for timeouts.
func (r *Reaper) SetRecorder(rec Recorder) { r.stats = rec }

// SetArchiver attaches an optional game archive, so evicted sessions leave a
// timeout row like any other finished game.
func (r *Reaper) SetArchiver(a Archiver) { r.archive = a }

// Run ticks until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep evicts every session idle beyond the threshold. Eviction is silent;
// the user gets no message. A failure on one session never stops the rest of
// the sweep.
func (r *Reaper) Sweep(ctx context.Context) {
	for _, userID := range r.registry.IdleBeyond(r.idle) {
		sess, ok := r.registry.Get(userID)
		if !ok {
			continue
		}
		if !r.registry.Remove(userID) {
			continue // lost the race to a concurrent termination
		}
		if err := r.binder.Unbind(userID); err != nil {
			r.logger.Warn("reaper_unbind_failed", zap.String("user", userID), zap.Error(err))
		}
		if r.stats != nil {
			if err := r.stats.RecordOutcome(ctx, userID, OutcomeTimeout); err != nil {
				r.logger.Warn("reaper_stats_failed", zap.String("user", userID), zap.Error(err))
			}
		}
		if r.archive != nil {
			if err := r.archive.SaveGame(ctx, r.timeoutRecord(sess)); err != nil {
				r.logger.Warn("reaper_archive_failed", zap.String("user", userID), zap.Error(err))
			}
		}
		r.logger.Info("session_evicted_idle", zap.String("user", userID))
	}
}

// timeoutRecord snapshots the evicted session for the archive. Taken under
// the session lock in case a queued turn is still draining.
func (r *Reaper) timeoutRecord(sess *Session) *GameRecord {
	sess.Lock()
	defer sess.Unlock()
	rec := &GameRecord{
		SessionID:   sess.ID,
		UserID:      sess.UserID,
		ChannelID:   sess.ChannelID,
		Outcome:     OutcomeTimeout,
		Steps:       sess.Step,
		Progression: sess.Progression,
		StartedAt:   sess.StartedAt,
		FinishedAt:  r.now(),
	}
	if sess.PendingGuess != nil {
		rec.GuessName = sess.PendingGuess.Name
	}
	return rec
}
