// Package engine coordinates sync cycles: it gates on the enabled flag,
// backend entitlement, and reachability, runs push then pull as one cycle,
// and drives the periodic auto-sync loop with backoff after failures.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/bujoapp/journalsync/internal/common"
	"github.com/bujoapp/journalsync/internal/logging"
	"github.com/bujoapp/journalsync/internal/pull"
	"github.com/bujoapp/journalsync/internal/push"
)

// State is the engine's externally visible condition.
type State string

const (
	StateIdle              State = "idle"
	StateSyncing           State = "syncing"
	StateBackupUnavailable State = "backupUnavailable"
	StateError             State = "error"
)

// Pusher drains the outbox to the backend.
type Pusher interface {
	Run(ctx context.Context) (push.Stats, error)
}

// Puller applies remote changes to the local mirror.
type Puller interface {
	Run(ctx context.Context) (pull.Stats, error)
}

// Prober answers whether the backend is reachable right now.
type Prober interface {
	Reachable(ctx context.Context) bool
}

// Entitlement reports whether the account may use sync at all. A lost
// entitlement parks the engine in StateBackupUnavailable until it returns.
type Entitlement interface {
	Entitled(ctx context.Context) (bool, error)
}

// OutboxCounter reports how many mutations wait to be pushed.
type OutboxCounter interface {
	Count(ctx context.Context) (int, error)
}

// CursorResetter clears every pull cursor, forcing a full re-pull.
type CursorResetter interface {
	ResetAll(ctx context.Context) error
}

// Metadata persists small bookkeeping values across restarts (optional).
type Metadata interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

const lastSyncKey = "last_sync_at"

// Status is a point-in-time snapshot of the engine.
type Status struct {
	State      State
	Enabled    bool
	LastSyncAt time.Time
	LastError  error
	Pending    int
}

// Engine runs sync cycles one at a time.
type Engine struct {
	push        Pusher
	pull        Puller
	outbox      OutboxCounter
	cursors     CursorResetter
	prober      Prober
	entitlement Entitlement
	meta        Metadata
	log         logging.Logger

	interval    time.Duration
	maxInterval time.Duration

	mu           sync.Mutex
	state        State
	enabled      bool
	syncing      bool
	lastSyncAt   time.Time
	lastErr      error
	retryPending bool

	autoCancel context.CancelFunc
	autoDone   chan struct{}
}

// Options carries the engine's collaborators and settings.
type Options struct {
	Push        Pusher
	Pull        Puller
	Outbox      OutboxCounter
	Cursors     CursorResetter
	Prober      Prober
	Entitlement Entitlement
	Metadata    Metadata
	Logger      logging.Logger

	// Interval between auto-sync cycles; after failed cycles the wait grows
	// exponentially up to MaxInterval and resets on the next success.
	Interval    time.Duration
	MaxInterval time.Duration

	// Enabled is the initial value of the sync-enabled flag.
	Enabled bool
}

func New(opts Options) *Engine {
	maxInterval := opts.MaxInterval
	if maxInterval < opts.Interval {
		maxInterval = opts.Interval
	}
	return &Engine{
		push:        opts.Push,
		pull:        opts.Pull,
		outbox:      opts.Outbox,
		cursors:     opts.Cursors,
		prober:      opts.Prober,
		entitlement: opts.Entitlement,
		meta:        opts.Metadata,
		log:         opts.Logger,
		interval:    opts.Interval,
		maxInterval: maxInterval,
		state:       StateIdle,
		enabled:     opts.Enabled,
	}
}

// SetEnabled flips the sync-enabled gate. Disabling does not interrupt a
// cycle already in flight.
func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = enabled
}

// SyncNow runs one push+pull cycle. At most one cycle runs at a time; a call
// while another is in flight returns common.ErrSyncInProgress immediately.
func (e *Engine) SyncNow(ctx context.Context) error {
	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return common.ErrSyncInProgress
	}
	if !e.enabled {
		e.mu.Unlock()
		return common.ErrSyncDisabled
	}
	e.syncing = true
	e.state = StateSyncing
	e.mu.Unlock()

	retryPending, err := e.cycle(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.syncing = false
	e.retryPending = retryPending
	switch {
	case err == nil:
		e.state = StateIdle
		e.lastSyncAt = time.Now().UTC()
		e.lastErr = nil
		e.persistLastSync(ctx, e.lastSyncAt)
	case errors.Is(err, common.ErrNotEntitled):
		e.state = StateBackupUnavailable
		e.lastErr = err
	case errors.Is(err, common.ErrOffline):
		// being offline is an expected condition, not a failure
		e.state = StateIdle
	default:
		e.state = StateError
		e.lastErr = err
	}
	return err
}

// cycle runs push then pull. The bool reports whether mutations stayed
// queued after transient failures, so the auto loop can retry sooner without
// the cycle counting as failed.
func (e *Engine) cycle(ctx context.Context) (bool, error) {
	if e.entitlement != nil {
		entitled, err := e.entitlement.Entitled(ctx)
		if err != nil {
			return false, fmt.Errorf("checking entitlement: %w", err)
		}
		if !entitled {
			return false, common.ErrNotEntitled
		}
	}
	if e.prober != nil && !e.prober.Reachable(ctx) {
		return false, common.ErrOffline
	}

	pushStats, pushErr := e.push.Run(ctx)
	if pushErr != nil {
		e.log.Warn(ctx, "push incomplete", "error", pushErr,
			"pushed", pushStats.Pushed, "dropped", pushStats.Dropped, "failed", pushStats.Failed)
	}

	// pull runs even after a partial push so remote changes still land
	pullStats, pullErr := e.pull.Run(ctx)
	if pullErr != nil {
		e.log.Warn(ctx, "pull incomplete", "error", pullErr,
			"applied", pullStats.Applied, "deleted", pullStats.Deleted)
	}

	if pushErr == nil && pullErr == nil {
		e.log.Info(ctx, "sync cycle complete",
			"pushed", pushStats.Pushed, "dropped", pushStats.Dropped, "failed", pushStats.Failed,
			"applied", pullStats.Applied, "deleted", pullStats.Deleted,
			"skipped", pullStats.Skipped)
	}
	return pushStats.Failed > 0, errors.Join(pushErr, pullErr)
}

// StartAutoSync launches the periodic sync loop. Failed cycles stretch the
// wait exponentially; a clean cycle snaps it back to the base interval.
func (e *Engine) StartAutoSync(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.autoDone != nil {
		return errors.New("auto-sync already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	e.autoCancel = cancel
	done := make(chan struct{})
	e.autoDone = done

	go e.autoLoop(ctx, done)
	return nil
}

// StopAutoSync cancels the loop and waits for it to exit.
func (e *Engine) StopAutoSync() {
	e.mu.Lock()
	cancel, done := e.autoCancel, e.autoDone
	e.autoCancel, e.autoDone = nil, nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (e *Engine) autoLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	backoff := e.newBackoff()
	timer := time.NewTimer(e.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		err := e.SyncNow(ctx)
		if err == nil || benign(err) {
			e.mu.Lock()
			retryPending := e.retryPending
			e.mu.Unlock()
			if err == nil && retryPending {
				// the cycle completed but left mutations queued after
				// transient failures; back off before retrying them
				wait, _ := backoff.Next()
				e.log.Warn(ctx, "mutations await retry, backing off", "retry_in", wait)
				timer.Reset(wait)
				continue
			}
			backoff = e.newBackoff()
			timer.Reset(e.interval)
			continue
		}

		wait, _ := backoff.Next()
		e.log.Warn(ctx, "sync cycle failed, backing off", "error", err, "retry_in", wait)
		timer.Reset(wait)
	}
}

func (e *Engine) newBackoff() retry.Backoff {
	return retry.WithCappedDuration(e.maxInterval, retry.NewExponential(e.interval))
}

// benign errors keep the regular cadence instead of triggering backoff.
func benign(err error) bool {
	return errors.Is(err, common.ErrOffline) ||
		errors.Is(err, common.ErrSyncDisabled) ||
		errors.Is(err, common.ErrSyncInProgress)
}

// ResetSyncState clears every pull cursor so the next cycle re-pulls
// everything from revision zero. Pending outbox mutations are untouched.
func (e *Engine) ResetSyncState(ctx context.Context) error {
	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return common.ErrSyncInProgress
	}
	e.mu.Unlock()

	if err := e.cursors.ResetAll(ctx); err != nil {
		return fmt.Errorf("resetting cursors: %w", err)
	}
	if e.meta != nil {
		if err := e.meta.Delete(ctx, lastSyncKey); err != nil {
			return fmt.Errorf("clearing last sync marker: %w", err)
		}
	}

	e.mu.Lock()
	e.lastSyncAt = time.Time{}
	e.lastErr = nil
	e.state = StateIdle
	e.mu.Unlock()
	return nil
}

// OutboxCount reports the number of mutations waiting to push.
func (e *Engine) OutboxCount(ctx context.Context) (int, error) {
	return e.outbox.Count(ctx)
}

// Status returns a snapshot of the engine, including the pending count.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	pending, err := e.outbox.Count(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("counting outbox: %w", err)
	}

	lastSync := e.loadLastSync(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastSyncAt.IsZero() {
		e.lastSyncAt = lastSync
	}
	return Status{
		State:      e.state,
		Enabled:    e.enabled,
		LastSyncAt: e.lastSyncAt,
		LastError:  e.lastErr,
		Pending:    pending,
	}, nil
}

// persistLastSync is best-effort bookkeeping; a failed write only costs the
// marker surviving a restart. Called with e.mu held.
func (e *Engine) persistLastSync(ctx context.Context, ts time.Time) {
	if e.meta == nil {
		return
	}
	if err := e.meta.Set(ctx, lastSyncKey, []byte(ts.Format(time.RFC3339Nano))); err != nil {
		e.log.Warn(ctx, "persisting last sync time failed", "error", err)
	}
}

// loadLastSync restores the marker written by a previous process.
func (e *Engine) loadLastSync(ctx context.Context) time.Time {
	if e.meta == nil {
		return time.Time{}
	}
	value, err := e.meta.Get(ctx, lastSyncKey)
	if err != nil || len(value) == 0 {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, string(value))
	if err != nil {
		return time.Time{}
	}
	return ts
}
