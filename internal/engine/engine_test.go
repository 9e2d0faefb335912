package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bujoapp/journalsync/internal/common"
	"github.com/bujoapp/journalsync/internal/logging"
	"github.com/bujoapp/journalsync/internal/pull"
	"github.com/bujoapp/journalsync/internal/push"
)

type fakePusher struct {
	calls   atomic.Int64
	stats   push.Stats
	err     error
	release chan struct{}
}

func (f *fakePusher) Run(ctx context.Context) (push.Stats, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.stats == (push.Stats{}) {
		return push.Stats{Pushed: 1}, f.err
	}
	return f.stats, f.err
}

type fakePuller struct {
	calls atomic.Int64
	err   error
}

func (f *fakePuller) Run(ctx context.Context) (pull.Stats, error) {
	f.calls.Add(1)
	return pull.Stats{Applied: 1}, f.err
}

type fakeProber struct{ reachable bool }

func (f *fakeProber) Reachable(ctx context.Context) bool { return f.reachable }

type fakeEntitlement struct {
	entitled bool
	err      error
}

func (f *fakeEntitlement) Entitled(ctx context.Context) (bool, error) { return f.entitled, f.err }

type fakeOutbox struct{ n int }

func (f *fakeOutbox) Count(ctx context.Context) (int, error) { return f.n, nil }

type fakeCursors struct{ resets atomic.Int64 }

func (f *fakeCursors) ResetAll(ctx context.Context) error {
	f.resets.Add(1)
	return nil
}

type fakeMeta struct{ values map[string][]byte }

func (f *fakeMeta) Get(ctx context.Context, key string) ([]byte, error) {
	return f.values[key], nil
}

func (f *fakeMeta) Set(ctx context.Context, key string, value []byte) error {
	f.values[key] = value
	return nil
}

func (f *fakeMeta) Delete(ctx context.Context, key string) error {
	delete(f.values, key)
	return nil
}

type fixture struct {
	engine      *Engine
	pusher      *fakePusher
	puller      *fakePuller
	prober      *fakeProber
	entitlement *fakeEntitlement
	outbox      *fakeOutbox
	cursors     *fakeCursors
	meta        *fakeMeta
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		pusher:      &fakePusher{},
		puller:      &fakePuller{},
		prober:      &fakeProber{reachable: true},
		entitlement: &fakeEntitlement{entitled: true},
		outbox:      &fakeOutbox{},
		cursors:     &fakeCursors{},
		meta:        &fakeMeta{values: map[string][]byte{}},
	}
	f.engine = New(f.options())
	return f
}

func (f *fixture) options() Options {
	return Options{
		Push:        f.pusher,
		Pull:        f.puller,
		Outbox:      f.outbox,
		Cursors:     f.cursors,
		Prober:      f.prober,
		Entitlement: f.entitlement,
		Metadata:    f.meta,
		Logger:      logging.Discard(),
		Interval:    10 * time.Millisecond,
		MaxInterval: 100 * time.Millisecond,
		Enabled:     true,
	}
}

func TestSyncNow_RunsPushThenPull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.SyncNow(ctx))
	assert.Equal(t, int64(1), f.pusher.calls.Load())
	assert.Equal(t, int64(1), f.puller.calls.Load())

	status, err := f.engine.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, status.State)
	assert.False(t, status.LastSyncAt.IsZero())
	assert.NoError(t, status.LastError)
}

func TestSyncNow_SingleFlight(t *testing.T) {
	f := newFixture(t)
	f.pusher.release = make(chan struct{})
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- f.engine.SyncNow(ctx) }()

	require.Eventually(t, func() bool {
		return f.pusher.calls.Load() == 1
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, f.engine.SyncNow(ctx), common.ErrSyncInProgress)

	close(f.pusher.release)
	require.NoError(t, <-first)
}

func TestSyncNow_Disabled(t *testing.T) {
	f := newFixture(t)
	f.engine.SetEnabled(false)

	assert.ErrorIs(t, f.engine.SyncNow(context.Background()), common.ErrSyncDisabled)
	assert.Zero(t, f.pusher.calls.Load())
}

func TestSyncNow_EntitlementLost(t *testing.T) {
	f := newFixture(t)
	f.entitlement.entitled = false
	ctx := context.Background()

	assert.ErrorIs(t, f.engine.SyncNow(ctx), common.ErrNotEntitled)
	assert.Zero(t, f.pusher.calls.Load())

	status, err := f.engine.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateBackupUnavailable, status.State)

	// the entitlement coming back recovers the engine
	f.entitlement.entitled = true
	require.NoError(t, f.engine.SyncNow(ctx))
	status, err = f.engine.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, status.State)
}

func TestSyncNow_Offline(t *testing.T) {
	f := newFixture(t)
	f.prober.reachable = false
	ctx := context.Background()

	assert.ErrorIs(t, f.engine.SyncNow(ctx), common.ErrOffline)
	assert.Zero(t, f.pusher.calls.Load())

	status, err := f.engine.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, status.State, "offline is not an error state")
}

func TestSyncNow_TransientPushFailureStaysIdle(t *testing.T) {
	f := newFixture(t)
	// one mutation hit a 503 and stayed queued; the cycle still completed
	f.pusher.stats = push.Stats{Pushed: 1, Failed: 1}
	ctx := context.Background()

	require.NoError(t, f.engine.SyncNow(ctx))
	assert.Equal(t, int64(1), f.puller.calls.Load())

	status, err := f.engine.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, status.State)
	assert.NoError(t, status.LastError)
	assert.False(t, status.LastSyncAt.IsZero())
}

func TestSyncNow_UnreachableEndpointStillPulls(t *testing.T) {
	f := newFixture(t)
	f.pusher.stats = push.Stats{Failed: 2}
	f.pusher.err = fmt.Errorf("pushing mutation 1: %w", common.ErrEndpointUnreachable)
	ctx := context.Background()

	require.Error(t, f.engine.SyncNow(ctx))
	assert.Equal(t, int64(1), f.puller.calls.Load())

	status, err := f.engine.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateError, status.State)
	assert.Error(t, status.LastError)
}

func TestResetSyncState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.SyncNow(ctx))
	require.NoError(t, f.engine.ResetSyncState(ctx))
	assert.Equal(t, int64(1), f.cursors.resets.Load())

	status, err := f.engine.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.LastSyncAt.IsZero())
}

func TestResetSyncState_BlockedWhileSyncing(t *testing.T) {
	f := newFixture(t)
	f.pusher.release = make(chan struct{})
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- f.engine.SyncNow(ctx) }()

	require.Eventually(t, func() bool {
		return f.pusher.calls.Load() == 1
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, f.engine.ResetSyncState(ctx), common.ErrSyncInProgress)
	assert.Zero(t, f.cursors.resets.Load())

	close(f.pusher.release)
	require.NoError(t, <-first)
}

func TestStatus_LastSyncSurvivesRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.SyncNow(ctx))

	// a fresh engine over the same metadata store restores the marker
	restarted := New(f.options())
	status, err := restarted.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.LastSyncAt.IsZero())

	// reset clears it for good
	require.NoError(t, restarted.ResetSyncState(ctx))
	status, err = New(f.options()).Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.LastSyncAt.IsZero())
}

func TestStatus_Pending(t *testing.T) {
	f := newFixture(t)
	f.outbox.n = 7

	status, err := f.engine.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, status.Pending)

	n, err := f.engine.OutboxCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestAutoSync_CyclesAndStops(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.engine.StartAutoSync(context.Background()))
	require.Error(t, f.engine.StartAutoSync(context.Background()), "double start must fail")

	require.Eventually(t, func() bool {
		return f.pusher.calls.Load() >= 2
	}, 2*time.Second, time.Millisecond)

	f.engine.StopAutoSync()
	after := f.pusher.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, f.pusher.calls.Load(), "no cycles after stop")

	// stopping twice is a no-op
	f.engine.StopAutoSync()
}
