package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPoller_PollsImmediatelyAndOnInterval(t *testing.T) {
	var calls atomic.Int32
	p := New("test", 20*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, zap.NewNop())

	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, p.Running())
}

func TestPoller_InFlightGuard(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var calls atomic.Int32
	p := New("slow", time.Hour, func(ctx context.Context) error {
		calls.Add(1)
		started <- struct{}{}
		<-release
		return nil
	}, zap.NewNop())

	go p.PollOnce(context.Background())
	<-started

	assert.False(t, p.PollOnce(context.Background()), "overlapping poll must be skipped")
	assert.Equal(t, int64(1), p.Skipped())

	close(release)
	require.Eventually(t, func() bool { return !p.inFlight.Load() }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPoller_PauseSkipsTicksResumeRefreshes(t *testing.T) {
	var calls atomic.Int32
	p := New("pause", 10*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, zap.NewNop())

	p.Pause()
	assert.True(t, p.Paused())
	p.Start(context.Background())
	defer p.Stop()

	// 启动时的首次刷新
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	p.Resume()
	assert.False(t, p.Paused())
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
}

func TestPoller_TriggerIgnoredWhilePaused(t *testing.T) {
	var calls atomic.Int32
	p := New("paused-trigger", time.Hour, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, zap.NewNop())

	p.Start(context.Background())
	defer p.Stop()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	p.Pause()
	p.Trigger()
	p.Trigger()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "trigger while paused must not poll")

	p.Resume()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPoller_TriggerCoalesces(t *testing.T) {
	var calls atomic.Int32
	p := New("trigger", time.Hour, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, zap.NewNop())

	p.Start(context.Background())
	defer p.Stop()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	p.Trigger()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
}

func TestPoller_StopCancelsContext(t *testing.T) {
	cancelled := make(chan struct{})
	p := New("stop", time.Hour, func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}, zap.NewNop())

	p.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	p.Stop()

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("poll function did not observe cancellation")
	}
	assert.False(t, p.Running())
	p.Stop()
}

func TestPoller_ErrorsDoNotStopLoop(t *testing.T) {
	var calls atomic.Int32
	p := New("err", 10*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("backend down")
	}, zap.NewNop())

	p.Start(context.Background())
	defer p.Stop()
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}
