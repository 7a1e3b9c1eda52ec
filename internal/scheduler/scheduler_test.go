package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/precip-grid-etl/internal/domain"
)

func TestStart_SchedulesDailyAtUTC(t *testing.T) {
	s := New("06:00", func(context.Context) {}, slog.Default())
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)

	next := s.NextRun().UTC()
	assert.Equal(t, 6, next.Hour())
	assert.Equal(t, 0, next.Minute())
	assert.True(t, next.After(time.Now()))
	assert.WithinDuration(t, time.Now(), next, 24*time.Hour)
}

func TestStart_InvalidTime(t *testing.T) {
	s := New("25:99", func(context.Context) {}, slog.Default())
	err := s.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestRunNow_InvokesJob(t *testing.T) {
	done := make(chan struct{}, 1)
	s := New("06:00", func(context.Context) { done <- struct{}{} }, slog.Default())
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)

	s.RunNow()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestRunNow_DoesNotOverlap(t *testing.T) {
	var running, maxRunning atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 4)

	s := New("06:00", func(context.Context) {
		n := running.Add(1)
		for {
			m := maxRunning.Load()
			if n <= m || maxRunning.CompareAndSwap(m, n) {
				break
			}
		}
		started <- struct{}{}
		<-release
		running.Add(-1)
	}, slog.Default())
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)

	s.RunNow()
	<-started
	s.RunNow()
	time.Sleep(100 * time.Millisecond)
	close(release)

	assert.Equal(t, int32(1), maxRunning.Load())
}

func TestStop_CancelsJobContext(t *testing.T) {
	cancelled := make(chan struct{})
	s := New("06:00", func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	}, slog.Default())
	require.NoError(t, s.Start())

	s.RunNow()
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("job context was not cancelled")
	}
}
