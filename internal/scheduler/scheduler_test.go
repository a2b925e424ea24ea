package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Scheduler_Every(t *testing.T) {
	s := New()
	job := func(context.Context) error { return nil }

	assert.NoError(t, s.Every("events", time.Hour, job))
	assert.Error(t, s.Every("events", time.Hour, job))
	assert.Error(t, s.Every("tickets", 0, job))
	assert.Error(t, s.Every("tickets", time.Second, nil))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.Equal(t, ErrStarted, s.Every("tickets", time.Second, job))
	assert.Equal(t, ErrStarted, s.Start(context.Background()))
}

func Test_Scheduler_RunsOnInterval(t *testing.T) {
	var runs int32
	s := New()
	require.NoError(t, s.Every("tickets", 10*time.Millisecond, func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return errors.New("remote unavailable")
	}))
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 3 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "tickets", status[0].Name)
	assert.Equal(t, "10ms", status[0].Interval)
	assert.GreaterOrEqual(t, status[0].Runs, 3)
	assert.Equal(t, "remote unavailable", status[0].LastError)
	assert.False(t, status[0].Running)

	stopped := atomic.LoadInt32(&runs)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&runs))
}

func Test_Scheduler_SkipsWhileRunning(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	var runs int32

	s := New()
	require.NoError(t, s.Every("events", 5*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		select {
		case entered <- struct{}{}:
		default:
		}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}))
	require.NoError(t, s.Start(context.Background()))

	<-entered
	err := s.Trigger(context.Background(), "events")
	assert.Equal(t, ErrBusy, err)
	assert.Eventually(t, func() bool { return s.Status()[0].Skipped >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, s.Status()[0].Running)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))

	close(release)
	s.Stop()
}

func Test_Scheduler_Trigger(t *testing.T) {
	var runs int32
	s := New()
	require.NoError(t, s.Every("events", time.Hour, func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}))
	require.NoError(t, s.Every("tickets", time.Hour, func(context.Context) error {
		return errors.New("failed")
	}))

	assert.NoError(t, s.Trigger(context.Background(), "events"))
	assert.EqualError(t, s.Trigger(context.Background(), "tickets"), "failed")
	err := s.Trigger(context.Background(), "unknown")
	assert.Equal(t, ErrUnknownTask, errors.Cause(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))

	status := s.Status()
	require.Len(t, status, 2)
	assert.Equal(t, 1, status[0].Runs)
	assert.False(t, status[0].LastStarted.IsZero())
	assert.Equal(t, "failed", status[1].LastError)
	s.Stop()
}

func Test_Scheduler_StopWaitsForTriggerAndRefusesNew(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	s := New()
	require.NoError(t, s.Every("tickets", time.Hour, func(context.Context) error {
		close(entered)
		<-release
		return nil
	}))

	triggered := make(chan error, 1)
	go func() { triggered <- s.Trigger(context.Background(), "tickets") }()
	<-entered

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	assert.Eventually(t, func() bool {
		return s.Trigger(context.Background(), "tickets") == ErrStopped
	}, time.Second, 5*time.Millisecond)

	select {
	case <-stopped:
		t.Fatal("Stop returned while a triggered job was running")
	default:
	}
	close(release)
	<-stopped
	assert.NoError(t, <-triggered)
	assert.Equal(t, ErrStopped, s.Trigger(context.Background(), "tickets"))
	assert.Equal(t, 1, s.Status()[0].Runs)
}
