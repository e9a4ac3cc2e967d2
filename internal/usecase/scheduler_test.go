package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRegistersAndRuns(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	var collected, reported atomic.Int32
	immediate := make(chan struct{}, 1)

	s := NewScheduler(driver, nil,
		Job{Name: "collect", Spec: "0 0 8 * * *", Immediate: true, Run: func(context.Context, time.Time) error {
			if collected.Add(1) == 1 {
				immediate <- struct{}{}
			}
			return nil
		}},
		Job{Name: "report", Spec: "0 0 17 * * 5", Run: func(context.Context, time.Time) error {
			reported.Add(1)
			return errors.New("no articles")
		}},
	)
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, driver.started)
	assert.Len(t, driver.jobs, 2)

	select {
	case <-immediate:
	case <-time.After(2 * time.Second):
		t.Fatal("immediate job did not run")
	}

	driver.fire("0 0 17 * * 5")
	assert.Equal(t, int32(1), reported.Load())

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	release := make(chan struct{})
	entered := make(chan struct{})
	var runs atomic.Int32

	s := NewScheduler(driver, nil, Job{Name: "slow", Spec: "slow", Run: func(context.Context, time.Time) error {
		runs.Add(1)
		close(entered)
		<-release
		return nil
	}})
	require.NoError(t, s.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		driver.fire("slow")
		close(done)
	}()
	<-entered
	driver.fire("slow")
	close(release)
	<-done

	assert.Equal(t, int32(1), runs.Load())
}

func TestSchedulerAddError(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{addErr: errors.New("bad spec")}
	s := NewScheduler(driver, nil, Job{Name: "x", Spec: "?", Run: func(context.Context, time.Time) error { return nil }})
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.False(t, driver.started)
}

func TestSchedulerSkipsEmptySpec(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	s := NewScheduler(driver, nil, Job{Name: "report", Run: func(context.Context, time.Time) error { return nil }})
	require.NoError(t, s.Start(context.Background()))
	assert.Empty(t, driver.jobs)
	assert.True(t, driver.started)
}
