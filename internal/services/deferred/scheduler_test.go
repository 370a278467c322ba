package deferred

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitDone(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("job %s never finished", h.Key())
	}
}

func TestScheduler_RunsAfterDelay(t *testing.T) {
	s := New(nil)
	defer s.Stop(context.Background())

	var calls int32
	h := s.Schedule("L1", 10*time.Millisecond, func(context.Context) { atomic.AddInt32(&calls, 1) })
	assert.True(t, s.Pending("L1"))

	waitDone(t, h)
	assert.True(t, h.Ran())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.False(t, s.Pending("L1"))
}

func TestScheduler_RescheduleReplacesPendingJob(t *testing.T) {
	s := New(nil)
	defer s.Stop(context.Background())

	var first, second int32
	h1 := s.Schedule("L1", 50*time.Millisecond, func(context.Context) { atomic.AddInt32(&first, 1) })
	h2 := s.Schedule("L1", 10*time.Millisecond, func(context.Context) { atomic.AddInt32(&second, 1) })

	waitDone(t, h1)
	assert.False(t, h1.Ran())
	waitDone(t, h2)
	assert.True(t, h2.Ran())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&first))
	assert.Equal(t, int32(1), atomic.LoadInt32(&second))
}

func TestScheduler_Cancel(t *testing.T) {
	s := New(nil)
	defer s.Stop(context.Background())

	var calls int32
	h := s.Schedule("L1", 20*time.Millisecond, func(context.Context) { atomic.AddInt32(&calls, 1) })
	require.True(t, s.Cancel("L1"))
	assert.False(t, s.Cancel("L1"))

	waitDone(t, h)
	assert.False(t, h.Ran())
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.Equal(t, 0, s.Len())
}

func TestScheduler_StopDropsPendingAndRefusesNewJobs(t *testing.T) {
	s := New(nil)

	var calls int32
	h := s.Schedule("L1", time.Hour, func(context.Context) { atomic.AddInt32(&calls, 1) })
	require.NoError(t, s.Stop(context.Background()))

	waitDone(t, h)
	assert.False(t, h.Ran())

	late := s.Schedule("L2", time.Millisecond, func(context.Context) { atomic.AddInt32(&calls, 1) })
	waitDone(t, late)
	assert.False(t, late.Ran())
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestScheduler_StopWaitsForRunningJob(t *testing.T) {
	s := New(nil)

	started := make(chan struct{})
	release := make(chan struct{})
	h := s.Schedule("L1", time.Millisecond, func(context.Context) {
		close(started)
		<-release
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)

	close(release)
	waitDone(t, h)
	assert.True(t, h.Ran())
}

func TestScheduler_RecoversPanickingJob(t *testing.T) {
	s := New(nil)
	defer s.Stop(context.Background())

	h := s.Schedule("boom", time.Millisecond, func(context.Context) { panic("boom") })
	waitDone(t, h)
	assert.False(t, h.Ran())
}
