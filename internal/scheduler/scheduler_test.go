package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackfiller struct {
	calls    atomic.Int32
	limit    atomic.Int32
	embedded int
	failed   int
	err      error
}

func (f *fakeBackfiller) Backfill(_ context.Context, limit int) (int, int, error) {
	f.calls.Add(1)
	f.limit.Store(int32(limit))
	return f.embedded, f.failed, f.err
}

func TestRunNow(t *testing.T) {
	job := &fakeBackfiller{embedded: 3, failed: 1}
	s := New(job, "@every 1h", WithBatchSize(7))

	st := s.RunNow(context.Background())
	assert.Equal(t, 1, st.Runs)
	assert.Equal(t, 3, st.LastEmbedded)
	assert.Equal(t, 1, st.LastFailed)
	assert.Empty(t, st.LastError)
	assert.Equal(t, int32(7), job.limit.Load())
	assert.False(t, st.LastRun.IsZero())

	job.err = errors.New("store closed")
	st = s.RunNow(context.Background())
	assert.Equal(t, 2, st.Runs)
	assert.Equal(t, "store closed", st.LastError)
	assert.Equal(t, st, s.Status())
}

func TestStart_disabled(t *testing.T) {
	job := &fakeBackfiller{}
	s := New(job, "")
	require.NoError(t, s.Start())
	s.Stop()
	assert.Zero(t, job.calls.Load())
}

func TestStart_invalidSchedule(t *testing.T) {
	s := New(&fakeBackfiller{}, "every now and then")
	assert.Error(t, s.Start())
}

func TestStart_runsOnSchedule(t *testing.T) {
	job := &fakeBackfiller{}
	s := New(job, "@every 1s")
	require.NoError(t, s.Start())
	defer s.Stop()
	assert.Error(t, s.Start())

	require.Eventually(t, func() bool { return job.calls.Load() > 0 }, 5*time.Second, 50*time.Millisecond)
}
