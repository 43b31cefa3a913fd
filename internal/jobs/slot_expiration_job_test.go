package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) SweepExpiredSlots(context.Context) (int, error) {
	s.calls.Add(1)
	if s.err != nil {
		return 0, s.err
	}
	return 2, nil
}

func TestSlotExpirationJobRunsUntilStopped(t *testing.T) {
	sweeper := &countingSweeper{}
	job := NewSlotExpirationJob(sweeper, 10*time.Millisecond, zap.NewNop())

	go job.Start()

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	job.Stop()
	after := sweeper.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, sweeper.calls.Load())
}

func TestRunOnceSwallowsSweepErrors(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("database down")}
	job := NewSlotExpirationJob(sweeper, time.Minute, zap.NewNop())

	assert.Equal(t, 0, job.RunOnce())
	assert.Equal(t, int32(1), sweeper.calls.Load())
}

func TestRunOnceReportsReclaimed(t *testing.T) {
	job := NewSlotExpirationJob(&countingSweeper{}, time.Minute, zap.NewNop())
	assert.Equal(t, 2, job.RunOnce())
}
