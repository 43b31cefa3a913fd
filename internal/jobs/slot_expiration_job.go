package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper reclaims slots whose campaign window elapsed
type Sweeper interface {
	SweepExpiredSlots(ctx context.Context) (int, error)
}

// SlotExpirationJob periodically returns expired slots to available
type SlotExpirationJob struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// NewSlotExpirationJob creates a new slot expiration job
func NewSlotExpirationJob(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *SlotExpirationJob {
	return &SlotExpirationJob{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger.Named("slot_expiration"),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs a sweep immediately and then on every tick until Stop
func (j *SlotExpirationJob) Start() {
	defer close(j.done)

	j.logger.Info("starting slot expiration job", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.RunOnce()

	for {
		select {
		case <-ticker.C:
			j.RunOnce()
		case <-j.stopChan:
			j.logger.Info("stopping slot expiration job")
			return
		}
	}
}

// Stop stops the loop and waits for an in-flight sweep to finish
func (j *SlotExpirationJob) Stop() {
	close(j.stopChan)
	<-j.done
}

// RunOnce performs a single sweep
func (j *SlotExpirationJob) RunOnce() int {
	ctx, cancel := context.WithTimeout(context.Background(), j.interval)
	defer cancel()

	reclaimed, err := j.sweeper.SweepExpiredSlots(ctx)
	if err != nil {
		j.logger.Error("slot sweep failed", zap.Error(err))
		return 0
	}

	if reclaimed > 0 {
		j.logger.Info("expired slots reclaimed", zap.Int("count", reclaimed))
	}
	return reclaimed
}
