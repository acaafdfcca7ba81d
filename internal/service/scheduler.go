package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultVerifyInterval = 1 * time.Hour

type batchRunner interface {
	RunPending(ctx context.Context) (*BatchReport, error)
}

// VerifierScheduler runs RunPending on a fixed interval.
type VerifierScheduler struct {
	verifier batchRunner
	logger   *zap.Logger

	interval   time.Duration
	runTimeout time.Duration
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

func NewVerifierScheduler(v batchRunner, logger *zap.Logger) *VerifierScheduler {
	return &VerifierScheduler{
		verifier:   v,
		logger:     logger,
		interval:   defaultVerifyInterval,
		runTimeout: 30 * time.Minute,
		stopCh:     make(chan struct{}),
	}
}

func (s *VerifierScheduler) SetInterval(d time.Duration) {
	s.interval = d
}

// Start runs the verifier on a periodic schedule in a background goroutine.
func (s *VerifierScheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("verifier scheduler started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				s.run()
			case <-s.stopCh:
				s.logger.Info("verifier scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler, waiting for an in-flight run.
func (s *VerifierScheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *VerifierScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	if _, err := s.verifier.RunPending(ctx); err != nil {
		if errors.Is(err, ErrBatchInProgress) {
			s.logger.Info("skipping scheduled verification, run already active")
			return
		}
		s.logger.Error("scheduled verification failed", zap.Error(err))
	}
}
