package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper evicts expired typing entries
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// EvictionRecorder receives the number of entries removed by each sweep
type EvictionRecorder interface {
	TypingEvicted(n int)
}

// Scheduler periodically sweeps expired typing entries so idle conversations
// do not keep stale presence in memory
type Scheduler struct {
	sweeper  Sweeper
	recorder EvictionRecorder
	interval time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// Config holds configuration for the typing sweeper
type Config struct {
	Interval time.Duration
}

// New creates a new typing sweeper. recorder may be nil.
func New(sweeper Sweeper, recorder EvictionRecorder, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}

	return &Scheduler{
		sweeper:  sweeper,
		recorder: recorder,
		interval: cfg.Interval,
		logger:   logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("typing sweeper started", "interval", s.interval)

	s.wg.Add(1)
	go s.run(ctx, stopCh)
}

// Stop stops the scheduler and waits for the loop to exit
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	close(s.stopCh)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	s.wg.Wait()
	s.logger.Info("typing sweeper stopped")
}

func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.process(ctx)
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// process runs one sweep
func (s *Scheduler) process(ctx context.Context) {
	evicted, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error("failed to sweep typing entries", "error", err)
		return
	}
	if evicted == 0 {
		return
	}

	s.logger.Debug("evicted expired typing entries", "count", evicted)
	if s.recorder != nil {
		s.recorder.TypingEvicted(evicted)
	}
}
