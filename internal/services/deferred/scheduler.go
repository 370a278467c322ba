package deferred

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is the work run when a delay elapses. ctx is cancelled when the
// scheduler stops.
type Job func(ctx context.Context)

// Handle tracks one scheduled job.
type Handle struct {
	key  string
	done chan struct{}
	ran  bool
}

// Done is closed once the job has run, been cancelled or been replaced.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Ran reports whether the job executed. Only meaningful after Done is closed.
func (h *Handle) Ran() bool { return h.ran }

func (h *Handle) Key() string { return h.key }

type entry struct {
	timer  *time.Timer
	handle *Handle
}

// Scheduler runs delayed jobs keyed by record ID. At most one job is pending
// per key; scheduling again replaces the previous one.
type Scheduler struct {
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[string]*entry
	stopped bool
	running sync.WaitGroup
}

func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]*entry),
	}
}

// Schedule arranges for job to run after delay under key, replacing any job
// still pending for the same key. After Stop it returns a handle that is
// already done.
func (s *Scheduler) Schedule(key string, delay time.Duration, job Job) *Handle {
	h := &Handle{key: key, done: make(chan struct{})}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		close(h.done)
		return h
	}
	if prev, ok := s.pending[key]; ok {
		prev.timer.Stop()
		close(prev.handle.done)
		s.logger.Debug("deferred job replaced", zap.String("key", key))
	}

	e := &entry{handle: h}
	e.timer = time.AfterFunc(delay, func() { s.fire(e, job) })
	s.pending[key] = e
	return h
}

// Cancel drops the pending job for key and reports whether one existed.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.pending, key)
	close(e.handle.done)
	return true
}

func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop cancels every pending job and waits for running ones until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	for key, e := range s.pending {
		e.timer.Stop()
		close(e.handle.done)
		delete(s.pending, key)
	}
	s.mu.Unlock()

	waited := make(chan struct{})
	go func() {
		s.running.Wait()
		close(waited)
	}()

	defer s.cancel()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) fire(e *entry, job Job) {
	key := e.handle.key

	s.mu.Lock()
	if s.stopped || s.pending[key] != e {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.running.Add(1)
	s.mu.Unlock()

	defer s.running.Done()
	defer close(e.handle.done)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("deferred job panicked", zap.String("key", key), zap.Any("panic", r))
		}
	}()

	job(s.ctx)
	e.handle.ran = true
}
