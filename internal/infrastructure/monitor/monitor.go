package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Check probes one dependency and returns nil when it is reachable.
type Check func(ctx context.Context) error

// BufferSizer is the part of the write-behind store the monitor reports on.
type BufferSizer interface {
	Size() (int, error)
}

type probe struct {
	name    string
	check   Check
	timeout time.Duration
}

// Monitor periodically probes the optional storage drivers. With nothing
// watched the service runs fully in memory and is always online.
type Monitor struct {
	probes []probe
	buffer BufferSizer

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopOnce sync.Once
	stopCh   chan struct{}
	logger   *zap.Logger
}

func New(interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		interval: interval,
		status:   Status{Components: map[string]bool{}},
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

// Watch registers a probe. Call before Start.
func (m *Monitor) Watch(name string, timeout time.Duration, check Check) *Monitor {
	if check == nil {
		return m
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	m.probes = append(m.probes, probe{name: name, check: check, timeout: timeout})
	return m
}

// WatchPostgres probes the catalog pool.
func (m *Monitor) WatchPostgres(pool *pgxpool.Pool) *Monitor {
	if pool == nil {
		return m
	}
	return m.Watch("postgresql", 3*time.Second, pool.Ping)
}

// WatchRedis probes the state store.
func (m *Monitor) WatchRedis(client *redislib.Client) *Monitor {
	if client == nil {
		return m
	}
	return m.Watch("redis", 2*time.Second, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// WithBuffer reports the write-behind backlog alongside the probes.
func (m *Monitor) WithBuffer(buf BufferSizer) *Monitor {
	m.buffer = buf
	return m
}

// Start probes once synchronously and then keeps probing in the background.
func (m *Monitor) Start() {
	m.Refresh(context.Background())
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Healthy()
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.status
	out.Components = make(map[string]bool, len(m.status.Components))
	for k, v := range m.status.Components {
		out.Components[k] = v
	}
	return out
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Refresh(context.Background())
		case <-m.stopCh:
			return
		}
	}
}

// Refresh runs every probe now and stores the result.
func (m *Monitor) Refresh(ctx context.Context) Status {
	status := Status{
		Components: make(map[string]bool, len(m.probes)),
		LastCheck:  time.Now(),
	}
	for _, p := range m.probes {
		probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.check(probeCtx)
		cancel()
		if err != nil {
			m.logger.Warn("dependency probe failed", zap.String("component", p.name), zap.Error(err))
		}
		status.Components[p.name] = err == nil
	}
	status.Buffer, status.BufferSize = m.checkBuffer()

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	if previous.Healthy() != status.Healthy() && !previous.LastCheck.IsZero() {
		m.logger.Info("connectivity changed", zap.Bool("online", status.Healthy()))
	}
	return status
}

func (m *Monitor) checkBuffer() (bool, int) {
	if m.buffer == nil {
		return false, 0
	}
	size, err := m.buffer.Size()
	if err != nil {
		m.logger.Warn("buffer size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}
