package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCommandInQuery is returned when a mutation is attempted while a read
// section is held on the same context.
var ErrCommandInQuery = errors.New("usecase: command issued inside a query")

type heldKey struct{}

type holdMode int

const (
	holdRead holdMode = iota + 1
	holdWrite
)

type hold struct {
	d    *Dispatcher
	mode holdMode
}

// Dispatcher serializes access to application state. Commands run under an
// exclusive lock and queries under a shared one. Nested calls made with the
// context handed to fn reuse the lock already held.
type Dispatcher struct {
	state   sync.RWMutex
	metrics Metrics
	logger  *zap.Logger
}

func NewDispatcher(metrics Metrics, logger *zap.Logger) *Dispatcher {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{metrics: metrics, logger: logger}
}

// Command runs fn with exclusive access to state.
func (d *Dispatcher) Command(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if h, ok := ctx.Value(heldKey{}).(hold); ok && h.d == d {
		if h.mode == holdRead {
			return fmt.Errorf("%s: %w", name, ErrCommandInQuery)
		}
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	d.state.Lock()
	defer func() {
		d.state.Unlock()
		d.observe(name, start)
	}()

	err := fn(context.WithValue(ctx, heldKey{}, hold{d: d, mode: holdWrite}))
	d.metrics.ObserveOperation(name, time.Since(start), err)
	return err
}

// Query runs fn with shared access to state.
func (d *Dispatcher) Query(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if h, ok := ctx.Value(heldKey{}).(hold); ok && h.d == d {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	d.state.RLock()
	defer func() {
		d.state.RUnlock()
		d.observe(name, start)
	}()

	err := fn(context.WithValue(ctx, heldKey{}, hold{d: d, mode: holdRead}))
	d.metrics.ObserveOperation(name, time.Since(start), err)
	return err
}

func (d *Dispatcher) observe(name string, start time.Time) {
	d.logger.Debug("operation finished", zap.String("operation", name), zap.Duration("took", time.Since(start)))
}

// ExecuteCommand is Command for operations that return a value.
func ExecuteCommand[T any](ctx context.Context, d *Dispatcher, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := d.Command(ctx, name, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

// ExecuteQuery is Query for operations that return a value.
func ExecuteQuery[T any](ctx context.Context, d *Dispatcher, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := d.Query(ctx, name, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}
