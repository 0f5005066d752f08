package pagination

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Config holds gather configuration
type Config struct {
	// MaxConcurrency is the maximum number of tasks running at once
	MaxConcurrency int
}

// DefaultConfig returns the default gather configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 10,
	}
}

// Status is the state of one slot.
type Status int

const (
	Pending Status = iota
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// Slot is the outcome of one task.
type Slot[T any] struct {
	Status Status
	Value  T
	Err    error
}

// Batch tracks a running gather. Slots keep the index order of the tasks.
type Batch[T any] struct {
	mu    sync.RWMutex
	slots []Slot[T]
	done  chan struct{}
}

// Gather starts fn for every index in [0, n) and returns immediately. Each
// task writes only its own slot. Tasks carry no deadline of their own; a slot
// fails only when fn reports an error. When ctx ends, tasks not yet settled
// stay Pending.
func Gather[T any](ctx context.Context, cfg Config, n int, fn func(ctx context.Context, i int) (T, error)) *Batch[T] {
	if n < 0 {
		n = 0
	}
	b := &Batch[T]{
		slots: make([]Slot[T], n),
		done:  make(chan struct{}),
	}
	if n == 0 {
		close(b.done)
		return b
	}

	limit := cfg.MaxConcurrency
	if limit <= 0 {
		limit = n
	}

	go func() {
		defer close(b.done)

		start := time.Now()
		var g errgroup.Group
		g.SetLimit(limit)

		for i := 0; i < n; i++ {
			i := i
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}

				v, err := fn(ctx, i)
				if err != nil && abandoned(ctx, err) {
					return nil
				}
				if err != nil {
					log.Debug().Err(err).Int("index", i).Msg("Gather task failed")
					b.fail(i, err)
					return nil
				}
				b.succeed(i, v)
				return nil
			})
		}
		_ = g.Wait()

		log.Debug().
			Int("tasks", n).
			Dur("duration", time.Since(start)).
			Msg("Gather complete")
	}()

	return b
}

// abandoned reports whether err only says that ctx ended, in which case the
// slot is left pending rather than failed.
func abandoned(ctx context.Context, err error) bool {
	cerr := ctx.Err()
	return cerr != nil && errors.Is(err, cerr)
}

func (b *Batch[T]) succeed(i int, v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots[i] = Slot[T]{Status: Succeeded, Value: v}
}

func (b *Batch[T]) fail(i int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots[i] = Slot[T]{Status: Failed, Err: err}
}

// Len returns the number of slots.
func (b *Batch[T]) Len() int {
	return len(b.slots)
}

// Snapshot returns a copy of the current slots.
func (b *Batch[T]) Snapshot() []Slot[T] {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Slot[T], len(b.slots))
	copy(out, b.slots)
	return out
}

// Done is closed once every slot has settled.
func (b *Batch[T]) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until every slot has settled or ctx ends, and returns the
// slots as they are at that point.
func (b *Batch[T]) Wait(ctx context.Context) ([]Slot[T], error) {
	select {
	case <-b.done:
		return b.Snapshot(), nil
	case <-ctx.Done():
		return b.Snapshot(), ctx.Err()
	}
}

// Summary is the reduced view of a set of slots.
type Summary[T any] struct {
	// Pending counts unsettled slots
	Pending int
	// Failed counts failed slots
	Failed int
	// Err is the error of the lowest-index failed slot
	Err error
	// Values holds the successful values in index order
	Values []T
}

// Loading reports whether any slot is still pending.
func (s Summary[T]) Loading() bool {
	return s.Pending > 0
}

// Reduce folds slots into a Summary.
func Reduce[T any](slots []Slot[T]) Summary[T] {
	sum := Summary[T]{Values: make([]T, 0, len(slots))}
	for _, s := range slots {
		switch s.Status {
		case Pending:
			sum.Pending++
		case Failed:
			sum.Failed++
			if sum.Err == nil {
				sum.Err = s.Err
			}
		case Succeeded:
			sum.Values = append(sum.Values, s.Value)
		}
	}
	return sum
}
