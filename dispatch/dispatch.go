// Package dispatch runs independent tasks on a bounded worker pool.
//
// Each task owns its outcome: an error or panic in one task is recorded against that task
// and never stops its siblings.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
)

const releaseTimeout = 5 * time.Second

type Func[T any] func(ctx context.Context) (T, error)

type Outcome[T any] struct {
	Key   string
	Value T
	Err   error
}

// Future is the pending outcome of one submitted task.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	out  Outcome[T]
}

func (f *Future[T]) Key() string {
	return f.out.Key
}

// Result blocks until the task has finished.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.out.Value, f.out.Err
}

func (f *Future[T]) complete(v T, err error, done func()) {
	f.once.Do(func() {
		f.out.Value = v
		f.out.Err = err
		close(f.done)
		done()
	})
}

type Dispatcher[T any] struct {
	name string
	ctx  context.Context
	pool *ants.Pool
	log  *logrus.Entry

	mu      sync.Mutex
	futures []*Future[T]
	wg      sync.WaitGroup
}

// New creates a dispatcher running at most workers tasks at once. Tasks receive ctx.
func New[T any](ctx context.Context, name string, workers int, log *logrus.Entry) (*Dispatcher[T], error) {
	if workers < 1 {
		workers = 1
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create %s pool: %w", name, err)
	}

	log.Tracef("Created %s dispatcher with %d workers", name, workers)
	return &Dispatcher[T]{
		name: name,
		ctx:  ctx,
		pool: pool,
		log:  log,
	}, nil
}

// Submit queues fn and returns immediately. Submit must not race with Wait.
func (d *Dispatcher[T]) Submit(key string, fn Func[T]) *Future[T] {
	f := &Future[T]{
		done: make(chan struct{}),
		out:  Outcome[T]{Key: key},
	}

	d.mu.Lock()
	d.futures = append(d.futures, f)
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		if err := d.pool.Submit(func() { d.run(f, fn) }); err != nil {
			var zero T
			f.complete(zero, fmt.Errorf("submit %s task: %w", d.name, err), d.wg.Done)
		}
	}()

	return f
}

// Wait blocks until every submitted task has finished and returns outcomes in submission order.
func (d *Dispatcher[T]) Wait() []Outcome[T] {
	d.wg.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()

	outcomes := make([]Outcome[T], 0, len(d.futures))
	for _, f := range d.futures {
		outcomes = append(outcomes, f.out)
	}
	return outcomes
}

// Release stops the worker pool. Call it after Wait.
func (d *Dispatcher[T]) Release() {
	if err := d.pool.ReleaseTimeout(releaseTimeout); err != nil {
		d.log.WithError(err).Warnf("Failed releasing %s pool", d.name)
	}
}

// Run submits one task per key, waits for all of them and releases the pool.
func Run[T any](ctx context.Context, name string, workers int, log *logrus.Entry, keys []string,
	fn func(ctx context.Context, i int) (T, error)) ([]Outcome[T], error) {
	d, err := New[T](ctx, name, workers, log)
	if err != nil {
		return nil, err
	}
	defer d.Release()

	for i, key := range keys {
		i := i
		d.Submit(key, func(ctx context.Context) (T, error) {
			return fn(ctx, i)
		})
	}

	return d.Wait(), nil
}

func (d *Dispatcher[T]) run(f *Future[T], fn Func[T]) {
	var zero T

	defer func() {
		if r := recover(); r != nil {
			d.log.Errorf("Recovered %s task %q panic: %v", d.name, f.out.Key, r)
			f.complete(zero, fmt.Errorf("task panic: %v", r), d.wg.Done)
		}
	}()

	if err := d.ctx.Err(); err != nil {
		f.complete(zero, err, d.wg.Done)
		return
	}

	v, err := fn(d.ctx)
	f.complete(v, err, d.wg.Done)
}
