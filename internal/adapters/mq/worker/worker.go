package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CurryTPH/all-sports-api/internal/domain/model"
	"github.com/CurryTPH/all-sports-api/pkg/logger"
	"github.com/CurryTPH/all-sports-api/pkg/metrics"
)

// Import outcomes recorded in metrics.
const (
	OutcomeStored = "stored"
	OutcomeFailed = "failed"
)

// Job is one record to write into a collection.
type Job struct {
	Collection string
	Record     model.Record
}

// Inserter writes records. repository.Store satisfies it.
type Inserter interface {
	Insert(ctx context.Context, collection string, rec model.Record) error
}

// Source yields jobs until it is closed.
type Source interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Counters is shared by the workers of one pool.
type Counters struct {
	stored atomic.Int64
	failed atomic.Int64
}

func (c *Counters) Stored() int64 { return c.stored.Load() }
func (c *Counters) Failed() int64 { return c.failed.Load() }

// Worker inserts jobs read from a Source.
type Worker struct {
	source   Source
	inserter Inserter
	counters *Counters
	name     string
	logger   logger.Logger
	done     chan struct{}
}

// New creates a worker. Counters may be nil.
func New(source Source, inserter Inserter, counters *Counters, opts ...Option) *Worker {
	if counters == nil {
		counters = &Counters{}
	}
	w := &Worker{
		source:   source,
		inserter: inserter,
		counters: counters,
		name:     "worker",
		logger:   logger.Nop(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes jobs until the source is drained or ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	for job := range w.source.Dequeue(ctx) {
		if err := w.process(ctx, job); err != nil {
			w.logger.Error(ctx, "import job failed", logger.Error(err))
		}
	}
}

// Done is closed once Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) process(ctx context.Context, job Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.inserter.Insert(ctx, job.Collection, job.Record); err != nil {
		w.counters.failed.Add(1)
		metrics.RecordImport(OutcomeFailed)
		metrics.RecordErrorByComponent("worker", "insert_error")
		return fmt.Errorf("insert %s/%s: %w", job.Collection, job.Record.ID(), err)
	}
	w.counters.stored.Add(1)
	metrics.RecordImport(OutcomeStored)
	w.logger.Debug(ctx, "record imported",
		logger.String("collection", job.Collection),
		logger.String("id", job.Record.ID()),
	)
	return nil
}

// Pool manages multiple workers over one Source.
type Pool struct {
	workers  []*Worker
	source   Source
	counters *Counters
	logger   logger.Logger
	started  sync.Once
}

// NewPool creates a pool. A non-positive count uses runtime.NumCPU().
func NewPool(count int, source Source, inserter Inserter, log logger.Logger) *Pool {
	if count < 1 {
		count = runtime.NumCPU()
	}
	if log == nil {
		log = logger.Nop()
	}
	p := &Pool{
		workers:  make([]*Worker, count),
		source:   source,
		counters: &Counters{},
		logger:   log.Named("worker-pool"),
	}
	for i := range count {
		p.workers[i] = New(source, inserter, p.counters,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(log),
		)
	}
	return p
}

// Start launches every worker once.
func (p *Pool) Start(ctx context.Context) {
	p.started.Do(func() {
		metrics.UpdateWorkerActiveCount(len(p.workers))
		for _, w := range p.workers {
			go w.Run(ctx)
		}
	})
}

// Counters returns the pool's shared counters.
func (p *Pool) Counters() *Counters { return p.counters }

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Shutdown closes the source, if it can be closed, and waits for the workers
// to drain it or for ctx to end.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.source.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	defer metrics.UpdateWorkerActiveCount(0)

	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("shutdown timed out: %w", ctx.Err())
		}
	}
	return nil
}
