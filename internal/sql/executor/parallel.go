package executor

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/dshills/QuantaEval/internal/log"
	"github.com/dshills/QuantaEval/internal/source"
	"github.com/dshills/QuantaEval/internal/sql/vector"
)

// WorkerPool manages a pool of worker goroutines
type WorkerPool struct {
	workers   int
	taskQueue chan Task
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closed    bool
	closeMu   sync.RWMutex

	errMu sync.Mutex
	err   error
}

// Task represents a unit of work for parallel execution
type Task interface {
	Execute(ctx context.Context) error
}

// NewWorkerPool creates a pool of workers pulling from a queue of queueSize
// tasks. The pool stops when parent is canceled or a task fails.
func NewWorkerPool(parent context.Context, workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = workers * 2
	}
	ctx, cancel := context.WithCancel(parent)

	wp := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan Task, queueSize),
		ctx:       ctx,
		cancel:    cancel,
	}

	for i := 0; i < workers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}

	return wp
}

// Submit queues a task, blocking while the queue is full.
func (wp *WorkerPool) Submit(task Task) error {
	wp.closeMu.RLock()
	defer wp.closeMu.RUnlock()

	if wp.closed {
		return fmt.Errorf("worker pool is closed")
	}

	select {
	case wp.taskQueue <- task:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Context is canceled when the pool stops.
func (wp *WorkerPool) Context() context.Context {
	return wp.ctx
}

// Err returns the first task error, if any.
func (wp *WorkerPool) Err() error {
	wp.errMu.Lock()
	defer wp.errMu.Unlock()
	return wp.err
}

// fail records the first error and stops the pool.
func (wp *WorkerPool) fail(err error) {
	wp.errMu.Lock()
	if wp.err == nil {
		wp.err = err
	}
	wp.errMu.Unlock()
	wp.cancel()
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case task, ok := <-wp.taskQueue:
			if !ok {
				return
			}
			if err := task.Execute(wp.ctx); err != nil {
				wp.fail(err)
			}

		case <-wp.ctx.Done():
			return
		}
	}
}

// Close stops accepting tasks and waits for queued tasks to finish.
func (wp *WorkerPool) Close() error {
	wp.closeMu.Lock()
	if wp.closed {
		wp.closeMu.Unlock()
		return nil
	}
	wp.closed = true
	close(wp.taskQueue)
	wp.closeMu.Unlock()

	wp.wg.Wait()
	wp.cancel()
	return nil
}

// RunnerConfig sizes the runner's worker pool.
type RunnerConfig struct {
	// MaxParallelWorkers is the number of batches evaluated at once.
	MaxParallelWorkers int
	// WorkQueueSize bounds how many batches may wait for a worker.
	WorkQueueSize int
	Logger        log.Logger
}

// RunStats summarizes a run.
type RunStats struct {
	Batches int
	Rows    int64
	Elapsed time.Duration
}

// Runner evaluates a projection over every batch of a source in parallel.
type Runner struct {
	projection *Projection
	cfg        RunnerConfig
}

// NewRunner creates a runner for p.
func NewRunner(p *Projection, cfg RunnerConfig) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Runner{projection: p, cfg: cfg}
}

type batchResult struct {
	seq int
	out *vector.Batch
	err error
}

type batchTask struct {
	seq        int
	in         *vector.Batch
	projection *Projection
	results    chan<- batchResult
}

func (t *batchTask) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out, err := t.projection.Apply(t.in)
	select {
	case t.results <- batchResult{seq: t.seq, out: out, err: err}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run reads src to the end, evaluates each batch on the worker pool and hands
// the outputs to sink in source order. It stops at the first error in source
// order; every earlier batch has been passed to sink by then. The context is
// checked between batches.
func (r *Runner) Run(ctx context.Context, src source.Source, sink func(*vector.Batch) error) (RunStats, error) {
	start := time.Now()
	logger := r.cfg.Logger.WithContext(ctx)

	pool := NewWorkerPool(ctx, r.cfg.MaxParallelWorkers, r.cfg.WorkQueueSize)
	results := make(chan batchResult, pool.workers)

	var producer sync.WaitGroup
	producer.Add(1)
	go func() {
		defer producer.Done()
		defer pool.Close()

		pctx := pool.Context()
		for seq := 0; ; seq++ {
			b, err := src.Next(pctx)
			if err == io.EOF {
				return
			}
			if err != nil {
				select {
				case results <- batchResult{seq: seq, err: fmt.Errorf("reading batch %d: %w", seq, err)}:
				case <-pctx.Done():
				}
				return
			}
			task := &batchTask{seq: seq, in: b, projection: r.projection, results: results}
			if err := pool.Submit(task); err != nil {
				return
			}
		}
	}()

	go func() {
		producer.Wait()
		close(results)
	}()

	var (
		stats    RunStats
		firstErr error
		next     int
		pending  = make(map[int]batchResult)
	)
	for res := range results {
		if firstErr != nil {
			continue
		}
		pending[res.seq] = res
		for {
			res, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++

			if res.err != nil {
				firstErr = res.err
				break
			}
			if err := sink(res.out); err != nil {
				firstErr = err
				break
			}
			stats.Batches++
			stats.Rows += int64(res.out.RowCount())
			logger.Debug("batch evaluated",
				log.Int("batch", res.seq),
				log.Int("rows", res.out.RowCount()))
		}
		if firstErr != nil {
			pool.fail(firstErr)
		}
	}

	// The pool may have stopped for a reason the ordered results never saw.
	if firstErr == nil {
		if err := ctx.Err(); err != nil {
			firstErr = err
		} else if err := pool.Err(); err != nil {
			firstErr = err
		}
	}

	stats.Elapsed = time.Since(start)
	if firstErr != nil {
		logger.Warn("run aborted",
			log.Int("batches", stats.Batches),
			log.Int64("rows", stats.Rows),
			log.Err(firstErr))
		return stats, firstErr
	}
	logger.Info("run complete",
		log.Int("batches", stats.Batches),
		log.Int64("rows", stats.Rows),
		log.Duration("elapsed", stats.Elapsed))
	return stats, nil
}
