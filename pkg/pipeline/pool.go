package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/storyline/pkg/logger"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// ErrQueueFull is returned when a job is dropped because the queue is full.
var ErrQueueFull = errors.New("job queue full")

// ErrPoolClosed is returned when a job is enqueued after Close.
var ErrPoolClosed = errors.New("job pool closed")

// Handler processes one job.
type Handler func(ctx context.Context, job Job)

// PoolConfig is the configuration options for the worker pool.
type PoolConfig struct {
	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided slog logger.
	Logger *slog.Logger
}

// Pool processes pipeline jobs asynchronously via a worker pool.
type Pool struct {
	config  *PoolConfig
	handler Handler
	queue   chan Job
	wg      sync.WaitGroup
	logger  *slog.Logger

	// pending counts accepted jobs that have not finished. Jobs enqueued by
	// a running job are counted before it finishes, so Drain sees the whole chain.
	pendingMu sync.Mutex
	pending   int
	idle      *sync.Cond

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *PoolConfig, handler Handler) (*Pool, error) {
	if handler == nil {
		return nil, errors.New("pool handler is required")
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	l := c.Logger
	if l == nil {
		l = logger.Nop()
	}

	wp := &Pool{
		config:  c,
		handler: handler,
		queue:   make(chan Job, c.QueueSize),
		logger:  l,
	}
	wp.idle = sync.NewCond(&wp.pendingMu)

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool. A full queue drops
// the job and returns ErrQueueFull.
func (p *Pool) Enqueue(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	p.addPending()
	select {
	case p.queue <- job:
		p.logger.Debug("job queued", job.attrs()...)
		return nil
	default:
		p.donePending()
		p.logger.Error("job not queued, queue full, job dropped", job.attrs()...)
		return ErrQueueFull
	}
}

// Drain blocks until every accepted job, and every job they enqueued, has finished.
func (p *Pool) Drain() {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	for p.pending > 0 {
		p.idle.Wait()
	}
}

func (p *Pool) addPending() {
	p.pendingMu.Lock()
	p.pending++
	p.pendingMu.Unlock()
}

func (p *Pool) donePending() {
	p.pendingMu.Lock()
	p.pending--
	if p.pending == 0 {
		p.idle.Broadcast()
	}
	p.pendingMu.Unlock()
}

// Close drains outstanding jobs, then stops the workers.
func (p *Pool) Close() {
	p.Drain()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.handler(context.Background(), job)
		p.donePending()
	}

	p.logger.Debug("pipeline worker stopped", "worker_id", id)
}
