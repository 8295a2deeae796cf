package enrichment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/PabloGalante/psykologen/internal/domain"
	"github.com/PabloGalante/psykologen/internal/observability"
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 64
)

// UsageFunc receives the usage reported by a finished job.
type UsageFunc func(id domain.SessionID, u domain.Usage)

type Options struct {
	Workers   int
	QueueSize int
	Metrics   *observability.Metrics
	OnUsage   UsageFunc
}

type task struct {
	job  Job
	snap Snapshot
}

// Scheduler runs enrichment jobs on a fixed pool of workers. Scheduling never
// blocks: when the queue is full the task is dropped and counted.
type Scheduler struct {
	jobs    []Job
	tasks   chan task
	metrics *observability.Metrics
	onUsage UsageFunc

	// mu guards closed and the send side of tasks.
	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler starts the workers. Close must be called to stop them.
func NewScheduler(opts Options, jobs ...Job) *Scheduler {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		jobs:    jobs,
		tasks:   make(chan task, opts.QueueSize),
		metrics: opts.Metrics,
		onUsage: opts.OnUsage,
		ctx:     ctx,
		cancel:  cancel,
	}

	for _, j := range jobs {
		s.metrics.Job(j.Name())
	}

	s.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go s.worker()
	}
	return s
}

// Schedule enqueues one task per registered job and reports how many were
// accepted.
func (s *Scheduler) Schedule(ctx context.Context, snap Snapshot) int {
	log := observability.LoggerFromContext(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()

	accepted := 0
	for _, j := range s.jobs {
		if s.closed {
			s.metrics.Job(j.Name()).Dropped.Add(1)
			log.Warn("enrichment scheduler closed, task dropped", zap.String("job", j.Name()))
			continue
		}
		select {
		case s.tasks <- task{job: j, snap: snap}:
			accepted++
		default:
			s.metrics.Job(j.Name()).Dropped.Add(1)
			log.Warn("enrichment queue full, task dropped", zap.String("job", j.Name()))
		}
	}
	return accepted
}

// Metrics returns the counters the scheduler writes to.
func (s *Scheduler) Metrics() *observability.Metrics {
	return s.metrics
}

// Close stops accepting tasks and waits for the queue to drain. When ctx
// expires first, running jobs are cancelled and ctx.Err() is returned.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.tasks)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for t := range s.tasks {
		s.run(t)
	}
}

func (s *Scheduler) run(t task) {
	name := t.job.Name()
	ctx := observability.WithSessionID(s.ctx, string(t.snap.SessionID))
	log := observability.LoggerFromContext(ctx).With(zap.String("job", name))

	if err := s.ctx.Err(); err != nil {
		s.metrics.Job(name).Dropped.Add(1)
		log.Warn("enrichment abandoned", zap.Error(err))
		return
	}

	s.metrics.Job(name).Started.Add(1)
	start := time.Now()

	usage, err := s.runIsolated(ctx, t)
	if s.onUsage != nil && usage.Total() > 0 {
		s.onUsage(t.snap.SessionID, usage)
	}

	s.metrics.RecordRun(name, err == nil)
	if err != nil {
		log.Error("enrichment job failed", zap.Error(err),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return
	}
	log.Debug("enrichment job done",
		zap.Int("tokens", usage.Total()),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))
}

func (s *Scheduler) runIsolated(ctx context.Context, t task) (usage domain.Usage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", t.job.Name(), r)
		}
	}()
	return t.job.Run(ctx, t.snap)
}
