// Package worker runs pipeline stage tasks on a bounded pool with
// per-stage retry budgets.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"subforge/internal/config"
	"subforge/internal/logging"
	"subforge/internal/services"
	"subforge/internal/stage"
)

// Task identifies one unit of stage work. ChunkID and Sequence are only
// meaningful for chunk-scoped stages and are zero otherwise.
type Task struct {
	Kind     stage.Kind
	JobID    int64
	ChunkID  int64
	Sequence int
}

// Handler executes one task attempt.
type Handler interface {
	Run(ctx context.Context, task Task) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, task Task) error

// Run implements Handler.
func (f HandlerFunc) Run(ctx context.Context, task Task) error {
	return f(ctx, task)
}

// JobFailer marks a job failed after a task exhausts its retry budget.
type JobFailer interface {
	Fail(ctx context.Context, jobID int64, message string) error
}

// Option configures optional Pool behavior.
type Option func(*Pool)

// WithPolicyResolver overrides the per-kind retry policy lookup (used in tests).
func WithPolicyResolver(resolver func(stage.Kind) stage.Policy) Option {
	return func(p *Pool) {
		p.policyFor = resolver
	}
}

// WithQueueDepth sets the pending-task buffer size.
func WithQueueDepth(depth int) Option {
	return func(p *Pool) {
		if depth > 0 {
			p.depth = depth
		}
	}
}

// Pool dispatches tasks to registered stage handlers. Each task is retried
// according to its stage policy; when attempts are exhausted or the failure
// is not retryable, the owning job is marked failed.
type Pool struct {
	cfg       config.Pipeline
	logger    *slog.Logger
	failer    JobFailer
	policyFor func(stage.Kind) stage.Policy
	depth     int

	mu       sync.Mutex
	handlers map[stage.Kind]Handler
	tasks    chan Task
	cancel   context.CancelFunc
	group    *errgroup.Group
	running  bool

	inFlight sync.WaitGroup
}

// NewPool constructs a task pool sized from the pipeline configuration.
func NewPool(cfg config.Pipeline, failer JobFailer, logger *slog.Logger, opts ...Option) *Pool {
	pool := &Pool{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "worker"),
		failer:   failer,
		depth:    256,
		handlers: make(map[stage.Kind]Handler),
	}
	pool.policyFor = func(kind stage.Kind) stage.Policy {
		return stage.PolicyFor(kind, cfg)
	}
	for _, opt := range opts {
		opt(pool)
	}
	return pool
}

// Register installs the handler for a stage kind. It must be called before Start.
func (p *Pool) Register(kind stage.Kind, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[kind] = handler
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("worker pool already running")
	}
	if len(p.handlers) == 0 {
		return errors.New("no stage handlers registered")
	}

	workers := p.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)

	p.tasks = make(chan Task, p.depth)
	p.cancel = cancel
	p.group = group
	p.running = true

	for i := 0; i < workers; i++ {
		group.Go(func() error {
			p.runWorker(groupCtx)
			return nil
		})
	}
	return nil
}

// Stop cancels outstanding work and waits for workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	group := p.group
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	_ = group.Wait()
}

// Submit enqueues a task. It blocks while the buffer is full and fails once
// the pool is stopped or the context ends.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.Lock()
	running := p.running
	tasks := p.tasks
	p.mu.Unlock()
	if !running {
		return errors.New("worker pool not running")
	}

	p.inFlight.Add(1)
	select {
	case tasks <- task:
		return nil
	case <-ctx.Done():
		p.inFlight.Done()
		return ctx.Err()
	}
}

// Drain blocks until every submitted task has finished executing.
func (p *Pool) Drain() {
	p.inFlight.Wait()
}

func (p *Pool) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.tasks:
			p.execute(ctx, task)
			p.inFlight.Done()
		}
	}
}

func (p *Pool) execute(ctx context.Context, task Task) {
	p.mu.Lock()
	handler := p.handlers[task.Kind]
	p.mu.Unlock()

	logger := p.logger.With(
		logging.String(logging.FieldStage, string(task.Kind)),
		logging.Int64(logging.FieldJobID, task.JobID),
	)

	if handler == nil {
		p.failJob(ctx, logger, task, fmt.Errorf("no handler registered for stage %q", task.Kind))
		return
	}

	policy := p.policyFor(task.Kind)
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := policy.BackoffFor(attempt - 1)
			logger.Warn("retrying stage",
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", attempts),
				logging.Duration("backoff", delay),
				logging.Error(lastErr),
			)
			if !sleepContext(ctx, delay) {
				return
			}
		}

		lastErr = p.runAttempt(ctx, handler, task, policy.Timeout)
		if lastErr == nil {
			return
		}
		if !services.IsRetryable(lastErr) {
			break
		}
	}

	if errors.Is(lastErr, context.Canceled) {
		return
	}
	p.failJob(ctx, logger, task, lastErr)
}

func (p *Pool) runAttempt(ctx context.Context, handler Handler, task Task, timeout time.Duration) error {
	attemptCtx := services.WithJobID(ctx, task.JobID)
	if task.Kind == stage.KindProcessChunk {
		attemptCtx = services.WithChunk(attemptCtx, task.Sequence)
	}
	attemptCtx = services.WithStage(attemptCtx, string(task.Kind))

	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(attemptCtx, timeout)
	}
	defer cancel()

	err := handler.Run(attemptCtx, task)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return services.Wrap(services.ErrTimeout, string(task.Kind), "run", "stage timed out", err)
	}
	return err
}

func (p *Pool) failJob(ctx context.Context, logger *slog.Logger, task Task, cause error) {
	message := "stage failed"
	if cause != nil {
		message = cause.Error()
	}
	logger.Error("stage attempts exhausted", logging.Error(cause))
	if p.failer == nil {
		return
	}
	// The run context may already be canceled during shutdown; the failure
	// record still needs to land.
	failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.failer.Fail(failCtx, task.JobID, message); err != nil {
		logger.Error("failed to record job failure", logging.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
