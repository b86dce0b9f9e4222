package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"subforge/internal/logging"
	"subforge/internal/queue"
	"subforge/internal/services"
	"subforge/internal/stage"
	"subforge/internal/worker"
)

// DefaultSeedInterval is how often the daemon rescans the queue for jobs
// that need a task dispatched.
const DefaultSeedInterval = 10 * time.Second

// Seed scans the queue and submits tasks for jobs that are waiting on one:
// uploaded jobs get a Start task, awaiting-translation jobs whose translation
// has been requested get a Translate task, and processing jobs whose tasks
// were lost to a daemon restart get the task that resumes them. Every
// orchestrator dispatch is recorded per job, so a seed pass never duplicates
// a task this process already submitted; after a restart the record is empty
// and each in-flight job is re-dispatched exactly once.
func (o *Orchestrator) Seed(ctx context.Context) error {
	jobs, err := o.store.List(ctx,
		queue.StatusUploaded, queue.StatusProcessing, queue.StatusAwaitingTranslation)
	if err != nil {
		return err
	}

	current := make(map[int64]stage.Kind, len(jobs))
	for _, job := range jobs {
		kind, ok := o.seedKind(job)
		if !ok {
			continue
		}
		current[job.ID] = kind
		if o.alreadyDispatched(job.ID, kind) {
			continue
		}

		taskCtx := services.WithRequestID(ctx, uuid.NewString())
		if err := o.enqueue(taskCtx, worker.Task{Kind: kind, JobID: job.ID}); err != nil {
			return err
		}
		if kind == stage.KindTranslate && job.Status == queue.StatusAwaitingTranslation {
			o.clearTranslateRequest(ctx, job)
		}
		o.logger.Info("seeded job task",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.String(logging.FieldStage, string(kind)),
		)
	}

	o.pruneSeeded(current)
	return nil
}

// SeedLoop runs Seed immediately and then on the given interval until the
// context is cancelled.
func (o *Orchestrator) SeedLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSeedInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := o.Seed(ctx); err != nil && !isContextError(err) {
			o.logger.Warn("queue seed pass failed", logging.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) seedKind(job *queue.Job) (stage.Kind, bool) {
	switch job.Status {
	case queue.StatusUploaded:
		return stage.KindStart, true
	case queue.StatusProcessing:
		return o.resumeKind(job), true
	case queue.StatusAwaitingTranslation:
		if requested, _ := job.Meta["translate_requested"].(bool); requested {
			return stage.KindTranslate, true
		}
	}
	return "", false
}

// resumeKind picks the task that moves an interrupted processing job forward.
// Chunked jobs resume from Start, which reuses stored audio and skips
// completed chunks; when every chunk already finished only the Finalize
// dispatch was lost. Jobs on the direct-subtitle path already hold their
// segments and resume at Translate or Finalize per the configured stop stage.
// Finalize and Translate tolerate a duplicate dispatch, so racing an in-flight
// inline dispatch is harmless.
func (o *Orchestrator) resumeKind(job *queue.Job) stage.Kind {
	if job.ChunksTotal > 0 {
		if job.ChunksCompleted >= job.ChunksTotal {
			return stage.KindFinalize
		}
		return stage.KindStart
	}
	if job.MetaString("subtitle_source") != "" {
		if o.resolveStopAfter(job) == stopAfterTranslate {
			return stage.KindTranslate
		}
		return stage.KindFinalize
	}
	return stage.KindStart
}

// clearTranslateRequest drops the translate_requested flag once the Translate
// task is in the queue. A failed update leaves the flag set; the dispatch
// record keeps this process from re-submitting, and a later daemon run simply
// dispatches the translation again.
func (o *Orchestrator) clearTranslateRequest(ctx context.Context, job *queue.Job) {
	delete(job.Meta, "translate_requested")
	if err := o.store.Update(ctx, job); err != nil {
		o.logger.Warn("failed to clear translation request flag",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.Error(err),
		)
	}
}

func (o *Orchestrator) alreadyDispatched(jobID int64, kind stage.Kind) bool {
	o.seedMu.Lock()
	defer o.seedMu.Unlock()
	return o.seeded[jobID] == kind
}

// markDispatched records job-level task submissions so seed passes skip jobs
// this process already dispatched, whether the dispatch came from a seed pass
// or from a stage handler. Chunk tasks are not tracked; seeding never submits
// them directly.
func (o *Orchestrator) markDispatched(task worker.Task) {
	switch task.Kind {
	case stage.KindStart, stage.KindTranslate, stage.KindFinalize:
	default:
		return
	}
	o.seedMu.Lock()
	defer o.seedMu.Unlock()
	if o.seeded == nil {
		o.seeded = make(map[int64]stage.Kind)
	}
	o.seeded[task.JobID] = task.Kind
}

// pruneSeeded drops dispatch records for jobs that no longer need seeding, so
// a job that later returns to a seedable status is picked up again.
func (o *Orchestrator) pruneSeeded(current map[int64]stage.Kind) {
	o.seedMu.Lock()
	defer o.seedMu.Unlock()
	for id, kind := range o.seeded {
		if current[id] != kind {
			delete(o.seeded, id)
		}
	}
}
