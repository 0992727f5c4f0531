package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/itemxtract/internal/ledger"
)

// Orchestrator runs submitted jobs on a fixed pool of workers.
type Orchestrator struct {
	jobs    *JobStore
	queue   chan *Job
	worker  *Worker
	sinks   []ledger.Sink
	log     *slog.Logger
	workers int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// OrchestratorConfig sizes the pool and the job registry.
type OrchestratorConfig struct {
	Workers      int
	MaxQueueSize int
	JobTTL       time.Duration
}

// NewOrchestrator creates the pipeline. Records of every job go to sinks.
func NewOrchestrator(cfg OrchestratorConfig, w *Worker, sinks []ledger.Sink, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:    NewJobStore(cfg.JobTTL),
		queue:   make(chan *Job, cfg.MaxQueueSize),
		worker:  w,
		sinks:   sinks,
		log:     log,
		workers: max(cfg.Workers, 1),
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.workers {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.run(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

func (o *Orchestrator) run(ctx context.Context, job *Job) {
	log := o.log.With("job_id", job.ID)
	job.SetStatus(StatusRunning, "extracting")
	log.Info("job started", "tasks", len(job.tasks))
	// A job's tasks share the pool size as their own concurrency limit.
	runTasks(ctx, o.worker, job.session, job.tasks, o.workers, func(_ int, rec ledger.FilingRecord) {
		job.Record(rec)
	})
	if ctx.Err() != nil {
		job.SetStatus(StatusFailed, "cancelled")
		return
	}
	job.Finish()
	snap := job.Snapshot()
	log.Info("job finished", "status", snap.Status, "items", snap.Progress.ItemsExtracted, "errors", len(snap.Progress.Errors))
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// NewJob creates a job with its own ledger session.
func (o *Orchestrator) NewJob(tasks []Task) *Job {
	return NewJob(tasks, ledger.NewSession(o.log, o.sinks...))
}

// Submit queues a job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", cap(o.queue))
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
