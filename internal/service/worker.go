package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"storecopy-api/internal/config"
	"storecopy-api/internal/model"
	"storecopy-api/internal/repository"
)

// Worker drains the job queue. One instance runs for the process lifetime and
// handles at most one job per tick, so jobs from the same shop never overlap.
type Worker struct {
	jobs       repository.JobRepository
	accounts   repository.AccountRepository
	processors map[model.TaskMode]Processor
	interval   time.Duration
	jobTimeout time.Duration

	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	mu        sync.Mutex
	isRunning bool
}

// NewWorker creates the worker. Processors are keyed by the task tag stored
// in each job's config.
func NewWorker(jobs repository.JobRepository, accounts repository.AccountRepository, processors map[model.TaskMode]Processor, cfg config.WorkerConfig) *Worker {
	return &Worker{
		jobs:       jobs,
		accounts:   accounts,
		processors: processors,
		interval:   cfg.PollInterval,
		jobTimeout: cfg.JobTimeout,
		stopCh:     make(chan struct{}),
	}
}

// Start begins polling in a background goroutine.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		log.Println("[Worker] already running")
		return
	}

	w.ticker = time.NewTicker(w.interval)
	w.isRunning = true

	go w.run()
	log.Printf("[Worker] started with %v poll interval", w.interval)
}

// Stop halts polling. The job in flight, if any, runs to completion under its
// own timeout.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.mu.Lock()
		if w.ticker != nil {
			w.ticker.Stop()
		}
		w.isRunning = false
		w.mu.Unlock()
		log.Println("[Worker] stopped")
	})
}

// IsRunning reports whether the polling loop is active.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

func (w *Worker) run() {
	for {
		select {
		case <-w.ticker.C:
			if _, err := w.RunOnce(context.Background()); err != nil {
				log.Printf("[Worker] tick failed: %v", err)
			}
		case <-w.stopCh:
			return
		}
	}
}

// RunOnce claims and processes at most one queued job. It reports whether a
// job was claimed. A processor error fails the job and refunds its full
// credit cost; partial per-target failures never reach this level.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.jobs.ClaimNextQueued(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to claim next job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	log.Printf("[Worker] processing %s job %s for %s (%d items)", job.Config.Task, job.ID, job.ShopDomain, job.TotalItems)

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	processor, ok := w.processors[job.Config.Task]
	if !ok {
		w.failJob(ctx, job, fmt.Errorf("unsupported bulk job task %q", job.Config.Task))
		return true, nil
	}

	if err := processor.Process(jobCtx, job); err != nil {
		w.failJob(ctx, job, err)
		return true, nil
	}

	if err := w.jobs.MarkCompleted(ctx, job.ID); err != nil {
		log.Printf("[Worker] failed to mark job %s completed: %v", job.ID, err)
		return true, err
	}
	log.Printf("[Worker] completed job %s for %s", job.ID, job.ShopDomain)
	return true, nil
}

// failJob records the failure and returns the job's reserved credits. The
// refund uses the cost snapshot from admission, not a recount.
func (w *Worker) failJob(ctx context.Context, job *model.BulkJob, cause error) {
	log.Printf("[Worker] job %s failed: %v", job.ID, cause)

	if job.Config.CreditCost > 0 {
		if _, err := w.accounts.Refund(ctx, job.ShopDomain, int64(job.Config.CreditCost)); err != nil {
			log.Printf("[Worker] refund of %d credits to %s for job %s failed: %v", job.Config.CreditCost, job.ShopDomain, job.ID, err)
		} else {
			log.Printf("[Worker] refunded %d credits to %s for job %s", job.Config.CreditCost, job.ShopDomain, job.ID)
		}
	}

	if err := w.jobs.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
		log.Printf("[Worker] failed to mark job %s failed: %v", job.ID, err)
	}
}
