package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arturoeanton/go-context-gateway/internal/domain"
	"github.com/arturoeanton/go-context-gateway/internal/port"
)

// IndexRunner executes one indexing job. Implemented by indexer.Engine.
type IndexRunner interface {
	Run(ctx context.Context, job *domain.IndexJob) (domain.IndexStats, error)
}

const laneCapacity = 64

// JobQueue accepts indexing requests, runs them in the background, and keeps
// queryable job records. Jobs for the same collection run strictly one at a
// time on a per-collection lane; jobs for different collections run
// concurrently. Finished jobs are garbage-collected after the retention
// window.
type JobQueue struct {
	runner    IndexRunner
	retention time.Duration
	logger    *slog.Logger

	ctx context.Context

	mu    sync.Mutex
	jobs  map[string]*domain.IndexJob
	lanes map[string]chan *domain.IndexJob
}

// NewJobQueue creates a job queue.
func NewJobQueue(runner IndexRunner, retention time.Duration, logger *slog.Logger) *JobQueue {
	return &JobQueue{
		runner:    runner,
		retention: retention,
		logger:    logger,
		jobs:      make(map[string]*domain.IndexJob),
		lanes:     make(map[string]chan *domain.IndexJob),
	}
}

// Start binds the queue to its lifetime context and launches the retention
// sweeper. Must be called before Enqueue.
func (q *JobQueue) Start(ctx context.Context) {
	q.ctx = ctx
	go q.sweep(ctx)
}

// Enqueue registers a job and schedules it on its collection's lane. The
// returned job snapshot has status queued; the webhook handler and trigger
// endpoint respond from it without waiting for the run.
func (q *JobQueue) Enqueue(collection, repoPath string, changed, deleted []string, force bool) (*domain.IndexJob, error) {
	job := &domain.IndexJob{
		ID:           uuid.NewString(),
		Collection:   collection,
		RepoPath:     repoPath,
		Status:       domain.JobQueued,
		FilesChanged: changed,
		FilesDeleted: deleted,
		Force:        force,
		EnqueuedAt:   time.Now().UTC(),
	}

	q.mu.Lock()
	lane, ok := q.lanes[collection]
	if !ok {
		lane = make(chan *domain.IndexJob, laneCapacity)
		q.lanes[collection] = lane
		go q.drain(collection, lane)
	}

	select {
	case lane <- job:
	default:
		q.mu.Unlock()
		return nil, fmt.Errorf("index queue full for collection %s", collection)
	}
	q.jobs[job.ID] = job
	q.mu.Unlock()

	q.logger.Info("job enqueued",
		"job_id", job.ID,
		"collection", collection,
		"changed_files", len(changed),
		"deleted_files", len(deleted),
	)
	snapshot := *job
	return &snapshot, nil
}

// Get returns a snapshot of one job, or port.ErrJobNotFound.
func (q *JobQueue) Get(jobID string) (*domain.IndexJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[jobID]
	if !ok {
		return nil, port.ErrJobNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// drain runs one collection's jobs in arrival order. The lane is the
// single-flight mechanism: a second job for a busy collection waits here
// instead of racing the first.
func (q *JobQueue) drain(collection string, lane chan *domain.IndexJob) {
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-lane:
			q.execute(job)
		}
	}
}

func (q *JobQueue) execute(job *domain.IndexJob) {
	now := time.Now().UTC()
	q.update(job.ID, func(j *domain.IndexJob) {
		j.Status = domain.JobRunning
		j.StartedAt = &now
	})

	stats, err := q.runner.Run(q.ctx, job)

	finished := time.Now().UTC()
	q.update(job.ID, func(j *domain.IndexJob) {
		j.Stats = stats
		j.FinishedAt = &finished
		if err != nil {
			j.Status = domain.JobFailed
			j.Error = err.Error()
		} else {
			j.Status = domain.JobSucceeded
		}
	})

	if err != nil {
		q.logger.Error("job failed", "job_id", job.ID, "collection", job.Collection, "error", err)
		return
	}
	q.logger.Info("job succeeded",
		"job_id", job.ID,
		"collection", job.Collection,
		"files_processed", stats.FilesProcessed,
		"chunks_upserted", stats.ChunksUpserted,
		"chunks_deleted", stats.ChunksDeleted,
		"duration", finished.Sub(now).String(),
	)
}

func (q *JobQueue) update(jobID string, fn func(*domain.IndexJob)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if job, ok := q.jobs[jobID]; ok {
		fn(job)
	}
}

// sweep drops terminal jobs once they age out of the retention window.
func (q *JobQueue) sweep(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-q.retention)
			q.mu.Lock()
			for id, job := range q.jobs {
				if job.Status.Terminal() && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
					delete(q.jobs, id)
				}
			}
			q.mu.Unlock()
		}
	}
}
