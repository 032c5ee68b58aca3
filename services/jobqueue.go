package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"webplayer/logger"
	"webplayer/types"
)

// ErrUnknownSource is returned when a job names a source that is not registered
var ErrUnknownSource = errors.New("unknown sync source")

// ProgressFunc reports that done of total items have been processed
type ProgressFunc func(done, total int)

// Source populates the media root from an external system
type Source interface {
	Name() string
	// Sync copies missing files into root and returns the relative paths it added
	Sync(ctx context.Context, root string, progress ProgressFunc) ([]string, error)
}

// EventBroadcaster receives job events; the websocket hub implements it
type EventBroadcaster interface {
	Broadcast(event types.Event)
}

// SyncQueue manages population jobs
type SyncQueue interface {
	Start(ctx context.Context)
	Sources() []string
	AddJob(source string) (types.SyncJob, error)
	GetJob(id string) (types.SyncJob, bool)
	GetAllJobs() []types.SyncJob
	CancelJob(id string) bool
	Wait(ctx context.Context, id string) (types.SyncJob, error)
}

// syncQueue runs jobs on a fixed pool of workers
type syncQueue struct {
	root       string
	sources    map[string]Source
	jobs       map[string]*types.SyncJob
	cancels    map[string]context.CancelFunc
	queue      chan *types.SyncJob
	mu         sync.RWMutex
	changed    *sync.Cond
	maxWorkers int
	hub        EventBroadcaster
}

// NewSyncQueue creates a queue writing into root with the given sources
func NewSyncQueue(root string, maxWorkers int, hub EventBroadcaster, sources ...Source) SyncQueue {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	q := &syncQueue{
		root:       root,
		sources:    make(map[string]Source, len(sources)),
		jobs:       make(map[string]*types.SyncJob),
		cancels:    make(map[string]context.CancelFunc),
		queue:      make(chan *types.SyncJob, 100),
		maxWorkers: maxWorkers,
		hub:        hub,
	}
	q.changed = sync.NewCond(&q.mu)
	for _, s := range sources {
		q.sources[s.Name()] = s
	}
	return q
}

// Sources returns the registered source names, sorted
func (q *syncQueue) Sources() []string {
	names := make([]string, 0, len(q.sources))
	for name := range q.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddJob queues a run of the named source
func (q *syncQueue) AddJob(source string) (types.SyncJob, error) {
	if _, ok := q.sources[source]; !ok {
		return types.SyncJob{}, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}

	job := &types.SyncJob{
		ID:        uuid.New().String(),
		Source:    source,
		Status:    types.JobStatusQueued,
		CreatedAt: time.Now(),
	}

	q.mu.Lock()
	q.jobs[job.ID] = job
	snapshot := *job
	q.mu.Unlock()

	select {
	case q.queue <- job:
	default:
		q.setStatus(job.ID, types.JobStatusFailed, "sync queue is full")
		return q.snapshot(job.ID), errors.New("sync queue is full")
	}
	return snapshot, nil
}

// GetJob retrieves a copy of a job by ID
func (q *syncQueue) GetJob(id string) (types.SyncJob, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	job, exists := q.jobs[id]
	if !exists {
		return types.SyncJob{}, false
	}
	return copyJob(job), true
}

// GetAllJobs returns copies of all jobs, oldest first
func (q *syncQueue) GetAllJobs() []types.SyncJob {
	q.mu.RLock()
	defer q.mu.RUnlock()

	jobs := make([]types.SyncJob, 0, len(q.jobs))
	for _, job := range q.jobs {
		jobs = append(jobs, copyJob(job))
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	return jobs
}

// CancelJob cancels a queued or running job. A queued job is marked cancelled at once
// and skipped by the worker; a running job is marked when its source returns.
func (q *syncQueue) CancelJob(id string) bool {
	q.mu.Lock()
	job, exists := q.jobs[id]
	if !exists || job.Status.Finished() {
		q.mu.Unlock()
		return false
	}
	if cancel, running := q.cancels[id]; running {
		q.mu.Unlock()
		cancel()
		return true
	}
	event, ok := q.applyStatus(job, types.JobStatusCancelled, "")
	q.mu.Unlock()

	if ok {
		q.broadcast(event)
	}
	return true
}

// Wait blocks until the job reaches a terminal status or ctx is done
func (q *syncQueue) Wait(ctx context.Context, id string) (types.SyncJob, error) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.changed.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		job, exists := q.jobs[id]
		if !exists {
			return types.SyncJob{}, fmt.Errorf("job %s not found", id)
		}
		if job.Status.Finished() {
			return copyJob(job), nil
		}
		if err := ctx.Err(); err != nil {
			return copyJob(job), err
		}
		q.changed.Wait()
	}
}

// Start begins processing jobs until ctx is done
func (q *syncQueue) Start(ctx context.Context) {
	for i := 0; i < q.maxWorkers; i++ {
		go q.worker(ctx)
	}
}

func (q *syncQueue) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.queue:
			q.run(ctx, job)
		}
	}
}

func (q *syncQueue) run(ctx context.Context, job *types.SyncJob) {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Registering the cancel func and leaving the queued state happen together,
	// so CancelJob either sees a queued job or a cancellable one.
	q.mu.Lock()
	event, ok := q.applyStatus(job, types.JobStatusProcessing, "")
	if !ok {
		q.mu.Unlock()
		return
	}
	q.cancels[job.ID] = cancel
	q.mu.Unlock()
	q.broadcast(event)

	defer func() {
		q.mu.Lock()
		delete(q.cancels, job.ID)
		q.mu.Unlock()
	}()

	added, err := q.sources[job.Source].Sync(jobCtx, q.root, func(done, total int) {
		q.updateProgress(job.ID, done, total)
	})

	q.mu.Lock()
	job.Added = added
	q.mu.Unlock()

	switch {
	case errors.Is(err, context.Canceled):
		q.setStatus(job.ID, types.JobStatusCancelled, "")
	case err != nil:
		q.setStatus(job.ID, types.JobStatusFailed, err.Error())
		logger.Error("sync job failed",
			logger.String("jobId", job.ID),
			logger.String("source", job.Source),
			logger.ErrorField(err))
	default:
		q.setStatus(job.ID, types.JobStatusCompleted, "")
		logger.Info("sync job completed",
			logger.String("jobId", job.ID),
			logger.String("source", job.Source),
			logger.Int("added", len(added)))
	}
}

// updateProgress updates job progress
func (q *syncQueue) updateProgress(id string, progress, total int) {
	q.mu.Lock()
	job, exists := q.jobs[id]
	if !exists {
		q.mu.Unlock()
		return
	}
	job.Progress = progress
	job.Total = total
	q.changed.Broadcast()
	q.mu.Unlock()

	if total > 0 {
		q.broadcast(types.Event{
			Type:     types.EventSyncProgress,
			JobID:    id,
			Status:   string(types.JobStatusProcessing),
			Progress: float64(progress) / float64(total) * 100,
			Message:  fmt.Sprintf("Synced %d of %d files", progress, total),
		})
	}
}

// setStatus updates job status and broadcasts it
func (q *syncQueue) setStatus(id string, status types.JobStatus, errorMsg string) {
	q.mu.Lock()
	job, exists := q.jobs[id]
	if !exists {
		q.mu.Unlock()
		return
	}
	event, ok := q.applyStatus(job, status, errorMsg)
	q.mu.Unlock()

	if ok {
		q.broadcast(event)
	}
}

// applyStatus moves job to status and returns the event describing it. A finished
// job never changes again. Must be called with the lock held.
func (q *syncQueue) applyStatus(job *types.SyncJob, status types.JobStatus, errorMsg string) (types.Event, bool) {
	if job.Status.Finished() {
		return types.Event{}, false
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	now := time.Now()
	if status == types.JobStatusProcessing && job.StartedAt == nil {
		job.StartedAt = &now
	} else if status.Finished() {
		job.CompletedAt = &now
	}
	q.changed.Broadcast()

	event := types.Event{Type: types.EventSyncStatus, JobID: job.ID, Status: string(status), Message: string(status)}
	if job.Total > 0 {
		event.Progress = float64(job.Progress) / float64(job.Total) * 100
	}
	switch status {
	case types.JobStatusCompleted:
		event.Type = types.EventSyncComplete
		event.Progress = 100
		event.Message = fmt.Sprintf("%s sync completed, %d new files", job.Source, len(job.Added))
	case types.JobStatusFailed:
		event.Type = types.EventSyncError
		event.Message = errorMsg
	}
	return event, true
}

func (q *syncQueue) broadcast(event types.Event) {
	if q.hub != nil {
		q.hub.Broadcast(event)
	}
}

func (q *syncQueue) snapshot(id string) types.SyncJob {
	job, _ := q.GetJob(id)
	return job
}

func copyJob(job *types.SyncJob) types.SyncJob {
	c := *job
	c.Added = append([]string(nil), job.Added...)
	return c
}
