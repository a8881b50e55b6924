package processor

import (
	"context"
	"errors"
	"sync"
	"time"

	"voiceagent-server/internal/clients/crm"
	"voiceagent-server/internal/imports/progress"
	"voiceagent-server/internal/observability"
	"voiceagent-server/internal/workers"

	"github.com/google/uuid"
)

var ErrJobNotFound = errors.New("import job not found")

const jobRetention = 24 * time.Hour

type contextKey string

const jobIDKey contextKey = "import_job_id"

// WithJobID tags ctx so progress events of the import run under id.
func WithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext returns the job id set by WithJobID, or "".
func JobIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(jobIDKey).(string)
	return id
}

// Job is the externally visible state of a background import.
type Job struct {
	ID         string          `json:"id"`
	Source     Source          `json:"source"`
	Status     progress.Status `json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Result     *ImportResult   `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type jobEntry struct {
	job       Job
	cancel    context.CancelFunc
	cancelled bool
}

// jobRegistry runs imports on a worker pool and remembers their outcome.
type jobRegistry struct {
	p    *ImportProcessor
	pool workers.WorkerPool

	mu   sync.Mutex
	jobs map[string]*jobEntry
}

func newJobRegistry(p *ImportProcessor) *jobRegistry {
	cfg := workers.DefaultWorkerPoolConfig()
	cfg.Name = "imports"
	return &jobRegistry{
		p:    p,
		pool: workers.NewWorkerPool(cfg, p.logger),
		jobs: make(map[string]*jobEntry),
	}
}

// importTask adapts one queued import to the worker pool.
type importTask struct {
	id       string
	registry *jobRegistry
	run      func(ctx context.Context) (ImportResult, error)
}

func (t importTask) ID() string { return t.id }

func (t importTask) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(WithJobID(ctx, t.id))
	defer cancel()

	if !t.registry.begin(t.id, cancel) {
		return context.Canceled
	}
	result, err := t.run(ctx)
	t.registry.complete(t.id, result, err)
	return err
}

func (r *jobRegistry) submit(source Source, run func(ctx context.Context) (ImportResult, error)) (string, error) {
	id := uuid.New().String()
	now := r.p.now()

	r.mu.Lock()
	r.pruneLocked(now)
	r.jobs[id] = &jobEntry{job: Job{ID: id, Source: source, Status: progress.StatusRunning, StartedAt: now}}
	r.mu.Unlock()

	if err := r.pool.Submit(context.Background(), importTask{id: id, registry: r, run: run}); err != nil {
		r.mu.Lock()
		delete(r.jobs, id)
		r.mu.Unlock()
		return "", err
	}
	return id, nil
}

// begin records the cancel func of a job about to run. It reports false when the
// job was cancelled while queued; cancel already finished it.
func (r *jobRegistry) begin(id string, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok || e.cancelled {
		return false
	}
	e.cancel = cancel
	return true
}

func (r *jobRegistry) complete(id string, result ImportResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.jobs[id]; ok {
		r.finishLocked(e, result, err)
	}
}

func (r *jobRegistry) finishLocked(e *jobEntry, result ImportResult, err error) {
	now := r.p.now()
	e.job.FinishedAt = &now
	e.cancel = nil
	switch {
	case err == nil:
		e.job.Status = progress.StatusCompleted
	case errors.Is(err, context.Canceled):
		e.job.Status = progress.StatusCancelled
	default:
		e.job.Status = progress.StatusFailed
	}
	if err != nil {
		e.job.Error = err.Error()
	}
	// Parse failures still carry the single row 0 rejection.
	if err == nil || len(result.Rejected) > 0 {
		res := result
		e.job.Result = &res
	}
}

func (r *jobRegistry) get(id string) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return e.job, nil
}

func (r *jobRegistry) cancel(id string) error {
	r.mu.Lock()
	e, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return ErrJobNotFound
	}
	if e.job.Status.Terminal() || e.cancelled {
		r.mu.Unlock()
		return nil
	}
	e.cancelled = true
	if e.cancel != nil {
		// Running: the import reports its own terminal event.
		e.cancel()
		r.mu.Unlock()
		return nil
	}

	// Still queued: no worker will report for it, so finish it here.
	r.finishLocked(e, ImportResult{}, context.Canceled)
	source := e.job.Source
	r.mu.Unlock()

	ctx := observability.WithFields(context.Background(),
		observability.Field{Key: "import_job_id", Value: id},
		observability.Field{Key: "import_source", Value: string(source)},
	)
	rep := &reporter{tracker: r.p.tracker, logger: r.p.logger, jobID: id, source: source, last: -1, now: r.p.now}
	rep.finish(ctx, progress.StatusCancelled, ImportResult{}, context.Canceled)
	r.p.logger.Info(ctx, "queued import cancelled")
	return nil
}

func (r *jobRegistry) pruneLocked(now time.Time) {
	for id, e := range r.jobs {
		if e.job.FinishedAt != nil && now.Sub(*e.job.FinishedAt) > jobRetention {
			delete(r.jobs, id)
		}
	}
}

// Start launches the background import workers.
func (p *ImportProcessor) Start(ctx context.Context) error {
	return p.jobs.pool.Start(ctx)
}

// Shutdown waits for running imports; on timeout they are cancelled.
func (p *ImportProcessor) Shutdown(ctx context.Context) error {
	return p.jobs.pool.Drain(ctx)
}

// StartFileImport queues ImportFromFile and returns the job id.
func (p *ImportProcessor) StartFileImport(raw []byte, format Format) (string, error) {
	return p.jobs.submit(SourceFile, func(ctx context.Context) (ImportResult, error) {
		return p.ImportFromFile(ctx, raw, format)
	})
}

// StartCRMImport queues ImportFromCRM and returns the job id.
func (p *ImportProcessor) StartCRMImport(cfg crm.ConnectorConfig) (string, error) {
	if p.crm == nil {
		return "", ErrCRMDisabled
	}
	return p.jobs.submit(SourceCRM, func(ctx context.Context) (ImportResult, error) {
		return p.ImportFromCRM(ctx, cfg)
	})
}

// StartObjectImport queues ImportFromObject and returns the job id.
func (p *ImportProcessor) StartObjectImport(bucket, key string) (string, error) {
	if p.objects == nil {
		return "", ErrObjectsDisabled
	}
	return p.jobs.submit(SourceObject, func(ctx context.Context) (ImportResult, error) {
		return p.ImportFromObject(ctx, bucket, key)
	})
}

// Job reports the state of a background import.
func (p *ImportProcessor) Job(id string) (Job, error) {
	return p.jobs.get(id)
}

// CancelJob aborts a queued or running import. Cancelling a finished job is a no-op.
func (p *ImportProcessor) CancelJob(id string) error {
	return p.jobs.cancel(id)
}
