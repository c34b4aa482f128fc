package batch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/billdocs/internal/logging"
)

// JobStatus is the state of an asynchronous batch.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobCancelled JobStatus = "cancelled"
	JobFailed    JobStatus = "failed"
)

// Request describes a batch to start. Zero Mode and Workers take the
// service defaults. NoWait refuses at once instead of queueing for a slot.
type Request struct {
	InputDir  string `json:"inputDir"`
	OutputDir string `json:"outputDir"`
	Mode      string `json:"mode"`
	Workers   int    `json:"workers"`
	NoWait    bool   `json:"noWait"`
}

// Snapshot is a point-in-time view of a job.
type Snapshot struct {
	ID         string     `json:"id"`
	Status     JobStatus  `json:"status"`
	Mode       string     `json:"mode"`
	Workers    int        `json:"workers"`
	InputDir   string     `json:"inputDir"`
	OutputDir  string     `json:"outputDir"`
	Total      int        `json:"total"`
	Done       int        `json:"done"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type job struct {
	snap   Snapshot
	report *Report
	cancel context.CancelFunc
}

// Service runs batches in the background, at most as many at once as its
// limiter allows.
type Service struct {
	proc     Processor
	limiter  *Limiter
	defaults Options

	mu   sync.RWMutex
	jobs map[string]*job
	wg   sync.WaitGroup
}

// NewService returns a Service. defaults supplies mode, workers, extensions
// and reclaim settings for requests that leave them unset.
func NewService(proc Processor, limiter *Limiter, defaults Options) *Service {
	if limiter == nil {
		limiter = NewLimiter(0, 0)
	}
	return &Service{proc: proc, limiter: limiter, defaults: defaults, jobs: make(map[string]*job)}
}

// Start validates the request, waits for a free slot and launches the batch.
// It returns ErrTooManyBatches when no slot frees up in time, and the fatal
// batch errors for a bad request.
func (s *Service) Start(ctx context.Context, req Request) (Snapshot, error) {
	mode := s.defaults.Mode
	if req.Mode != "" {
		mode = req.Mode
	}
	mode, err := ParseMode(mode)
	if err != nil {
		return Snapshot{}, err
	}
	workers := s.defaults.Workers
	if req.Workers > 0 {
		workers = req.Workers
	}

	exts := s.defaults.Extensions
	if len(exts) == 0 {
		exts = []string{".xlsx", ".xlsm"}
	}
	files, err := Discover(req.InputDir, exts)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrNoInputFiles, err)
	}
	if len(files) == 0 {
		return Snapshot{}, fmt.Errorf("%w in %s", ErrNoInputFiles, req.InputDir)
	}
	if err := ensureWritable(req.OutputDir); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrOutputDir, err)
	}

	id := uuid.NewString()
	slot := Slot{BatchID: id, Files: len(files)}
	if req.NoWait {
		if !s.limiter.TryAcquire(slot) {
			return Snapshot{}, ErrTooManyBatches
		}
	} else if err := s.limiter.Acquire(ctx, slot); err != nil {
		return Snapshot{}, err
	}

	jctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	j := &job{
		snap: Snapshot{
			ID:        id,
			Status:    JobRunning,
			Mode:      mode,
			Workers:   workers,
			InputDir:  req.InputDir,
			OutputDir: req.OutputDir,
			Total:     len(files),
			StartedAt: time.Now().UTC(),
		},
		cancel: cancel,
	}

	s.mu.Lock()
	s.jobs[id] = j
	snap := j.snapshot()
	s.mu.Unlock()

	opts := s.defaults
	opts.Mode, opts.Workers, opts.BatchID = mode, workers, id
	opts.Progress = func(ev Event) { s.progress(id, ev) }
	orch := New(s.proc, opts)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.limiter.Release(id)
		defer cancel()

		rep, err := orch.RunFiles(jctx, files, req.OutputDir)
		s.complete(jctx, id, rep, err)
	}()

	logging.FromContext(ctx).Info("batch accepted", "batch_id", id, "files", len(files), "mode", mode)
	return snap, nil
}

func (s *Service) progress(id string, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok && ev.State != StateProcessing {
		j.snap.Done = ev.Done
		if ev.State == StateSucceeded {
			j.snap.Succeeded++
		} else {
			j.snap.Failed++
		}
	}
}

func (s *Service) complete(ctx context.Context, id string, rep *Report, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return
	}

	now := time.Now().UTC()
	j.snap.FinishedAt = &now
	j.report = rep
	if rep != nil {
		j.snap.Done = rep.Total
		j.snap.Succeeded = rep.Succeeded
		j.snap.Failed = rep.Failed
	}
	switch {
	case err != nil:
		j.snap.Status = JobFailed
		j.snap.Error = err.Error()
	case ctx.Err() != nil:
		j.snap.Status = JobCancelled
	default:
		j.snap.Status = JobCompleted
	}
}

func (j *job) snapshot() Snapshot {
	snap := j.snap
	if j.snap.FinishedAt != nil {
		t := *j.snap.FinishedAt
		snap.FinishedAt = &t
	}
	return snap
}

// Get returns the job's current state.
func (s *Service) Get(id string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return Snapshot{}, ErrJobNotFound
	}
	return j.snapshot(), nil
}

// List returns every job, newest first.
func (s *Service) List() []Snapshot {
	s.mu.RLock()
	out := make([]Snapshot, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.snapshot())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, k int) bool { return out[i].StartedAt.After(out[k].StartedAt) })
	return out
}

// Report returns the finished report, or ErrJobRunning while the batch runs.
func (s *Service) Report(id string) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	if j.snap.Status == JobRunning {
		return nil, ErrJobRunning
	}
	if j.report == nil {
		return nil, fmt.Errorf("batch %s produced no report: %s", id, j.snap.Error)
	}
	return j.report, nil
}

// Cancel stops a running job from starting further files. Files already
// running finish normally.
func (s *Service) Cancel(id string) (Snapshot, error) {
	s.mu.RLock()
	j, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, ErrJobNotFound
	}
	j.cancel()
	return s.Get(id)
}

// Limiter exposes the slot limiter for status reporting.
func (s *Service) Limiter() *Limiter {
	return s.limiter
}

// Drain waits for running batches to finish on their own, without
// cancelling them.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Shutdown cancels every running job and waits for them to finish or for
// ctx to end.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	for _, j := range s.jobs {
		j.cancel()
	}
	s.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
