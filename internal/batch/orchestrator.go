package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/billdocs/internal/core"
	"github.com/JonMunkholm/billdocs/internal/logging"
	"github.com/JonMunkholm/billdocs/internal/pipeline"
)

// Scheduling modes.
const (
	ModeSequential = "sequential"
	ModeParallel   = "parallel"
)

// State is the lifecycle position of one file.
type State string

const (
	StateDiscovered State = "discovered"
	StateProcessing State = "processing"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Processor handles one file. *pipeline.Processor satisfies it.
type Processor interface {
	Process(ctx context.Context, path, outDir string) (*pipeline.Result, error)
}

// Event is passed to the progress callback when a file starts and when it
// finishes.
type Event struct {
	BatchID string
	File    string
	Index   int
	Total   int
	State   State
	// Done counts finished files, including this one when State is terminal.
	Done int
}

// Options configures an Orchestrator.
type Options struct {
	Mode         string
	Workers      int
	ReclaimEvery int
	Extensions   []string
	// BatchID is generated when empty.
	BatchID  string
	Progress func(Event)
	// Reclaim runs every ReclaimEvery completed files; it defaults to
	// debug.FreeOSMemory.
	Reclaim func()
}

// Orchestrator runs a batch.
type Orchestrator struct {
	proc Processor
	opts Options
}

// New returns an Orchestrator. Unset options take the values a default
// configuration would.
func New(proc Processor, opts Options) *Orchestrator {
	if opts.Mode == "" {
		opts.Mode = ModeParallel
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".xlsx", ".xlsm"}
	}
	if opts.Reclaim == nil {
		opts.Reclaim = debug.FreeOSMemory
	}
	return &Orchestrator{proc: proc, opts: opts}
}

// Discover lists regular files in dir whose extension is in exts, sorted by
// name. Office lock files ("~$...") are skipped.
func Discover(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		allowed[e] = true
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, "~$") {
			continue
		}
		if allowed[strings.ToLower(filepath.Ext(name))] {
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

// run holds the state of one batch shared by its workers.
type run struct {
	o       *Orchestrator
	id      string
	outDir  string
	total   int
	results []FileResult

	mu   sync.Mutex
	done int
}

// Run processes every discovered file of inputDir into outputDir and returns
// the report. Only ErrNoInputFiles and ErrOutputDir abort the batch; every
// other failure is recorded on its file. A cancelled ctx stops new files from
// starting and lets running ones finish.
func (o *Orchestrator) Run(ctx context.Context, inputDir, outputDir string) (*Report, error) {
	files, err := Discover(inputDir, o.opts.Extensions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoInputFiles, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInputFiles, inputDir)
	}
	if err := ensureWritable(outputDir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputDir, err)
	}
	return o.RunFiles(ctx, files, outputDir)
}

// RunFiles processes an explicit file list. The output directory must exist.
func (o *Orchestrator) RunFiles(ctx context.Context, files []string, outputDir string) (*Report, error) {
	id := o.opts.BatchID
	if id == "" {
		id = uuid.NewString()
	}
	ctx = logging.ContextWithBatch(ctx, id)
	log := logging.FromContext(ctx)

	r := &run{o: o, id: id, outDir: outputDir, total: len(files), results: make([]FileResult, len(files))}
	for i, f := range files {
		r.results[i] = FileResult{FileName: filepath.Base(f), Path: f, State: StateDiscovered}
	}

	workers := o.opts.Workers
	if o.opts.Mode == ModeSequential {
		workers = 1
	}
	log.Info("batch started", "files", len(files), "mode", o.opts.Mode, "workers", workers)
	start := time.Now()

	switch o.opts.Mode {
	case ModeSequential:
		for i, f := range files {
			if ctx.Err() != nil {
				break
			}
			r.file(ctx, i, f)
		}
	default:
		var g errgroup.Group
		g.SetLimit(workers)
		for i, f := range files {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				r.file(ctx, i, f)
				return nil
			})
		}
		_ = g.Wait()
	}

	for i := range r.results {
		if r.results[i].State == StateDiscovered {
			r.results[i] = cancelledResult(r.results[i])
		}
	}

	rep := newReport(id, o.opts.Mode, workers, start, time.Since(start), r.results)
	log.Info("batch finished",
		"total", rep.Total,
		"succeeded", rep.Succeeded,
		"failed", rep.Failed,
		"duration_ms", rep.TotalMs,
	)
	if err := rep.Write(outputDir); err != nil {
		return rep, fmt.Errorf("%w: %v", ErrOutputDir, err)
	}
	return rep, nil
}

// file processes one file in isolation. Files picked up after cancellation
// are recorded as cancelled; a running file is detached from cancellation so
// it can finish writing its output.
func (r *run) file(ctx context.Context, i int, path string) {
	if ctx.Err() != nil {
		r.finish(i, cancelledResult(r.results[i]))
		return
	}

	name := filepath.Base(path)
	fctx := logging.ContextWithFile(ctx, name)
	r.start(i)

	begin := time.Now()
	res, err := r.process(context.WithoutCancel(fctx), path)
	elapsed := time.Since(begin)

	fr := FileResult{FileName: name, Path: path, ElapsedMs: elapsed.Milliseconds()}
	if err != nil {
		fr.State = StateFailed
		fr.Error = err.Error()
		fr.ErrorCode = core.MapError(err).Code
		fr.Err = err
		logging.FromContext(fctx).Error("file failed", "duration_ms", fr.ElapsedMs, "error", err)
	} else {
		fr.State = StateSucceeded
		fr.Success = true
		fr.OutputBytes = res.OutputBytes
		fr.GeneratedPaths = res.GeneratedPaths()
		fr.Warnings = res.Warnings
		fr.Documents = len(res.Documents)
		logging.FromContext(fctx).Info("file succeeded", "duration_ms", fr.ElapsedMs, "bytes", fr.OutputBytes)
	}
	r.finish(i, fr)
}

// process runs the pipeline, turning errors and panics into a FileError.
func (r *run) process(ctx context.Context, path string) (res *pipeline.Result, err error) {
	name := filepath.Base(path)
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, &FileError{File: name, Panic: true, Err: fmt.Errorf("%v", p)}
		}
	}()
	res, err = r.o.proc.Process(ctx, path, r.outDir)
	if err != nil {
		return nil, &FileError{File: name, Err: err}
	}
	if res == nil {
		return nil, &FileError{File: name, Err: fmt.Errorf("processor returned no result")}
	}
	return res, nil
}

func (r *run) start(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[i].State = StateProcessing
	r.emit(i, StateProcessing)
}

func (r *run) finish(i int, fr FileResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[i] = fr
	r.done++
	r.emit(i, fr.State)
	if n := r.o.opts.ReclaimEvery; n > 0 && r.done%n == 0 {
		r.o.opts.Reclaim()
	}
}

// emit must be called with r.mu held.
func (r *run) emit(i int, s State) {
	if r.o.opts.Progress == nil {
		return
	}
	r.o.opts.Progress(Event{
		BatchID: r.id,
		File:    r.results[i].FileName,
		Index:   i,
		Total:   r.total,
		State:   s,
		Done:    r.done,
	})
}

func cancelledResult(fr FileResult) FileResult {
	fr.State = StateFailed
	fr.Success = false
	fr.Cancelled = true
	fr.Err = &FileError{File: fr.FileName, Err: ErrCancelled}
	fr.Error = fr.Err.Error()
	fr.ErrorCode = core.MapError(fr.Err).Code
	return fr
}

// ensureWritable creates dir and checks that a file can be written in it.
func ensureWritable(dir string) error {
	if dir == "" {
		return fmt.Errorf("no output directory given")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".billdocs-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// ParseMode normalizes a mode name; empty means parallel.
func ParseMode(s string) (string, error) {
	switch m := strings.ToLower(strings.TrimSpace(s)); m {
	case "":
		return ModeParallel, nil
	case ModeSequential, ModeParallel:
		return m, nil
	default:
		return "", fmt.Errorf("%w %q: want %s or %s", ErrInvalidMode, s, ModeSequential, ModeParallel)
	}
}
