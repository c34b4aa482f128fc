package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JonMunkholm/billdocs/internal/bundle"
	"github.com/JonMunkholm/billdocs/internal/core"
	"github.com/JonMunkholm/billdocs/internal/markup"
	"github.com/JonMunkholm/billdocs/internal/pipeline"
	"github.com/JonMunkholm/billdocs/internal/render"
	"github.com/JonMunkholm/billdocs/internal/schema"
	"github.com/JonMunkholm/billdocs/internal/workbook"
)

// fakeProc records calls and fails or panics for selected file names.
type fakeProc struct {
	fail  map[string]error
	panic map[string]bool
	delay time.Duration
	block chan struct{}

	active atomic.Int32
	peak   atomic.Int32
}

func (f *fakeProc) Process(ctx context.Context, path, outDir string) (*pipeline.Result, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if f.block != nil {
		<-f.block
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	name := filepath.Base(path)
	if f.panic[name] {
		panic("corrupt state in " + name)
	}
	if err := f.fail[name]; err != nil {
		return nil, err
	}
	return &pipeline.Result{
		File:        name,
		Documents:   make([]pipeline.Document, 6),
		OutputBytes: int64(1000 * len(name)),
	}, nil
}

func touchFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func fileNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("bill-%02d.xlsx", i+1)
	}
	return names
}

func TestDiscover(t *testing.T) {
	dir := touchFiles(t, "b.xlsx", "A.XLSM", "~$b.xlsx", "notes.txt", "c.xls")
	if err := os.Mkdir(filepath.Join(dir, "sub.xlsx"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := Discover(dir, []string{".xlsx", "xlsm"})
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}

	var got []string
	for _, f := range files {
		got = append(got, filepath.Base(f))
	}
	if strings.Join(got, ",") != "A.XLSM,b.xlsx" {
		t.Errorf("Discover() = %v, want [A.XLSM b.xlsx]", got)
	}
}

// TestRun_FiveFileBatch runs the real pipeline over five workbooks, the
// third of which has no Work Order sheet.
func TestRun_FiveFileBatch(t *testing.T) {
	in := t.TempDir()
	for i := 1; i <= 5; i++ {
		sheets := workbook.Sample()
		if i == 3 {
			sheets = withoutSheet(sheets, "Work Order")
		}
		if err := workbook.Write(filepath.Join(in, fmt.Sprintf("bill-%d.xlsx", i)), sheets); err != nil {
			t.Fatal(err)
		}
	}

	chain := render.NewChain([]render.Engine{render.NewFPDF()})
	proc := pipeline.New(markup.New(), chain, bundle.New(), core.Rules{Deductions: core.DefaultDeductions()})

	for _, mode := range []string{ModeSequential, ModeParallel} {
		t.Run(mode, func(t *testing.T) {
			out := t.TempDir()
			rep, err := New(proc, Options{Mode: mode, Workers: 3}).Run(context.Background(), in, out)
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}

			if rep.Total != 5 || rep.Succeeded != 4 || rep.Failed != 1 {
				t.Fatalf("total/succeeded/failed = %d/%d/%d, want 5/4/1", rep.Total, rep.Succeeded, rep.Failed)
			}
			third := rep.Files[2]
			if third.FileName != "bill-3.xlsx" || third.Success {
				t.Fatalf("file 3 = %+v, want bill-3.xlsx failed", third)
			}
			if !strings.Contains(third.Error, "Work Order") {
				t.Errorf("file 3 error = %q, want it to name the Work Order sheet", third.Error)
			}
			if third.ErrorCode != "SCH001" {
				t.Errorf("file 3 code = %q, want SCH001", third.ErrorCode)
			}
			var re *schema.ResolutionError
			if !errors.As(third.Err, &re) {
				t.Errorf("file 3 Err = %v, want a ResolutionError inside", third.Err)
			}
			for _, f := range rep.Files {
				if f.Success && len(f.GeneratedPaths) != 7 {
					t.Errorf("%s generated %d files, want 7", f.FileName, len(f.GeneratedPaths))
				}
			}
		})
	}
}

func withoutSheet(sheets []schema.RawSheet, name string) []schema.RawSheet {
	var out []schema.RawSheet
	for _, s := range sheets {
		if s.Name != name {
			out = append(out, s)
		}
	}
	return out
}

func TestRun_IsolatesFailures(t *testing.T) {
	names := fileNames(6)
	proc := &fakeProc{
		fail:  map[string]error{names[1]: errors.New("workbook not found")},
		panic: map[string]bool{names[4]: true},
	}

	for _, mode := range []string{ModeSequential, ModeParallel} {
		t.Run(mode, func(t *testing.T) {
			rep, err := New(proc, Options{Mode: mode, Workers: 4}).Run(context.Background(), touchFiles(t, names...), t.TempDir())
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}
			if rep.Succeeded+rep.Failed != rep.Total || rep.Failed != 2 {
				t.Fatalf("succeeded=%d failed=%d total=%d", rep.Succeeded, rep.Failed, rep.Total)
			}

			var fe *FileError
			if !errors.As(rep.Files[4].Err, &fe) || !fe.Panic {
				t.Errorf("panicking file Err = %v, want FileError with Panic", rep.Files[4].Err)
			}
			if rep.Files[1].ErrorCode != "FILE001" {
				t.Errorf("failed file code = %q, want FILE001", rep.Files[1].ErrorCode)
			}
			for _, i := range []int{0, 2, 3, 5} {
				if !rep.Files[i].Success {
					t.Errorf("%s failed: %s", rep.Files[i].FileName, rep.Files[i].Error)
				}
			}
		})
	}
}

func TestRun_WorkerLimit(t *testing.T) {
	proc := &fakeProc{delay: 20 * time.Millisecond}

	rep, err := New(proc, Options{Mode: ModeParallel, Workers: 2}).Run(context.Background(), touchFiles(t, fileNames(8)...), t.TempDir())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if rep.Succeeded != 8 {
		t.Errorf("succeeded = %d, want 8", rep.Succeeded)
	}
	if peak := proc.peak.Load(); peak > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", peak)
	}
	if rep.Workers != 2 {
		t.Errorf("report workers = %d, want 2", rep.Workers)
	}
}

func TestRun_SequentialRunsOneAtATime(t *testing.T) {
	proc := &fakeProc{delay: 5 * time.Millisecond}

	rep, err := New(proc, Options{Mode: ModeSequential, Workers: 4}).Run(context.Background(), touchFiles(t, fileNames(4)...), t.TempDir())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if peak := proc.peak.Load(); peak != 1 {
		t.Errorf("peak concurrency = %d, want 1", peak)
	}
	if rep.Workers != 1 {
		t.Errorf("report workers = %d, want 1", rep.Workers)
	}
}

func TestRun_CancelStopsScheduling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	progress := func(ev Event) {
		if ev.State == StateSucceeded && ev.Done == 2 {
			cancel()
		}
	}
	opts := Options{Mode: ModeSequential, Progress: progress}

	rep, err := New(&fakeProc{}, opts).Run(ctx, touchFiles(t, fileNames(5)...), t.TempDir())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if rep.Succeeded != 2 || rep.Failed != 3 || rep.Cancelled != 3 {
		t.Fatalf("succeeded/failed/cancelled = %d/%d/%d, want 2/3/3", rep.Succeeded, rep.Failed, rep.Cancelled)
	}
	for _, f := range rep.Files[2:] {
		if !f.Cancelled || !errors.Is(f.Err, ErrCancelled) || f.ErrorCode != "BAT005" {
			t.Errorf("%s = %+v, want cancelled with BAT005", f.FileName, f)
		}
	}
}

func TestRun_CancelLetsRunningFilesFinish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	block := make(chan struct{})
	proc := &fakeProc{block: block}

	var started sync.WaitGroup
	started.Add(2)
	var once [2]sync.Once
	progress := func(ev Event) {
		if ev.State == StateProcessing && ev.Index < 2 {
			once[ev.Index].Do(started.Done)
		}
	}

	done := make(chan *Report, 1)
	go func() {
		rep, _ := New(proc, Options{Mode: ModeParallel, Workers: 2, Progress: progress}).
			Run(ctx, touchFiles(t, fileNames(6)...), t.TempDir())
		done <- rep
	}()

	started.Wait()
	cancel()
	close(block)

	select {
	case rep := <-done:
		if !rep.Files[0].Success || !rep.Files[1].Success {
			t.Errorf("running files should finish: %+v / %+v", rep.Files[0], rep.Files[1])
		}
		if rep.Succeeded+rep.Failed != 6 {
			t.Errorf("succeeded+failed = %d, want 6", rep.Succeeded+rep.Failed)
		}
		if rep.Cancelled == 0 {
			t.Error("expected unstarted files to be cancelled")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRun_ProgressAndReclaim(t *testing.T) {
	var mu sync.Mutex
	var events []Event
	var reclaims atomic.Int32

	opts := Options{
		Mode:         ModeParallel,
		Workers:      3,
		ReclaimEvery: 2,
		Progress: func(ev Event) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		},
		Reclaim: func() { reclaims.Add(1) },
	}

	if _, err := New(&fakeProc{}, opts).Run(context.Background(), touchFiles(t, fileNames(5)...), t.TempDir()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	starts, ends, maxDone := 0, 0, 0
	for _, ev := range events {
		if ev.Total != 5 || ev.BatchID == "" {
			t.Errorf("event %+v missing total or batch id", ev)
		}
		if ev.State == StateProcessing {
			starts++
		} else {
			ends++
		}
		if ev.Done > maxDone {
			maxDone = ev.Done
		}
	}
	if starts != 5 || ends != 5 || maxDone != 5 {
		t.Errorf("starts=%d ends=%d maxDone=%d, want 5/5/5", starts, ends, maxDone)
	}
	if n := reclaims.Load(); n != 2 {
		t.Errorf("reclaims = %d, want 2", n)
	}
}

func TestRun_FatalErrors(t *testing.T) {
	t.Run("no input files", func(t *testing.T) {
		_, err := New(&fakeProc{}, Options{}).Run(context.Background(), touchFiles(t, "readme.txt"), t.TempDir())
		if !errors.Is(err, ErrNoInputFiles) {
			t.Errorf("err = %v, want ErrNoInputFiles", err)
		}
	})
	t.Run("missing input dir", func(t *testing.T) {
		_, err := New(&fakeProc{}, Options{}).Run(context.Background(), filepath.Join(t.TempDir(), "absent"), t.TempDir())
		if !errors.Is(err, ErrNoInputFiles) {
			t.Errorf("err = %v, want ErrNoInputFiles", err)
		}
	})
	t.Run("output is a file", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "out")
		if err := os.WriteFile(blocker, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := New(&fakeProc{}, Options{}).Run(context.Background(), touchFiles(t, "a.xlsx"), blocker)
		if !errors.Is(err, ErrOutputDir) {
			t.Errorf("err = %v, want ErrOutputDir", err)
		}
	})
}

func TestRun_WritesReport(t *testing.T) {
	out := t.TempDir()
	proc := &fakeProc{fail: map[string]error{"bill-02.xlsx": errors.New(`schema resolution failed for sheet "Work Order": sheet not found in workbook`)}}

	rep, err := New(proc, Options{BatchID: "batch-1"}).Run(context.Background(), touchFiles(t, fileNames(3)...), out)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	text, err := os.ReadFile(filepath.Join(out, ReportTextName))
	if err != nil {
		t.Fatalf("text report: %v", err)
	}
	for _, want := range []string{"Batch batch-1", "3 total, 2 succeeded, 1 failed", "bill-02.xlsx", "[SCH001]"} {
		if !strings.Contains(string(text), want) {
			t.Errorf("text report missing %q:\n%s", want, text)
		}
	}

	data, err := os.ReadFile(filepath.Join(out, ReportJSONName))
	if err != nil {
		t.Fatalf("json report: %v", err)
	}
	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode json report: %v", err)
	}
	if decoded.BatchID != rep.BatchID || decoded.Total != 3 || len(decoded.Files) != 3 {
		t.Errorf("decoded report = %+v", decoded)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: ModeParallel},
		{in: "Sequential", want: ModeSequential},
		{in: " parallel ", want: ModeParallel},
		{in: "async", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = %q, %v", tt.in, got, err)
		}
		if tt.wantErr && !errors.Is(err, ErrInvalidMode) {
			t.Errorf("ParseMode(%q) error = %v, want ErrInvalidMode", tt.in, err)
		}
	}
}
