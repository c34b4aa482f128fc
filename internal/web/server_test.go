package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/billdocs/internal/batch"
	"github.com/JonMunkholm/billdocs/internal/config"
	"github.com/JonMunkholm/billdocs/internal/pipeline"
)

type stubProc struct {
	block chan struct{}
}

func (p *stubProc) Process(ctx context.Context, path, outDir string) (*pipeline.Result, error) {
	if p.block != nil {
		<-p.block
	}
	return &pipeline.Result{File: filepath.Base(path), Documents: make([]pipeline.Document, 6)}, nil
}

func newTestServer(t *testing.T, proc batch.Processor, limiter *batch.Limiter) *Server {
	t.Helper()
	svc := batch.NewService(proc, limiter, batch.Options{Mode: batch.ModeSequential})
	s := NewServer(svc, config.ServerConfig{RequestTimeout: 5 * time.Second})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func inputDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v (body %q)", v, err, rec.Body.String())
	}
	return v
}

func startBody(t *testing.T, in, out string) string {
	t.Helper()
	b, err := json.Marshal(batch.Request{InputDir: in, OutputDir: out})
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &stubProc{}, nil)
	rec := do(t, s, http.MethodGet, "/healthz", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestBatchLifecycle(t *testing.T) {
	s := newTestServer(t, &stubProc{}, nil)
	out := t.TempDir()

	rec := do(t, s, http.MethodPost, "/api/batches", startBody(t, inputDir(t, "a.xlsx", "b.xlsx"), out))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d, body %s", rec.Code, rec.Body.String())
	}
	snap := decode[batch.Snapshot](t, rec)
	if snap.ID == "" || snap.Total != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/batches/"+snap.ID {
		t.Errorf("Location = %q", loc)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		got := decode[batch.Snapshot](t, do(t, s, http.MethodGet, "/api/batches/"+snap.ID, ""))
		if got.Status == batch.JobCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("batch stuck in %s", got.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec = do(t, s, http.MethodGet, "/api/batches/"+snap.ID+"/report", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d", rec.Code)
	}
	rep := decode[batch.Report](t, rec)
	if rep.Succeeded != 2 || len(rep.Files) != 2 {
		t.Errorf("report = %+v", rep)
	}
	if _, err := os.Stat(filepath.Join(out, batch.ReportJSONName)); err != nil {
		t.Errorf("report file: %v", err)
	}

	list := decode[[]batch.Snapshot](t, do(t, s, http.MethodGet, "/api/batches", ""))
	if len(list) != 1 || list[0].ID != snap.ID {
		t.Errorf("list = %+v", list)
	}
}

func TestBatchErrors(t *testing.T) {
	out := t.TempDir()
	in := inputDir(t, "a.xlsx")

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
		wantErr  string
	}{
		{name: "bad json", method: http.MethodPost, path: "/api/batches", body: "{", wantCode: http.StatusBadRequest, wantErr: "BAT008"},
		{name: "empty input", method: http.MethodPost, path: "/api/batches", body: startBody(t, t.TempDir(), out), wantCode: http.StatusBadRequest, wantErr: "BAT001"},
		{name: "bad mode", method: http.MethodPost, path: "/api/batches", body: `{"inputDir":"` + in + `","outputDir":"` + out + `","mode":"someday"}`, wantCode: http.StatusBadRequest, wantErr: "BAT006"},
		{name: "unknown batch", method: http.MethodGet, path: "/api/batches/nope", wantCode: http.StatusNotFound, wantErr: "BAT004"},
		{name: "unknown report", method: http.MethodGet, path: "/api/batches/nope/report", wantCode: http.StatusNotFound, wantErr: "BAT004"},
		{name: "unknown cancel", method: http.MethodPost, path: "/api/batches/nope/cancel", wantCode: http.StatusNotFound, wantErr: "BAT004"},
	}

	s := newTestServer(t, &stubProc{}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			resp := decode[ErrorResponse](t, rec)
			if resp.Code != tt.wantErr || resp.Message == "" {
				t.Errorf("error response = %+v, want code %s", resp, tt.wantErr)
			}
		})
	}
}

func TestBatchBusyAndRunning(t *testing.T) {
	block := make(chan struct{})
	s := newTestServer(t, &stubProc{block: block}, batch.NewLimiter(1, 10*time.Millisecond))
	defer close(block)

	body := startBody(t, inputDir(t, "a.xlsx"), t.TempDir())
	rec := do(t, s, http.MethodPost, "/api/batches", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first start status = %d", rec.Code)
	}
	snap := decode[batch.Snapshot](t, rec)

	rec = do(t, s, http.MethodPost, "/api/batches", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second start status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}

	rec = do(t, s, http.MethodGet, "/api/batches/"+snap.ID+"/report", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("report while running status = %d, want 409", rec.Code)
	}

	status := decode[batch.LimiterStatus](t, do(t, s, http.MethodGet, "/api/status", ""))
	if status.Active != 1 || status.MaxConcurrent != 1 {
		t.Errorf("status = %+v", status)
	}
	if len(status.Batches) != 1 || status.Batches[0].BatchID != snap.ID {
		t.Errorf("status batches = %+v, want %s", status.Batches, snap.ID)
	}

	b, _ := json.Marshal(batch.Request{InputDir: inputDir(t, "b.xlsx"), OutputDir: t.TempDir(), NoWait: true})
	rec = do(t, s, http.MethodPost, "/api/batches", string(b))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("noWait start status = %d, want 429", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/api/batches/"+snap.ID+"/cancel", "")
	if rec.Code != http.StatusAccepted {
		t.Errorf("cancel status = %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{batch.ErrTooManyBatches, http.StatusTooManyRequests},
		{batch.ErrJobNotFound, http.StatusNotFound},
		{batch.ErrJobRunning, http.StatusConflict},
		{batch.ErrOutputDir, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
