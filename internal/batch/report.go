package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
)

// Report artifact file names, written to the batch output directory.
const (
	ReportTextName = "batch_report.txt"
	ReportJSONName = "batch_report.json"
)

// FileResult is the terminal record of one file.
type FileResult struct {
	FileName       string   `json:"fileName"`
	Path           string   `json:"path"`
	State          State    `json:"state"`
	Success        bool     `json:"success"`
	ElapsedMs      int64    `json:"elapsedMs"`
	OutputBytes    int64    `json:"outputBytes"`
	Documents      int      `json:"documents"`
	GeneratedPaths []string `json:"generatedPaths,omitempty"`
	Error          string   `json:"error,omitempty"`
	ErrorCode      string   `json:"errorCode,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
	Cancelled      bool     `json:"cancelled,omitempty"`

	Err error `json:"-"`
}

// Report aggregates a batch. Timing statistics cover files that ran; size
// statistics cover files that succeeded.
type Report struct {
	BatchID   string    `json:"batchId"`
	Mode      string    `json:"mode"`
	Workers   int       `json:"workers"`
	StartedAt time.Time `json:"startedAt"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Cancelled int       `json:"cancelled"`

	TotalMs int64 `json:"totalMs"`
	MinMs   int64 `json:"minMs"`
	MaxMs   int64 `json:"maxMs"`
	AvgMs   int64 `json:"avgMs"`

	TotalBytes int64 `json:"totalBytes"`
	MinBytes   int64 `json:"minBytes"`
	MaxBytes   int64 `json:"maxBytes"`
	AvgBytes   int64 `json:"avgBytes"`

	Files []FileResult `json:"files"`
}

func newReport(id, mode string, workers int, start time.Time, elapsed time.Duration, results []FileResult) *Report {
	files := make([]FileResult, len(results))
	copy(files, results)
	sort.SliceStable(files, func(i, j int) bool { return files[i].FileName < files[j].FileName })

	rep := &Report{
		BatchID:   id,
		Mode:      mode,
		Workers:   workers,
		StartedAt: start.UTC(),
		Total:     len(files),
		TotalMs:   elapsed.Milliseconds(),
		Files:     files,
	}

	var ran, sumMs int64
	for _, f := range files {
		if f.Success {
			rep.Succeeded++
			if rep.Succeeded == 1 || f.OutputBytes < rep.MinBytes {
				rep.MinBytes = f.OutputBytes
			}
			if f.OutputBytes > rep.MaxBytes {
				rep.MaxBytes = f.OutputBytes
			}
			rep.TotalBytes += f.OutputBytes
		} else {
			rep.Failed++
		}
		if f.Cancelled {
			rep.Cancelled++
			continue
		}

		ran++
		sumMs += f.ElapsedMs
		if ran == 1 || f.ElapsedMs < rep.MinMs {
			rep.MinMs = f.ElapsedMs
		}
		if f.ElapsedMs > rep.MaxMs {
			rep.MaxMs = f.ElapsedMs
		}
	}
	if ran > 0 {
		rep.AvgMs = sumMs / ran
	}
	if rep.Succeeded > 0 {
		rep.AvgBytes = rep.TotalBytes / int64(rep.Succeeded)
	}
	return rep
}

// Text renders the human-readable summary.
func (r *Report) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Batch %s\n", r.BatchID)
	fmt.Fprintf(&b, "Started:   %s\n", r.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Mode:      %s (%d workers)\n", r.Mode, r.Workers)
	fmt.Fprintf(&b, "Files:     %d total, %d succeeded, %d failed", r.Total, r.Succeeded, r.Failed)
	if r.Cancelled > 0 {
		fmt.Fprintf(&b, " (%d cancelled)", r.Cancelled)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Time:      %s total, min %s, max %s, avg %s\n",
		ms(r.TotalMs), ms(r.MinMs), ms(r.MaxMs), ms(r.AvgMs))
	fmt.Fprintf(&b, "Output:    %s total, min %s, max %s, avg %s\n\n",
		humanize.Bytes(uint64(r.TotalBytes)), humanize.Bytes(uint64(r.MinBytes)),
		humanize.Bytes(uint64(r.MaxBytes)), humanize.Bytes(uint64(r.AvgBytes)))

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTATUS\tTIME\tOUTPUT\tDETAIL")
	for _, f := range r.Files {
		status, detail := "ok", fmt.Sprintf("%d documents", f.Documents)
		if !f.Success {
			status = "FAILED"
			detail = f.Error
			if f.ErrorCode != "" {
				detail = fmt.Sprintf("[%s] %s", f.ErrorCode, f.Error)
			}
		} else if len(f.Warnings) > 0 {
			detail += fmt.Sprintf(", %s", english.Plural(len(f.Warnings), "warning", "warnings"))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.FileName, status, ms(f.ElapsedMs), humanize.Bytes(uint64(f.OutputBytes)), detail)
	}
	tw.Flush()

	for _, f := range r.Files {
		if len(f.Warnings) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\nWarnings for %s:\n", f.FileName)
		for _, w := range f.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}
	return b.String()
}

func ms(n int64) string {
	return (time.Duration(n) * time.Millisecond).String()
}

// Write persists the report as text and JSON in dir.
func (r *Report) Write(dir string) error {
	if err := os.WriteFile(filepath.Join(dir, ReportTextName), []byte(r.Text()), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ReportJSONName), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
