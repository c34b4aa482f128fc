// Package pipeline turns one billing workbook into its set of PDF documents.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/billdocs/internal/bundle"
	"github.com/JonMunkholm/billdocs/internal/core"
	"github.com/JonMunkholm/billdocs/internal/logging"
	"github.com/JonMunkholm/billdocs/internal/render"
	"github.com/JonMunkholm/billdocs/internal/schema"
	"github.com/JonMunkholm/billdocs/internal/workbook"
)

// CombinedName is the file name of the bundled output.
const CombinedName = "Combined Bill"

// MarkupRenderer renders one document of a model as HTML.
type MarkupRenderer interface {
	Render(ctx context.Context, m *core.DocumentModel, t core.DocumentType) (string, error)
}

// PageRenderer paginates markup. It must always return output.
type PageRenderer interface {
	Render(ctx context.Context, name, markup string) render.Result
}

// Bundler combines rendered documents.
type Bundler interface {
	Bundle(ctx context.Context, parts []bundle.Part) bundle.Artifact
}

// Processor runs the per-file pipeline. It holds no per-file state and is
// safe for concurrent use when its collaborators are.
type Processor struct {
	markup  MarkupRenderer
	pages   PageRenderer
	bundler Bundler
	rules   core.Rules
}

// New returns a Processor.
func New(markup MarkupRenderer, pages PageRenderer, bundler Bundler, rules core.Rules) *Processor {
	return &Processor{markup: markup, pages: pages, bundler: bundler, rules: rules}
}

// Document describes one written PDF.
type Document struct {
	Type     core.DocumentType
	Name     string
	Path     string
	Engine   string
	Bytes    int
	Suspect  bool
	Fallback bool
}

// Result is the outcome of processing one workbook.
type Result struct {
	File      string
	Model     *core.DocumentModel
	Documents []Document
	// Combined is the path of the bundled PDF, empty when only one document
	// was produced.
	Combined      string
	BundleMethod  string
	OutputBytes   int64
	Warnings      []string
	SkippedErrors []error
}

// GeneratedPaths lists every file written, documents first.
func (r *Result) GeneratedPaths() []string {
	paths := make([]string, 0, len(r.Documents)+1)
	for _, d := range r.Documents {
		paths = append(paths, d.Path)
	}
	if r.Combined != "" {
		paths = append(paths, r.Combined)
	}
	return paths
}

// Process reads the workbook at path and writes its documents under
// outDir/<file stem>/. Schema and read failures are returned as errors; a
// document that fails its template is skipped and recorded as a warning.
func (p *Processor) Process(ctx context.Context, path, outDir string) (*Result, error) {
	start := time.Now()
	log := logging.FromContext(ctx)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model, issues, err := p.Build(path)
	if err != nil {
		return nil, err
	}

	res := &Result{File: filepath.Base(path), Model: model}
	for _, is := range issues {
		res.Warnings = append(res.Warnings, is.Error())
	}

	dir := filepath.Join(outDir, Stem(path))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var parts []bundle.Part
	for _, def := range core.ForModel(model) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		html, err := p.markup.Render(ctx, model, def.Type)
		if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
			res.SkippedErrors = append(res.SkippedErrors, err)
			log.Warn("document skipped", "document", def.Name, "error", err)
			continue
		}

		rr := p.pages.Render(ctx, def.Name, html)
		out := filepath.Join(dir, def.Name+".pdf")
		if err := os.WriteFile(out, rr.Bytes, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", def.Name, err)
		}

		if rr.Fallback() {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: rendered with text fallback: %v", def.Name, rr.Err))
		}
		if rr.Suspect {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: output is only %d bytes", def.Name, rr.SizeBytes))
		}

		res.Documents = append(res.Documents, Document{
			Type:     def.Type,
			Name:     def.Name,
			Path:     out,
			Engine:   rr.EngineUsed,
			Bytes:    rr.SizeBytes,
			Suspect:  rr.Suspect,
			Fallback: rr.Fallback(),
		})
		res.OutputBytes += int64(rr.SizeBytes)
		parts = append(parts, bundle.Part{Name: def.Name, Bytes: rr.Bytes})
	}

	// One document needs no bundle; none at all still gets a placeholder so
	// every file leaves some output behind.
	if len(parts) != 1 {
		art := p.bundler.Bundle(ctx, parts)
		out := filepath.Join(dir, CombinedName+".pdf")
		if err := os.WriteFile(out, art.Bytes, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", CombinedName, err)
		}
		res.Combined = out
		res.BundleMethod = art.Method
		res.OutputBytes += int64(len(art.Bytes))
		if art.Err != nil {
			res.Warnings = append(res.Warnings, art.Err.Error())
		}
		for _, name := range art.Skipped {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: left out of %s", name, CombinedName))
		}
	}

	log.Info("file processed",
		"documents", len(res.Documents),
		"warnings", len(res.Warnings),
		"bytes", res.OutputBytes,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Build reads the workbook and computes its document model without rendering.
func (p *Processor) Build(path string) (*core.DocumentModel, []core.Issue, error) {
	wb, err := workbook.Open(path)
	if err != nil {
		return nil, nil, err
	}

	roles, err := schema.ResolveSheets(wb.SheetNames())
	if err != nil {
		return nil, nil, err
	}

	titleRecs, err := records(wb, roles, schema.SheetTitle)
	if err != nil {
		return nil, nil, err
	}
	woRecs, err := records(wb, roles, schema.SheetWorkOrder)
	if err != nil {
		return nil, nil, err
	}
	billRecs, err := records(wb, roles, schema.SheetBillQuantity)
	if err != nil {
		return nil, nil, err
	}
	extraRecs, err := records(wb, roles, schema.SheetExtraItems)
	if err != nil {
		return nil, nil, err
	}

	var issues []core.Issue
	normalize := func(role schema.SheetRole, recs []schema.Record) []core.LineItem {
		items, is := core.NormalizeItems(roles[role], recs)
		issues = append(issues, is...)
		return items
	}

	title := core.NormalizeTitle(titleRecs)
	workOrder := normalize(schema.SheetWorkOrder, woRecs)
	billed := workOrder
	if _, ok := roles[schema.SheetBillQuantity]; ok {
		billed = core.MergeBilledRates(workOrder, normalize(schema.SheetBillQuantity, billRecs))
	}
	extra := normalize(schema.SheetExtraItems, extraRecs)

	workOrder = core.ApplySuppression(workOrder)
	billed = core.ApplySuppression(billed)
	extra = core.ApplySuppression(extra)

	rules := p.rules.ForTitle(title)
	deviations := core.ComputeDeviations(workOrder, billed)
	totals := core.ComputeTotals(billed, extra, rules)

	return core.Assemble(title, workOrder, billed, extra, deviations, totals), issues, nil
}

// records resolves and reads one logical sheet. An optional sheet that is
// absent yields no records.
func records(wb *workbook.Workbook, roles map[schema.SheetRole]string, role schema.SheetRole) ([]schema.Record, error) {
	name, ok := roles[role]
	if !ok {
		return nil, nil
	}
	raw, ok := wb.Sheet(name)
	if !ok {
		return nil, &schema.ResolutionError{Sheet: string(role), Reason: "sheet not found in workbook"}
	}

	var s schema.Schema
	for _, spec := range schema.WorkbookSheets {
		if spec.Role == role {
			s = spec.Schema
		}
	}

	m, err := schema.Resolve(raw, s)
	if err != nil {
		var re *schema.ResolutionError
		if errors.As(err, &re) && re.Sheet == "" {
			re.Sheet = name
		}
		return nil, err
	}
	return raw.Records(m), nil
}

// Stem is the file name without directory or extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
