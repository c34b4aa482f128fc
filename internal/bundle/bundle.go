// Package bundle combines per-document PDFs into one file.
package bundle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/JonMunkholm/billdocs/internal/logging"
	"github.com/JonMunkholm/billdocs/internal/render"
)

// Bundling methods recorded on an Artifact.
const (
	MethodMerge       = "pdfcpu"
	MethodConcat      = "concat"
	MethodPlaceholder = "placeholder"
)

// Part is one document to bundle.
type Part struct {
	Name  string
	Bytes []byte
}

// Artifact is the combined output.
type Artifact struct {
	Bytes    []byte
	Method   string
	Included []string
	// Skipped lists parts that could not be read as PDF.
	Skipped []string
	// Err is set when the merge failed and concatenation was used instead.
	Err error
}

// Error reports a part that could not be read or a failed merge.
type Error struct {
	Stage string
	Part  string
	Err   error
}

func (e *Error) Error() string {
	if e.Part != "" {
		return fmt.Sprintf("bundle %s %q: %v", e.Stage, e.Part, e.Err)
	}
	return fmt.Sprintf("bundle %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Bundler merges PDFs with pdfcpu.
type Bundler struct {
	conf *model.Configuration
}

var configOnce sync.Once

// New returns a Bundler using pdfcpu's relaxed validation. pdfcpu's on-disk
// configuration directory is never created.
func New() *Bundler {
	configOnce.Do(func() { model.ConfigPath = "disable" })
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Bundler{conf: conf}
}

// Separator precedes each part in concatenated output.
func Separator(name string) string {
	return fmt.Sprintf("%%%%-- billdocs part: %s --%%%%\n", name)
}

// Bundle combines parts in order. It never fails: unreadable parts are
// skipped, a failed merge falls back to concatenation, and no readable parts
// at all yields a blank placeholder page.
func (b *Bundler) Bundle(ctx context.Context, parts []Part) Artifact {
	log := logging.FromContext(ctx)

	var art Artifact
	var valid []Part
	for _, p := range parts {
		if err := b.validate(p); err != nil {
			art.Skipped = append(art.Skipped, p.Name)
			log.Warn("bundle part skipped", "part", p.Name, "error", err)
			continue
		}
		valid = append(valid, p)
	}

	if len(valid) == 0 {
		art.Bytes = Placeholder()
		art.Method = MethodPlaceholder
		log.Warn("no readable parts, writing placeholder", "parts", len(parts))
		return art
	}

	for _, p := range valid {
		art.Included = append(art.Included, p.Name)
	}

	out, err := b.merge(valid)
	if err == nil {
		art.Bytes = out
		art.Method = MethodMerge
		return art
	}

	art.Err = err
	art.Bytes = Concat(valid)
	art.Method = MethodConcat
	log.Warn("merge failed, concatenating parts", "parts", len(valid), "error", err)
	return art
}

func (b *Bundler) validate(p Part) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Stage: "read", Part: p.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if len(p.Bytes) == 0 {
		return &Error{Stage: "read", Part: p.Name, Err: errors.New("empty document")}
	}
	n, err := api.PageCount(bytes.NewReader(p.Bytes), b.conf)
	if err != nil {
		return &Error{Stage: "read", Part: p.Name, Err: err}
	}
	if n == 0 {
		return &Error{Stage: "read", Part: p.Name, Err: errors.New("document has no pages")}
	}
	return nil
}

func (b *Bundler) merge(parts []Part) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, &Error{Stage: "merge", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	readers := make([]io.ReadSeeker, len(parts))
	for i, p := range parts {
		readers[i] = bytes.NewReader(p.Bytes)
	}
	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, b.conf); err != nil {
		return nil, &Error{Stage: "merge", Err: err}
	}
	if buf.Len() == 0 {
		return nil, &Error{Stage: "merge", Err: errors.New("empty output")}
	}
	return buf.Bytes(), nil
}

// Concat joins parts byte for byte, each preceded by its Separator.
func Concat(parts []Part) []byte {
	var buf bytes.Buffer
	for _, p := range parts {
		buf.WriteString(Separator(p.Name))
		buf.Write(p.Bytes)
		if n := len(p.Bytes); n > 0 && p.Bytes[n-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

// Placeholder returns a single blank A4 page.
func Placeholder() []byte {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	pdf.SetCatalogSort(true)
	pdf.AddPage()
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil || buf.Len() == 0 {
		return render.RawTextPDF(nil)
	}
	return buf.Bytes()
}
