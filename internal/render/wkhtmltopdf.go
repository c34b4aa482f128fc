package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Wkhtmltopdf renders through the wkhtmltopdf binary, reading markup on stdin
// and the PDF from stdout. Markup is passed through SanitizeCSS first.
type Wkhtmltopdf struct {
	Bin string
}

// NewWkhtmltopdf returns the engine; an empty bin means "wkhtmltopdf" on PATH.
func NewWkhtmltopdf(bin string) *Wkhtmltopdf {
	if bin == "" {
		bin = "wkhtmltopdf"
	}
	return &Wkhtmltopdf{Bin: bin}
}

func (w *Wkhtmltopdf) Name() string { return "wkhtmltopdf" }

func (w *Wkhtmltopdf) Render(ctx context.Context, markup string) ([]byte, error) {
	path, err := exec.LookPath(w.Bin)
	if err != nil {
		return nil, fmt.Errorf("wkhtmltopdf not available: %w", err)
	}

	cmd := exec.CommandContext(ctx, path,
		"--quiet",
		"--encoding", "utf-8",
		"--page-size", "A4",
		"--margin-top", "15mm", "--margin-bottom", "15mm",
		"--margin-left", "12mm", "--margin-right", "12mm",
		"--disable-javascript",
		"-", "-",
	)
	cmd.Stdin = strings.NewReader(SanitizeCSS(markup))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return nil, fmt.Errorf("wkhtmltopdf: %w: %s", err, msg)
	}
	return stdout.Bytes(), nil
}
