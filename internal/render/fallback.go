package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/net/html"
)

// pdfEpoch is stamped as the creation date of generated PDFs so identical
// input produces identical bytes.
var pdfEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Fallback renders the visible text of markup as a simple PDF, headed by the
// errors that made the fallback necessary. It always returns a valid PDF.
func Fallback(name, markup string, attempts []error) []byte {
	lines := ExtractText(markup)
	notes := make([]string, len(attempts))
	for i, err := range attempts {
		notes[i] = err.Error()
	}

	if out, err := fallbackPDF(name, lines, notes); err == nil && len(out) > 0 {
		return out
	}

	all := append([]string{name, ""}, notes...)
	all = append(all, "")
	return RawTextPDF(append(all, lines...))
}

func fallbackPDF(name string, lines, notes []string) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("fpdf panic: %v", r)
		}
	}()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(pdfEpoch)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(name, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 7, tr(name), "", "L", false)

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(110, 110, 110)
	pdf.MultiCell(0, 4, "Rendered as plain text because no render engine produced output.", "", "L", false)
	for _, n := range notes {
		pdf.MultiCell(0, 4, tr(n), "", "L", false)
	}
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for _, l := range lines {
		pdf.MultiCell(0, 4.5, tr(l), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// skipped elements contribute no visible text.
var skipped = map[string]bool{"head": true, "style": true, "script": true, "title": true, "noscript": true}

// blocks end the current line.
var blocks = map[string]bool{
	"p": true, "div": true, "br": true, "tr": true, "table": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "section": true, "thead": true, "tbody": true,
}

// ExtractText returns the visible text of markup, one line per block element.
// Table cells on one row are joined with " | ". Malformed markup is tolerated.
func ExtractText(markup string) []string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return splitPlain(markup)
	}

	var lines []string
	var cur []string
	var cells []string

	flush := func() {
		var parts []string
		if len(cells) > 0 {
			if len(cur) > 0 {
				cells = append(cells, strings.Join(cur, " "))
			}
			parts = append(parts, strings.Join(cells, " | "))
		} else if len(cur) > 0 {
			parts = append(parts, strings.Join(cur, " "))
		}
		cur, cells = nil, nil
		if line := strings.TrimSpace(strings.Join(parts, "")); line != "" {
			lines = append(lines, line)
		}
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				cur = append(cur, t)
			}
			return
		case html.ElementNode:
			if skipped[n.Data] {
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode {
			switch {
			case n.Data == "td" || n.Data == "th":
				cells = append(cells, strings.Join(cur, " "))
				cur = nil
			case blocks[n.Data]:
				flush()
			}
		}
	}
	walk(doc)
	flush()
	return lines
}

func splitPlain(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
