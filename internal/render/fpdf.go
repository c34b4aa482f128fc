package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/net/html"
)

// FPDF renders natively with go-pdf/fpdf. It understands headings,
// paragraphs, table rows and inline bold/italic/underline; everything else is
// flattened to text. It needs no external process and is always available.
type FPDF struct{}

// NewFPDF returns the engine.
func NewFPDF() *FPDF { return &FPDF{} }

func (FPDF) Name() string { return "fpdf" }

func (FPDF) Render(ctx context.Context, markup string) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("fpdf panic: %v", r)
		}
	}()

	parts := flatten(markup)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(pdfEpoch)
	pdf.SetCatalogSort(true)
	pdf.SetMargins(12, 15, 12)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	basic := pdf.HTMLBasicNew()

	for _, b := range parts {
		switch b.level {
		case 1:
			pdf.SetFont("Helvetica", "B", 14)
			pdf.MultiCell(0, 7, tr(b.text), "", "C", false)
			pdf.Ln(2)
		case 2, 3:
			pdf.SetFont("Helvetica", "B", 11)
			pdf.MultiCell(0, 6, tr(b.text), "", "L", false)
		default:
			pdf.SetFont("Helvetica", "", 9)
			basic.Write(4.5, tr(b.inline))
			pdf.Ln(5)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// block is one line of flattened output. Headings carry plain text; other
// blocks carry the small inline tag set fpdf's HTML writer supports.
type block struct {
	level  int // 1-6 for headings, 0 otherwise
	text   string
	inline string
}

var inlineTags = map[string]string{"b": "b", "strong": "b", "i": "i", "em": "i", "u": "u"}

// flatten is the pre-pass for the fpdf engine. Table rows become one block
// with cells joined by " | "; header rows are bold.
func flatten(markup string) []block {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		var out []block
		for _, l := range splitPlain(markup) {
			out = append(out, block{text: l, inline: escapeBasic(l)})
		}
		return out
	}

	var out []block
	var inline, text strings.Builder
	cellOpen := false

	emit := func(level int) {
		t := strings.TrimSpace(text.String())
		in := strings.TrimSpace(inline.String())
		inline.Reset()
		text.Reset()
		cellOpen = false
		if t == "" {
			return
		}
		out = append(out, block{level: level, text: t, inline: in})
	}
	write := func(s string) {
		if text.Len() > 0 && !strings.HasSuffix(text.String(), " ") {
			text.WriteByte(' ')
			inline.WriteByte(' ')
		}
		text.WriteString(s)
		inline.WriteString(escapeBasic(s))
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				write(t)
			}
			return
		}
		if n.Type == html.ElementNode && skipped[n.Data] {
			return
		}

		tag := ""
		if n.Type == html.ElementNode {
			tag = n.Data
		}
		level := headingLevel(tag)
		if level > 0 || blocks[tag] {
			emit(0)
		}
		if tag == "td" || tag == "th" {
			if cellOpen {
				text.WriteString(" | ")
				inline.WriteString(" | ")
			}
			cellOpen = true
		}
		if t, ok := inlineTags[tag]; ok {
			inline.WriteString("<" + t + ">")
		}
		if tag == "th" {
			inline.WriteString("<b>")
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if tag == "th" {
			inline.WriteString("</b>")
		}
		if t, ok := inlineTags[tag]; ok {
			inline.WriteString("</" + t + ">")
		}
		if level > 0 {
			emit(level)
		} else if blocks[tag] {
			emit(0)
		}
	}
	walk(doc)
	emit(0)
	return out
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// escapeBasic keeps literal angle brackets in text from being read as tags
// by fpdf's HTML tokenizer.
func escapeBasic(s string) string {
	return strings.NewReplacer("<", "‹", ">", "›").Replace(s)
}
