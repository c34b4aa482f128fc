package render

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	rawLinesPerPage = 62
	rawLineWidth    = 95
	rawLeading      = 12
)

// RawTextPDF writes lines as a minimal single-font PDF without any library.
// Non-ASCII characters become '?'. An empty input still yields one blank page.
func RawTextPDF(lines []string) []byte {
	var wrapped []string
	for _, l := range lines {
		wrapped = append(wrapped, wrap(asciiOnly(l), rawLineWidth)...)
	}

	var pages [][]string
	for len(wrapped) > rawLinesPerPage {
		pages = append(pages, wrapped[:rawLinesPerPage])
		wrapped = wrapped[rawLinesPerPage:]
	}
	pages = append(pages, wrapped)

	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	// Objects 1-3 are catalog, page tree and font; each page then takes a
	// page object followed by its content stream.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, page := range pages {
		var content strings.Builder
		content.WriteString("BT /F1 9 Tf 40 800 Td\n")
		fmt.Fprintf(&content, "%d TL\n", rawLeading)
		for _, l := range page {
			fmt.Fprintf(&content, "(%s) Tj T*\n", escapePDF(l))
		}
		content.WriteString("ET")

		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func asciiOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\t':
			b.WriteByte(' ')
		case r < 0x20:
		case r < 0x7f:
			b.WriteRune(r)
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}

func escapePDF(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}

// wrap splits s into chunks of at most width bytes, preferring spaces.
func wrap(s string, width int) []string {
	if len(s) <= width {
		return []string{s}
	}
	var out []string
	for len(s) > width {
		cut := width
		if s[width] != ' ' {
			if i := strings.LastIndexByte(s[:width], ' '); i > 0 {
				cut = i
			}
		}
		out = append(out, strings.TrimRight(s[:cut], " "))
		s = strings.TrimLeft(s[cut:], " ")
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
