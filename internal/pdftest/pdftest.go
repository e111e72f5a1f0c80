// Package pdftest generates minimal, structurally valid PDFs so pipeline
// tests do not depend on binary fixtures.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// MultiPagePDF returns an n-page PDF. Each page carries a one-line content
// stream ("Page i") so extracted segments remain valid, non-empty documents.
// Object layout: 1 catalog, 2 pages tree, 3..2+n page dicts,
// 3+n..2+2n content streams, 3+2n font.
func MultiPagePDF(n int) []byte {
	if n < 1 {
		n = 1
	}

	var buf bytes.Buffer
	var offsets []int

	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	writeObj("<< /Type /Catalog /Pages 2 0 R >>")

	var kids strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&kids, "%d 0 R ", 3+i)
	}
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.TrimSpace(kids.String()), n))

	fontObj := 3 + 2*n
	for i := 0; i < n; i++ {
		writeObj(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> >> >>",
			3+n+i, fontObj))
	}
	for i := 0; i < n; i++ {
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (Page %d) Tj ET", i+1)
		writeObj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}
	writeObj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	xrefOffset := buf.Len()
	size := len(offsets) + 1
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", size)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, xrefOffset)

	return buf.Bytes()
}
