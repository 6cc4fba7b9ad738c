package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidthLandscape = 277.0
	lineHeight         = 5.0
	cellPadding        = 1.5
)

// PDFExporter renders tables onto landscape A4 pages.
type PDFExporter struct {
	// LeadColumns are drawn narrow; the remaining width is shared by the other columns.
	LeadColumns int
	LeadWidth   float64
}

// NewPDFExporter constructs a PDF exporter with two narrow leading columns.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{LeadColumns: 2, LeadWidth: 18}
}

// Render creates a PDF document with the table title and body. Cell text may
// contain newlines; each row grows to fit its tallest cell.
func (e *PDFExporter) Render(table Table) ([]byte, error) {
	if len(table.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	if table.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(table.Title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	widths := e.columnWidths(len(table.Headers))

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range table.Headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range table.Rows {
		e.drawRow(pdf, table, row, widths)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) columnWidths(columns int) []float64 {
	lead := e.LeadColumns
	if lead > columns {
		lead = columns
	}
	widths := make([]float64, columns)
	rest := pageWidthLandscape - float64(lead)*e.LeadWidth
	for i := range widths {
		if i < lead {
			widths[i] = e.LeadWidth
			continue
		}
		widths[i] = rest / float64(columns-lead)
	}
	return widths
}

func (e *PDFExporter) drawRow(pdf *gofpdf.Fpdf, table Table, row []string, widths []float64) {
	lines := 1
	split := make([][]string, len(widths))
	for i, width := range widths {
		for _, part := range strings.Split(table.cell(row, i), "\n") {
			for _, line := range pdf.SplitLines([]byte(part), width-2*cellPadding) {
				split[i] = append(split[i], string(line))
			}
		}
		if len(split[i]) > lines {
			lines = len(split[i])
		}
	}
	height := float64(lines)*lineHeight + 2

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+height > pageHeight-bottom {
		pdf.AddPage()
	}

	x, y := pdf.GetXY()
	for i, width := range widths {
		pdf.Rect(x, y, width, height, "D")
		pdf.SetXY(x+cellPadding, y+1)
		pdf.MultiCell(width-2*cellPadding, lineHeight, strings.Join(split[i], "\n"), "", "L", false)
		x += width
	}
	pdf.SetXY(10, y+height)
}
