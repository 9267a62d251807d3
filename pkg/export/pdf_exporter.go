package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	labelWidth = 28.0
	lineHeight = 4.5
)

// Grid is a weekly timetable laid out with one row per time slot and one column per day.
type Grid struct {
	Title   string
	Columns []string
	Rows    []GridRow
}

// GridRow holds the cells of one time slot; Cells align with Grid.Columns.
type GridRow struct {
	Label string
	Cells []string
}

// PDFExporter renders timetable grids on landscape A4 pages.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderGrid draws the grid, repeating the header row on every page.
func (e *PDFExporter) RenderGrid(grid Grid) ([]byte, error) {
	if len(grid.Columns) == 0 {
		return nil, fmt.Errorf("pdf requires at least one column")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(false, 12)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	colWidth := (pageW - left - right - labelWidth) / float64(len(grid.Columns))

	if grid.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, grid.Title, "", 1, "C", false, 0, "")
		pdf.Ln(2)
	}
	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(labelWidth, 8, "Time", "1", 0, "C", true, 0, "")
		for _, col := range grid.Columns {
			pdf.CellFormat(colWidth, 8, titleCase(col), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	header()

	for _, row := range grid.Rows {
		lines := 1
		for _, cell := range row.Cells {
			if n := len(pdf.SplitLines([]byte(cell), colWidth-2)); n > lines {
				lines = n
			}
		}
		height := float64(lines)*lineHeight + 2

		_, y := pdf.GetXY()
		if y+height > pageH-bottom {
			pdf.AddPage()
			header()
			_, y = pdf.GetXY()
		}

		x := left
		pdf.Rect(x, y, labelWidth, height, "D")
		pdf.SetXY(x, y+1)
		pdf.MultiCell(labelWidth, lineHeight, row.Label, "", "C", false)
		x += labelWidth
		for i := range grid.Columns {
			var cell string
			if i < len(row.Cells) {
				cell = row.Cells[i]
			}
			pdf.Rect(x, y, colWidth, height, "D")
			pdf.SetXY(x+1, y+1)
			pdf.MultiCell(colWidth-2, lineHeight, cell, "", "L", false)
			x += colWidth
		}
		pdf.SetXY(left, y+height)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
