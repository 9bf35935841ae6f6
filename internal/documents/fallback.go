package documents

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// renderFallbackPDF produces a plain PDF locally when Gotenberg is down or
// not configured. It is intentionally minimal: header, line table, total.
func renderFallbackPDF(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, doc.Title)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("%s  |  %s  |  %s  |  %s",
		doc.Reference, doc.ClientName, doc.Date.Format("2006-01-02"), doc.Status))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(90, 7, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(25, 7, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Unit price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(40, 7, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range doc.Lines {
		label := line.Label
		if line.DiscountPercent != 0 {
			label = fmt.Sprintf("%s (%g%% off)", label, line.DiscountPercent)
		}
		pdf.CellFormat(90, 7, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%g", line.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, Money(line.UnitPrice), "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, Money(line.Amount), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(150, 8, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, Money(doc.Total), "T", 1, "R", false, 0, "")

	if doc.Notes != "" {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, doc.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
