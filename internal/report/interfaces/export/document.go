package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	report "meterpay/internal/report/domain"
)

// PDF renders a one-page document with period, view and the summary table.
func PDF(r report.Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "B", 14)
	pdf.AddPage()

	pdf.Cell(0, 8, "Energy Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s", r.Period.Label()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("View: %s", r.Period.View()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Rate (INR/kWh): %s", money(r.Rate)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 236, 245)
	pdf.CellFormat(60, 7, "Type", "1", 0, "C", true, 0, "")
	pdf.CellFormat(50, 7, "Average", "1", 0, "C", true, 0, "")
	pdf.CellFormat(50, 7, "Maximum", "1", 0, "C", true, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range []struct {
		name    string
		summary report.Summary
	}{
		{name: rowUnits, summary: r.UnitsSummary},
		{name: rowAmount, summary: r.AmountSummary},
	} {
		pdf.CellFormat(60, 7, row.name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, money(row.summary.Average), "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 7, money(row.summary.Maximum), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// XLSX renders a workbook with a summary sheet and a series sheet.
func XLSX(r report.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	seriesSheet := "series"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(seriesSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Energy Report")
	_ = f.SetCellValue(summarySheet, "A2", "Period")
	_ = f.SetCellValue(summarySheet, "B2", r.Period.Label())
	_ = f.SetCellValue(summarySheet, "A3", "View")
	_ = f.SetCellValue(summarySheet, "B3", r.Period.View())
	_ = f.SetCellValue(summarySheet, "A5", "Type")
	_ = f.SetCellValue(summarySheet, "B5", "Average")
	_ = f.SetCellValue(summarySheet, "C5", "Maximum")
	_ = f.SetCellValue(summarySheet, "A6", rowUnits)
	_ = f.SetCellValue(summarySheet, "B6", r.UnitsSummary.Average)
	_ = f.SetCellValue(summarySheet, "C6", r.UnitsSummary.Maximum)
	_ = f.SetCellValue(summarySheet, "A7", rowAmount)
	_ = f.SetCellValue(summarySheet, "B7", r.AmountSummary.Average)
	_ = f.SetCellValue(summarySheet, "C7", r.AmountSummary.Maximum)

	_ = f.SetCellValue(seriesSheet, "A1", "Date")
	_ = f.SetCellValue(seriesSheet, "B1", "Units")
	_ = f.SetCellValue(seriesSheet, "C1", "Amount")
	for i, sample := range r.Samples() {
		row := i + 2
		_ = f.SetCellValue(seriesSheet, fmt.Sprintf("A%d", row), sample.Label)
		_ = f.SetCellValue(seriesSheet, fmt.Sprintf("B%d", row), sample.Units)
		_ = f.SetCellValue(seriesSheet, fmt.Sprintf("C%d", row), sample.Amount)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
