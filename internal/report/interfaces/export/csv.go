package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	report "meterpay/internal/report/domain"
)

const (
	rowUnits  = "Units (kWh)"
	rowAmount = "Amount (INR)"
)

// ErrMissingSummary is returned when delimited text has no summary block.
var ErrMissingSummary = errors.New("export: summary block not found")

// CSV renders the header, summary block and per-sample block.
func CSV(r report.Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"Energy Report"},
		{"Period", r.Period.Label()},
		{"View", r.Period.View()},
		{},
		{"Type", "Average", "Maximum"},
		{rowUnits, money(r.UnitsSummary.Average), money(r.UnitsSummary.Maximum)},
		{rowAmount, money(r.AmountSummary.Average), money(r.AmountSummary.Maximum)},
		{},
		{"Date", "Units", "Amount"},
	}
	for _, sample := range r.Samples() {
		rows = append(rows, []string{sample.Label, money(sample.Units), money(sample.Amount)})
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseCSVSummary reads the units and amount summaries back from CSV output.
func ParseCSVSummary(data []byte) (report.Summary, report.Summary, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	var (
		units, amount       report.Summary
		inSummary           bool
		gotUnits, gotAmount bool
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return report.Summary{}, report.Summary{}, err
		}
		if len(record) == 3 && record[0] == "Type" {
			inSummary = true
			continue
		}
		if !inSummary {
			continue
		}
		if len(record) != 3 {
			break
		}
		summary, err := parseSummaryRow(record)
		if err != nil {
			return report.Summary{}, report.Summary{}, err
		}
		switch record[0] {
		case rowUnits:
			units, gotUnits = summary, true
		case rowAmount:
			amount, gotAmount = summary, true
		default:
			inSummary = false
		}
		if gotUnits && gotAmount {
			return units, amount, nil
		}
	}
	return report.Summary{}, report.Summary{}, ErrMissingSummary
}

func parseSummaryRow(record []string) (report.Summary, error) {
	avg, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return report.Summary{}, fmt.Errorf("export: %s average: %w", record[0], err)
	}
	max, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
	if err != nil {
		return report.Summary{}, fmt.Errorf("export: %s maximum: %w", record[0], err)
	}
	return report.Summary{Average: avg, Maximum: max}, nil
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
