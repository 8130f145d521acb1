package report

import (
	"fmt"
	"strings"
	"time"
)

// Granularity is the report time resolution.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityMonthly Granularity = "monthly"
)

const (
	dailyLength   = 31
	monthlyLength = 12
)

// IsValid reports whether the granularity is supported.
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityDaily, GranularityMonthly:
		return true
	default:
		return false
	}
}

// ParseGranularity accepts daily/monthly in any case.
func ParseGranularity(raw string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(raw)))
	if !g.IsValid() {
		return "", ErrInvalidGranularity
	}
	return g, nil
}

// Period selects the window a report covers.
// Month is only meaningful for daily reports.
type Period struct {
	Granularity Granularity
	Month       time.Month
	Year        int
}

// DailyPeriod selects the days of one month.
func DailyPeriod(year int, month time.Month) Period {
	return Period{Granularity: GranularityDaily, Month: month, Year: year}
}

// MonthlyPeriod selects the months of one year.
func MonthlyPeriod(year int) Period {
	return Period{Granularity: GranularityMonthly, Year: year}
}

// Validate checks the period fields.
func (p Period) Validate() error {
	if !p.Granularity.IsValid() {
		return ErrInvalidGranularity
	}
	if p.Year <= 0 {
		return ErrInvalidYear
	}
	if p.Granularity == GranularityDaily && (p.Month < time.January || p.Month > time.December) {
		return ErrInvalidMonth
	}
	return nil
}

// Length is the number of samples: 31 for daily regardless of calendar length, 12 for monthly.
func (p Period) Length() int {
	if p.Granularity == GranularityMonthly {
		return monthlyLength
	}
	return dailyLength
}

// View is the human name of the granularity.
func (p Period) View() string {
	if p.Granularity == GranularityMonthly {
		return "Monthly"
	}
	return "Daily"
}

// Label is the human period, e.g. "May 2024" or "2024".
func (p Period) Label() string {
	if p.Granularity == GranularityMonthly {
		return fmt.Sprintf("%d", p.Year)
	}
	return fmt.Sprintf("%s %d", p.Month, p.Year)
}

// Slug is the filename-safe period, e.g. "2024-05" or "2024".
func (p Period) Slug() string {
	if p.Granularity == GranularityMonthly {
		return fmt.Sprintf("%d", p.Year)
	}
	return fmt.Sprintf("%d-%02d", p.Year, int(p.Month))
}

// Range returns the UTC window [start, end) covered by the period.
func (p Period) Range() (time.Time, time.Time) {
	if p.Granularity == GranularityMonthly {
		start := time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0)
	}
	start := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// SampleLabels names each sample: DD/Mon/YYYY for daily, full month names for monthly.
// Daily labels run 01..31 without calendar normalization.
func (p Period) SampleLabels() []string {
	labels := make([]string, p.Length())
	for i := range labels {
		if p.Granularity == GranularityMonthly {
			labels[i] = time.Month(i + 1).String()
			continue
		}
		labels[i] = fmt.Sprintf("%02d/%s/%d", i+1, p.Month.String()[:3], p.Year)
	}
	return labels
}
