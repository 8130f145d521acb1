package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"meterpay/internal/observability/metrics"
	report "meterpay/internal/report/domain"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ErrUnsupportedFormat is returned for unknown formats.
var ErrUnsupportedFormat = errors.New("export: unsupported format")

// ParseFormat accepts csv, pdf or xlsx in any case.
func ParseFormat(raw string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(raw)))
	switch f {
	case FormatCSV, FormatPDF, FormatXLSX:
		return f, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// MIMEType returns the content type of the format.
func (f Format) MIMEType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// Artifact is an encoded report ready for delivery.
type Artifact struct {
	Filename string
	MIMEType string
	Content  []byte
}

// Filename is energy_report_<period-slug>_<unix-millis>.<ext>.
func Filename(period report.Period, format Format, at time.Time) string {
	return fmt.Sprintf("energy_report_%s_%d.%s", period.Slug(), at.UnixMilli(), format)
}

// Encode renders r in format. Encoding never mutates r.
func Encode(r report.Report, format Format, at time.Time) (Artifact, error) {
	started := time.Now()
	var (
		content []byte
		err     error
	)
	switch format {
	case FormatCSV:
		content, err = CSV(r)
	case FormatPDF:
		content, err = PDF(r)
	case FormatXLSX:
		content, err = XLSX(r)
	default:
		metrics.ObserveReportExport(string(format), metrics.ResultInvalid, time.Since(started))
		return Artifact{}, ErrUnsupportedFormat
	}
	if err != nil {
		metrics.ObserveReportExport(string(format), metrics.ResultError, time.Since(started))
		return Artifact{}, err
	}
	metrics.ObserveReportExport(string(format), metrics.ResultSuccess, time.Since(started))
	return Artifact{
		Filename: Filename(r.Period, format, at),
		MIMEType: format.MIMEType(),
		Content:  content,
	}, nil
}
