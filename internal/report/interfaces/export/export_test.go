package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	report "meterpay/internal/report/domain"
)

func testReport(t *testing.T, period report.Period) report.Report {
	t.Helper()
	units := make([]float64, period.Length())
	for i := range units {
		units[i] = float64(i%7) + 0.25*float64(i%4)
	}
	r, err := report.Build(period, units, 7.35)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	return r
}

func TestCSVLayout(t *testing.T) {
	r := testReport(t, report.DailyPeriod(2024, time.February))
	data, err := CSV(r)
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if lines[0] != "Energy Report" || lines[1] != "Period,February 2024" || lines[2] != "View,Daily" {
		t.Fatalf("unexpected header: %q", lines[:3])
	}
	if lines[4] != "Type,Average,Maximum" || lines[8] != "Date,Units,Amount" {
		t.Fatalf("unexpected block headers: %q / %q", lines[4], lines[8])
	}
	if !strings.HasPrefix(lines[9], "01/Feb/2024,") || !strings.HasPrefix(lines[39], "31/Feb/2024,") {
		t.Fatalf("unexpected sample rows: %q .. %q", lines[9], lines[39])
	}
	if len(lines) != 40 {
		t.Fatalf("expected 40 lines, got %d", len(lines))
	}
}

func TestCSVSummaryRoundTrip(t *testing.T) {
	for _, period := range []report.Period{report.DailyPeriod(2024, time.May), report.MonthlyPeriod(2024)} {
		r := testReport(t, period)
		data, err := CSV(r)
		if err != nil {
			t.Fatalf("csv: %v", err)
		}
		units, amount, err := ParseCSVSummary(data)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if units != r.UnitsSummary || amount != r.AmountSummary {
			t.Fatalf("%s: round trip mismatch: %+v %+v vs %+v %+v", period.Granularity, units, amount, r.UnitsSummary, r.AmountSummary)
		}
	}
}

func TestParseCSVSummaryMissingBlock(t *testing.T) {
	if _, _, err := ParseCSVSummary([]byte("Energy Report\nDate,Units,Amount\n")); !errors.Is(err, ErrMissingSummary) {
		t.Fatalf("expected ErrMissingSummary, got %v", err)
	}
}

func TestEncodeFilenameAndMIME(t *testing.T) {
	r := testReport(t, report.MonthlyPeriod(2024))
	at := time.UnixMilli(1714560000123)
	cases := []struct {
		format Format
		name   string
		mime   string
		magic  []byte
	}{
		{format: FormatCSV, name: "energy_report_2024_1714560000123.csv", mime: "text/csv", magic: []byte("Energy Report")},
		{format: FormatPDF, name: "energy_report_2024_1714560000123.pdf", mime: "application/pdf", magic: []byte("%PDF")},
		{format: FormatXLSX, name: "energy_report_2024_1714560000123.xlsx", mime: FormatXLSX.MIMEType(), magic: []byte("PK")},
	}
	for _, tc := range cases {
		artifact, err := Encode(r, tc.format, at)
		if err != nil {
			t.Fatalf("%s: encode: %v", tc.format, err)
		}
		if artifact.Filename != tc.name || artifact.MIMEType != tc.mime {
			t.Fatalf("%s: unexpected artifact %s %s", tc.format, artifact.Filename, artifact.MIMEType)
		}
		if !bytes.HasPrefix(artifact.Content, tc.magic) {
			t.Fatalf("%s: unexpected content prefix", tc.format)
		}
	}
	if _, err := Encode(r, Format("doc"), at); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestXLSXReadsBack(t *testing.T) {
	r := testReport(t, report.MonthlyPeriod(2024))
	data, err := XLSX(r)
	if err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	period, err := f.GetCellValue("summary", "B2")
	if err != nil || period != "2024" {
		t.Fatalf("unexpected period cell %q (%v)", period, err)
	}
	rows, err := f.GetRows("series")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 13 || rows[1][0] != "January" || rows[12][0] != "December" {
		t.Fatalf("unexpected series sheet: %d rows", len(rows))
	}
}

type stubSharer struct {
	err      error
	location string
}

func (s *stubSharer) Share(_ context.Context, _ Artifact, location string) error {
	s.location = location
	return s.err
}

func TestDeliverShares(t *testing.T) {
	root := t.TempDir()
	sharer := &stubSharer{}
	d, err := NewDeliverer(root, sharer, nil)
	if err != nil {
		t.Fatalf("new deliverer: %v", err)
	}
	receipt, err := d.Deliver(context.Background(), Artifact{Filename: "a.csv", MIMEType: "text/csv", Content: []byte("x")})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if !receipt.Shared || receipt.Location != filepath.Join(root, "a.csv") || sharer.location != receipt.Location {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if content, err := os.ReadFile(receipt.Location); err != nil || string(content) != "x" {
		t.Fatalf("file not written: %v", err)
	}
}

func TestDeliverFallsBackToLocation(t *testing.T) {
	for _, sharer := range []Sharer{nil, &stubSharer{err: ErrShareUnavailable}, NewWebhookSharer("")} {
		d, err := NewDeliverer(t.TempDir(), sharer, nil)
		if err != nil {
			t.Fatalf("new deliverer: %v", err)
		}
		receipt, err := d.Deliver(context.Background(), Artifact{Filename: "a.pdf", Content: []byte("%PDF")})
		if err != nil {
			t.Fatalf("expected fallback, got %v", err)
		}
		if receipt.Shared || receipt.Location == "" {
			t.Fatalf("unexpected receipt: %+v", receipt)
		}
	}
}

func TestDeliverErrors(t *testing.T) {
	d, _ := NewDeliverer(t.TempDir(), &stubSharer{err: errors.New("denied")}, nil)
	_, err := d.Deliver(context.Background(), Artifact{Filename: "a.csv"})
	var derr *DeliveryError
	if !errors.As(err, &derr) || derr.Op != "share" {
		t.Fatalf("expected share DeliveryError, got %v", err)
	}

	_, err = d.Deliver(context.Background(), Artifact{Filename: "../escape.csv"})
	if !errors.As(err, &derr) || derr.Op != "write" {
		t.Fatalf("expected write DeliveryError, got %v", err)
	}
}

func TestWebhookSharerPostsMetadata(t *testing.T) {
	var got sharePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sharer := NewWebhookSharer(srv.URL)
	err := sharer.Share(context.Background(), Artifact{Filename: "a.csv", MIMEType: "text/csv", Content: []byte("abc")}, "/tmp/a.csv")
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if got.Filename != "a.csv" || got.Location != "/tmp/a.csv" || got.Size != 3 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestWebhookSharerRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewWebhookSharer(srv.URL).Share(context.Background(), Artifact{Filename: "a.csv"}, "/tmp/a.csv")
	if err == nil || errors.Is(err, ErrShareUnavailable) {
		t.Fatalf("expected hard failure, got %v", err)
	}
}
