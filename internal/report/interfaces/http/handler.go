package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"meterpay/internal/auth"
	"meterpay/internal/report/application"
	report "meterpay/internal/report/domain"
	"meterpay/internal/report/interfaces/export"
)

// Clock provides current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SubjectResolver maps an authenticated account to the meter or site its reports cover.
type SubjectResolver interface {
	ReportSubject(ctx context.Context, accountID string) (string, error)
}

// Handler serves report queries and exports under /api/v1/reports.
type Handler struct {
	aggregator *application.Aggregator
	subjects   SubjectResolver
	deliverer  *export.Deliverer
	clock      Clock
	logger     *log.Logger
}

// NewHandler constructs a handler. deliverer may be nil, which disables server-side delivery.
func NewHandler(aggregator *application.Aggregator, subjects SubjectResolver, deliverer *export.Deliverer, clock Clock, logger *log.Logger) (*Handler, error) {
	if aggregator == nil {
		return nil, errors.New("report handler: nil aggregator")
	}
	if subjects == nil {
		return nil, errors.New("report handler: nil subject resolver")
	}
	if clock == nil {
		clock = systemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{aggregator: aggregator, subjects: subjects, deliverer: deliverer, clock: clock, logger: logger}, nil
}

// ServeHTTP handles:
//
//	GET  /api/v1/reports?granularity=daily&month=5&year=2024
//	GET  /api/v1/reports/export.{csv,pdf,xlsx}?...   download
//	POST /api/v1/reports/export.{csv,pdf,xlsx}?...   store and share
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if auth.AccountIDFromContext(r.Context()) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/reports"), "/")
	if rest == "" && r.Method == http.MethodGet {
		h.handleReport(w, r)
		return
	}
	if strings.HasPrefix(rest, "export.") {
		format, err := export.ParseFormat(strings.TrimPrefix(rest, "export."))
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.handleDownload(w, r, format)
			return
		case http.MethodPost:
			h.handleDeliver(w, r, format)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

type summaryResponse struct {
	Average float64 `json:"average"`
	Maximum float64 `json:"maximum"`
}

type reportResponse struct {
	Granularity report.Granularity `json:"granularity"`
	Period      string             `json:"period"`
	View        string             `json:"view"`
	Rate        float64            `json:"rate"`
	Labels      []string           `json:"labels"`
	Units       []float64          `json:"units"`
	Amounts     []float64          `json:"amounts"`
	Summary     struct {
		Units  summaryResponse `json:"units"`
		Amount summaryResponse `json:"amount"`
	} `json:"summary"`
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	result, ok := h.aggregate(w, r)
	if !ok {
		return
	}
	resp := reportResponse{
		Granularity: result.Period.Granularity,
		Period:      result.Period.Label(),
		View:        result.Period.View(),
		Rate:        result.Rate,
		Labels:      result.Period.SampleLabels(),
		Units:       result.Units,
		Amounts:     result.Amounts,
	}
	resp.Summary.Units = summaryResponse(result.UnitsSummary)
	resp.Summary.Amount = summaryResponse(result.AmountSummary)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request, format export.Format) {
	result, ok := h.aggregate(w, r)
	if !ok {
		return
	}
	artifact, err := export.Encode(result, format, h.clock.Now())
	if err != nil {
		h.logger.Printf("report: export %s failed: %v", format, err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", artifact.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	_, _ = w.Write(artifact.Content)
}

func (h *Handler) handleDeliver(w http.ResponseWriter, r *http.Request, format export.Format) {
	if h.deliverer == nil {
		http.Error(w, "delivery not configured", http.StatusServiceUnavailable)
		return
	}
	result, ok := h.aggregate(w, r)
	if !ok {
		return
	}
	artifact, err := export.Encode(result, format, h.clock.Now())
	if err != nil {
		h.logger.Printf("report: export %s failed: %v", format, err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	receipt, err := h.deliverer.Deliver(r.Context(), artifact)
	if err != nil {
		h.logger.Printf("report: deliver %s failed: %v", artifact.Filename, err)
		var derr *export.DeliveryError
		if errors.As(err, &derr) && derr.Op == "share" {
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error":    "share failed",
				"location": receipt.Location,
			})
			return
		}
		http.Error(w, "delivery failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) aggregate(w http.ResponseWriter, r *http.Request) (report.Report, bool) {
	period, err := parsePeriod(r, h.clock.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return report.Report{}, false
	}
	accountID := auth.AccountIDFromContext(r.Context())
	subjectID, err := h.subjects.ReportSubject(r.Context(), accountID)
	if err != nil {
		h.logger.Printf("report: no subject for account=%s: %v", accountID, err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return report.Report{}, false
	}
	result, err := h.aggregator.Aggregate(r.Context(), subjectID, period)
	if err != nil {
		switch {
		case application.IsInvalidRequest(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Printf("report: aggregate %s failed: %v", period.Slug(), err)
			http.Error(w, "report unavailable", http.StatusBadGateway)
		}
		return report.Report{}, false
	}
	return result, true
}

func parsePeriod(r *http.Request, now time.Time) (report.Period, error) {
	query := r.URL.Query()
	granularity := report.GranularityDaily
	if raw := query.Get("granularity"); raw != "" {
		parsed, err := report.ParseGranularity(raw)
		if err != nil {
			return report.Period{}, err
		}
		granularity = parsed
	}

	year := now.Year()
	if raw := query.Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return report.Period{}, report.ErrInvalidYear
		}
		year = parsed
	}
	if granularity == report.GranularityMonthly {
		return report.MonthlyPeriod(year), nil
	}

	month := now.Month()
	if raw := query.Get("month"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return report.Period{}, report.ErrInvalidMonth
		}
		month = time.Month(parsed)
	}
	period := report.DailyPeriod(year, month)
	return period, period.Validate()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
