package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"meterpay/internal/auth"
	"meterpay/internal/backend"
	"meterpay/internal/config"
	"meterpay/internal/observability/metrics"
	rechargeapp "meterpay/internal/recharge/application"
	recharge "meterpay/internal/recharge/domain"
	"meterpay/internal/recharge/infrastructure/checkout"
	rechargememory "meterpay/internal/recharge/infrastructure/memory"
	rechargehttp "meterpay/internal/recharge/interfaces/http"
	reportapp "meterpay/internal/report/application"
	reportmemory "meterpay/internal/report/infrastructure/memory"
	reportpostgres "meterpay/internal/report/infrastructure/postgres"
	reportpricing "meterpay/internal/report/infrastructure/pricing"
	"meterpay/internal/report/interfaces/export"
	reporthttp "meterpay/internal/report/interfaces/http"
	"meterpay/internal/session"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("open db: %v", err)
		}
		defer db.Close()
	}
	metrics.Init(db, logger)

	tokens, err := auth.NewTokens([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer)
	if err != nil {
		logger.Fatalf("tokens: %v", err)
	}
	backendClient, err := backend.NewClient(cfg.BackendBaseURL)
	if err != nil {
		logger.Fatalf("backend client: %v", err)
	}

	// ---- Recharge ----
	initiator, err := rechargeapp.NewInitiator(recharge.Fees{
		ServiceFee: decimal.NewFromFloat(cfg.Checkout.ServiceFee),
		Tax:        decimal.NewFromFloat(cfg.Checkout.Tax),
	}, rechargeapp.WithCurrency(cfg.Checkout.Currency))
	if err != nil {
		logger.Fatalf("initiator: %v", err)
	}
	broker := rechargehttp.NewNoticeBroker()
	rechargeService, err := rechargeapp.NewService(initiator, rechargememory.NewSessionRegistry(), tokens,
		rechargeapp.WithCatalog(cfg.Checkout.Catalog()),
		rechargeapp.WithCheckoutTimeout(cfg.Checkout.Timeout),
		rechargeapp.WithHandoffDelay(cfg.Checkout.HandoffDelay),
		rechargeapp.WithPublisher(broker),
		rechargeapp.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("recharge service: %v", err)
	}

	// ---- Session ----
	sessions, err := session.NewManager(backendClient, tokens,
		session.WithTokenTTL(cfg.Auth.SessionTTL),
		session.WithLogoutHook(rechargeService.Forget),
		session.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("session manager: %v", err)
	}
	sessionHandler, err := session.NewHandler(sessions, logger)
	if err != nil {
		logger.Fatalf("session handler: %v", err)
	}

	rechargeHandler, err := rechargehttp.NewHandler(rechargeService, sessions, logger)
	if err != nil {
		logger.Fatalf("recharge handler: %v", err)
	}
	checkoutHandler, err := rechargehttp.NewCheckoutHandler(rechargeService,
		checkout.NewPageRenderer(cfg.Checkout.ScriptURL, cfg.Checkout.MerchantName),
		checkout.Merchant{KeyID: cfg.Checkout.KeyID, Name: cfg.Checkout.MerchantName, ThemeColor: cfg.Checkout.ThemeColor},
		logger,
	)
	if err != nil {
		logger.Fatalf("checkout handler: %v", err)
	}

	// ---- Reports ----
	var source reportapp.SeriesSource
	switch cfg.Report.Source {
	case config.SourcePostgres:
		source, err = reportpostgres.NewSeriesSource(db)
		if err != nil {
			logger.Fatalf("report source: %v", err)
		}
	default:
		source = reportmemory.NewSeededSeriesSource()
	}
	rates, err := reportpricing.NewFixedRateProvider(cfg.Report.RatePerKWh)
	if err != nil {
		logger.Fatalf("rate provider: %v", err)
	}
	aggregator, err := reportapp.NewAggregator(source, rates)
	if err != nil {
		logger.Fatalf("aggregator: %v", err)
	}
	var sharer export.Sharer
	if cfg.Report.ShareWebhookURL != "" {
		sharer = export.NewWebhookSharer(cfg.Report.ShareWebhookURL)
	}
	deliverer, err := export.NewDeliverer(cfg.Report.ExportRoot, sharer, logger)
	if err != nil {
		logger.Fatalf("deliverer: %v", err)
	}
	reportHandler, err := reporthttp.NewHandler(aggregator, sessions, deliverer, systemClock{}, logger)
	if err != nil {
		logger.Fatalf("report handler: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics", "/api/v1/auth/login"}, []string{"/checkout/"})
	authMiddleware := auth.NewMiddleware(tokens, policy, sessions)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/auth/", sessionHandler)
	mux.Handle("/api/v1/site/telemetry", sessionHandler)
	mux.Handle("/api/v1/recharge/events", rechargehttp.NewStreamHandler(broker))
	mux.Handle("/api/v1/recharge", rechargeHandler)
	mux.Handle("/api/v1/recharge/", rechargeHandler)
	mux.Handle("/checkout/", checkoutHandler)
	mux.Handle("/api/v1/reports", reportHandler)
	mux.Handle("/api/v1/reports/", reportHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(authMiddleware.Wrap(mux), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Printf("meterpay listening on %s (report source %s)", cfg.HTTPAddr, cfg.Report.Source)
	logger.Fatal(server.ListenAndServe())
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush keeps the notice stream working behind the access log.
func (w *statusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
