// Package http serves the back office pages: server-rendered templates
// enhanced with HTMX, behind the shared-password gate.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"khidma/internal/auth"
	"khidma/internal/core"
	"khidma/internal/importer"
	applog "khidma/internal/log"
	"khidma/internal/metrics"
	"khidma/internal/middleware/ratelimit"
	"khidma/internal/middleware/security"
	"khidma/internal/middleware/trace"
	"khidma/internal/ocr"
	"khidma/internal/ports"
	"khidma/internal/printing"
	"khidma/internal/services"
	appweb "khidma/web"
)

// Services the handlers call. The services package implements them.
type (
	DashboardService interface {
		Dashboard(ctx context.Context, filter core.MonthFilter) (core.Dashboard, error)
	}

	CollectionService interface {
		SaveCollection(ctx context.Context, req services.SaveCollectionRequest) (services.SaveResult, error)
		SponsorCases(ctx context.Context, sponsorID string) ([]core.Sponsorship, error)
		PendingCollections(ctx context.Context, month core.Month) ([]core.PendingRow, error)
		ConfirmCollections(ctx context.Context, confs []core.Confirmation, month core.Month) (core.ConfirmationSummary, error)
		MonthSheet(ctx context.Context, month core.Month) ([]ports.SheetRow, error)
	}

	RegistryService interface {
		Areas(ctx context.Context, activeOnly bool) ([]core.Area, error)
		Operators(ctx context.Context) ([]core.Operator, error)
		Sponsors(ctx context.Context) ([]core.Sponsor, error)
		CreateSponsor(ctx context.Context, sp core.Sponsor) (core.Sponsor, error)
		CreateCase(ctx context.Context, nc services.NewCase) (string, error)
		Invalidate()
	}

	SettlementService interface {
		LoadRows(ctx context.Context, areaID string, month core.Month) ([]core.SettleRow, error)
		AvailableSponsorships(ctx context.Context) ([]core.Sponsorship, error)
		CreateCaseRow(ctx context.Context, in services.NewCaseRow) (core.SettleRow, error)
		Save(ctx context.Context, month core.Month, rows []core.SettleRow) error
		Finalize(ctx context.Context, areaID string, month core.Month, rows []core.SettleRow) (core.SettleTotals, error)
		Allocation(ctx context.Context, month core.Month) (core.Allocation, error)
		AddOutflow(ctx context.Context, o services.Outflow) (core.SadaqatEntry, error)
		RemoveOutflow(ctx context.Context, id string) error
		ReceivingCases(ctx context.Context, query string, limit int) ([]core.Case, error)
	}

	ReportService interface {
		AreaReport(ctx context.Context, areaID string, month core.Month) (core.AreaReport, error)
	}

	SadaqatService interface {
		Entries(ctx context.Context, filter core.MonthFilter) (services.Ledger, error)
		AddEntry(ctx context.Context, in services.NewEntry) (core.SadaqatEntry, error)
	}

	Importer interface {
		PreviewCollections(ctx context.Context, t importer.Table, m importer.CollectionMapping) ([]importer.PreviewRow, error)
		ImportCollections(ctx context.Context, t importer.Table, m importer.CollectionMapping) (importer.Result, error)
		ImportSponsors(ctx context.Context, t importer.Table, m importer.SponsorMapping) (importer.Result, error)
		ImportCases(ctx context.Context, t importer.Table, m importer.CaseMapping) (importer.Result, error)
	}
)

// Deps wires the server to the services. OCR, Printer and Sheets are
// optional; the matching features are hidden when they are nil.
type Deps struct {
	Dashboard   DashboardService
	Collections CollectionService
	Registry    RegistryService
	Settlement  SettlementService
	Reports     ReportService
	Sadaqat     SadaqatService
	Importer    Importer

	Gate    *auth.Gate
	Metrics *metrics.Metrics

	// Ready reports whether the store answers.
	Ready func(ctx context.Context) error

	OCR     ocr.Extractor
	Printer printing.Renderer
	Sheets  ports.SheetReader
}

// Options tunes the HTTP surface.
type Options struct {
	RateLimitPerMinute int
	TrustedProxies     []string
	// Logger is put in every request context; slog.Default when nil.
	Logger *applog.Logger
}

type Server struct {
	http.Server
	deps      Deps
	logger    *applog.Logger
	templates *template.Template
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	validate  *validator.Validate
	now       func() time.Time

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates, registers the routes and wraps
// them in the middleware chain.
func NewServer(addr string, opts Options, deps Deps) (*Server, error) {
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	t, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentHTTP, Handler: slog.Default().Handler()})
	}
	s := &Server{
		deps:      deps,
		logger:    logger,
		templates: t,
		validate:  newValidator(),
		now:       time.Now,
		detector:  security.NewDetector(deps.Metrics.Suspicious),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}
	rl := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rl.RequestsPerMinute = opts.RateLimitPerMinute
		rl.Burst = 0
	}
	rl.OnReject = deps.Metrics.RateLimited
	s.limiter = ratelimit.NewLimiter(rl)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.deps.Metrics.Handler())

	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /ui/dashboard", s.handleDashboardTab)

	mux.HandleFunc("GET /collect", s.handleCollectPage)
	mux.HandleFunc("GET /collect/sponsor", s.handleCollectSponsor)
	mux.HandleFunc("POST /collect/ocr", s.handleCollectOCR)
	mux.HandleFunc("POST /collections", s.handleCreateCollection)
	mux.HandleFunc("GET /collections.xlsx", s.handleCollectionsExport)

	mux.HandleFunc("GET /tahseel", s.handleTahseelPage)
	mux.HandleFunc("POST /tahseel/confirm", s.handleTahseelConfirm)

	mux.HandleFunc("GET /register", s.handleRegisterPage)
	mux.HandleFunc("POST /register/sponsor", s.handleRegisterSponsor)
	mux.HandleFunc("POST /register/case", s.handleRegisterCase)

	mux.HandleFunc("GET /settle", s.handleSettleAreaStep)
	mux.HandleFunc("GET /settle/table", s.handleSettleTableStep)
	mux.HandleFunc("GET /settle/row", s.handleSettleRow)
	mux.HandleFunc("POST /settle/case", s.handleSettleCreateCase)
	mux.HandleFunc("POST /settle/save", s.handleSettleSave)
	mux.HandleFunc("GET /settle/sadaqat", s.handleSettleSadaqatStep)
	mux.HandleFunc("GET /settle/cases", s.handleSettleCaseSearch)
	mux.HandleFunc("POST /settle/outflow", s.handleSettleAddOutflow)
	mux.HandleFunc("DELETE /settle/outflow/{id}", s.handleSettleRemoveOutflow)
	mux.HandleFunc("GET /settle/reports", s.handleSettleReportsStep)

	mux.HandleFunc("GET /report", s.handleReportPage)
	mux.HandleFunc("GET /report.xlsx", s.handleReportXLSX)
	mux.HandleFunc("GET /report.pdf", s.handleReportPDF)

	mux.HandleFunc("GET /sadaqat", s.handleSadaqatPage)
	mux.HandleFunc("POST /sadaqat", s.handleAddSadaqat)

	mux.HandleFunc("GET /import", s.handleImportPage)
	mux.HandleFunc("POST /import/preview", s.handleImportPreview)
	mux.HandleFunc("POST /import/run", s.handleImportRun)

	return mux
}

// middleware wraps the routes, outermost first: panic recovery, request
// logger, tracing, security headers, suspicious request detection, write
// rate limiting and the password gate.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.deps.Gate.Middleware(h)
	h = limitWrites(s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited), h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.NewMiddleware(s.detector.ExtractClientIP, s.deps.Metrics.ObserveRequest).Middleware(h)
	h = applog.Middleware(s.logger)(h)
	return trace.Recover(h)
}

// limitWrites applies the limiter to state-changing requests only.
func limitWrites(limiter func(http.Handler) http.Handler, next http.Handler) http.Handler {
	limited := limiter(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "Rate limit exceeded",
		"client_ip", s.detector.ExtractClientIP(r), "method", r.Method, "url", r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "طلبات كثيرة، حاول بعد قليل").Write(w)
}

// Shutdown stops the limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			slog.WarnContext(ctx, "Readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
