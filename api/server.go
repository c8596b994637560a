// Package api provides the HTTP surface for stockagent: a lookup form, the
// rendered report page and a small JSON API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stockagent/internal/config"
	"github.com/seenimoa/stockagent/internal/datasource"
	"github.com/seenimoa/stockagent/internal/llm"
	"github.com/seenimoa/stockagent/internal/report"
	"github.com/seenimoa/stockagent/pkg/models"
)

// ReportFetcher builds the Report for one ticker. *datasource.Aggregator
// satisfies it.
type ReportFetcher interface {
	Fetch(ctx context.Context, ticker string) (*models.Report, error)
}

// Narrator writes the analyst narrative for a Report. *report.Narrator
// satisfies it.
type Narrator interface {
	Generate(ctx context.Context, r *models.Report) (string, error)
}

// Server is the HTTP server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	reports  ReportFetcher
	narrator Narrator        // nil disables narratives
	provider llm.LLMProvider // optional, for health checks
	log      logrus.FieldLogger
	version  string
}

// Option configures a Server.
type Option func(*Server)

// WithNarrator enables narrative generation.
func WithNarrator(n Narrator) Option {
	return func(s *Server) { s.narrator = n }
}

// WithProvider exposes the narrative backend on the health endpoint.
func WithProvider(p llm.LLMProvider) Option {
	return func(s *Server) { s.provider = p }
}

// WithLogger sets the request logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) { s.log = log }
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a configured server with all routes and middleware.
func NewServer(cfg *config.Config, reports ReportFetcher, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		reports: reports,
		log:     logrus.StandardLogger(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
		// No WriteTimeout: the report page waits on the narrative backend.
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if s.cfg != nil && len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// HTML pages
	r.Get("/", s.handleIndex)
	r.Get("/report", s.handleReportPage)

	r.Route("/api", func(r chi.Router) {
		// Narrative calls are not bounded by the request timeout.
		r.Post("/report/{ticker}/narrative", s.handleNarrative)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Get("/health", s.handleHealth)
			r.Get("/report/{ticker}", s.handleReport)
			r.Get("/config", s.handleGetConfig)
			r.Get("/config/keys", s.handleGetConfigKeys)
		})
	})

	return r
}

// requestLogger logs one line per request through logrus.
func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.WithFields(logrus.Fields{
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     ww.Status(),
					"bytes":      ww.BytesWritten(),
					"elapsed":    time.Since(start).Round(time.Millisecond),
					"request_id": middleware.GetReqID(r.Context()),
				}).Info("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// NarrativeResponse is the data of POST /api/report/{ticker}/narrative.
type NarrativeResponse struct {
	Ticker    string `json:"ticker"`
	Narrative string `json:"narrative"`
}

// HealthResponse is the data of GET /api/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Narrative bool   `json:"narrative"`
	Provider  string `json:"provider,omitempty"`
	LLM       string `json:"llm,omitempty"` // "ok" or the ping error, with ?check=llm
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Version:   s.version,
		Narrative: s.narrator != nil,
	}
	if s.provider != nil {
		resp.Provider = s.provider.Name()
		if r.URL.Query().Get("check") == "llm" {
			resp.LLM = "ok"
			if err := s.provider.Ping(r.Context()); err != nil {
				resp.LLM = err.Error()
			}
		}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.Fetch(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		writeError(w, fetchStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: rep})
}

func (s *Server) handleNarrative(w http.ResponseWriter, r *http.Request) {
	if s.narrator == nil {
		writeError(w, http.StatusServiceUnavailable, "narrative generation is disabled")
		return
	}

	rep, err := s.reports.Fetch(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		writeError(w, fetchStatus(err), err.Error())
		return
	}

	text, err := s.narrator.Generate(r.Context(), rep)
	if err != nil {
		s.log.WithError(err).WithField("ticker", rep.Ticker).Warn("narrative failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    NarrativeResponse{Ticker: rep.Ticker, Narrative: text},
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.writeIndex(w, http.StatusOK, report.IndexPage{})
}

// handleReportPage renders the full report for ?ticker=. A fetch failure
// re-renders the form with the error; a narrative failure is shown inside
// the report.
func (s *Server) handleReportPage(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	rep, err := s.reports.Fetch(r.Context(), ticker)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, datasource.ErrEmptyTicker) {
			msg = "Please enter a ticker symbol."
		}
		s.writeIndex(w, fetchStatus(err), report.IndexPage{Ticker: ticker, Error: msg})
		return
	}

	var n report.Narrative
	if s.narrator != nil && r.URL.Query().Get("narrative") != "0" {
		n.Text, n.Err = s.narrator.Generate(r.Context(), rep)
		if n.Err == nil && n.Text == "" {
			n.Err = llm.ErrEmptyResponse
		}
		if n.Err != nil {
			s.log.WithError(n.Err).WithField("ticker", rep.Ticker).Warn("narrative failed")
		}
	}

	page, err := report.RenderHTML(rep, n)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, page)
}

func (s *Server) writeIndex(w http.ResponseWriter, status int, p report.IndexPage) {
	page, err := report.RenderIndex(p)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeHTML(w, status, page)
}

// fetchStatus maps an aggregator error to an HTTP status.
func fetchStatus(err error) int {
	var pfe *datasource.ProviderFetchError
	switch {
	case errors.Is(err, datasource.ErrEmptyTicker):
		return http.StatusBadRequest
	case errors.As(err, &pfe):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

func writeHTML(w http.ResponseWriter, status int, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(page)) //nolint:errcheck
}
