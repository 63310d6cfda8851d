// ABOUTME: HTTP API for uploading scan reports and triggering report generation.
// ABOUTME: Serves finished report artifacts and health and metrics endpoints.

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/pccs/cvreport/internal/engine"
	"github.com/pccs/cvreport/internal/storage"
	"github.com/sirupsen/logrus"
)

// maxUploadBytes caps scan report uploads at 50 MB.
const maxUploadBytes = 50 << 20

// Runner is the part of the engine the HTTP layer needs.
type Runner interface {
	Run(ctx context.Context, date string) (engine.RunResult, error)
}

// Server exposes the report service over HTTP.
type Server struct {
	runner  Runner
	store   *storage.Store
	metrics http.Handler
	logger  *logrus.Logger

	// requireScanReport makes report generation answer 404 when the date
	// has no uploaded scan report. Set for the file scan source, where a
	// run without an upload can never produce rows.
	requireScanReport bool
}

// New creates the HTTP server. The metrics handler is optional.
func New(runner Runner, store *storage.Store, metricsHandler http.Handler, requireScanReport bool, logger *logrus.Logger) *Server {
	return &Server{
		runner:            runner,
		store:             store,
		metrics:           metricsHandler,
		logger:            logger,
		requireScanReport: requireScanReport,
	}
}

// Routes builds the router with all endpoints and middleware.
func (s *Server) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "HEAD"},
		AllowedHeaders: []string{"Content-Type"},
	}))
	mux.Use(s.securityMiddleware)
	mux.Use(s.loggingMiddleware)

	mux.Get("/health", s.handleHealth)
	mux.Post("/upload", s.handleUpload)
	mux.Post("/cvr", s.handleGenerate)
	mux.Get("/reports", s.handleListReports)
	mux.Get("/reports/{date}", s.handleGetReport)
	if s.metrics != nil {
		mux.Method("GET", "/metrics", s.metrics)
	}

	return mux
}

// Serve runs the HTTP server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, port int) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Routes(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.WithField("port", port).Info("Starting HTTP server")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) securityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("Handled request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// handleUpload accepts a multipart scan report CSV. The date defaults to
// today and can be overridden with the date query parameter.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format(storage.DateFormat)
	}
	if err := storage.ValidateDate(date); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field in multipart form", http.StatusBadRequest)
		return
	}
	defer file.Close()

	path, err := s.store.SaveScanReport(date, file)
	if err != nil {
		s.logger.WithError(err).Error("Failed to save scan report")
		http.Error(w, "failed to save scan report", http.StatusInternalServerError)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"date": date,
		"path": path,
	}).Info("Scan report uploaded")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"date": date})
}

// handleGenerate runs the report pipeline for the requested date.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := storage.ValidateDate(body.Date); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if s.requireScanReport && !s.store.ScanReportExists(body.Date) {
		http.Error(w, "no scan report uploaded for date", http.StatusNotFound)
		return
	}

	result, err := s.runner.Run(r.Context(), body.Date)
	if err != nil {
		s.logger.WithError(err).WithField("date", body.Date).Error("Report run failed")
		http.Error(w, "report generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"run_id":  result.RunID,
		"date":    result.Date,
		"rows":    result.Rows,
		"skipped": result.Skipped,
	})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	dates, err := s.store.ListReportDates()
	if err != nil {
		s.logger.WithError(err).Error("Failed to list reports")
		http.Error(w, "failed to list reports", http.StatusInternalServerError)
		return
	}
	if dates == nil {
		dates = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{"dates": dates})
}

// handleGetReport serves a finished report, CSV by default and Markdown
// with format=md.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if err := storage.ValidateDate(date); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	path := s.store.ReportCSVPath(date)
	contentType := "text/csv"
	if r.URL.Query().Get("format") == "md" {
		path = s.store.ReportMarkdownPath(date)
		contentType = "text/markdown"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "no report for date", http.StatusNotFound)
			return
		}
		s.logger.WithError(err).Error("Failed to read report")
		http.Error(w, "failed to read report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}
