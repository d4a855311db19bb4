// Package server exposes the analysis pipeline over HTTP: a status endpoint
// and a workbook upload endpoint that streams back the rendered report.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"pciassist/internal/analysis"
	"pciassist/internal/ingest"
	"pciassist/internal/logging"
	"pciassist/internal/report"
)

// maxUploadBytes caps workbook uploads at 32 MiB.
const maxUploadBytes = 32 << 20

// RowAnalyzer is the pipeline contract the server depends on.
type RowAnalyzer interface {
	AnalyzeRows(ctx context.Context, rows []string) []analysis.Finding
}

// Server routes HTTP requests to the analysis pipeline.
type Server struct {
	analyzer RowAnalyzer
	mux      *http.ServeMux
}

// New builds a Server around an analyzer.
func New(analyzer RowAnalyzer) *Server {
	s := &Server{analyzer: analyzer, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /", s.handleStatus)
	s.mux.HandleFunc("POST /analyze", s.handleAnalyze)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe runs the server until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	logging.Get(logging.CategoryServer).Infow("listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "pciassist",
		"status":  "ok",
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	log := logging.Get(logging.CategoryServer)
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".xlsx" && ext != ".xls" {
		writeError(w, http.StatusBadRequest, "unsupported file type, expected .xlsx or .xls")
		return
	}

	observations, err := ingest.ReadObservations(file)
	if err != nil {
		log.Errorw("workbook ingest failed", "file", header.Filename, "err", err)
		writeError(w, http.StatusBadRequest, "could not read workbook")
		return
	}

	findings := s.analyzer.AnalyzeRows(r.Context(), ingest.Texts(observations))
	rep := report.Build(findings, header.Filename)

	switch r.URL.Query().Get("format") {
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := report.RenderHTML(w, rep); err != nil {
			log.Errorw("html render failed", "report_id", rep.ID, "err", err)
		}
	case "", "excel":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="action_report_`+rep.ID.String()+`.xlsx"`)
		if err := report.RenderExcel(w, rep); err != nil {
			log.Errorw("excel render failed", "report_id", rep.ID, "err", err)
		}
	default:
		writeError(w, http.StatusBadRequest, "unknown format, expected html or excel")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
