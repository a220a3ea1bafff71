// Package api exposes the suggestion workflow and scan trigger over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/applizz/jobmail/internal/core"
)

// Server is the HTTP front of the scan and suggestion services.
type Server struct {
	scans       *core.ScanService
	suggestions *core.SuggestionService
	logger      *zap.Logger
	httpServer  *http.Server
}

// NewServer creates a new API server.
func NewServer(
	scans *core.ScanService,
	suggestions *core.SuggestionService,
	logger *zap.Logger,
	listenAddress string,
	readTimeout, writeTimeout time.Duration,
) *Server {
	s := &Server{
		scans:       scans,
		suggestions: suggestions,
		logger:      logger,
	}
	s.httpServer = &http.Server{
		Addr:         listenAddress,
		Handler:      s.routes(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Get("/health", s.handleHealth)

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Post("/scan", s.handleScan)
		r.Delete("/data", s.handleClearAll)
		r.Route("/suggestions", func(r chi.Router) {
			r.Get("/", s.handleListSuggestions)
			r.Post("/accept-all", s.handleAcceptAll)
			r.Post("/{suggestionID}/accept", s.handleAccept)
			r.Post("/{suggestionID}/reject", s.handleReject)
		})
	})

	return r
}

// Start begins serving. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("address", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	summary, err := s.scans.Scan(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scanSummaryJSON{
		ProcessedCount:     summary.ProcessedCount,
		JobRelatedCount:    summary.JobRelatedCount,
		SuggestionsCreated: summary.SuggestionsCreated,
		Partial:            summary.Partial,
	})
}

func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	pending, err := s.suggestions.ListPending(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]suggestionJSON, 0, len(pending))
	for i := range pending {
		out = append(out, toSuggestionJSON(&pending[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"suggestions": out})
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	suggestionID := chi.URLParam(r, "suggestionID")
	if err := s.suggestions.Accept(r.Context(), userID, suggestionID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	suggestionID := chi.URLParam(r, "suggestionID")
	if err := s.suggestions.Reject(r.Context(), userID, suggestionID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (s *Server) handleAcceptAll(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	applied, err := s.suggestions.AcceptAll(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "accepted", "applied": applied})
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := s.suggestions.ClearAll(r.Context(), userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrNoProvider):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrScanDisabled):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrScanCooldown):
		status = http.StatusTooManyRequests
	case core.IsAuthError(err):
		status = http.StatusUnauthorized
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
