// Package api provides the HTTP REST API for the covered-call
// fundamentals engine: analysis runs, health/info endpoints, and
// WebSocket streaming of pipeline progress.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seenimoa/coveredcall/internal/config"
	"github.com/seenimoa/coveredcall/internal/infra"
	"github.com/seenimoa/coveredcall/internal/pipeline"
	"github.com/seenimoa/coveredcall/internal/provider"
	"github.com/seenimoa/coveredcall/pkg/models"
)

// analyzeCacheTTL bounds how long an identical analyze request is served
// from cache. Fundamentals move slowly; LLM calls are expensive.
const analyzeCacheTTL = 60 * time.Second

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	registry *provider.Registry
	wsHub    *WSHub
	cache    *infra.ReportCache
	limiter  *infra.RateLimiter
	version  string
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, version string) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("API setup failed: %w", err)
	}
	srv := &Server{
		cfg:      cfg,
		registry: provider.DefaultRegistry(),
		wsHub:    NewWSHub(),
		cache:    infra.NewReportCache(analyzeCacheTTL),
		limiter:  infra.NewRateLimiter(30, time.Second),
		version:  version,
	}
	srv.router = srv.buildRouter()
	return srv, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/info", s.handleInfo)
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// AnalyzeRequest is the body for POST /api/v1/analyze. Mode, ForceDebate
// and Provider override the server configuration for this run only.
type AnalyzeRequest struct {
	Ticker      string `json:"ticker"`
	Mode        string `json:"mode,omitempty"`
	ForceDebate *bool  `json:"force_debate,omitempty"`
	Provider    string `json:"provider,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":  "ok",
			"version": s.version,
			"time":    time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"version":     s.version,
			"mode":        s.cfg.Pipeline.Mode,
			"modes":       []string{"deterministic", "llm", "agentic"},
			"provider":    s.cfg.Provider.Name,
			"providers":   s.registry.Names(),
			"llm_backend": s.cfg.LLM.Provider,
			"ws_clients":  s.wsHub.ClientCount(),
		},
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	cfg := s.requestConfig(&req)
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := fmt.Sprintf("analyze|%s|%s|%v|%s", ticker, cfg.Pipeline.Mode, cfg.Pipeline.ForceDebate, cfg.Provider.Name)
	if cached, ok := s.cache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: cached})
		return
	}

	if err := s.limiter.Wait(r.Context()); err != nil {
		writeError(w, http.StatusTooManyRequests, "rate limit wait canceled")
		return
	}

	p, err := pipeline.New(cfg, s.registry, pipeline.WithTraceFunc(func(node string) {
		s.wsHub.Broadcast(WSMessage{
			Type: "pipeline_node",
			Data: map[string]interface{}{"ticker": ticker, "node": node},
		})
	}))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	st, err := p.Run(ctx, ticker)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.cache.Put(cacheKey, st.Report)
	s.wsHub.Broadcast(WSMessage{
		Type: "analysis_complete",
		Data: reportSummary(st.Report),
	})

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: st.Report})
}

// requestConfig applies per-request overrides to a copy of the server
// configuration.
func (s *Server) requestConfig(req *AnalyzeRequest) *config.Config {
	cfg := *s.cfg
	if req.Mode != "" {
		cfg.Pipeline.Mode = req.Mode
	}
	if req.ForceDebate != nil {
		cfg.Pipeline.ForceDebate = *req.ForceDebate
	}
	if req.Provider != "" {
		cfg.Provider.Name = req.Provider
	}
	return &cfg
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// reportSummary trims a report to the fields the websocket feed needs.
func reportSummary(rep *models.Report) map[string]interface{} {
	return map[string]interface{}{
		"ticker":     rep.Ticker,
		"stance":     rep.Stance,
		"bias":       rep.Bias,
		"confidence": rep.Confidence,
		"action":     rep.Action,
	}
}
