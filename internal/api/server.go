// Package api exposes the analysis pipeline, hedge calculator, and market
// scorer over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smbrisk/hedgescout/internal/logger"
	"github.com/smbrisk/hedgescout/pkg/hedge"
	"github.com/smbrisk/hedgescout/pkg/metrics"
	"github.com/smbrisk/hedgescout/pkg/scorer"
	"github.com/smbrisk/hedgescout/pkg/scout"
)

const maxBodyBytes = 64 << 10

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	pipeline *scout.Pipeline
	scorer   *scorer.Scorer
	metrics  *metrics.PipelineMetrics
}

// NewServer builds the HTTP surface. scorer may be nil when no market cache
// is configured.
func NewServer(pipeline *scout.Pipeline, sc *scorer.Scorer, pm *metrics.PipelineMetrics) *Server {
	return &Server{pipeline: pipeline, scorer: sc, metrics: pm}
}

// Router assembles the chi router with all routes mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(90 * time.Second))

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/quote", s.handleQuote)
		r.Post("/score", s.handleScore)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type analyzeRequest struct {
	Description string `json:"description"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	report, err := s.pipeline.Analyze(r.Context(), req.Description)
	if err != nil {
		if errors.Is(err, scout.ErrMissingDescription) {
			writeError(w, http.StatusBadRequest, "missing_business_description", "description is required")
			return
		}
		logger.Error("analyze failed: %v", err)
		writeError(w, http.StatusBadGateway, "analysis_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// quoteRequest accepts either an absolute loss or a percent-of-baseline loss.
// When LossIfEventPercent is set the percent path is taken.
type quoteRequest struct {
	hedge.QuoteInput
	LossIfEventPercent *float64 `json:"lossIfEventPercent,omitempty"`
	BaselineLoss       float64  `json:"baselineLoss,omitempty"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var out *hedge.QuoteOutput
	var err error
	if req.LossIfEventPercent != nil {
		out, err = hedge.ComputeQuotePercent(hedge.PercentInput{
			MarketID:           req.MarketID,
			PriceYes:           req.PriceYes,
			LossIfEventPercent: *req.LossIfEventPercent,
			BaselineLoss:       req.BaselineLoss,
			Coverage:           req.Coverage,
			MaxHedgeCost:       req.MaxHedgeCost,
		})
	} else {
		out, err = hedge.ComputeQuote(req.QuoteInput)
	}

	if err != nil {
		var qe *hedge.QuoteError
		if errors.As(err, &qe) {
			s.recordQuote("invalid")
			writeError(w, http.StatusBadRequest, qe.Code, qe.Message)
			return
		}
		s.recordQuote("error")
		writeError(w, http.StatusInternalServerError, "quote_failed", err.Error())
		return
	}

	s.recordQuote("ok")
	writeJSON(w, http.StatusOK, out)
}

type scoreRequest struct {
	Description string `json:"description"`
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	if s.scorer == nil {
		writeError(w, http.StatusServiceUnavailable, "scorer_unavailable", "market cache is not configured")
		return
	}

	var req scoreRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.scorer.Score(r.Context(), req.Description)
	if err != nil {
		if code := scorer.CodeOf(err); code != "" {
			status := http.StatusBadGateway
			switch code {
			case scorer.CodeMissingDescription:
				status = http.StatusBadRequest
			case scorer.CodeMissingAPIKey:
				status = http.StatusServiceUnavailable
			}
			writeError(w, status, code, err.Error())
			return
		}
		logger.Error("score failed: %v", err)
		writeError(w, http.StatusInternalServerError, "score_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) recordQuote(status string) {
	if s.metrics != nil {
		s.metrics.RecordQuote(status)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return false
	}
	return true
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Message: message})
}
