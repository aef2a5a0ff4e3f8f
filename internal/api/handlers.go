package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"skywatch/internal/track"
	"skywatch/pkg/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

// parseWindow reads start_ts/end_ts unix-second query parameters and
// validates them against the configured span limit.
func (s *Server) parseWindow(r *http.Request) (track.Window, error) {
	startTS, err := strconv.ParseInt(r.URL.Query().Get("start_ts"), 10, 64)
	if err != nil {
		return track.Window{}, &track.InvalidWindowError{Reason: "start_ts must be a unix timestamp"}
	}
	endTS, err := strconv.ParseInt(r.URL.Query().Get("end_ts"), 10, 64)
	if err != nil {
		return track.Window{}, &track.InvalidWindowError{Reason: "end_ts must be a unix timestamp"}
	}
	return s.engine.Window(startTS, endTS)
}

func (s *Server) handleIntelligence(w http.ResponseWriter, r *http.Request) {
	window, err := s.parseWindow(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	data, err := s.engine.IntelligenceJSON(r.Context(), window)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondRaw(w, data)
}

func (s *Server) handleTraffic(w http.ResponseWriter, r *http.Request) {
	window, err := s.parseWindow(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	data, err := s.engine.TrafficJSON(r.Context(), window)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondRaw(w, data)
}

func (s *Server) handleSafety(w http.ResponseWriter, r *http.Request) {
	window, err := s.parseWindow(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	data, err := s.engine.SafetyJSON(r.Context(), window)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondRaw(w, data)
}

func (s *Server) handleAnomalyDNA(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.AnomalyDNA(r.Context(), chi.URLParam(r, "flight_id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleTrajectory(w http.ResponseWriter, r *http.Request) {
	pred, err := s.engine.Trajectory(r.Context(), chi.URLParam(r, "flight_id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, pred)
}

func (s *Server) handleHostileIntent(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.HostileIntent(r.Context(), chi.URLParam(r, "flight_id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleConfig exposes the non-sensitive analysis thresholds so
// consumers can display the parameters behind the numbers.
func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"signature":     s.cfg.Signature,
		"zones":         s.cfg.Zones,
		"triangulation": s.cfg.Triangle,
		"proximity":     s.cfg.Proximity,
		"anomaly_dna":   s.cfg.DNA,
		"prediction":    s.cfg.Predict,
		"window":        s.cfg.Window,
	})
}

// respondError maps the engine's error kinds onto HTTP statuses.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	var (
		notFound     *track.NotFoundError
		insufficient *track.InsufficientDataError
		invalid      *track.InvalidWindowError
	)
	switch {
	case errors.As(err, &notFound):
		s.respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &insufficient):
		s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.As(err, &invalid):
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", logger.Error(err))
		s.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logger.Error(err))
	}
}

// respondRaw writes pre-marshaled batch bytes straight through, so the
// cached and computed paths emit identical payloads.
func (s *Server) respondRaw(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("failed to write response", logger.Error(err))
	}
}
