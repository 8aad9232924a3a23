package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sweeney/egg-incubator/internal/config"
	"github.com/sweeney/egg-incubator/internal/log"
	"github.com/sweeney/egg-incubator/internal/mqtt"
	"github.com/sweeney/egg-incubator/internal/settings"
	"github.com/sweeney/egg-incubator/internal/stats"
	"github.com/sweeney/egg-incubator/internal/status"
)

// UpdateRequest is the body of POST /update_settings.
type UpdateRequest struct {
	Variable string       `json:"variable"`
	Value    SettingValue `json:"value"`
}

// SettingValue accepts either a JSON string or a JSON number.
type SettingValue string

func (v *SettingValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*v = SettingValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("value must be a string or a number")
	}
	*v = SettingValue(n.String())
	return nil
}

// UpdateResponse is returned by a successful settings update.
type UpdateResponse struct {
	Config  status.ConfigJSON `json:"config"`
	Warning string            `json:"warning,omitempty"`
}

// ErrorResponse is returned with any non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ObservationsResponse is returned by GET /observations.
type ObservationsResponse struct {
	Observations []status.ObservationJSON `json:"observations"`
}

// StatisticsResponse is returned by GET /statistics.
type StatisticsResponse struct {
	Statistics []stats.DayStats `json:"statistics"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debugw("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	resp := ErrorResponse{Error: err.Error()}
	var ve *config.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	recent, err := s.settings.Recent(r.Context(), defaultRecent)
	if err != nil {
		log.Warnw("dashboard: reading observations failed", "error", err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap, recent); err != nil {
		log.Warnw("dashboard: render failed", "error", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	recent, err := s.settings.Recent(r.Context(), defaultRecent)
	if err != nil {
		log.Warnw("dashboard: reading observations failed", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap, recent))
}

func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecent
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be a positive integer, got %q", v))
			return
		}
		limit = n
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	obs, err := s.settings.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, ObservationsResponse{Observations: status.FormatObservations(obs)})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	obs, err := s.settings.All(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, StatisticsResponse{Statistics: stats.ByDay(obs)})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Variable == "" {
		writeError(w, http.StatusBadRequest, &config.ValidationError{Field: "variable", Reason: "is required"})
		return
	}

	snap, err := s.settings.Update(r.Context(), req.Variable, string(req.Value))
	var ve *config.ValidationError
	switch {
	case errors.As(err, &ve):
		log.Warnw("settings update rejected", "variable", req.Variable, "value", req.Value, "reason", ve.Reason)
		s.configFault(err)
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil && !errors.Is(err, settings.ErrNotSaved):
		log.Errorw("settings update failed", "variable", req.Variable, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	cfg := snap.Config.Incubation
	s.tracker.SetConfig(cfg)
	resp := UpdateResponse{Config: status.FormatConfig(cfg, s.tracker.Snapshot().Daemon)}
	if err != nil {
		log.Warnw("settings applied but not saved", "variable", req.Variable, "error", err)
		s.configFault(err)
		resp.Warning = err.Error()
	} else {
		log.Infow("settings updated", "variable", req.Variable, "value", req.Value)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) configFault(err error) {
	s.tracker.CountConfigError()
	if s.publisher == nil {
		return
	}
	ev := mqtt.SystemEvent{Timestamp: time.Now(), Event: mqtt.EventFault, Reason: "config", Detail: err.Error()}
	if err := s.publisher.PublishSystem(ev); err != nil {
		log.Warnw("publish fault failed", "error", err)
	}
}
