package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alfredjeanlab/patrol/internal/model"
	"github.com/alfredjeanlab/patrol/internal/scoring"
	"github.com/alfredjeanlab/patrol/internal/store"
)

// defaultListLimit caps /v1/scores when no limit is given.
const defaultListLimit = 100

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests other than GET /healthz and
// GET /metrics must include a valid Authorization: Bearer <token> header.
func (s *Server) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/scores", s.handleListScores)
	mux.HandleFunc("GET /v1/weights", s.handleWeights)
	return AuthMiddleware(authToken, mux)
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			s.logger.Warn("health check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListScores handles GET /v1/scores?task_type=&hotkey=&uid=&since=&limit=.
func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ScoreFilter{
		TaskType: model.TaskType(q.Get("task_type")),
		Hotkey:   q.Get("hotkey"),
		Limit:    defaultListLimit,
	}
	if filter.TaskType != "" && !filter.TaskType.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid task_type")
		return
	}
	if v := q.Get("uid"); v != "" {
		uid, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid uid")
			return
		}
		filter.UID = &uid
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since: want RFC 3339")
			return
		}
		filter.Since = since
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	scores, err := s.scores.ListScores(r.Context(), filter)
	if err != nil {
		s.logger.Error("list scores", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list scores")
		return
	}
	if scores == nil {
		scores = []*model.MinerScore{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scores": scores})
}

// Weight is one miner's blended weight.
type Weight struct {
	UID    int     `json:"uid"`
	Hotkey string  `json:"hotkey"`
	Weight float64 `json:"weight"`
}

// handleWeights handles GET /v1/weights.
func (s *Server) handleWeights(w http.ResponseWriter, r *http.Request) {
	weights, err := scoring.LatestWeights(r.Context(), s.scores, s.taskWeights, nil)
	if err != nil {
		s.logger.Error("compute weights", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to compute weights")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"weights": SortedWeights(weights)})
}

// SortedWeights flattens weights ordered by uid then hotkey.
func SortedWeights(weights map[model.MinerKey]float64) []Weight {
	out := make([]Weight, 0, len(weights))
	for k, v := range weights {
		out = append(out, Weight{UID: k.UID, Hotkey: k.Hotkey, Weight: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UID != out[j].UID {
			return out[i].UID < out[j].UID
		}
		return out[i].Hotkey < out[j].Hotkey
	})
	return out
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
