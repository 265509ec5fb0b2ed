package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/itsmrshow/foreman/internal/observe"
	"github.com/itsmrshow/foreman/internal/scheduler"
	"github.com/itsmrshow/foreman/internal/state"
	"github.com/itsmrshow/foreman/internal/world"
)

type healthResponse struct {
	Status   string `json:"status"`
	ReadOnly bool   `json:"read_only"`
	LastTick *int64 `json:"last_tick,omitempty"`
}

type plansResponse struct {
	Plans []planView `json:"plans"`
}

// planView adds derived fields to a stored plan.
type planView struct {
	state.Plan
	Remaining int `json:"remaining"`
}

type cacheResponse struct {
	Status string        `json:"status,omitempty"`
	Stats  observe.Stats `json:"stats"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", ReadOnly: s.cfg.ReadOnly}
	if s.store != nil {
		if v, err := s.store.GetSetting(r.Context(), scheduler.LastTickSetting); err == nil {
			if tick, err := strconv.ParseInt(v, 10, 64); err == nil {
				resp.LastTick = &tick
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	region := world.RegionID(strings.TrimSpace(r.URL.Query().Get("region")))

	plans, err := s.store.ListPlans(r.Context(), region)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list plans")
		writeError(w, http.StatusInternalServerError, "failed to list plans", err.Error())
		return
	}

	resp := plansResponse{Plans: make([]planView, 0, len(plans))}
	for _, p := range plans {
		resp.Plans = append(resp.Plans, planView{Plan: p, Remaining: p.Remaining()})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePlan serves /api/plans/{region}/{category}.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/plans/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		writeError(w, http.StatusBadRequest, "invalid path", "Expected /api/plans/{region}/{category}")
		return
	}

	plan, err := s.store.GetPlan(r.Context(), world.RegionID(parts[0]), world.Category(parts[1]))
	if errors.Is(err, state.ErrPlanNotFound) {
		writeError(w, http.StatusNotFound, "plan not found", "")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load plan")
		writeError(w, http.StatusInternalServerError, "failed to load plan", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, planView{Plan: *plan, Remaining: plan.Remaining()})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cacheResponse{Stats: s.cache.CacheStats()})
}

// handleCacheClear drops every cached observation. It is a recovery tool
// and not part of normal planning.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.cache.ClearCache()
	s.logger.Warn().Str("remote", r.RemoteAddr).Msg("Observation cache cleared by request")
	writeJSON(w, http.StatusOK, cacheResponse{Status: "cleared", Stats: s.cache.CacheStats()})
}
