package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/lanework/internal/config"
	"github.com/gyaneshwarpardhi/lanework/internal/engine"
	"github.com/gyaneshwarpardhi/lanework/internal/metrics"
	"github.com/gyaneshwarpardhi/lanework/internal/session"
)

// maxTickDelta bounds one manual advance so a client cannot skip a stage in
// a single call by accident.
const maxTickDelta = 60.0

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	loader *config.Loader
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes. loader may be nil,
// in which case config reload answers 501.
func New(eng *engine.Engine, loader *config.Loader, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{eng: eng, loader: loader, logger: logger, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /v1/stages", h.listStages)
	h.mux.HandleFunc("GET /v1/progress", h.progress)
	h.mux.HandleFunc("POST /v1/sessions", h.startSession)
	h.mux.HandleFunc("GET /v1/sessions/{id}", h.getSession)
	h.mux.HandleFunc("DELETE /v1/sessions/{id}", h.deleteSession)
	h.mux.HandleFunc("POST /v1/sessions/{id}/tick", h.tick)
	h.mux.HandleFunc("POST /v1/sessions/{id}/bonus", h.applyBonus)
	h.mux.HandleFunc("POST /v1/sessions/{id}/items", h.useItem)
	h.mux.HandleFunc("POST /v1/sessions/{id}/replay", h.replay)
	h.mux.HandleFunc("POST /v1/sessions/{id}/next", h.next)
	h.mux.HandleFunc("GET /v1/sessions/{id}/lanes/{lane}/queue", h.laneQueue)
	h.mux.HandleFunc("GET /v1/sessions/{id}/events", h.events)
	h.mux.HandleFunc("POST /v1/simulate", h.simulate)
	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return chain(h.mux, withRequestID, withRecover(logger), withAccessLog(logger))
}

type stageSummary struct {
	Index          int                `json:"index"`
	Name           string             `json:"name"`
	TimeLimit      float64            `json:"time_limit"`
	Tasks          int                `json:"tasks"`
	Lanes          int                `json:"lanes"`
	InitialWorkers int                `json:"initial_workers"`
	Items          []config.StageItem `json:"items,omitempty"`
	Unlocked       bool               `json:"unlocked"`
}

// GET /v1/stages: catalogue summary.
func (h *Handler) listStages(w http.ResponseWriter, r *http.Request) {
	cfg := h.eng.Config()
	reached := h.eng.MaxReachedStage()
	out := make([]stageSummary, 0, len(cfg.Stages))
	for i, st := range cfg.Stages {
		out = append(out, stageSummary{
			Index:          i,
			Name:           st.Name,
			TimeLimit:      st.TimeLimit,
			Tasks:          len(st.Vertices),
			Lanes:          st.LaneCount(),
			InitialWorkers: st.InitialWorkerCount,
			Items:          st.Items,
			Unlocked:       i <= reached,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version": cfg.Version,
		"stages":  out,
	})
}

// GET /v1/progress: highest unlocked stage.
func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"max_reached_stage": h.eng.MaxReachedStage(),
		"stages":            len(h.eng.Config().Stages),
	})
}

// POST /v1/sessions: start a stage attempt.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stage int `json:"stage"`
	}
	if !decode(w, r, &req) {
		return
	}
	s, err := h.eng.StartStage(req.Stage)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

// GET /v1/sessions/{id}
func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// DELETE /v1/sessions/{id}
func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.eng.Delete(r.PathValue("id")); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /v1/sessions/{id}/tick: manual advance for deterministic clients.
func (h *Handler) tick(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Delta float64 `json:"delta"`
	}
	if !decode(w, r, &req) {
		return
	}
	if !(req.Delta > 0) || req.Delta > maxTickDelta {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("delta must be in (0, %g]", maxTickDelta))
		return
	}
	s.Advance(req.Delta)
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// POST /v1/sessions/{id}/bonus: queue raw bonus seconds on a lane.
func (h *Handler) applyBonus(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Lane   int     `json:"lane"`
		Amount float64 `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	applied, err := s.ApplyBonus(req.Lane, req.Amount)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"applied": applied})
}

// POST /v1/sessions/{id}/items: spend an item on a lane.
func (h *Handler) useItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Lane   int    `json:"lane"`
		ItemID string `json:"item_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "item_id is required")
		return
	}
	applied, remaining, err := s.UseItem(req.Lane, req.ItemID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"applied":   applied,
		"remaining": remaining,
	})
}

// POST /v1/sessions/{id}/replay
func (h *Handler) replay(w http.ResponseWriter, r *http.Request) {
	s, err := h.eng.Replay(r.PathValue("id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

// POST /v1/sessions/{id}/next
func (h *Handler) next(w http.ResponseWriter, r *http.Request) {
	s, err := h.eng.Next(r.PathValue("id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

// GET /v1/sessions/{id}/lanes/{lane}/queue
func (h *Handler) laneQueue(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	lane, err := strconv.Atoi(r.PathValue("lane"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid lane %q", r.PathValue("lane")))
		return
	}
	queue := s.PendingTasksForLane(lane)
	if queue == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown lane %d", lane))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lane":  lane,
		"label": session.LaneLabel(lane),
		"tasks": queue,
	})
}

// GET /v1/sessions/{id}/events
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Events())
}

// POST /v1/simulate: headless run on the simulation pool.
func (h *Handler) simulate(w http.ResponseWriter, r *http.Request) {
	var req engine.SimRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Step < 0 {
		writeError(w, http.StatusBadRequest, "step must be positive")
		return
	}
	res, err := h.eng.SimulateSync(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /v1/config/reload: hot-reload the catalogue from disk.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	if h.loader == nil {
		writeError(w, http.StatusNotImplemented, "no config file to reload")
		return
	}
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":     true,
		"version":      cfg.Version,
		"stages_count": len(cfg.Stages),
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if the simulation queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.SimulationQueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.eng.Get(r.PathValue("id"))
	if err != nil {
		h.writeEngineError(w, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrUnknownSession),
		errors.Is(err, engine.ErrUnknownStage),
		errors.Is(err, session.ErrUnknownItem):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrNotCleared),
		errors.Is(err, session.ErrFinished),
		errors.Is(err, session.ErrOutOfStock):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrQueueFull):
		status = http.StatusTooManyRequests
	default:
		h.logger.Error("request failed", "err", err)
	}
	writeError(w, status, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return false
	}
	return true
}
