// Package handlers implements the API endpoints over run artifacts.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/internal/reports"
	"github.com/sieng/factor-engine/pkg/logger"
)

// RunHandler serves run summaries and their artifacts.
type RunHandler struct {
	store  contracts.Store
	logger *logger.Logger
}

// NewRunHandler creates a run handler.
func NewRunHandler(store contracts.Store, log *logger.Logger) *RunHandler {
	return &RunHandler{store: store, logger: log}
}

// GetSummary returns the run summary.
// GET /api/runs/{id}
func (h *RunHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	summary, err := reports.BuildRunSummary(r.Context(), h.store, runID)
	if err != nil {
		h.writeError(w, runID, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetEquityCurve returns the backtest equity curve.
// GET /api/runs/{id}/equity
func (h *RunHandler) GetEquityCurve(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	if _, err := h.store.Runs().Get(r.Context(), runID); err != nil {
		h.writeError(w, runID, err)
		return
	}
	curve, err := h.store.Backtests().GetEquityCurve(r.Context(), runID)
	if err != nil {
		h.writeError(w, runID, err)
		return
	}

	points := make([]map[string]any, 0, len(curve))
	for _, point := range curve {
		points = append(points, map[string]any{
			"date":    point.Date.Format("2006-01-02"),
			"capital": point.Capital,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "equity_curve": points})
}

// GetSignals returns the signal batch for the run's as-of date, or for an
// explicit ?date=YYYY-MM-DD.
// GET /api/runs/{id}/signals
func (h *RunHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	run, err := h.store.Runs().Get(r.Context(), runID)
	if err != nil {
		h.writeError(w, runID, err)
		return
	}

	asOf := run.AsOfDate
	if dateText := r.URL.Query().Get("date"); dateText != "" {
		parsed, err := time.Parse("2006-01-02", dateText)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, want YYYY-MM-DD"})
			return
		}
		asOf = parsed
	}

	batch, err := h.store.Signals().GetByRunAndDate(r.Context(), runID, asOf)
	if err != nil {
		h.writeError(w, runID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  runID,
		"as_of":   asOf.Format("2006-01-02"),
		"signals": batch,
	})
}

// GetPositions returns the run's persisted portfolio, heaviest first.
// GET /api/runs/{id}/positions
func (h *RunHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	if _, err := h.store.Runs().Get(r.Context(), runID); err != nil {
		h.writeError(w, runID, err)
		return
	}
	positions, err := h.store.Portfolios().GetByRun(r.Context(), runID)
	if err != nil {
		h.writeError(w, runID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "positions": positions})
}

func (h *RunHandler) writeError(w http.ResponseWriter, runID string, err error) {
	if errors.Is(err, contracts.ErrRunNotFound) || errors.Is(err, contracts.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	h.logger.WithError(err).WithField("run_id", runID).Error("request failed")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
