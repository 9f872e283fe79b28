package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/pkg/logger"
)

// StageStream pushes a run's pipeline stage over a websocket whenever it
// changes, by polling the store.
type StageStream struct {
	store        contracts.Store
	logger       *logger.Logger
	upgrader     websocket.Upgrader
	pollInterval time.Duration
}

// StageEvent is one pushed stage update.
type StageEvent struct {
	RunID string `json:"run_id"`
	Stage string `json:"stage"`
	At    string `json:"at"`
}

// NewStageStream creates a stage stream with the given poll interval; zero
// selects one second.
func NewStageStream(store contracts.Store, log *logger.Logger, pollInterval time.Duration) *StageStream {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &StageStream{
		store:        store,
		logger:       log,
		upgrader:     websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		pollInterval: pollInterval,
	}
}

// Serve upgrades the connection and streams stage changes until the run
// reaches its final stage or the client disconnects.
// GET /ws/runs/{id}
func (s *StageStream) Serve(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	run, err := s.store.Runs().Get(r.Context(), runID)
	if errors.Is(err, contracts.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	lastStage := ""
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		if run.Stage != lastStage {
			event := StageEvent{RunID: runID, Stage: run.Stage, At: time.Now().UTC().Format(time.RFC3339)}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
			lastStage = run.Stage
		}
		if run.Stage == contracts.CompletedStage(contracts.StageRunAll) {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		run, err = s.store.Runs().Get(r.Context(), runID)
		if err != nil {
			return
		}
	}
}
