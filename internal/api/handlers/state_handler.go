package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mimi-overlay/mimi/internal/api/httpx"
	"github.com/mimi-overlay/mimi/internal/avatar"
	"github.com/mimi-overlay/mimi/pkg/logger"
)

// StateHandler serves the raw state document: reads for the display
// client's poll loop, merge-updates for every producer.
type StateHandler struct {
	logger *logger.Logger
	store  *avatar.Store
}

// NewStateHandler creates a new state handler
func NewStateHandler(log *logger.Logger, store *avatar.Store) *StateHandler {
	return &StateHandler{
		logger: log.WithComponent("state-handler"),
		store:  store,
	}
}

// HandleState handles GET /state (full read) and POST /state (merge update)
func (h *StateHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httpx.WriteRaw(w, http.StatusOK, h.store.Read())

	case http.MethodPost:
		partial, err := httpx.ReadBody(r)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		if err := h.store.Update(partial); err != nil {
			h.logger.Warn("Rejected state update", zap.Error(err))
			httpx.Error(w, http.StatusBadRequest, "update payload must be a JSON object")
			return
		}

		httpx.OK(w)

	default:
		httpx.MethodNotAllowed(w)
	}
}

// HandleHealth handles GET /health
func (h *StateHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, httpx.StatusResponse{Status: "running"})
}
