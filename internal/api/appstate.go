package api

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/patrickwarner/adbridge/internal/appstate"
	"github.com/patrickwarner/adbridge/internal/middleware"
)

// AppStateResponse reports the app state after a publish.
type AppStateResponse struct {
	IsActive bool `json:"is_active"`
	// Changed is false when the state repeated the previous one.
	Changed bool `json:"changed"`
}

// AppStateHandler handles POST /app-state with body {"is_active":bool}.
func (s *Server) AppStateHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	isActive, err := appstate.Decode(body)
	if err != nil {
		logger.Warn("bad app state payload", zap.Error(err))
		http.Error(w, "is_active required", http.StatusBadRequest)
		return
	}

	changed := s.Hub.Publish(isActive)
	s.writeJSON(w, r, http.StatusOK, AppStateResponse{IsActive: s.Hub.IsActive(), Changed: changed})
}
