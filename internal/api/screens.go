package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/patrickwarner/adbridge/internal/ads"
	"github.com/patrickwarner/adbridge/internal/db"
	"github.com/patrickwarner/adbridge/internal/middleware"
	"github.com/patrickwarner/adbridge/internal/screen"
	"github.com/patrickwarner/adbridge/internal/token"
)

// MountRequest is the payload for mounting a screen.
type MountRequest struct {
	Screen string `json:"screen"`
}

// MountResponse carries the handle the shell presents on unmount.
type MountResponse struct {
	ID     string `json:"id"`
	Screen string `json:"screen"`
	Token  string `json:"token"`
}

// UnmountResponse reports what the screen did while mounted.
type UnmountResponse struct {
	ID        string    `json:"id"`
	ShowFired bool      `json:"show_fired"`
	Ad        ads.State `json:"ad"`
}

// MountHandler handles POST /screens.
func (s *Server) MountHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "MountHandler")
	defer span.End()
	logger := middleware.LoggerFromRequest(r, s.Logger)

	var req MountRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	req.Screen = strings.TrimSpace(req.Screen)
	if req.Screen == "" {
		http.Error(w, "screen required", http.StatusBadRequest)
		return
	}

	b, err := s.Screens.Mount(ctx, req.Screen)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "mount failed")
		logger.Error("mount screen", zap.String("screen", req.Screen), zap.Error(err))
		http.Error(w, "mount failed", http.StatusInternalServerError)
		return
	}
	span.SetAttributes(attribute.String("screen.id", b.ID()), attribute.String("screen.name", b.Screen()))

	tok, err := token.Generate(b.ID(), b.Screen(), s.TokenSecret)
	if err != nil {
		logger.Error("token generate", zap.Error(err))
		_ = s.Screens.Unmount(ctx, b.ID())
		http.Error(w, "token error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, MountResponse{ID: b.ID(), Screen: b.Screen(), Token: tok})
}

// UnmountHandler handles DELETE /screens/{id}?t=token.
func (s *Server) UnmountHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "UnmountHandler")
	defer span.End()
	logger := middleware.LoggerFromRequest(r, s.Logger)

	id := mux.Vars(r)["id"]
	tok := r.URL.Query().Get("t")
	if tok == "" {
		logger.Warn("missing token")
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	}
	handle, err := token.Verify(tok, s.TokenSecret, s.TokenTTL)
	if err != nil {
		span.RecordError(err)
		logger.Warn("token verify", zap.Error(err))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if handle.ScreenID != id {
		logger.Warn("token for another screen", zap.String("screen_id", id), zap.String("token_screen_id", handle.ScreenID))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	b, ok := s.Screens.Get(id)
	if !ok {
		http.Error(w, "unknown screen", http.StatusNotFound)
		return
	}
	if err := s.Screens.Unmount(ctx, id); err != nil {
		if errors.Is(err, screen.ErrUnknownScreen) {
			http.Error(w, "unknown screen", http.StatusNotFound)
			return
		}
		logger.Error("unmount screen", zap.Error(err))
		http.Error(w, "unmount failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, r, http.StatusOK, UnmountResponse{ID: id, ShowFired: b.ShowFired(), Ad: s.Coordinator.State()})
}

// ScreenHandler handles GET /screens/{id} for mounted and recently unmounted screens.
func (s *Server) ScreenHandler(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.Screens.Lookup(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "unknown screen", http.StatusNotFound)
		return
	}
	s.writeJSON(w, r, http.StatusOK, sum)
}

// ScreenLogHandler handles GET /screens/log, the newest journaled screens.
func (s *Server) ScreenLogHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)
	if s.PG == nil {
		http.Error(w, "db unavailable", http.StatusServiceUnavailable)
		return
	}
	limit, ok := listLimit(r)
	if !ok {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}
	records, err := s.PG.RecentMounts(r.Context(), limit)
	if err != nil {
		logger.Error("recent mounts", zap.Error(err))
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []db.MountRecord{}
	}
	s.writeJSON(w, r, http.StatusOK, records)
}
