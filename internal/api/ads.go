package api

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/patrickwarner/adbridge/internal/ads"
	"github.com/patrickwarner/adbridge/internal/analytics"
	"github.com/patrickwarner/adbridge/internal/middleware"
)

// AdResponse is the banner state after an operation. Error and Kind are set
// when the SDK rejected the call; the status code stays 200 either way.
type AdResponse struct {
	ads.State
	Error string `json:"error,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) operation(op ads.Op) func(context.Context) error {
	switch op {
	case ads.OpInitialize:
		return s.Coordinator.Initialize
	case ads.OpShow:
		return s.Coordinator.ShowBanner
	case ads.OpHide:
		return s.Coordinator.HideBanner
	case ads.OpResume:
		return s.Coordinator.ResumeBanner
	case ads.OpRemove:
		return s.Coordinator.RemoveBanner
	}
	return nil
}

// AdOperationHandler handles POST /ads/{op}.
func (s *Server) AdOperationHandler(op ads.Op) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "AdOperationHandler",
			trace.WithAttributes(attribute.String("ad.op", string(op))))
		defer span.End()

		fn := s.operation(op)
		if fn == nil {
			http.Error(w, "unknown operation", http.StatusNotFound)
			return
		}

		resp := AdResponse{}
		if err := fn(ctx); err != nil {
			// already logged by the coordinator; the UI only gets the outcome
			resp.Error = err.Error()
			if kind, ok := ads.KindOf(err); ok {
				resp.Kind = kind.String()
			}
			span.SetStatus(codes.Error, resp.Kind)
		}
		resp.State = s.Coordinator.State()
		s.writeJSON(w, r, http.StatusOK, resp)
	}
}

// StateHandler handles GET /ads/state.
func (s *Server) StateHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.Coordinator.State())
}

// SnapshotHandler handles GET /ads/snapshot, the state last persisted to Redis.
func (s *Server) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)
	if s.Store == nil {
		http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
		return
	}
	snap, ok, err := s.Store.LoadSnapshot(r.Context())
	if err != nil {
		logger.Error("load snapshot", zap.Error(err))
		http.Error(w, "redis error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no snapshot", http.StatusNotFound)
		return
	}
	s.writeJSON(w, r, http.StatusOK, snap)
}

// HistoryHandler handles GET /ads/history, the newest recorded transitions.
func (s *Server) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)
	if s.Analytics == nil {
		http.Error(w, "analytics unavailable", http.StatusServiceUnavailable)
		return
	}
	limit, ok := listLimit(r)
	if !ok {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}
	events, err := s.Analytics.RecentTransitions(r.Context(), limit)
	if errors.Is(err, analytics.ErrUnavailable) {
		http.Error(w, "analytics unavailable", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		logger.Error("recent transitions", zap.Error(err))
		http.Error(w, "analytics error", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []analytics.EventRecord{}
	}
	s.writeJSON(w, r, http.StatusOK, events)
}
