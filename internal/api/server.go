package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/patrickwarner/adbridge/internal/ads"
	"github.com/patrickwarner/adbridge/internal/analytics"
	"github.com/patrickwarner/adbridge/internal/appstate"
	"github.com/patrickwarner/adbridge/internal/db"
	"github.com/patrickwarner/adbridge/internal/middleware"
	"github.com/patrickwarner/adbridge/internal/observability"
	"github.com/patrickwarner/adbridge/internal/screen"
)

var tracer = observability.Tracer("adbridge/api")

// maxBodyBytes bounds request bodies; every payload here is a tiny JSON object.
const maxBodyBytes = 4 << 10

const defaultListLimit = 50

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger      *zap.Logger
	Coordinator *ads.Coordinator
	Hub         *appstate.Hub
	Screens     *screen.Registry
	// Optional backends; nil disables the endpoints that read them.
	Analytics   analytics.Service
	Store       *db.RedisStore
	PG          *db.Postgres
	TokenSecret []byte
	TokenTTL    time.Duration
	Metrics     observability.MetricsRegistry
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, coordinator *ads.Coordinator, hub *appstate.Hub, screens *screen.Registry, secret []byte, ttl time.Duration, metrics observability.MetricsRegistry) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Server{
		Logger:      logger,
		Coordinator: coordinator,
		Hub:         hub,
		Screens:     screens,
		TokenSecret: secret,
		TokenTTL:    ttl,
		Metrics:     metrics,
	}
}

// Router registers every adbridge route on a new mux router.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.WithRequestContext(s.Logger, s.Metrics))

	r.HandleFunc("/ads/state", s.StateHandler).Methods("GET")
	r.HandleFunc("/ads/snapshot", s.SnapshotHandler).Methods("GET")
	r.HandleFunc("/ads/history", s.HistoryHandler).Methods("GET")
	for _, op := range ads.Ops {
		r.HandleFunc("/ads/"+string(op), s.AdOperationHandler(op)).Methods("POST")
	}

	r.HandleFunc("/app-state", s.AppStateHandler).Methods("POST")

	r.HandleFunc("/screens", s.MountHandler).Methods("POST")
	r.HandleFunc("/screens/log", s.ScreenLogHandler).Methods("GET")
	r.HandleFunc("/screens/{id}", s.ScreenHandler).Methods("GET")
	r.HandleFunc("/screens/{id}", s.UnmountHandler).Methods("DELETE")

	r.HandleFunc("/health", s.HealthHandler).Methods("GET")
	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		middleware.LoggerFromRequest(r, s.Logger).Warn("failed to encode response", zap.Error(err))
	}
}

// listLimit parses the optional ?limit= query parameter.
func listLimit(r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
