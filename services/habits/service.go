// Package habits implements the daily habit-log HTTP service.
package habits

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/momentum-labs/habitlog/internal/logging"
	habitsupabase "github.com/momentum-labs/habitlog/services/habits/supabase"
)

const (
	ServiceID   = "habitlog"
	ServiceName = "Habit Log Service"
	Version     = "1.0.0"
)

// Store captures the persistence surface needed by the habits service.
type Store interface {
	List(ctx context.Context, userID, startDate, endDate string) ([]habitsupabase.DailyLog, error)
	FindByDate(ctx context.Context, userID, date string) (*habitsupabase.DailyLog, error)
	Insert(ctx context.Context, row habitsupabase.DailyLogInsert) (*habitsupabase.DailyLog, error)
	Update(ctx context.Context, id string, fields habitsupabase.DailyLogUpdate) (*habitsupabase.DailyLog, error)
}

// Config configures the habits service.
type Config struct {
	DB     Store
	Logger *logging.Logger
	// Now overrides the clock; defaults to time.Now. Tests pin it.
	Now func() time.Time
}

// Service implements the habit-log endpoints.
type Service struct {
	db     Store
	logger *logging.Logger
	now    func() time.Time
}

// New creates a new habits service.
func New(cfg Config) (*Service, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("habits service requires a store")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.New(ServiceID)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{db: cfg.DB, logger: logger, now: now}, nil
}

// RegisterRoutes registers the service routes on an /api subrouter. Every
// route except /health goes through the auth middleware.
func (s *Service) RegisterRoutes(api *mux.Router, auth mux.MiddlewareFunc) {
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)

	protected := api.NewRoute().Subrouter()
	protected.Use(auth)
	protected.HandleFunc("/logs", s.handleListLogs).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/logs", s.handleUpsertLog).Methods(http.MethodPost)
	protected.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet, http.MethodOptions)
}
