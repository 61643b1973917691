package habits

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/momentum-labs/habitlog/internal/auth"
	"github.com/momentum-labs/habitlog/internal/database"
	"github.com/momentum-labs/habitlog/internal/httputil"
	habitsupabase "github.com/momentum-labs/habitlog/services/habits/supabase"
)

// ListLogsResponse is the GET /api/logs response body.
type ListLogsResponse struct {
	Logs []habitsupabase.DailyLog `json:"logs"`
}

// UpsertLogInput is the POST /api/logs request body. user_id is never read
// from the body; it always comes from the authenticated identity.
type UpsertLogInput struct {
	Date               string  `json:"date"`
	WorkoutCompleted   bool    `json:"workout_completed"`
	NutritionCompleted bool    `json:"nutrition_completed"`
	Notes              *string `json:"notes"`
}

// UpsertLogResponse is the POST /api/logs response body. Log is null when
// the store returned an empty representation after the write.
type UpsertLogResponse struct {
	Log *habitsupabase.DailyLog `json:"log"`
}

// handleHealth reports liveness. Unauthenticated.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListLogs lists the caller's logs, newest date first, optionally
// bounded by inclusive start_date/end_date filters.
func (s *Service) handleListLogs(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}

	startDate := r.URL.Query().Get("start_date")
	endDate := r.URL.Query().Get("end_date")
	for _, d := range []string{startDate, endDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", d))
			return
		}
	}

	logs, err := s.db.List(r.Context(), userID, startDate, endDate)
	if err != nil {
		s.respondError(w, r, err, "failed to list logs")
		return
	}
	if logs == nil {
		logs = []habitsupabase.DailyLog{}
	}

	httputil.WriteJSON(w, http.StatusOK, ListLogsResponse{Logs: logs})
}

// handleUpsertLog creates the caller's log for a date, or fully overwrites
// the mutable fields of the existing one. The find-then-write pair is not
// atomic; the store's uniqueness constraint on (user_id, date) is what
// keeps concurrent posts from producing duplicate rows.
func (s *Service) handleUpsertLog(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}

	var input UpsertLogInput
	if !httputil.DecodeJSON(w, r, &input) {
		return
	}
	if input.Date == "" {
		httputil.BadRequest(w, "date is required")
		return
	}
	if _, err := time.Parse(dateLayout, input.Date); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", input.Date))
		return
	}

	existing, err := s.db.FindByDate(r.Context(), userID, input.Date)
	if err != nil {
		s.respondError(w, r, err, "failed to look up log")
		return
	}

	var row *habitsupabase.DailyLog
	if existing != nil {
		row, err = s.db.Update(r.Context(), existing.ID, habitsupabase.DailyLogUpdate{
			WorkoutCompleted:   input.WorkoutCompleted,
			NutritionCompleted: input.NutritionCompleted,
			Notes:              input.Notes,
		})
	} else {
		row, err = s.db.Insert(r.Context(), habitsupabase.DailyLogInsert{
			UserID:             userID,
			Date:               input.Date,
			WorkoutCompleted:   input.WorkoutCompleted,
			NutritionCompleted: input.NutritionCompleted,
			Notes:              input.Notes,
		})
	}
	if err != nil {
		s.respondError(w, r, err, "failed to save log")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, UpsertLogResponse{Log: row})
}

// handleStats computes aggregate counts and current streaks over the
// caller's full history.
func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}

	logs, err := s.db.List(r.Context(), userID, "", "")
	if err != nil {
		s.respondError(w, r, err, "failed to load logs")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ComputeStats(logs, s.now()))
}

// respondError passes store errors through with the upstream status and
// body; anything else becomes a 500 with a generic message.
func (s *Service) respondError(w http.ResponseWriter, r *http.Request, err error, message string) {
	s.logger.WithContext(r.Context()).WithError(err).Error(message)

	var storeErr *database.StoreError
	if errors.As(err, &storeErr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(storeErr.Status)
		_, _ = w.Write(storeErr.Body)
		return
	}

	httputil.InternalError(w, message)
}
