package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/momentum-labs/habitlog/internal/database"
)

const table = "daily_logs"

// Repository provides daily-log data access. Every query filters on the
// owning user_id; client-supplied user IDs are never trusted over it.
type Repository struct {
	base *database.Client
}

// NewRepository creates a daily-log repository.
func NewRepository(base *database.Client) *Repository {
	return &Repository{base: base}
}

// List returns a user's logs ordered by date descending. startDate and
// endDate, when non-empty, are inclusive range bounds.
func (r *Repository) List(ctx context.Context, userID, startDate, endDate string) ([]DailyLog, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id cannot be empty")
	}

	query := "user_id=eq." + url.QueryEscape(userID)
	if startDate != "" {
		query += "&date=gte." + url.QueryEscape(startDate)
	}
	if endDate != "" {
		query += "&date=lte." + url.QueryEscape(endDate)
	}
	query += "&order=date.desc"

	data, err := r.base.Request(ctx, "GET", table, nil, query)
	if err != nil {
		return nil, fmt.Errorf("list daily logs: %w", err)
	}
	var rows []DailyLog
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal daily logs: %w", err)
	}
	return rows, nil
}

// FindByDate returns the user's log for a date, or nil when none exists.
func (r *Repository) FindByDate(ctx context.Context, userID, date string) (*DailyLog, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id cannot be empty")
	}
	if date == "" {
		return nil, fmt.Errorf("date cannot be empty")
	}

	query := "user_id=eq." + url.QueryEscape(userID) + "&date=eq." + url.QueryEscape(date) + "&limit=1"
	data, err := r.base.Request(ctx, "GET", table, nil, query)
	if err != nil {
		return nil, fmt.Errorf("find daily log: %w", err)
	}
	var rows []DailyLog
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal daily logs: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Insert creates a new log row. The store assigns the ID; the created row
// is returned, or nil when the store representation is empty.
func (r *Repository) Insert(ctx context.Context, row DailyLogInsert) (*DailyLog, error) {
	if row.UserID == "" {
		return nil, fmt.Errorf("user_id cannot be empty")
	}

	data, err := r.base.Request(ctx, "POST", table, row, "")
	if err != nil {
		return nil, fmt.Errorf("insert daily log: %w", err)
	}
	var rows []DailyLog
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal daily logs: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Update overwrites a row's mutable fields by ID. The updated row is
// returned, or nil when the store representation is empty.
func (r *Repository) Update(ctx context.Context, id string, fields DailyLogUpdate) (*DailyLog, error) {
	if id == "" {
		return nil, fmt.Errorf("id cannot be empty")
	}

	query := "id=eq." + url.QueryEscape(id)
	data, err := r.base.Request(ctx, "PATCH", table, fields, query)
	if err != nil {
		return nil, fmt.Errorf("update daily log: %w", err)
	}
	var rows []DailyLog
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal daily logs: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
