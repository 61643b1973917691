package habits

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/momentum-labs/habitlog/internal/auth"
	"github.com/momentum-labs/habitlog/internal/config"
	"github.com/momentum-labs/habitlog/internal/database"
	"github.com/momentum-labs/habitlog/internal/logging"
	habitsupabase "github.com/momentum-labs/habitlog/services/habits/supabase"
)

// mockStore is an in-memory Store for handler tests.
type mockStore struct {
	mu   sync.Mutex
	rows map[string]*habitsupabase.DailyLog // keyed by row ID

	// ErrorOnNextCall is returned (and cleared) by the next store call.
	ErrorOnNextCall error
}

func newMockStore() *mockStore {
	return &mockStore{rows: map[string]*habitsupabase.DailyLog{}}
}

func (m *mockStore) checkError() error {
	err := m.ErrorOnNextCall
	m.ErrorOnNextCall = nil
	return err
}

func (m *mockStore) List(_ context.Context, userID, startDate, endDate string) ([]habitsupabase.DailyLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(); err != nil {
		return nil, err
	}

	var out []habitsupabase.DailyLog
	for _, row := range m.rows {
		if row.UserID != userID {
			continue
		}
		if startDate != "" && row.Date < startDate {
			continue
		}
		if endDate != "" && row.Date > endDate {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (m *mockStore) FindByDate(_ context.Context, userID, date string) (*habitsupabase.DailyLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(); err != nil {
		return nil, err
	}

	for _, row := range m.rows {
		if row.UserID == userID && row.Date == date {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockStore) Insert(_ context.Context, in habitsupabase.DailyLogInsert) (*habitsupabase.DailyLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(); err != nil {
		return nil, err
	}

	row := &habitsupabase.DailyLog{
		ID:                 uuid.New().String(),
		UserID:             in.UserID,
		Date:               in.Date,
		WorkoutCompleted:   in.WorkoutCompleted,
		NutritionCompleted: in.NutritionCompleted,
		Notes:              in.Notes,
	}
	m.rows[row.ID] = row
	copied := *row
	return &copied, nil
}

func (m *mockStore) Update(_ context.Context, id string, fields habitsupabase.DailyLogUpdate) (*habitsupabase.DailyLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(); err != nil {
		return nil, err
	}

	row, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("row not found: %s", id)
	}
	row.WorkoutCompleted = fields.WorkoutCompleted
	row.NutritionCompleted = fields.NutritionCompleted
	row.Notes = fields.Notes
	copied := *row
	return &copied, nil
}

func (m *mockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// newTestServer wires the service behind the real router and auth
// middleware (local mode, unverified claims).
func newTestServer(t *testing.T, store *mockStore, today string) *httptest.Server {
	t.Helper()

	now := func() time.Time { return time.Now() }
	if today != "" {
		pinned, err := time.Parse(dateLayout, today)
		require.NoError(t, err)
		now = func() time.Time { return pinned }
	}

	logger := logging.New("habitlog-test")
	svc, err := New(Config{DB: store, Logger: logger, Now: now})
	require.NoError(t, err)

	authMW := auth.New(auth.Config{Mode: config.AuthModeLocal}, logger)

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	svc.RegisterRoutes(api, authMW.Handler)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// tokenFor builds a bearer token whose sub claim is userID. The signing key
// is irrelevant: local mode reads claims without verifying the signature.
func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-only"))
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, srv.URL+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth_NoAuthRequired(t *testing.T) {
	srv := newTestServer(t, newMockStore(), "")

	resp := doRequest(t, srv, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
}

func TestProtectedEndpoints_RequireToken(t *testing.T) {
	srv := newTestServer(t, newMockStore(), "")

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodGet, "/api/logs"},
		{http.MethodPost, "/api/logs"},
		{http.MethodGet, "/api/stats"},
	} {
		resp := doRequest(t, srv, tc.method, tc.path, "", nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", tc.method, tc.path)
	}
}

func TestListLogs_ReturnsOwnRowsNewestFirst(t *testing.T) {
	store := newMockStore()
	notes := "leg day"
	for _, row := range []habitsupabase.DailyLog{
		{UserID: "user-1", Date: "2024-01-01", WorkoutCompleted: true},
		{UserID: "user-1", Date: "2024-01-03", Notes: &notes},
		{UserID: "user-1", Date: "2024-01-02"},
		{UserID: "intruder", Date: "2024-01-02", WorkoutCompleted: true},
	} {
		_, err := store.Insert(context.Background(), habitsupabase.DailyLogInsert{
			UserID:             row.UserID,
			Date:               row.Date,
			WorkoutCompleted:   row.WorkoutCompleted,
			NutritionCompleted: row.NutritionCompleted,
			Notes:              row.Notes,
		})
		require.NoError(t, err)
	}
	srv := newTestServer(t, store, "")

	resp := doRequest(t, srv, http.MethodGet, "/api/logs", tokenFor(t, "user-1"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ListLogsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Logs, 3)
	require.Equal(t, []string{"2024-01-03", "2024-01-02", "2024-01-01"},
		[]string{body.Logs[0].Date, body.Logs[1].Date, body.Logs[2].Date})
	for _, log := range body.Logs {
		require.Equal(t, "user-1", log.UserID)
	}
}

func TestListLogs_InclusiveRangeFilter(t *testing.T) {
	store := newMockStore()
	for _, date := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"} {
		_, err := store.Insert(context.Background(), habitsupabase.DailyLogInsert{UserID: "user-1", Date: date})
		require.NoError(t, err)
	}
	srv := newTestServer(t, store, "")

	resp := doRequest(t, srv, http.MethodGet, "/api/logs?start_date=2024-01-02&end_date=2024-01-04", tokenFor(t, "user-1"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ListLogsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Logs, 3)
	require.Equal(t, "2024-01-04", body.Logs[0].Date)
	require.Equal(t, "2024-01-02", body.Logs[2].Date)
}

func TestListLogs_MalformedDateFilter(t *testing.T) {
	srv := newTestServer(t, newMockStore(), "")

	resp := doRequest(t, srv, http.MethodGet, "/api/logs?start_date=01-02-2024", tokenFor(t, "user-1"), nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpsertLog_CreatesThenOverwrites(t *testing.T) {
	store := newMockStore()
	srv := newTestServer(t, store, "")
	token := tokenFor(t, "user-1")

	notes := "first pass"
	resp := doRequest(t, srv, http.MethodPost, "/api/logs", token, map[string]any{
		"date":              "2024-03-10",
		"workout_completed": true,
		"notes":             notes,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created UpsertLogResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotNil(t, created.Log)
	require.True(t, created.Log.WorkoutCompleted)
	require.NotNil(t, created.Log.Notes)

	// Second POST for the same date: full overwrite, same row.
	resp = doRequest(t, srv, http.MethodPost, "/api/logs", token, map[string]any{
		"date":                "2024-03-10",
		"nutrition_completed": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated UpsertLogResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	require.NotNil(t, updated.Log)
	require.Equal(t, created.Log.ID, updated.Log.ID)
	require.False(t, updated.Log.WorkoutCompleted, "workout_completed must be overwritten, not merged")
	require.True(t, updated.Log.NutritionCompleted)
	require.Nil(t, updated.Log.Notes, "notes must be overwritten with null")

	require.Equal(t, 1, store.count(), "two POSTs for one date must produce one row")
}

func TestUpsertLog_ForcesAuthenticatedUserID(t *testing.T) {
	store := newMockStore()
	srv := newTestServer(t, store, "")

	// user_id in the body must be ignored in favor of the token identity.
	resp := doRequest(t, srv, http.MethodPost, "/api/logs", tokenFor(t, "user-1"), map[string]any{
		"date":    "2024-03-10",
		"user_id": "victim",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body UpsertLogResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotNil(t, body.Log)
	require.Equal(t, "user-1", body.Log.UserID)

	victim := doRequest(t, srv, http.MethodGet, "/api/logs", tokenFor(t, "victim"), nil)
	var victimBody ListLogsResponse
	require.NoError(t, json.NewDecoder(victim.Body).Decode(&victimBody))
	require.Empty(t, victimBody.Logs)
}

func TestUpsertLog_MissingDate(t *testing.T) {
	srv := newTestServer(t, newMockStore(), "")

	resp := doRequest(t, srv, http.MethodPost, "/api/logs", tokenFor(t, "user-1"), map[string]any{
		"workout_completed": true,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStats_EmptyHistory(t *testing.T) {
	srv := newTestServer(t, newMockStore(), "2024-03-10")

	resp := doRequest(t, srv, http.MethodGet, "/api/stats", tokenFor(t, "user-1"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.Equal(t, Stats{}, stats)
}

func TestStats_StreaksEndingToday(t *testing.T) {
	store := newMockStore()
	for _, row := range []habitsupabase.DailyLogInsert{
		{UserID: "user-1", Date: "2024-03-10", WorkoutCompleted: true},
		{UserID: "user-1", Date: "2024-03-09", WorkoutCompleted: true, NutritionCompleted: true},
		{UserID: "user-1", Date: "2024-03-08", WorkoutCompleted: true},
		{UserID: "user-1", Date: "2024-03-07"},
	} {
		_, err := store.Insert(context.Background(), row)
		require.NoError(t, err)
	}
	srv := newTestServer(t, store, "2024-03-10")

	resp := doRequest(t, srv, http.MethodGet, "/api/stats", tokenFor(t, "user-1"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.Equal(t, Stats{
		TotalDays:       4,
		WorkoutStreak:   3,
		NutritionStreak: 0, // today has no nutrition entry
		TotalWorkouts:   3,
		TotalNutrition:  1,
	}, stats)
}

func TestStoreError_PassedThroughToCaller(t *testing.T) {
	store := newMockStore()
	store.ErrorOnNextCall = &database.StoreError{
		Status: http.StatusBadGateway,
		Body:   []byte(`{"message":"connection to upstream lost"}`),
	}
	srv := newTestServer(t, store, "")

	resp := doRequest(t, srv, http.MethodGet, "/api/logs", tokenFor(t, "user-1"), nil)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "connection to upstream lost", body["message"])
}
