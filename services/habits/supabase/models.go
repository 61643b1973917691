// Package supabase provides habit-log data access against the daily_logs table.
package supabase

// DailyLog is one row of the daily_logs table: one per user per calendar
// date. Timestamps are store-assigned and passed through untouched.
type DailyLog struct {
	ID                 string  `json:"id,omitempty"`
	UserID             string  `json:"user_id"`
	Date               string  `json:"date"`
	WorkoutCompleted   bool    `json:"workout_completed"`
	NutritionCompleted bool    `json:"nutrition_completed"`
	Notes              *string `json:"notes"`
	CreatedAt          string  `json:"created_at,omitempty"`
	UpdatedAt          string  `json:"updated_at,omitempty"`
}

// DailyLogInsert is the payload for creating a row. The store assigns the ID.
type DailyLogInsert struct {
	UserID             string  `json:"user_id"`
	Date               string  `json:"date"`
	WorkoutCompleted   bool    `json:"workout_completed"`
	NutritionCompleted bool    `json:"nutrition_completed"`
	Notes              *string `json:"notes"`
}

// DailyLogUpdate is the payload for overwriting a row's mutable fields.
// All three fields are always sent: updates replace, they do not merge.
type DailyLogUpdate struct {
	WorkoutCompleted   bool    `json:"workout_completed"`
	NutritionCompleted bool    `json:"nutrition_completed"`
	Notes              *string `json:"notes"`
}
