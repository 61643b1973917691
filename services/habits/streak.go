package habits

import (
	"time"

	habitsupabase "github.com/momentum-labs/habitlog/services/habits/supabase"
)

// Stats aggregates a user's full log history.
type Stats struct {
	TotalDays       int `json:"total_days"`
	WorkoutStreak   int `json:"workout_streak"`
	NutritionStreak int `json:"nutrition_streak"`
	TotalWorkouts   int `json:"total_workouts"`
	TotalNutrition  int `json:"total_nutrition"`
}

const dateLayout = "2006-01-02"

// ComputeStats derives counts and the two current streaks from a user's
// logs. A streak is the number of consecutive days, ending at today
// inclusive, on which the flag was true; a missing row or false flag
// anywhere on the walk (today included) ends it.
//
// Dates are compared as calendar dates in the server's location; the
// caller's timezone is not consulted. Known limitation.
func ComputeStats(logs []habitsupabase.DailyLog, today time.Time) Stats {
	stats := Stats{TotalDays: len(logs)}

	byDate := make(map[string]habitsupabase.DailyLog, len(logs))
	for _, log := range logs {
		if log.WorkoutCompleted {
			stats.TotalWorkouts++
		}
		if log.NutritionCompleted {
			stats.TotalNutrition++
		}
		byDate[log.Date] = log
	}

	stats.WorkoutStreak = streakFrom(byDate, today, func(l habitsupabase.DailyLog) bool {
		return l.WorkoutCompleted
	})
	stats.NutritionStreak = streakFrom(byDate, today, func(l habitsupabase.DailyLog) bool {
		return l.NutritionCompleted
	})

	return stats
}

// streakFrom walks backward one day at a time from today, counting while
// the date has a row whose flag is true.
func streakFrom(byDate map[string]habitsupabase.DailyLog, today time.Time, completed func(habitsupabase.DailyLog) bool) int {
	streak := 0
	for day := today; ; day = day.AddDate(0, 0, -1) {
		log, ok := byDate[day.Format(dateLayout)]
		if !ok || !completed(log) {
			break
		}
		streak++
	}
	return streak
}
