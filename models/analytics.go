package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionRecord summarizes one completed session for the history list.
// Records are append-only: corrections get a new record, never an edit.
type SessionRecord struct {
	Date           string      `bson:"date" json:"date"` // calendar day, 2006-01-02
	SessionType    SessionMode `bson:"session_type" json:"session_type"`
	IterationCount int         `bson:"iteration_count" json:"iteration_count"`
	Scores         []int       `bson:"scores" json:"scores"`
	Category       Category    `bson:"category" json:"category"`
	Improvement    int         `bson:"improvement" json:"improvement"` // last score - first score
	Timestamp      time.Time   `bson:"timestamp" json:"timestamp"`
}

type WeeklyStats struct {
	Sessions         int     `bson:"sessions" json:"sessions"`
	AvgScore         float64 `bson:"avg_score" json:"avg_score"`
	TotalImprovement int     `bson:"total_improvement" json:"total_improvement"`
}

type CategoryStats struct {
	Sessions         int     `bson:"sessions" json:"sessions"`
	AvgScore         float64 `bson:"avg_score" json:"avg_score"`
	BestScore        float64 `bson:"best_score" json:"best_score"`
	TotalImprovement int     `bson:"total_improvement" json:"total_improvement"`
}

type StreakData struct {
	Current int `bson:"current" json:"current"` // consecutive practice days, invariant Current <= Best
	Best    int `bson:"best" json:"best"`
}

type Achievement struct {
	ID         string    `bson:"id" json:"id"`
	Title      string    `bson:"title" json:"title"`
	UnlockedAt time.Time `bson:"unlocked_at" json:"unlocked_at"`
}

// Analytics is the durable per-profile aggregate, stored as one document
// and mutated only by the aggregator.
type Analytics struct {
	ID                  primitive.ObjectID         `bson:"_id,omitempty" json:"-"`
	ProfileID           string                     `bson:"profile_id" json:"profile_id"`
	SessionHistory      []SessionRecord            `bson:"session_history" json:"session_history"`
	WeeklyProgress      map[string]WeeklyStats     `bson:"weekly_progress" json:"weekly_progress"` // keyed by ISO week, e.g. 2025-W29
	CategoryPerformance map[Category]CategoryStats `bson:"category_performance" json:"category_performance"`
	Streak              StreakData                 `bson:"streak" json:"streak"`
	Achievements        []Achievement              `bson:"achievements" json:"achievements"`
	UpdatedAt           time.Time                  `bson:"updated_at" json:"updated_at"`
}

// NewAnalytics returns an empty aggregate for a profile.
func NewAnalytics(profileID string) *Analytics {
	return &Analytics{
		ProfileID:           profileID,
		SessionHistory:      []SessionRecord{},
		WeeklyProgress:      map[string]WeeklyStats{},
		CategoryPerformance: map[Category]CategoryStats{},
		Achievements:        []Achievement{},
	}
}

// HasAchievement reports whether an achievement id is already unlocked.
func (a *Analytics) HasAchievement(id string) bool {
	for _, ach := range a.Achievements {
		if ach.ID == id {
			return true
		}
	}
	return false
}

// Clone deep-copies the aggregate so absorb can stay a pure transform.
func (a *Analytics) Clone() *Analytics {
	out := &Analytics{
		ID:                  a.ID,
		ProfileID:           a.ProfileID,
		SessionHistory:      make([]SessionRecord, len(a.SessionHistory)),
		WeeklyProgress:      make(map[string]WeeklyStats, len(a.WeeklyProgress)),
		CategoryPerformance: make(map[Category]CategoryStats, len(a.CategoryPerformance)),
		Streak:              a.Streak,
		Achievements:        make([]Achievement, len(a.Achievements)),
		UpdatedAt:           a.UpdatedAt,
	}
	copy(out.SessionHistory, a.SessionHistory)
	for i, rec := range a.SessionHistory {
		scores := make([]int, len(rec.Scores))
		copy(scores, rec.Scores)
		out.SessionHistory[i].Scores = scores
	}
	for k, v := range a.WeeklyProgress {
		out.WeeklyProgress[k] = v
	}
	for k, v := range a.CategoryPerformance {
		out.CategoryPerformance[k] = v
	}
	copy(out.Achievements, a.Achievements)
	return out
}
