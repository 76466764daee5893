package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"breathemate/models"
)

// ErrEmptySession means a session finished with zero scored iterations;
// it leaves no trace in analytics.
var ErrEmptySession = errors.New("session has no iterations to absorb")

// -------- Session absorption --------

// weekKey formats the ISO week a timestamp falls in, e.g. "2025-W29".
func weekKey(t time.Time, loc *time.Location) string {
	year, week := t.In(loc).ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

func sessionMean(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return float64(sum) / float64(len(scores))
}

// SummarizeSession flattens a finished session into its history record.
// Improvement is last score minus first score, 0 for a single iteration.
func SummarizeSession(session *models.Session, completedAt time.Time, loc *time.Location) models.SessionRecord {
	scores := make([]int, len(session.Iterations))
	for i, it := range session.Iterations {
		scores[i] = it.HealthScore
	}
	improvement := 0
	if len(scores) > 1 {
		improvement = scores[len(scores)-1] - scores[0]
	}
	return models.SessionRecord{
		Date:           dayKey(completedAt, loc),
		SessionType:    session.Mode,
		IterationCount: len(session.Iterations),
		Scores:         scores,
		Category:       session.Category,
		Improvement:    improvement,
		Timestamp:      completedAt,
	}
}

// Absorb folds one completed session into the aggregate and returns the
// updated copy plus the history record it appended. The input analytics
// is never mutated, so a failed absorb leaves the prior state intact.
func Absorb(analytics *models.Analytics, session *models.Session, completedAt time.Time, loc *time.Location) (*models.Analytics, models.SessionRecord, error) {
	if len(session.Iterations) == 0 {
		return analytics, models.SessionRecord{}, ErrEmptySession
	}
	for i, it := range session.Iterations {
		if err := ValidateIteration(it, i+1); err != nil {
			return analytics, models.SessionRecord{}, err
		}
	}

	record := SummarizeSession(session, completedAt, loc)
	out := analytics.Clone()
	applyRecord(out, record, loc)
	out.UpdatedAt = completedAt
	return out, record, nil
}

// applyRecord is the single-record fold shared by Absorb and the
// history rebuild used for merging.
func applyRecord(a *models.Analytics, record models.SessionRecord, loc *time.Location) {
	updateStreak(a, record, loc)
	a.SessionHistory = append(a.SessionHistory, record)

	mean := sessionMean(record.Scores)

	wk := weekKey(record.Timestamp, loc)
	ws := a.WeeklyProgress[wk]
	ws.Sessions++
	ws.AvgScore += (mean - ws.AvgScore) / float64(ws.Sessions)
	ws.TotalImprovement += record.Improvement
	a.WeeklyProgress[wk] = ws

	cs := a.CategoryPerformance[record.Category]
	cs.Sessions++
	cs.AvgScore += (mean - cs.AvgScore) / float64(cs.Sessions)
	if mean > cs.BestScore {
		cs.BestScore = mean
	}
	cs.TotalImprovement += record.Improvement
	a.CategoryPerformance[record.Category] = cs

	evaluateAchievements(a, record)
}

// updateStreak applies calendar-day streak logic against the history as
// it stood before this record. A second session on the same day leaves
// the streak untouched.
func updateStreak(a *models.Analytics, record models.SessionRecord, loc *time.Location) {
	today := record.Date
	yesterday := dayKey(record.Timestamp.AddDate(0, 0, -1), loc)

	sameDay, prevDay := false, false
	for _, past := range a.SessionHistory {
		switch past.Date {
		case today:
			sameDay = true
		case yesterday:
			prevDay = true
		}
	}

	switch {
	case sameDay:
		// already counted today
	case prevDay || a.Streak.Current == 0:
		a.Streak.Current++
	default:
		a.Streak.Current = 1
	}
	if a.Streak.Current > a.Streak.Best {
		a.Streak.Best = a.Streak.Current
	}
}

// -------- Achievements --------

const (
	achievementFirstIterative = "first_iterative"
	achievementPerfectScore   = "perfect_score"
	achievementBigImprovement = "big_improvement"
	achievementWeekStreak     = "week_streak"
)

var achievementTitles = map[string]string{
	achievementFirstIterative: "First Iterative Session",
	achievementPerfectScore:   "Perfect Breathing",
	achievementBigImprovement: "Big Improvement",
	achievementWeekStreak:     "7-Day Streak",
}

// evaluateAchievements unlocks any newly satisfied milestone. Insertion
// is idempotent: an id already present is never duplicated.
func evaluateAchievements(a *models.Analytics, record models.SessionRecord) {
	if record.SessionType == models.ModeIterative {
		award(a, achievementFirstIterative, record.Timestamp)
	}
	for _, score := range record.Scores {
		if score >= 95 {
			award(a, achievementPerfectScore, record.Timestamp)
			break
		}
	}
	if record.Improvement >= 20 {
		award(a, achievementBigImprovement, record.Timestamp)
	}
	// Fires on the day the streak reaches exactly 7, not on every day after.
	if a.Streak.Current == 7 {
		award(a, achievementWeekStreak, record.Timestamp)
	}
}

func award(a *models.Analytics, id string, at time.Time) {
	if a.HasAchievement(id) {
		return
	}
	a.Achievements = append(a.Achievements, models.Achievement{
		ID:         id,
		Title:      achievementTitles[id],
		UnlockedAt: at,
	})
}

// -------- History rebuild & merge --------

// RebuildFromHistory recomputes every aggregate by refolding the session
// history in timestamp order. Counters and means come out exactly as if
// the sessions had been absorbed one at a time.
func RebuildFromHistory(profileID string, history []models.SessionRecord, loc *time.Location) *models.Analytics {
	sorted := make([]models.SessionRecord, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	a := models.NewAnalytics(profileID)
	for _, rec := range sorted {
		applyRecord(a, rec, loc)
		a.UpdatedAt = rec.Timestamp
	}
	return a
}

// Merge reconciles two divergent copies of a profile's analytics, as
// happens when two devices absorb sessions independently. Histories are
// unioned and the aggregates rebuilt from scratch, so nothing is counted
// twice; achievements keep their earliest unlock time.
func Merge(a, b *models.Analytics, loc *time.Location) *models.Analytics {
	seen := map[string]bool{}
	var union []models.SessionRecord
	for _, rec := range append(append([]models.SessionRecord{}, a.SessionHistory...), b.SessionHistory...) {
		key := rec.Timestamp.UTC().Format(time.RFC3339Nano) + "|" + string(rec.Category)
		if seen[key] {
			continue
		}
		seen[key] = true
		union = append(union, rec)
	}

	merged := RebuildFromHistory(a.ProfileID, union, loc)

	earliest := map[string]time.Time{}
	for _, src := range [][]models.Achievement{a.Achievements, b.Achievements} {
		for _, ach := range src {
			if t, ok := earliest[ach.ID]; !ok || ach.UnlockedAt.Before(t) {
				earliest[ach.ID] = ach.UnlockedAt
			}
		}
	}
	for i, ach := range merged.Achievements {
		if t, ok := earliest[ach.ID]; ok && t.Before(ach.UnlockedAt) {
			merged.Achievements[i].UnlockedAt = t
		}
	}
	// An unlock is permanent even if the refolded union would no longer
	// reproduce it (e.g. a streak broken by the other device's history).
	for id, t := range earliest {
		if !merged.HasAchievement(id) {
			merged.Achievements = append(merged.Achievements, models.Achievement{
				ID:         id,
				Title:      achievementTitles[id],
				UnlockedAt: t,
			})
		}
	}
	return merged
}
