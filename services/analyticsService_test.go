package services

import (
	"errors"
	"testing"
	"time"

	"breathemate/models"
)

func testIteration(i, score int, cat models.Category, ts time.Time) models.IterationResult {
	return models.IterationResult{
		Iteration:      i,
		HealthScore:    score,
		RiskLevel:      models.RiskFromScore(score),
		RiskPercentage: 100 - score,
		Category:       cat,
		Timestamp:      ts,
	}
}

func testSession(mode models.SessionMode, cat models.Category, ts time.Time, scores ...int) *models.Session {
	s := &models.Session{
		ID:        "test-session",
		ProfileID: "profile-1",
		Mode:      mode,
		Phase:     models.PhaseComplete,
		Category:  cat,
		StartedAt: ts,
	}
	for i, score := range scores {
		s.Iterations = append(s.Iterations, testIteration(i+1, score, cat, ts))
	}
	return s
}

func mustAbsorb(t *testing.T, a *models.Analytics, s *models.Session, at time.Time) *models.Analytics {
	t.Helper()
	out, _, err := Absorb(a, s, at, time.UTC)
	if err != nil {
		t.Fatalf("absorb: %v", err)
	}
	return out
}

var day1 = time.Date(2025, 7, 14, 9, 0, 0, 0, time.UTC) // a Monday

func TestAbsorbFirstSingleSession(t *testing.T) {
	a := models.NewAnalytics("profile-1")
	session := testSession(models.ModeSingle, models.CategoryWellnessMaintenance, day1, 72)

	out, record, err := Absorb(a, session, day1, time.UTC)
	if err != nil {
		t.Fatal(err)
	}

	if len(out.SessionHistory) != 1 {
		t.Fatalf("history length = %d, want 1", len(out.SessionHistory))
	}
	if len(record.Scores) != 1 || record.Scores[0] != 72 {
		t.Errorf("scores = %v, want [72]", record.Scores)
	}
	if record.Improvement != 0 {
		t.Errorf("improvement = %d, want 0 for a single iteration", record.Improvement)
	}
	if out.Streak.Current != 1 || out.Streak.Best != 1 {
		t.Errorf("streak = %+v, want current 1 best 1", out.Streak)
	}

	wk := out.WeeklyProgress["2025-W29"]
	if wk.Sessions != 1 || wk.AvgScore != 72 {
		t.Errorf("weekly = %+v, want 1 session avg 72", wk)
	}
	cs := out.CategoryPerformance[models.CategoryWellnessMaintenance]
	if cs.Sessions != 1 || cs.AvgScore != 72 || cs.BestScore != 72 {
		t.Errorf("category stats = %+v", cs)
	}

	// Input aggregate must be untouched.
	if len(a.SessionHistory) != 0 || a.Streak.Current != 0 {
		t.Error("absorb mutated its input")
	}
}

func TestAbsorbIterativeSession(t *testing.T) {
	a := models.NewAnalytics("profile-1")
	session := testSession(models.ModeIterative, models.CategoryRespiratoryStrength, day1, 60, 74, 81)

	out, record, err := Absorb(a, session, day1, time.UTC)
	if err != nil {
		t.Fatal(err)
	}

	if record.Improvement != 21 {
		t.Errorf("improvement = %d, want 21", record.Improvement)
	}
	if record.IterationCount != 3 {
		t.Errorf("iteration count = %d, want 3", record.IterationCount)
	}
	cs := out.CategoryPerformance[models.CategoryRespiratoryStrength]
	if cs.BestScore < 71.66 || cs.BestScore > 71.67 {
		t.Errorf("best score = %v, want mean of [60 74 81]", cs.BestScore)
	}
	if !out.HasAchievement("first_iterative") {
		t.Error("first iterative session did not unlock first_iterative")
	}
	if !out.HasAchievement("big_improvement") {
		t.Error("improvement of 21 did not unlock big_improvement")
	}
}

func TestAbsorbEmptySession(t *testing.T) {
	a := models.NewAnalytics("profile-1")
	session := testSession(models.ModeSingle, models.CategoryStressRelief, day1)

	out, _, err := Absorb(a, session, day1, time.UTC)
	if !errors.Is(err, ErrEmptySession) {
		t.Fatalf("err = %v, want ErrEmptySession", err)
	}
	if out != a {
		t.Error("failed absorb should return the prior aggregate unchanged")
	}
}

func TestAbsorbRejectsInvalidScore(t *testing.T) {
	a := models.NewAnalytics("profile-1")
	session := testSession(models.ModeSingle, models.CategoryStressRelief, day1)
	bad := testIteration(1, 72, models.CategoryStressRelief, day1)
	bad.HealthScore = 120
	bad.RiskLevel = models.RiskVeryLow
	session.Iterations = append(session.Iterations, bad)

	if _, _, err := Absorb(a, session, day1, time.UTC); err == nil {
		t.Fatal("out-of-range score must be rejected")
	}
	if len(a.SessionHistory) != 0 {
		t.Error("rejected session reached analytics")
	}
}

func TestStreakProgression(t *testing.T) {
	a := models.NewAnalytics("profile-1")
	cat := models.CategoryWellnessMaintenance

	a = mustAbsorb(t, a, testSession(models.ModeSingle, cat, day1, 70), day1)
	if a.Streak.Current != 1 {
		t.Fatalf("day 1: current = %d, want 1", a.Streak.Current)
	}

	day2 := day1.AddDate(0, 0, 1)
	a = mustAbsorb(t, a, testSession(models.ModeSingle, cat, day2, 71), day2)
	if a.Streak.Current != 2 || a.Streak.Best != 2 {
		t.Fatalf("day 2: streak = %+v, want current 2 best 2", a.Streak)
	}

	// Second session on the same day does not re-count.
	a = mustAbsorb(t, a, testSession(models.ModeSingle, cat, day2, 75), day2)
	if a.Streak.Current != 2 {
		t.Fatalf("same day repeat: current = %d, want 2", a.Streak.Current)
	}

	// A 2+ day gap resets the current streak but keeps the best.
	day5 := day1.AddDate(0, 0, 4)
	a = mustAbsorb(t, a, testSession(models.ModeSingle, cat, day5, 68), day5)
	if a.Streak.Current != 1 || a.Streak.Best != 2 {
		t.Fatalf("after gap: streak = %+v, want current 1 best 2", a.Streak)
	}
}

func TestStreakInvariantHolds(t *testing.T) {
	a := models.NewAnalytics("profile-1")
	cat := models.CategoryHealingSupport
	days := []int{0, 1, 2, 5, 6, 7, 8, 9, 20}
	for _, offset := range days {
		at := day1.AddDate(0, 0, offset)
		a = mustAbsorb(t, a, testSession(models.ModeSingle, cat, at, 70), at)
		if a.Streak.Current > a.Streak.Best {
			t.Fatalf("day offset %d: current %d exceeds best %d", offset, a.Streak.Current, a.Streak.Best)
		}
	}
}

func TestWeekStreakAchievementFiresAtSeven(t *testing.T) {
	a := models.NewAnalytics("profile-1")
	cat := models.CategoryWellnessMaintenance
	for offset := 0; offset < 6; offset++ {
		at := day1.AddDate(0, 0, offset)
		a = mustAbsorb(t, a, testSession(models.ModeSingle, cat, at, 70), at)
	}
	if a.HasAchievement(achievementWeekStreak) {
		t.Fatal("week_streak unlocked before day 7")
	}
	day7 := day1.AddDate(0, 0, 6)
	a = mustAbsorb(t, a, testSession(models.ModeSingle, cat, day7, 70), day7)
	if !a.HasAchievement(achievementWeekStreak) {
		t.Fatal("week_streak not unlocked on day 7")
	}
}

func TestAchievementAwardingIsIdempotent(t *testing.T) {
	a := models.NewAnalytics("profile-1")
	cat := models.CategoryRespiratoryStrength

	// Three qualifying iterations in one session: one unlock.
	a = mustAbsorb(t, a, testSession(models.ModeIterative, cat, day1, 96, 97, 98), day1)
	// A later qualifying session: still one unlock.
	day2 := day1.AddDate(0, 0, 1)
	a = mustAbsorb(t, a, testSession(models.ModeIterative, cat, day2, 95), day2)

	count := 0
	for _, ach := range a.Achievements {
		if ach.ID == achievementPerfectScore {
			count++
		}
	}
	if count != 1 {
		t.Errorf("perfect_score awarded %d times, want exactly 1", count)
	}
}

func TestPartialSessionStillSummarized(t *testing.T) {
	a := models.NewAnalytics("profile-1")
	// Only 2 of the planned 3 iterations happened before a failure.
	session := testSession(models.ModeIterative, models.CategoryStressRelief, day1, 64, 70)

	out, record, err := Absorb(a, session, day1, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.SessionHistory) != 1 || record.IterationCount != 2 {
		t.Errorf("partial session: history %d records, count %d; want 1 and 2",
			len(out.SessionHistory), record.IterationCount)
	}
}

func TestIncrementalMeanMatchesRunningCount(t *testing.T) {
	a := models.NewAnalytics("profile-1")
	cat := models.CategoryWellnessMaintenance
	scores := [][]int{{60}, {80}, {70, 90}}
	for i, s := range scores {
		at := day1.AddDate(0, 0, i)
		a = mustAbsorb(t, a, testSession(models.ModeSingle, cat, at, s...), at)
	}
	cs := a.CategoryPerformance[cat]
	if cs.Sessions != 3 {
		t.Fatalf("sessions = %d, want 3", cs.Sessions)
	}
	want := (60.0 + 80.0 + 80.0) / 3.0
	if diff := cs.AvgScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("avg = %v, want %v", cs.AvgScore, want)
	}
}

func TestRebuildMatchesSequentialAbsorb(t *testing.T) {
	a := models.NewAnalytics("profile-1")
	cat := models.CategoryHealingSupport
	for i := 0; i < 5; i++ {
		at := day1.AddDate(0, 0, i)
		a = mustAbsorb(t, a, testSession(models.ModeIterative, cat, at, 60+i, 70+i), at)
	}

	rebuilt := RebuildFromHistory("profile-1", a.SessionHistory, time.UTC)
	if rebuilt.Streak != a.Streak {
		t.Errorf("rebuilt streak %+v != absorbed %+v", rebuilt.Streak, a.Streak)
	}
	if got, want := rebuilt.CategoryPerformance[cat], a.CategoryPerformance[cat]; got != want {
		t.Errorf("rebuilt category stats %+v != absorbed %+v", got, want)
	}
	if len(rebuilt.WeeklyProgress) != len(a.WeeklyProgress) {
		t.Errorf("rebuilt weeks %d != absorbed %d", len(rebuilt.WeeklyProgress), len(a.WeeklyProgress))
	}
}

func TestMergeDoesNotDoubleCount(t *testing.T) {
	base := models.NewAnalytics("profile-1")
	cat := models.CategoryWellnessMaintenance
	base = mustAbsorb(t, base, testSession(models.ModeSingle, cat, day1, 70), day1)

	// Both devices share day1, then each records one extra session.
	day2 := day1.AddDate(0, 0, 1)
	day3 := day1.AddDate(0, 0, 2)
	deviceA := mustAbsorb(t, base, testSession(models.ModeSingle, cat, day2, 80), day2)
	deviceB := mustAbsorb(t, base, testSession(models.ModeSingle, cat, day3, 90), day3)

	merged := Merge(deviceA, deviceB, time.UTC)
	if len(merged.SessionHistory) != 3 {
		t.Fatalf("merged history = %d records, want 3", len(merged.SessionHistory))
	}
	cs := merged.CategoryPerformance[cat]
	if cs.Sessions != 3 {
		t.Errorf("merged sessions = %d, want 3 (shared record counted once)", cs.Sessions)
	}
	want := (70.0 + 80.0 + 90.0) / 3.0
	if diff := cs.AvgScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("merged avg = %v, want %v", cs.AvgScore, want)
	}
	if merged.Streak.Current != 3 {
		t.Errorf("merged streak = %+v, want current 3", merged.Streak)
	}
}
