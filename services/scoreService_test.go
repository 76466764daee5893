package services

import (
	"testing"
	"time"

	"breathemate/models"
)

func TestRiskFromScorePartition(t *testing.T) {
	tests := []struct {
		score int
		want  models.RiskLevel
	}{
		{100, models.RiskVeryLow},
		{90, models.RiskVeryLow},
		{89, models.RiskLow},
		{75, models.RiskLow},
		{74, models.RiskMedium},
		{50, models.RiskMedium},
		{49, models.RiskHigh},
		{0, models.RiskHigh},
	}
	for _, tt := range tests {
		if got := models.RiskFromScore(tt.score); got != tt.want {
			t.Errorf("RiskFromScore(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestSimulatedScorerClamping(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		scorer := NewSimulatedScorer(seed)
		var prev *models.IterationResult
		for i := 1; i <= 10; i++ {
			cat := models.Categories[int(seed)%len(models.Categories)]
			res, err := scorer.Score(i, cat, prev)
			if err != nil {
				t.Fatalf("seed %d iteration %d: %v", seed, i, err)
			}
			if res.HealthScore < 0 || res.HealthScore > 100 {
				t.Fatalf("seed %d iteration %d: score %d outside [0,100]", seed, i, res.HealthScore)
			}
			if err := ValidateIteration(res, i); err != nil {
				t.Fatalf("seed %d iteration %d: %v", seed, i, err)
			}
			p := res
			prev = &p
		}
	}
}

func TestSimulatedScorerImprovement(t *testing.T) {
	scorer := NewSimulatedScorer(7)
	first, err := scorer.Score(1, models.CategoryRespiratoryStrength, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.Improvement != 0 {
		t.Errorf("first iteration improvement = %d, want 0", first.Improvement)
	}
	second, err := scorer.Score(2, models.CategoryRespiratoryStrength, &first)
	if err != nil {
		t.Fatal(err)
	}
	if got := second.HealthScore - first.HealthScore; second.Improvement != got {
		t.Errorf("improvement = %d, want score delta %d", second.Improvement, got)
	}
}

func TestSimulatedScorerRiskPercentage(t *testing.T) {
	scorer := NewSimulatedScorer(11)
	res, err := scorer.Score(1, models.CategoryStressRelief, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.RiskPercentage != 100-res.HealthScore {
		t.Errorf("risk percentage %d, want %d", res.RiskPercentage, 100-res.HealthScore)
	}
}

func TestValidateIteration(t *testing.T) {
	now := time.Now()
	valid := models.IterationResult{
		Iteration:   1,
		HealthScore: 72,
		RiskLevel:   models.RiskMedium,
		Timestamp:   now,
	}

	tests := []struct {
		name    string
		mutate  func(*models.IterationResult)
		wantErr bool
	}{
		{"valid result", func(r *models.IterationResult) {}, false},
		{"score above 100", func(r *models.IterationResult) { r.HealthScore = 104; r.RiskLevel = models.RiskVeryLow }, true},
		{"negative score", func(r *models.IterationResult) { r.HealthScore = -3; r.RiskLevel = models.RiskHigh }, true},
		{"wrong iteration index", func(r *models.IterationResult) { r.Iteration = 2 }, true},
		{"risk band mismatch", func(r *models.IterationResult) { r.RiskLevel = models.RiskVeryLow }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := valid
			tt.mutate(&res)
			err := ValidateIteration(res, 1)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
