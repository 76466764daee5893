package services

import (
	"math/rand"
	"testing"

	"breathemate/models"
)

func TestSelectNextCategoryFirstIteration(t *testing.T) {
	for _, cat := range models.Categories {
		if got := SelectNextCategory(cat, nil); got != cat {
			t.Errorf("no previous result: got %s, want caller's %s", got, cat)
		}
	}
}

func TestSelectNextCategoryEscalation(t *testing.T) {
	tests := []struct {
		name string
		prev models.IterationResult
		want models.Category
	}{
		{
			name: "high risk always redirects to healing support",
			prev: models.IterationResult{RiskLevel: models.RiskHigh, StressIndicator: 10, BreathingConsistency: 95},
			want: models.CategoryHealingSupport,
		},
		{
			name: "elevated stress wins over low consistency",
			prev: models.IterationResult{RiskLevel: models.RiskMedium, StressIndicator: 55, BreathingConsistency: 40},
			want: models.CategoryStressRelief,
		},
		{
			name: "low consistency targets respiratory strength",
			prev: models.IterationResult{RiskLevel: models.RiskLow, StressIndicator: 20, BreathingConsistency: 60},
			want: models.CategoryRespiratoryStrength,
		},
		{
			name: "good result settles on maintenance",
			prev: models.IterationResult{RiskLevel: models.RiskVeryLow, StressIndicator: 15, BreathingConsistency: 90},
			want: models.CategoryWellnessMaintenance,
		},
		{
			name: "stress exactly at threshold does not escalate",
			prev: models.IterationResult{RiskLevel: models.RiskLow, StressIndicator: 40, BreathingConsistency: 85},
			want: models.CategoryWellnessMaintenance,
		},
		{
			name: "consistency exactly at threshold does not escalate",
			prev: models.IterationResult{RiskLevel: models.RiskLow, StressIndicator: 10, BreathingConsistency: 70},
			want: models.CategoryWellnessMaintenance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The rule must hold regardless of the incoming category.
			for _, cat := range models.Categories {
				if got := SelectNextCategory(cat, &tt.prev); got != tt.want {
					t.Errorf("from %s: got %s, want %s", cat, got, tt.want)
				}
			}
		})
	}
}

func TestPromptForReturnsCategoryPrompt(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, cat := range models.Categories {
		prompt := PromptFor(cat, rng)
		if prompt == "" {
			t.Fatalf("empty prompt for %s", cat)
		}
		found := false
		for _, p := range categoryPrompts[cat] {
			if p == prompt {
				found = true
			}
		}
		if !found {
			t.Errorf("prompt for %s not drawn from its pool: %q", cat, prompt)
		}
	}
}
