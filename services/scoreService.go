package services

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"breathemate/models"
)

// Scorer produces one scored iteration from the raw capture. The engine
// only depends on this contract; a real analysis backend can replace the
// simulated implementation without touching the session machinery.
type Scorer interface {
	Score(iteration int, category models.Category, previous *models.IterationResult) (models.IterationResult, error)
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(int, models.Category, *models.IterationResult) (models.IterationResult, error)

func (f ScorerFunc) Score(iteration int, category models.Category, previous *models.IterationResult) (models.IterationResult, error) {
	return f(iteration, category, previous)
}

// Simulation tuning. With probability walkProbability a repeat attempt
// climbs toward 100 by walkFraction of the remaining headroom; otherwise
// it drifts by at most walkJitter in either direction.
const (
	baseScoreMin    = 55
	baseScoreMax    = 80
	walkProbability = 0.7
	walkFraction    = 0.3
	walkJitter      = 5
)

// Additive score modifier range per category, applied before clamping.
// Keeps each category's score distribution distinct.
var categoryModifiers = map[models.Category][2]int{
	models.CategoryRespiratoryStrength: {0, 6},
	models.CategoryStressRelief:        {-2, 4},
	models.CategoryHealingSupport:      {-4, 2},
	models.CategoryWellnessMaintenance: {1, 5},
}

// SimulatedScorer is the default Scorer: a bounded, diminishing-returns
// random walk with category-specific modifiers.
type SimulatedScorer struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewSimulatedScorer(seed int64) *SimulatedScorer {
	return &SimulatedScorer{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

func (s *SimulatedScorer) Score(iteration int, category models.Category, previous *models.IterationResult) (models.IterationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var score int
	if previous == nil {
		score = baseScoreMin + s.rng.Intn(baseScoreMax-baseScoreMin+1)
	} else if s.rng.Float64() < walkProbability {
		headroom := 100 - previous.HealthScore
		score = previous.HealthScore + int(math.Round(float64(headroom)*walkFraction))
	} else {
		score = previous.HealthScore + s.rng.Intn(2*walkJitter+1) - walkJitter
	}

	mod := categoryModifiers[category]
	score += mod[0] + s.rng.Intn(mod[1]-mod[0]+1)
	score = clampScore(score)

	res := models.IterationResult{
		Iteration:            iteration,
		HealthScore:          score,
		RiskLevel:            models.RiskFromScore(score),
		RiskPercentage:       100 - score,
		Category:             category,
		BreathingConsistency: clampScore(score - 10 + s.rng.Intn(21)),
		StressIndicator:      clampScore(100 - score - 10 + s.rng.Intn(21)),
		BreathingRate:        12 + s.rng.Intn(10),
		Interruptions:        1 + s.rng.Intn(8),
		Timestamp:            s.now(),
	}
	if previous != nil {
		res.Improvement = score - previous.HealthScore
	}
	return res, nil
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ValidateIteration rejects results that would break analytics invariants.
// A rejected result is never appended to a session or stored.
func ValidateIteration(res models.IterationResult, wantIteration int) error {
	if res.HealthScore < 0 || res.HealthScore > 100 {
		return fmt.Errorf("health score %d outside [0,100]", res.HealthScore)
	}
	if res.Iteration != wantIteration {
		return fmt.Errorf("iteration index %d, expected %d", res.Iteration, wantIteration)
	}
	if res.RiskLevel != models.RiskFromScore(res.HealthScore) {
		return fmt.Errorf("risk level %q inconsistent with score %d", res.RiskLevel, res.HealthScore)
	}
	return nil
}
