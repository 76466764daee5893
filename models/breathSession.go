package models

import "time"

// IterationResult is one scored breathing attempt. Created by the scorer
// when a recording phase ends and immutable afterwards.
type IterationResult struct {
	Iteration      int       `bson:"iteration" json:"iteration"` // 1-based within its session
	HealthScore    int       `bson:"health_score" json:"health_score"`
	RiskLevel      RiskLevel `bson:"risk_level" json:"risk_level"`
	RiskPercentage int       `bson:"risk_percentage" json:"risk_percentage"`
	Category       Category  `bson:"category" json:"category"`
	Improvement    int       `bson:"improvement" json:"improvement"` // vs previous iteration, 0 for the first

	// Breakdown metrics from the analysis, read by the prompt selector.
	BreathingConsistency int `bson:"breathing_consistency" json:"breathing_consistency"` // 0-100
	StressIndicator      int `bson:"stress_indicator" json:"stress_indicator"`           // 0-100
	BreathingRate        int `bson:"breathing_rate" json:"breathing_rate"`               // breaths/min
	Interruptions        int `bson:"interruptions" json:"interruptions"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

type SessionMode string

const (
	ModeSingle    SessionMode = "single"
	ModeIterative SessionMode = "iterative"
)

// Phase is the session state machine position.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhasePrompt           Phase = "prompt"
	PhaseRecording        Phase = "recording"
	PhaseAnalyzing        Phase = "analyzing"
	PhaseAwaitingDecision Phase = "awaiting_decision"
	PhaseComplete         Phase = "complete"
)

// Session is one user-initiated recording loop. It lives in memory only;
// the terminal state is summarized into Analytics and the object discarded.
type Session struct {
	ID         string            `json:"id"`
	ProfileID  string            `json:"profile_id"`
	Mode       SessionMode       `json:"mode"`
	Phase      Phase             `json:"phase"`
	Category   Category          `json:"category"` // current, moved by the selector between iterations
	Iterations []IterationResult `json:"iterations"`
	StartedAt  time.Time         `json:"started_at"`
}

// LastIteration returns the most recent result, or nil before the first.
func (s *Session) LastIteration() *IterationResult {
	if len(s.Iterations) == 0 {
		return nil
	}
	return &s.Iterations[len(s.Iterations)-1]
}
