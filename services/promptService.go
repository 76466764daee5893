package services

import (
	"math/rand"

	"breathemate/models"
)

// -------- Adaptive prompt selection --------

// Escalation thresholds read from the previous iteration's breakdown.
var (
	stressThreshold      = 40
	consistencyThreshold = 70
)

// SelectNextCategory picks the category for the next iteration. With no
// previous result the caller's choice stands (first iteration is the
// baseline). Otherwise a poor result redirects toward a more supportive
// category instead of repeating the same one; first matching rule wins.
func SelectNextCategory(category models.Category, previous *models.IterationResult) models.Category {
	if previous == nil {
		return category
	}
	switch {
	case previous.RiskLevel == models.RiskHigh:
		return models.CategoryHealingSupport
	case previous.StressIndicator > stressThreshold:
		return models.CategoryStressRelief
	case previous.BreathingConsistency < consistencyThreshold:
		return models.CategoryRespiratoryStrength
	default:
		return models.CategoryWellnessMaintenance
	}
}

// Reading prompts shown during the settle phase, bucketed by category.
var categoryPrompts = map[models.Category][]string{
	models.CategoryRespiratoryStrength: {
		"The air is fresh and clean today, and I feel calm and relaxed while taking deep breaths.",
		"Walking slowly through the forest allows me to appreciate the clean, crisp mountain air.",
		"The warm sunshine on my face makes me want to take long, satisfying breaths.",
	},
	models.CategoryStressRelief: {
		"Sitting quietly by the lake, I can hear my breathing sync with the gentle waves.",
		"The sound of rain on the roof creates a perfect atmosphere for deep, restful breathing.",
		"During meditation, I focus on the rhythm of my breathing and feel completely at peace.",
	},
	models.CategoryHealingSupport: {
		"Breathe slowly and feel each breath bring healing energy to your body and mind.",
		"Reading books in the peaceful garden helps me breathe more easily and deeply.",
		"The cool evening air fills my lungs as I watch the beautiful sunset paint the sky.",
	},
	models.CategoryWellnessMaintenance: {
		"The gentle morning breeze carries the sweet scent of blooming flowers across the meadow.",
		"Yoga practice helps me coordinate my breathing with gentle, flowing movements.",
	},
}

// PromptFor returns a reading prompt for the category.
func PromptFor(category models.Category, rng *rand.Rand) string {
	pool := categoryPrompts[category]
	if len(pool) == 0 {
		pool = categoryPrompts[models.CategoryWellnessMaintenance]
	}
	return pool[rng.Intn(len(pool))]
}
