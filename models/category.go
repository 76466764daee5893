package models

import "fmt"

// Category buckets steer which affirmation prompt is shown and which
// score modifier applies during simulation.
type Category string

const (
	CategoryRespiratoryStrength Category = "respiratory_strength"
	CategoryStressRelief        Category = "stress_relief"
	CategoryHealingSupport      Category = "healing_support"
	CategoryWellnessMaintenance Category = "wellness_maintenance"
)

// Categories is the closed set of valid categories.
var Categories = []Category{
	CategoryRespiratoryStrength,
	CategoryStressRelief,
	CategoryHealingSupport,
	CategoryWellnessMaintenance,
}

func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

type RiskLevel string

const (
	RiskVeryLow RiskLevel = "Very Low"
	RiskLow     RiskLevel = "Low"
	RiskMedium  RiskLevel = "Medium"
	RiskHigh    RiskLevel = "High"
)

// RiskFromScore maps a 0-100 health score onto its risk band. The bands
// partition [0,100] completely: >=90 Very Low, 75-89 Low, 50-74 Medium,
// below 50 High.
func RiskFromScore(score int) RiskLevel {
	switch {
	case score >= 90:
		return RiskVeryLow
	case score >= 75:
		return RiskLow
	case score >= 50:
		return RiskMedium
	default:
		return RiskHigh
	}
}
