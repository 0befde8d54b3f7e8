package analyzer

import "github.com/hyperjump/phishrag/internal/vector"

// Risk is the overall assessment of an email.
type Risk string

const (
	RiskLow    Risk = "LOW"
	RiskMedium Risk = "MEDIUM"
	RiskHigh   Risk = "HIGH"
)

// Score thresholds for RiskFromScore.
const (
	HighThreshold   = 6
	MediumThreshold = 3
)

// RiskFromScore maps an additive score to a risk level.
func RiskFromScore(score int) Risk {
	switch {
	case score >= HighThreshold:
		return RiskHigh
	case score >= MediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Label is the predicted class for a risk level.
func (r Risk) Label() vector.Label {
	switch r {
	case RiskHigh:
		return vector.LabelPhishing
	case RiskMedium:
		return vector.LabelSuspicious
	default:
		return vector.LabelSafe
	}
}

// Verdict is the closing sentence of the report.
func (r Risk) Verdict() string {
	switch r {
	case RiskHigh:
		return "Likely phishing. Do not interact."
	case RiskMedium:
		return "Possibly phishing. Verify before interacting."
	default:
		return "Low immediate signs; stay cautious."
	}
}
