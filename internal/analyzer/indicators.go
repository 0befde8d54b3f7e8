package analyzer

import "regexp"

// Indicator is a heuristic red flag found in an email's text.
type Indicator struct {
	Name    string
	Weight  int
	Action  string // recommendation shown when the indicator fires; empty for none
	pattern *regexp.Regexp
}

// Matches reports whether the indicator fires for lowercased text.
func (i *Indicator) Matches(lower string) bool {
	return i.pattern.MatchString(lower)
}

// Indicators are checked in this order; report lines and actions follow it.
var Indicators = []*Indicator{
	{
		Name:    "Contains external link(s)",
		Weight:  3,
		Action:  "Do not click links. Inspect carefully.",
		pattern: regexp.MustCompile(`https?://|www\.`),
	},
	{
		Name:    "Contains suspicious action words",
		Weight:  2,
		Action:  "Do not provide sensitive info. Verify sender.",
		pattern: regexp.MustCompile(`\b(verify|confirm|urgent|suspend|suspended|password|bank|account|billing|verify your|click here|update|login|wire transfer)\b`),
	},
	{
		Name:    "Mentions amounts or unusual numbers",
		Weight:  1,
		pattern: regexp.MustCompile(`\b\d{3,}\b|\$\d+`),
	},
	{
		Name:    "Mentions an attachment",
		Weight:  1,
		Action:  "Do not open attachments. Scan safely.",
		pattern: regexp.MustCompile(`\b(attachment|attached|pdf|docx|invoice)\b`),
	},
	{
		Name:    "Generic greeting",
		Weight:  1,
		Action:  "Generic greeting may indicate phishing.",
		pattern: regexp.MustCompile(`\b(dear user|dear customer|valued customer)\b`),
	},
}

// NoActionAdvice is recommended when no indicator carries an action.
const NoActionAdvice = "No immediate danger detected; stay cautious."
