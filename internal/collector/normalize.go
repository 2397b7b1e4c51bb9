package collector

import (
	"regexp"
	"strings"

	"github.com/converso-ai/dialogue-engine/internal/model"
)

// namePatterns match common self-introductions.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:i am|i'm|call me|name is|this is)\s+([A-Za-z][a-z]+)`),
	regexp.MustCompile(`(?i)^([A-Za-z][a-z]+)\s+here\b`),
}

// Normalize maps a raw user answer onto the canonical value for an
// attribute. It never fails: unrecognized input is returned as-is with
// recognized=false so the caller can store it at low confidence.
func Normalize(attr model.AttributeName, raw string) (string, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))

	switch attr {
	case model.AttrName:
		for _, pattern := range namePatterns {
			if match := pattern.FindStringSubmatch(strings.TrimSpace(raw)); match != nil {
				return capitalize(match[1]), true
			}
		}
		// A one or two word answer to "what's your name" is the name.
		words := strings.Fields(strings.TrimSpace(raw))
		if len(words) >= 1 && len(words) <= 2 {
			return capitalize(strings.Join(words, " ")), true
		}
		return strings.TrimSpace(raw), false

	case model.AttrTechnicalLevel:
		switch {
		case containsAny(value, "begin", "new", "basic", "just starting", "starting out"):
			return "beginner", true
		case containsAny(value, "inter", "some", "familiar"):
			return "intermediate", true
		case containsAny(value, "adv", "expert", "experienc"):
			return "advanced", true
		}

	case model.AttrProjectStage:
		switch {
		case containsAny(value, "plan", "start", "idea"):
			return "planning", true
		case containsAny(value, "dev", "build", "implement"):
			return "development", true
		case containsAny(value, "opt", "tun", "refin"):
			return "optimization", true
		}

	case model.AttrComparisonCriterion:
		switch {
		case containsAny(value, "acc", "qual", "perform"):
			return "accuracy", true
		case containsAny(value, "speed", "fast", "quick"):
			return "speed", true
		case containsAny(value, "cost", "price", "cheap", "afford"):
			return "cost", true
		}

	case model.AttrInterestArea:
		switch {
		case containsAny(value, "research", "acad", "paper", "theory"):
			return "research", true
		case containsAny(value, "app", "pract", "indus", "use"):
			return "applications", true
		}

	case model.AttrDepthPreference:
		switch {
		case containsAny(value, "brief", "short", "quick", "overview"):
			return "brief", true
		case containsAny(value, "standard", "normal", "regular"):
			return "standard", true
		case containsAny(value, "detail", "in-depth", "thorough", "technical"):
			return "detailed", true
		}
	}

	return strings.TrimSpace(raw), false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
