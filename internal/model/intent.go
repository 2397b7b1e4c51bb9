package model

import "strings"

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentFundamentals   Intent = "FUNDAMENTALS"
	IntentImplementation Intent = "IMPLEMENTATION"
	IntentComparison     Intent = "COMPARISON"
	IntentNews           Intent = "NEWS"
	IntentUnknown        Intent = "UNKNOWN"
)

// intentAttributes maps each intent to the profile attribute a tailored
// response needs. UNKNOWN has no requirement.
var intentAttributes = map[Intent]AttributeName{
	IntentFundamentals:   AttrTechnicalLevel,
	IntentImplementation: AttrProjectStage,
	IntentComparison:     AttrComparisonCriterion,
	IntentNews:           AttrInterestArea,
}

// RequiredAttribute returns the attribute an intent needs before a tailored
// response can be generated, and whether there is one.
func RequiredAttribute(intent Intent) (AttributeName, bool) {
	attr, ok := intentAttributes[intent]
	return attr, ok
}

// ParseIntent maps a classifier label onto a known intent, defaulting to
// UNKNOWN for anything unrecognized. Labels are matched case-insensitively
// and the legacy "LLM_" prefix is accepted.
func ParseIntent(label string) Intent {
	label = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(label)), "LLM_")
	switch Intent(label) {
	case IntentFundamentals, IntentImplementation, IntentComparison, IntentNews:
		return Intent(label)
	default:
		return IntentUnknown
	}
}
