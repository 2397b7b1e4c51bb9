package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		label string
		want  Intent
	}{
		{"LLM_FUNDAMENTALS", IntentFundamentals},
		{"llm_fundamentals", IntentFundamentals},
		{"LLM_IMPLEMENTATION", IntentImplementation},
		{"LLM_COMPARISON", IntentComparison},
		{"LLM_NEWS", IntentNews},
		{"UNKNOWN", IntentUnknown},
		{"garbage", IntentUnknown},
		{"", IntentUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseIntent(tt.label), "label %q", tt.label)
	}
}

func TestRequiredAttribute(t *testing.T) {
	attr, ok := RequiredAttribute(IntentFundamentals)
	assert.True(t, ok)
	assert.Equal(t, AttrTechnicalLevel, attr)

	attr, ok = RequiredAttribute(IntentImplementation)
	assert.True(t, ok)
	assert.Equal(t, AttrProjectStage, attr)

	attr, ok = RequiredAttribute(IntentComparison)
	assert.True(t, ok)
	assert.Equal(t, AttrComparisonCriterion, attr)

	attr, ok = RequiredAttribute(IntentNews)
	assert.True(t, ok)
	assert.Equal(t, AttrInterestArea, attr)

	_, ok = RequiredAttribute(IntentUnknown)
	assert.False(t, ok)
}

func TestTemplateFor(t *testing.T) {
	assert.Equal(t, TemplateFundamentals, TemplateFor(IntentFundamentals))
	assert.Equal(t, TemplateNews, TemplateFor(IntentNews))
	assert.Equal(t, TemplateFallback, TemplateFor(IntentUnknown))
	assert.Equal(t, TemplateFallback, TemplateFor(Intent("")))
}
