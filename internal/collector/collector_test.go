package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converso-ai/dialogue-engine/internal/classifier"
	"github.com/converso-ai/dialogue-engine/internal/model"
	"github.com/converso-ai/dialogue-engine/pkg/logger"
)

type stubExtractor struct {
	extraction *classifier.Extraction
	err        error
}

func (s *stubExtractor) ClassifyRelevance(ctx context.Context, text string, history []model.Turn) (*classifier.RelevanceJudgment, error) {
	return nil, s.err
}

func (s *stubExtractor) ClassifyIntent(ctx context.Context, text string, history []model.Turn) (*classifier.IntentJudgment, error) {
	return nil, s.err
}

func (s *stubExtractor) DetectFollowUp(ctx context.Context, text string, history []model.Turn) (*classifier.FollowUpJudgment, error) {
	return nil, s.err
}

func (s *stubExtractor) ExtractAttributes(ctx context.Context, text string) (*classifier.Extraction, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.extraction == nil {
		return &classifier.Extraction{}, nil
	}
	return s.extraction, nil
}

func newTestCollector(stub *stubExtractor) *Collector {
	return New(stub, Config{
		CollectionThreshold:   0.6,
		OnboardingMaxAttempts: 2,
		ExtractionTimeout:     time.Second,
	}, logger.NewNop())
}

func TestOnboardingSequenceFollowsCoreOrder(t *testing.T) {
	c := newTestCollector(&stubExtractor{})
	p := model.NewUserProfile("u1")

	attr, ok := c.NextOnboardingAttribute(p)
	require.True(t, ok)
	assert.Equal(t, model.AttrName, attr)

	require.NoError(t, c.HandleExplicitAnswer(p, model.AttrName, "I'm Alice"))
	attr, ok = c.NextOnboardingAttribute(p)
	require.True(t, ok)
	assert.Equal(t, model.AttrTechnicalLevel, attr)

	require.NoError(t, c.HandleExplicitAnswer(p, model.AttrTechnicalLevel, "pretty advanced"))
	attr, ok = c.NextOnboardingAttribute(p)
	require.True(t, ok)
	assert.Equal(t, model.AttrInterestArea, attr)

	require.NoError(t, c.HandleExplicitAnswer(p, model.AttrInterestArea, "practical applications"))
	_, ok = c.NextOnboardingAttribute(p)
	assert.False(t, ok)
	assert.False(t, c.IsInOnboarding(p))
}

func TestOnboardingAttemptBudgetExhausts(t *testing.T) {
	c := newTestCollector(&stubExtractor{})
	p := model.NewUserProfile("u1")
	require.NoError(t, p.UpdateAttribute(model.AttrName, "Alice", 0.95, model.SourceExplicit))
	require.NoError(t, p.UpdateAttribute(model.AttrInterestArea, "research", 0.95, model.SourceExplicit))

	// Two unusable answers consume the budget for technical_level.
	c.Question(p, model.AttrTechnicalLevel)
	require.NoError(t, c.HandleExplicitAnswer(p, model.AttrTechnicalLevel, "the weather is nice"))
	attr, ok := c.NextOnboardingAttribute(p)
	require.True(t, ok)
	require.Equal(t, model.AttrTechnicalLevel, attr)

	c.Question(p, model.AttrTechnicalLevel)
	require.NoError(t, c.HandleExplicitAnswer(p, model.AttrTechnicalLevel, "blue, probably"))

	_, ok = c.NextOnboardingAttribute(p)
	assert.False(t, ok)

	// The raw answer was kept at low confidence rather than discarded.
	got := p.Attributes[model.AttrTechnicalLevel]
	assert.Equal(t, model.SourceImplicit, got.Source)
	assert.LessOrEqual(t, got.Confidence, model.DefaultCeiling)
}

func TestSkipSettlesAttributeForSession(t *testing.T) {
	c := newTestCollector(&stubExtractor{})
	p := model.NewUserProfile("u1")

	c.Question(p, model.AttrInterestArea)
	require.NoError(t, c.HandleExplicitAnswer(p, model.AttrInterestArea, "rather not say"))

	got := p.Attributes[model.AttrInterestArea]
	assert.Equal(t, model.SourceDefault, got.Source)
	assert.Equal(t, "research", got.Value)

	ok, _ := c.CheckOpportunity(p, model.IntentNews)
	assert.False(t, ok)
}

func TestCheckOpportunity(t *testing.T) {
	c := newTestCollector(&stubExtractor{})
	p := model.NewUserProfile("u1")

	ok, attr := c.CheckOpportunity(p, model.IntentImplementation)
	assert.True(t, ok)
	assert.Equal(t, model.AttrProjectStage, attr)

	// UNKNOWN has no required attribute.
	ok, _ = c.CheckOpportunity(p, model.IntentUnknown)
	assert.False(t, ok)

	// A satisfied attribute is not asked about.
	require.NoError(t, p.UpdateAttribute(model.AttrProjectStage, "development", 0.9, model.SourceExplicit))
	ok, _ = c.CheckOpportunity(p, model.IntentImplementation)
	assert.False(t, ok)

	// Asking once blocks further asks even if confidence stays low.
	p2 := model.NewUserProfile("u2")
	c2 := newTestCollector(&stubExtractor{})
	c2.Question(p2, model.AttrProjectStage)
	ok, _ = c2.CheckOpportunity(p2, model.IntentImplementation)
	assert.False(t, ok)
}

func TestQuestionPersonalizesWithKnownName(t *testing.T) {
	c := newTestCollector(&stubExtractor{})
	p := model.NewUserProfile("u1")
	require.NoError(t, p.UpdateAttribute(model.AttrName, "Alice", 0.95, model.SourceExplicit))

	q := c.Question(p, model.AttrTechnicalLevel)
	assert.Contains(t, q, "Alice, ")
}

func TestExtractImplicitAppliesMergeRule(t *testing.T) {
	stub := &stubExtractor{extraction: &classifier.Extraction{
		TechnicalLevel: "advanced",
		ProjectStage:   "optimization",
		Confidence:     0.7,
	}}
	c := newTestCollector(stub)
	p := model.NewUserProfile("u1")
	// An explicit observation must survive implicit evidence.
	require.NoError(t, p.UpdateAttribute(model.AttrTechnicalLevel, "beginner", 0.95, model.SourceExplicit))

	updated := c.ExtractImplicit(context.Background(), p, "we're deep into optimization now")

	assert.Equal(t, []model.AttributeName{model.AttrProjectStage}, updated)
	assert.Equal(t, "beginner", p.AttributeValue(model.AttrTechnicalLevel))
	assert.Equal(t, "optimization", p.AttributeValue(model.AttrProjectStage))
	assert.Equal(t, model.SourceImplicit, p.Attributes[model.AttrProjectStage].Source)
}

func TestExtractImplicitFailureIsSilent(t *testing.T) {
	c := newTestCollector(&stubExtractor{err: assert.AnError})
	p := model.NewUserProfile("u1")

	assert.Nil(t, c.ExtractImplicit(context.Background(), p, "I'm Alice, a beginner"))
}

func TestIsSkip(t *testing.T) {
	assert.True(t, IsSkip("skip"))
	assert.True(t, IsSkip("I'd rather not say"))
	assert.True(t, IsSkip("no"))
	assert.False(t, IsSkip("beginner"))
	assert.False(t, IsSkip("accuracy"))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		attr       model.AttributeName
		raw        string
		want       string
		recognized bool
	}{
		{model.AttrName, "I'm Alice", "Alice", true},
		{model.AttrName, "my name is Bob", "Bob", true},
		{model.AttrName, "Charlie here", "Charlie", true},
		{model.AttrName, "Dana", "Dana", true},
		{model.AttrName, "you can just keep guessing forever", "you can just keep guessing forever", false},
		{model.AttrTechnicalLevel, "I'm just starting out", "beginner", true},
		{model.AttrTechnicalLevel, "fairly experienced with transformers", "advanced", true},
		{model.AttrTechnicalLevel, "purple", "purple", false},
		{model.AttrProjectStage, "still planning", "planning", true},
		{model.AttrProjectStage, "we're building it now", "development", true},
		{model.AttrComparisonCriterion, "speed is key", "speed", true},
		{model.AttrComparisonCriterion, "whatever is cheapest", "cost", true},
		{model.AttrInterestArea, "mostly academic papers", "research", true},
		{model.AttrInterestArea, "practical industry use", "applications", true},
		{model.AttrDepthPreference, "keep it brief", "brief", true},
		{model.AttrDepthPreference, "in-depth technical details", "detailed", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, recognized := Normalize(tt.attr, tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.recognized, recognized)
		})
	}
}
