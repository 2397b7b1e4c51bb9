package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converso-ai/dialogue-engine/internal/classifier"
	"github.com/converso-ai/dialogue-engine/internal/collector"
	"github.com/converso-ai/dialogue-engine/internal/intent"
	"github.com/converso-ai/dialogue-engine/internal/model"
	"github.com/converso-ai/dialogue-engine/pkg/logger"
	"github.com/converso-ai/dialogue-engine/pkg/metrics"
)

// stubClassifier returns canned judgments, or an error for every call.
type stubClassifier struct {
	relevant    bool
	relConf     float64
	intentLabel string
	intentConf  float64
	topics      []string
	followUp    bool
	err         error
}

func (s *stubClassifier) ClassifyRelevance(ctx context.Context, text string, history []model.Turn) (*classifier.RelevanceJudgment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &classifier.RelevanceJudgment{IsRelevant: s.relevant, Confidence: s.relConf}, nil
}

func (s *stubClassifier) ClassifyIntent(ctx context.Context, text string, history []model.Turn) (*classifier.IntentJudgment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &classifier.IntentJudgment{Label: s.intentLabel, Confidence: s.intentConf, Topics: s.topics}, nil
}

func (s *stubClassifier) DetectFollowUp(ctx context.Context, text string, history []model.Turn) (*classifier.FollowUpJudgment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &classifier.FollowUpJudgment{IsFollowUp: s.followUp}, nil
}

func (s *stubClassifier) ExtractAttributes(ctx context.Context, text string) (*classifier.Extraction, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &classifier.Extraction{}, nil
}

func newTestManager(t *testing.T, profile *model.UserProfile, cls classifier.Client) *Manager {
	t.Helper()
	log := logger.NewNop()

	intents := intent.NewManager(cls, intent.Config{
		RelevanceThreshold: 0.6,
		IntentThreshold:    0.6,
		Timeout:            time.Second,
		RetryTimeout:       time.Second,
		ShortMessageWords:  5,
	}, log)

	col := collector.New(cls, collector.Config{
		CollectionThreshold:   0.6,
		OnboardingMaxAttempts: 2,
		ExtractionTimeout:     time.Second,
	}, log)

	return NewManager("u1", profile, intents, col, Config{MaxHistoryPairs: 10, PreservedPrefixTurns: 2}, log)
}

func completeProfile(t *testing.T) *model.UserProfile {
	t.Helper()
	p := model.NewUserProfile("u1")
	require.NoError(t, p.UpdateAttribute(model.AttrName, "Alice", 0.95, model.SourceExplicit))
	require.NoError(t, p.UpdateAttribute(model.AttrTechnicalLevel, "advanced", 0.95, model.SourceExplicit))
	require.NoError(t, p.UpdateAttribute(model.AttrInterestArea, "research", 0.95, model.SourceExplicit))
	return p
}

func TestFirstTimeUserOnboardsBeforeResponding(t *testing.T) {
	cls := &stubClassifier{relevant: true, relConf: 0.9, intentLabel: "FUNDAMENTALS", intentConf: 0.9}
	m := newTestManager(t, nil, cls)
	ctx := context.Background()

	// The substantive first message is parked and onboarding starts.
	env := m.ProcessTurn(ctx, "What's a transformer model?")
	assert.Equal(t, model.StateOnboarding, env.State)
	assert.False(t, env.RequiresGeneration)
	assert.Contains(t, env.FixedMessage, "your name")
	m.RecordAssistantReply(env.FixedMessage, false)

	env = m.ProcessTurn(ctx, "Alice")
	assert.Equal(t, model.StateOnboarding, env.State)
	assert.Contains(t, env.FixedMessage, "level of experience")
	m.RecordAssistantReply(env.FixedMessage, false)

	env = m.ProcessTurn(ctx, "beginner")
	assert.Equal(t, model.StateOnboarding, env.State)
	assert.Contains(t, env.FixedMessage, "aspects of LLMs")
	m.RecordAssistantReply(env.FixedMessage, false)

	// Final answer completes onboarding and replays the parked query.
	env = m.ProcessTurn(ctx, "research advances")
	assert.Equal(t, model.StateResponding, env.State)
	assert.True(t, env.RequiresGeneration)
	assert.Equal(t, model.IntentFundamentals, env.Intent)
	assert.Equal(t, model.TemplateFundamentals, env.Template)
	assert.Equal(t, "What's a transformer model?", env.SpecificTopic)

	profile := m.Profile()
	assert.Equal(t, "Alice", profile.AttributeValue(model.AttrName))
	assert.Equal(t, "beginner", profile.AttributeValue(model.AttrTechnicalLevel))
	assert.GreaterOrEqual(t, profile.AttributeConfidence(model.AttrTechnicalLevel), model.ExplicitFloor)
	assert.Equal(t, model.SourceExplicit, profile.Attributes[model.AttrTechnicalLevel].Source)

	m.RecordAssistantReply("generated answer", false)
	assert.Equal(t, model.StateProcessing, m.State())
}

func TestReturningUserSkipsOnboarding(t *testing.T) {
	cls := &stubClassifier{relevant: true, relConf: 0.9, intentLabel: "FUNDAMENTALS", intentConf: 0.9}
	m := newTestManager(t, completeProfile(t), cls)

	env := m.ProcessTurn(context.Background(), "What's a transformer model?")
	assert.Equal(t, model.StateResponding, env.State)
	assert.True(t, env.RequiresGeneration)
	assert.Equal(t, model.IntentFundamentals, env.Intent)
}

func TestCollectionParksAndReplaysPendingQuery(t *testing.T) {
	cls := &stubClassifier{relevant: true, relConf: 0.9, intentLabel: "COMPARISON", intentConf: 0.9}
	m := newTestManager(t, completeProfile(t), cls)
	ctx := context.Background()

	env := m.ProcessTurn(ctx, "Compare GPT-4 and Claude for my use case please")
	assert.Equal(t, model.StateInfoCollection, env.State)
	assert.False(t, env.RequiresGeneration)
	assert.Contains(t, env.FixedMessage, "evaluating different LLM options")
	m.RecordAssistantReply(env.FixedMessage, false)

	env = m.ProcessTurn(ctx, "accuracy matters most to me")
	assert.Equal(t, model.StateResponding, env.State)
	assert.True(t, env.RequiresGeneration)
	assert.Equal(t, model.TemplateComparison, env.Template)
	assert.Equal(t, "Compare GPT-4 and Claude for my use case please", env.SpecificTopic)
	assert.Equal(t, "accuracy", m.Profile().AttributeValue(model.AttrComparisonCriterion))
	m.RecordAssistantReply("generated comparison", false)

	// The same gap is never asked about twice in one session.
	env = m.ProcessTurn(ctx, "Now compare Llama and Mistral in the same way")
	assert.Equal(t, model.StateResponding, env.State)
	assert.True(t, env.RequiresGeneration)
}

func TestSkippedCollectionAnswerFallsBackToDefault(t *testing.T) {
	cls := &stubClassifier{relevant: true, relConf: 0.9, intentLabel: "NEWS", intentConf: 0.9}
	p := model.NewUserProfile("u1")
	require.NoError(t, p.UpdateAttribute(model.AttrName, "Alice", 0.95, model.SourceExplicit))
	require.NoError(t, p.UpdateAttribute(model.AttrTechnicalLevel, "advanced", 0.95, model.SourceExplicit))
	m := newTestManager(t, p, cls)
	ctx := context.Background()

	// interest_area is a core attribute, so onboarding asks for it first.
	env := m.ProcessTurn(ctx, "What's new in LLM research this month?")
	assert.Equal(t, model.StateOnboarding, env.State)
	m.RecordAssistantReply(env.FixedMessage, false)

	env = m.ProcessTurn(ctx, "skip")
	assert.Equal(t, model.StateResponding, env.State)

	attr := m.Profile().Attributes[model.AttrInterestArea]
	assert.Equal(t, model.SourceDefault, attr.Source)
	assert.Equal(t, "research", attr.Value)
	assert.LessOrEqual(t, attr.Confidence, model.DefaultCeiling)
}

func TestEndRequestNeedsConfirmation(t *testing.T) {
	cls := &stubClassifier{relevant: true, relConf: 0.9, intentLabel: "FUNDAMENTALS", intentConf: 0.9}
	m := newTestManager(t, completeProfile(t), cls)
	ctx := context.Background()

	env := m.ProcessTurn(ctx, "bye")
	assert.Equal(t, model.StateAwaitingConfirmation, env.State)
	assert.False(t, env.RequiresGeneration)
	m.RecordAssistantReply(env.FixedMessage, false)

	// Denying keeps the session going.
	env = m.ProcessTurn(ctx, "no thanks")
	assert.Equal(t, model.StateProcessing, env.State)
	assert.True(t, m.Active())
	m.RecordAssistantReply(env.FixedMessage, false)

	env = m.ProcessTurn(ctx, "goodbye")
	assert.Equal(t, model.StateAwaitingConfirmation, env.State)
	m.RecordAssistantReply(env.FixedMessage, false)

	// Confirming ends the session for good.
	env = m.ProcessTurn(ctx, "yes")
	assert.Equal(t, model.StateEnding, env.State)
	assert.Contains(t, env.FixedMessage, "Alice")
	assert.False(t, m.Active())

	env = m.ProcessTurn(ctx, "wait, one more question")
	assert.False(t, env.RequiresGeneration)
	assert.Equal(t, model.StateEnding, m.State())
}

func TestQueryDuringConfirmationContinuesSession(t *testing.T) {
	cls := &stubClassifier{relevant: true, relConf: 0.9, intentLabel: "FUNDAMENTALS", intentConf: 0.9}
	m := newTestManager(t, completeProfile(t), cls)
	ctx := context.Background()

	env := m.ProcessTurn(ctx, "that's all for now")
	require.Equal(t, model.StateAwaitingConfirmation, env.State)
	m.RecordAssistantReply(env.FixedMessage, false)

	env = m.ProcessTurn(ctx, "actually, what is RLHF training exactly?")
	assert.Equal(t, model.StateResponding, env.State)
	assert.True(t, env.RequiresGeneration)
	assert.True(t, m.Active())
}

func TestClassifierOutageDegradesToFallback(t *testing.T) {
	cls := &stubClassifier{err: assert.AnError}
	m := newTestManager(t, completeProfile(t), cls)

	env := m.ProcessTurn(context.Background(), "Explain attention heads in detail for me")
	assert.Equal(t, model.StateResponding, env.State)
	assert.True(t, env.RequiresGeneration)
	assert.Equal(t, model.IntentUnknown, env.Intent)
	assert.Equal(t, model.TemplateFallback, env.Template)
	assert.True(t, m.Active())
}

func TestOffTopicMessageUsesFallbackTemplate(t *testing.T) {
	cls := &stubClassifier{relevant: false, relConf: 0.95}
	m := newTestManager(t, completeProfile(t), cls)

	env := m.ProcessTurn(context.Background(), "What's a good lasagna recipe for four people?")
	assert.Equal(t, model.StateResponding, env.State)
	assert.True(t, env.RequiresGeneration)
	assert.Equal(t, model.IntentUnknown, env.Intent)
	assert.Equal(t, model.TemplateFallback, env.Template)
}

func TestFollowUpReusesPreviousTopic(t *testing.T) {
	cls := &stubClassifier{relevant: true, relConf: 0.9, intentLabel: "FUNDAMENTALS", intentConf: 0.9, topics: []string{"transformers"}}
	m := newTestManager(t, completeProfile(t), cls)
	ctx := context.Background()

	env := m.ProcessTurn(ctx, "Explain transformer architectures to me please")
	require.Equal(t, "transformers", env.SpecificTopic)
	m.RecordAssistantReply("generated", false)

	cls.followUp = true
	env = m.ProcessTurn(ctx, "how does it scale?")
	assert.True(t, env.FollowUp)
	assert.Equal(t, "transformers", env.SpecificTopic)
}

func TestEnvelopeCarriesProfileSnapshot(t *testing.T) {
	cls := &stubClassifier{relevant: true, relConf: 0.9, intentLabel: "FUNDAMENTALS", intentConf: 0.9}
	m := newTestManager(t, completeProfile(t), cls)

	env := m.ProcessTurn(context.Background(), "Explain tokenization approaches used by modern models")
	require.True(t, env.RequiresGeneration)

	// Mutating the live profile must not affect the emitted snapshot.
	require.NoError(t, m.Profile().UpdateAttribute(model.AttrName, "Bob", 0.99, model.SourceExplicit))
	assert.Equal(t, "Alice", env.Profile.Attributes[model.AttrName].Value)
}

func TestTurnCounterUsesResultingState(t *testing.T) {
	cls := &stubClassifier{relevant: true, relConf: 0.9, intentLabel: "FUNDAMENTALS", intentConf: 0.9}
	m := newTestManager(t, nil, cls)

	entry := testutil.ToFloat64(metrics.TurnsTotal.WithLabelValues(string(model.StateIdle)))
	resulting := testutil.ToFloat64(metrics.TurnsTotal.WithLabelValues(string(model.StateOnboarding)))

	// IDLE to ONBOARDING: the turn counts against the state it resulted in.
	m.ProcessTurn(context.Background(), "hello")

	assert.Equal(t, entry, testutil.ToFloat64(metrics.TurnsTotal.WithLabelValues(string(model.StateIdle))))
	assert.Equal(t, resulting+1, testutil.ToFloat64(metrics.TurnsTotal.WithLabelValues(string(model.StateOnboarding))))
}
