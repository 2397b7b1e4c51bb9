package conversation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/converso-ai/dialogue-engine/internal/collector"
	"github.com/converso-ai/dialogue-engine/internal/intent"
	"github.com/converso-ai/dialogue-engine/internal/model"
	"github.com/converso-ai/dialogue-engine/internal/prompt"
	"github.com/converso-ai/dialogue-engine/pkg/logger"
	"github.com/converso-ai/dialogue-engine/pkg/metrics"
)

// Config bounds the per-session turn history.
type Config struct {
	MaxHistoryPairs      int
	PreservedPrefixTurns int
}

// Manager drives one session's conversation state machine. It owns the
// session state, turn history, pending query and profile, and turns each
// user message into a single decision envelope. It is not safe for
// concurrent use; callers serialize turns per session.
type Manager struct {
	userID    string
	state     model.ConversationState
	history   *History
	profile   *model.UserProfile
	intents   *intent.Manager
	collector *collector.Collector
	log       *logger.Logger

	// pending is the query parked while a collection question is out.
	pending    string
	collecting model.AttributeName
	lastTopic  string
	lastIntent model.Intent
}

// NewManager starts a session in IDLE over an already-loaded profile.
func NewManager(userID string, profile *model.UserProfile, intents *intent.Manager, col *collector.Collector, cfg Config, log *logger.Logger) *Manager {
	if profile == nil {
		profile = model.NewUserProfile(userID)
	}
	if cfg.MaxHistoryPairs <= 0 {
		cfg.MaxHistoryPairs = 10
	}
	if cfg.PreservedPrefixTurns <= 0 {
		cfg.PreservedPrefixTurns = 2
	}
	return &Manager{
		userID:    userID,
		state:     model.StateIdle,
		history:   NewHistory(cfg.MaxHistoryPairs, cfg.PreservedPrefixTurns),
		profile:   profile,
		intents:   intents,
		collector: col,
		log:       log.WithSession(userID),
	}
}

// State returns the current conversation state.
func (m *Manager) State() model.ConversationState {
	return m.state
}

// Active reports whether the session still accepts turns.
func (m *Manager) Active() bool {
	return !m.state.Terminal()
}

// Profile returns the session's live profile.
func (m *Manager) Profile() *model.UserProfile {
	return m.profile
}

// Turns returns a copy of the bounded turn history.
func (m *Manager) Turns() []model.Turn {
	return m.history.Turns()
}

// ProcessTurn advances the state machine by one user message and returns
// the decision envelope for it. It never fails: an internal panic degrades
// to a fixed apology and the session returns to PROCESSING.
func (m *Manager) ProcessTurn(ctx context.Context, text string) (env *model.Envelope) {
	// Registered before the recover handler so it observes the state the
	// turn actually resulted in, including the recovery transition.
	defer func() {
		metrics.TurnsTotal.WithLabelValues(string(m.state)).Inc()
	}()
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("turn processing failed", zap.Any("panic", r))
			m.setState(model.StateProcessing)
			env = m.fixedEnvelope(apologyMessage)
		}
	}()

	if m.state.Terminal() {
		return m.fixedEnvelope(farewellMessage(m.profile.AttributeValue(model.AttrName)))
	}

	m.history.Append(model.RoleUser, text)

	switch m.state {
	case model.StateIdle:
		return m.handleIdle(ctx, text)
	case model.StateOnboarding:
		return m.handleOnboarding(ctx, text)
	case model.StateInfoCollection:
		return m.handleCollection(ctx, text)
	case model.StateAwaitingConfirmation:
		return m.handleConfirmation(ctx, text)
	default:
		return m.process(ctx, text)
	}
}

// RecordAssistantReply appends the delivered reply to the history. A
// generated reply completes the RESPONDING hand-off and returns the session
// to PROCESSING; truncated replies keep only what was actually delivered.
func (m *Manager) RecordAssistantReply(content string, truncated bool) {
	if truncated {
		m.history.AppendTruncated(content)
	} else if content != "" {
		m.history.Append(model.RoleAssistant, content)
	}
	if m.state == model.StateResponding {
		m.setState(model.StateProcessing)
	}
}

func (m *Manager) handleIdle(ctx context.Context, text string) *model.Envelope {
	if !m.collector.IsInOnboarding(m.profile) {
		m.setState(model.StateProcessing)
		return m.process(ctx, text)
	}

	// A substantive first message is parked and replayed once onboarding
	// has collected the core attributes.
	if substantive(text) {
		m.pending = text
	}
	m.setState(model.StateOnboarding)
	attr, _ := m.collector.NextOnboardingAttribute(m.profile)
	m.collecting = attr
	return m.fixedEnvelope(welcomeMessage + "\n\n" + m.collector.Question(m.profile, attr))
}

func (m *Manager) handleOnboarding(ctx context.Context, text string) *model.Envelope {
	if isEndRequest(text) {
		m.setState(model.StateAwaitingConfirmation)
		return m.fixedEnvelope(confirmEndMessage)
	}
	if m.collecting != "" {
		if err := m.collector.HandleExplicitAnswer(m.profile, m.collecting, text); err != nil {
			m.log.Warn("onboarding answer rejected", zap.String("attribute", string(m.collecting)), zap.Error(err))
		}
	}

	if next, ok := m.collector.NextOnboardingAttribute(m.profile); ok {
		m.collecting = next
		return m.fixedEnvelope(m.collector.Question(m.profile, next))
	}

	// Onboarding finished. Anything still unanswered after the attempt
	// budget falls back to its default value.
	m.fillDefaults()
	m.collecting = ""
	m.setState(model.StateProcessing)

	if m.pending != "" {
		query := m.pending
		m.pending = ""
		return m.process(ctx, query)
	}
	return m.fixedEnvelope(onboardingCompleteMessage(m.profile.AttributeValue(model.AttrName)))
}

func (m *Manager) handleCollection(ctx context.Context, text string) *model.Envelope {
	if isEndRequest(text) {
		m.setState(model.StateAwaitingConfirmation)
		return m.fixedEnvelope(confirmEndMessage)
	}
	if m.collecting != "" {
		if err := m.collector.HandleExplicitAnswer(m.profile, m.collecting, text); err != nil {
			m.log.Warn("collection answer rejected", zap.String("attribute", string(m.collecting)), zap.Error(err))
		}
		m.collecting = ""
	}

	m.setState(model.StateProcessing)
	if m.pending == "" {
		return m.process(ctx, text)
	}
	query := m.pending
	m.pending = ""
	return m.process(ctx, query)
}

func (m *Manager) handleConfirmation(ctx context.Context, text string) *model.Envelope {
	if isConfirmation(text) || isEndRequest(text) {
		m.setState(model.StateEnding)
		return m.fixedEnvelope(farewellMessage(m.profile.AttributeValue(model.AttrName)))
	}
	m.setState(model.StateProcessing)
	if isRejection(text) {
		return m.fixedEnvelope("No problem, let's keep going. What would you like to explore next?")
	}
	// Neither a yes nor a no reads as wanting to continue with a new query.
	return m.process(ctx, text)
}

// process runs the two-stage classification over an in-flight query and
// routes it: end confirmation, information collection, or a generation
// envelope.
func (m *Manager) process(ctx context.Context, text string) *model.Envelope {
	if isEndRequest(text) {
		m.setState(model.StateAwaitingConfirmation)
		return m.fixedEnvelope(confirmEndMessage)
	}
	m.setState(model.StateProcessing)

	followUp := false
	if m.lastTopic != "" {
		followUp = m.intents.IsFollowUp(ctx, text, m.history.Recent(4))
	}

	decision := m.intents.Classify(ctx, text, m.history.Recent(6))
	m.profile.TrackInteraction(decision.Intent)

	if updated := m.collector.ExtractImplicit(ctx, m.profile, text); len(updated) > 0 {
		m.log.Debug("implicit attributes updated", zap.Int("count", len(updated)))
	}

	if !decision.Relevant {
		// Off-topic: generate a polite redirect instead of answering.
		m.setState(model.StateResponding)
		return m.generationEnvelope(model.IntentUnknown, text, false)
	}

	topic := text
	if followUp && m.lastTopic != "" {
		topic = m.lastTopic
	} else if len(decision.Topics) > 0 {
		topic = decision.Topics[0]
	}

	if ok, attr := m.collector.CheckOpportunity(m.profile, decision.Intent); ok {
		m.pending = text
		m.collecting = attr
		m.setState(model.StateInfoCollection)
		return m.fixedEnvelope(m.collector.Question(m.profile, attr))
	}

	m.lastTopic = topic
	m.lastIntent = decision.Intent
	m.setState(model.StateResponding)
	return m.generationEnvelope(decision.Intent, topic, followUp)
}

// fillDefaults backfills core attributes whose attempt budget ran out.
func (m *Manager) fillDefaults() {
	for _, attr := range model.CoreAttributes {
		if m.profile.AttributeConfidence(attr) > 0 {
			continue
		}
		if err := m.profile.UpdateAttribute(attr, model.DefaultValue(attr), model.DefaultCeiling, model.SourceDefault); err != nil {
			m.log.Warn("default backfill failed", zap.String("attribute", string(attr)), zap.Error(err))
		}
	}
}

func (m *Manager) setState(to model.ConversationState) {
	if m.state == to {
		return
	}
	metrics.RecordTransition(string(m.state), string(to))
	m.log.Debug("state transition", zap.String("from", string(m.state)), zap.String("to", string(to)))
	m.state = to
}

func (m *Manager) fixedEnvelope(message string) *model.Envelope {
	return &model.Envelope{
		State:        m.state,
		Intent:       m.lastIntent,
		Profile:      m.profile.Snapshot(),
		FixedMessage: message,
	}
}

func (m *Manager) generationEnvelope(it model.Intent, topic string, followUp bool) *model.Envelope {
	return &model.Envelope{
		State:              m.state,
		Intent:             it,
		SpecificTopic:      topic,
		Profile:            m.profile.Snapshot(),
		RequiresGeneration: true,
		Template:           model.TemplateFor(it),
		Variables:          prompt.Variables(m.profile, topic),
		FollowUp:           followUp,
	}
}

// substantive reports whether a first message carries a real query worth
// replaying after onboarding, rather than a bare greeting.
func substantive(text string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.Contains(trimmed, "?") {
		return true
	}
	return len(strings.Fields(trimmed)) >= 4
}
