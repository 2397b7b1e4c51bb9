// Package engine orchestrates sessions: it routes each turn through the
// conversation state machine, runs generation for envelopes that need it,
// and persists profiles write-through after every turn.
package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/converso-ai/dialogue-engine/internal/classifier"
	"github.com/converso-ai/dialogue-engine/internal/collector"
	"github.com/converso-ai/dialogue-engine/internal/config"
	"github.com/converso-ai/dialogue-engine/internal/conversation"
	"github.com/converso-ai/dialogue-engine/internal/events"
	"github.com/converso-ai/dialogue-engine/internal/intent"
	"github.com/converso-ai/dialogue-engine/internal/llm"
	"github.com/converso-ai/dialogue-engine/internal/model"
	"github.com/converso-ai/dialogue-engine/internal/prompt"
	"github.com/converso-ai/dialogue-engine/internal/store"
	"github.com/converso-ai/dialogue-engine/pkg/logger"
	"github.com/converso-ai/dialogue-engine/pkg/metrics"
)

const generationApology = "Sorry, I'm having trouble putting a response together right now. Please try again in a moment."

// Engine owns the session registry. Turns within one session are
// serialized; different sessions proceed concurrently.
type Engine struct {
	cfg        *config.Config
	classifier classifier.Client
	generator  llm.Client
	store      store.Store
	events     *events.Publisher
	intents    *intent.Manager
	log        *logger.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu     sync.Mutex
	mgr    *conversation.Manager
	active *TurnStream
}

// begin acquires the session for a new turn. A stream still open from a
// previous turn is cancelled first so its delivered fragments are committed
// to history before the new message is appended.
func (s *session) begin() {
	s.mu.Lock()
	for s.active != nil {
		prior := s.active
		s.mu.Unlock()
		prior.Cancel()
		s.mu.Lock()
	}
}

// New creates an engine. The events publisher is optional.
func New(cfg *config.Config, cls classifier.Client, gen llm.Client, st store.Store, pub *events.Publisher, log *logger.Logger) *Engine {
	intents := intent.NewManager(cls, intent.Config{
		RelevanceThreshold: cfg.RelevanceThreshold,
		IntentThreshold:    cfg.IntentThreshold,
		Timeout:            cfg.ClassifierTimeout,
		RetryTimeout:       cfg.ClassifierRetryTimeout,
		ShortMessageWords:  cfg.ShortMessageWords,
	}, log)

	return &Engine{
		cfg:        cfg,
		classifier: cls,
		generator:  gen,
		store:      st,
		events:     pub,
		intents:    intents,
		log:        log,
		sessions:   make(map[string]*session),
	}
}

// ProcessTurn handles one user message end to end and returns the decision
// envelope together with the complete reply text.
func (e *Engine) ProcessTurn(ctx context.Context, userID, text string) (*model.ProcessTurnResponse, error) {
	s := e.session(ctx, userID)
	s.begin()
	defer s.mu.Unlock()

	env := s.mgr.ProcessTurn(ctx, text)

	reply := env.FixedMessage
	if env.RequiresGeneration {
		reply = e.generate(ctx, s.mgr, env)
	}

	s.mgr.RecordAssistantReply(reply, false)
	e.saveProfile(ctx, s.mgr)
	e.publish(env, s.mgr, false)

	return &model.ProcessTurnResponse{Envelope: *env, Reply: reply}, nil
}

// ProcessTurnStream handles one user message and, when the envelope needs
// generation, returns a stream of reply fragments. For fixed replies the
// returned stream is nil and the envelope's FixedMessage is the reply. The
// turn is committed to history and storage when the stream terminates.
func (e *Engine) ProcessTurnStream(ctx context.Context, userID, text string) (*model.Envelope, *TurnStream, error) {
	s := e.session(ctx, userID)
	s.begin()

	env := s.mgr.ProcessTurn(ctx, text)

	if !env.RequiresGeneration {
		s.mgr.RecordAssistantReply(env.FixedMessage, false)
		e.saveProfile(ctx, s.mgr)
		e.publish(env, s.mgr, false)
		s.mu.Unlock()
		return env, nil, nil
	}

	messages, err := prompt.Render(env.Template, env.Variables, s.mgr.Turns())
	if err == nil {
		var inner *llm.Stream
		inner, err = e.generator.CompleteStream(ctx, &llm.CompletionRequest{Messages: messages})
		if err == nil {
			ts := &TurnStream{inner: inner}
			ts.commit = func(delivered string, partial bool) {
				s.mu.Lock()
				defer s.mu.Unlock()
				if s.active == ts {
					s.active = nil
				}
				s.mgr.RecordAssistantReply(delivered, partial)
				e.saveProfile(context.Background(), s.mgr)
				e.publish(env, s.mgr, partial)
			}
			s.active = ts
			s.mu.Unlock()
			return env, ts, nil
		}
	}

	// Generation could not start: degrade to a fixed apology.
	e.log.Error("generation failed to start", zap.String("user_id", userID), zap.Error(err))
	env.RequiresGeneration = false
	env.FixedMessage = generationApology
	s.mgr.RecordAssistantReply(env.FixedMessage, false)
	e.saveProfile(ctx, s.mgr)
	s.mu.Unlock()
	return env, nil, nil
}

// SessionStatus reports whether a session can still accept turns. A user
// without a session yet is considered active.
func (e *Engine) SessionStatus(userID string) model.SessionStatusResponse {
	e.mu.Lock()
	s, ok := e.sessions[userID]
	e.mu.Unlock()
	if !ok {
		return model.SessionStatusResponse{UserID: userID, State: model.StateIdle, Active: true}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.SessionStatusResponse{UserID: userID, State: s.mgr.State(), Active: s.mgr.Active()}
}

// Profile returns the live session profile, falling back to storage for
// users without an active session. A nil profile means the user is unknown.
func (e *Engine) Profile(ctx context.Context, userID string) (*model.UserProfile, error) {
	e.mu.Lock()
	s, ok := e.sessions[userID]
	e.mu.Unlock()
	if ok {
		s.mu.Lock()
		defer s.mu.Unlock()
		snapshot := s.mgr.Profile().Snapshot()
		return &snapshot, nil
	}
	return e.store.Load(ctx, userID)
}

// session returns the live session for a user, creating one when absent.
// Profile loading never fails a turn: a storage error degrades to a fresh
// default profile.
func (e *Engine) session(ctx context.Context, userID string) *session {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.sessions[userID]; ok {
		return s
	}

	profile, err := e.store.Load(ctx, userID)
	if err != nil {
		e.log.Warn("profile load failed, starting with defaults", zap.String("user_id", userID), zap.Error(err))
		profile = nil
	}

	col := collector.New(e.classifier, collector.Config{
		CollectionThreshold:   e.cfg.CollectionThreshold,
		OnboardingMaxAttempts: e.cfg.OnboardingMaxAttempts,
		ExtractionTimeout:     e.cfg.ClassifierTimeout,
	}, e.log)

	mgr := conversation.NewManager(userID, profile, e.intents, col, conversation.Config{
		MaxHistoryPairs:      e.cfg.MaxHistoryPairs,
		PreservedPrefixTurns: e.cfg.PreservedPrefixTurns,
	}, e.log)

	s := &session{mgr: mgr}
	e.sessions[userID] = s
	return s
}

func (e *Engine) generate(ctx context.Context, mgr *conversation.Manager, env *model.Envelope) string {
	messages, err := prompt.Render(env.Template, env.Variables, mgr.Turns())
	if err != nil {
		e.log.Error("prompt render failed", zap.String("template", env.Template), zap.Error(err))
		return generationApology
	}

	genCtx, cancel := context.WithTimeout(ctx, e.cfg.GenerationTimeout)
	defer cancel()

	start := time.Now()
	resp, err := e.generator.Complete(genCtx, &llm.CompletionRequest{Messages: messages})
	if err != nil {
		metrics.RecordLLMStream(e.generator.Name(), "error", time.Since(start).Seconds(), 0, 0)
		e.log.Error("generation failed", zap.Error(err))
		return generationApology
	}
	metrics.RecordLLMStream(resp.Model, "ok", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)
	return resp.Content
}

// saveProfile is write-through after every turn. Failures never fail the
// turn; the session continues in memory and the next turn retries.
func (e *Engine) saveProfile(ctx context.Context, mgr *conversation.Manager) {
	saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := e.store.Save(saveCtx, mgr.Profile()); err != nil {
		metrics.ProfileSaveFailures.WithLabelValues(e.cfg.ProfileBackend).Inc()
		e.log.Warn("profile save failed, continuing in memory", zap.Error(err))
	}
}

func (e *Engine) publish(env *model.Envelope, mgr *conversation.Manager, truncated bool) {
	if e.events == nil {
		return
	}

	eventType := model.EventTypeTurnCompleted
	switch {
	case env.State == model.StateEnding:
		eventType = model.EventTypeSessionEnded
	case truncated:
		eventType = model.EventTypeTurnTruncated
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	event := &model.TurnEvent{
		UserID: env.Profile.UserID,
		Type:   eventType,
		State:  env.State,
		Intent: env.Intent,
	}
	if _, err := e.events.Publish(ctx, event); err != nil {
		e.log.Warn("turn event publish failed", zap.Error(err))
	}
}
