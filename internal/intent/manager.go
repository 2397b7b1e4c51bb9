// Package intent applies local classification policy on top of the
// classification service: relevance gating, confidence thresholds, follow-up
// detection, and single-retry-then-degrade failure handling.
package intent

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/converso-ai/dialogue-engine/internal/classifier"
	"github.com/converso-ai/dialogue-engine/internal/model"
	"github.com/converso-ai/dialogue-engine/pkg/logger"
	"github.com/converso-ai/dialogue-engine/pkg/metrics"
)

// Config holds the classification policy knobs.
type Config struct {
	// RelevanceThreshold gates the first-stage domain check.
	RelevanceThreshold float64
	// IntentThreshold coerces low-confidence labels to UNKNOWN.
	IntentThreshold float64
	// Timeout bounds the first attempt of each classifier call.
	Timeout time.Duration
	// RetryTimeout bounds the single shortened retry.
	RetryTimeout time.Duration
	// ShortMessageWords is the follow-up heuristic word threshold.
	ShortMessageWords int
}

// Decision is the outcome of one classification pass. Degradation is a
// value, never an error: a failed service call yields UNKNOWN with
// Relevant=true so the fallback path, not the off-topic path, handles it.
type Decision struct {
	Intent              model.Intent
	Confidence          float64
	Relevant            bool
	RelevanceConfidence float64
	Topics              []string
	Reasoning           string
	Degraded            bool
}

// Manager owns the two-stage classification policy.
type Manager struct {
	client classifier.Client
	cfg    Config
	logger *logger.Logger
}

// NewManager creates an intent manager.
func NewManager(client classifier.Client, cfg Config, log *logger.Logger) *Manager {
	if cfg.ShortMessageWords <= 0 {
		cfg.ShortMessageWords = 5
	}
	return &Manager{client: client, cfg: cfg, logger: log}
}

// Classify runs the two-stage classification for one message. It never
// returns an error; service failures degrade per policy.
func (m *Manager) Classify(ctx context.Context, text string, history []model.Turn) Decision {
	var rel *classifier.RelevanceJudgment
	err := m.withRetry(ctx, "relevance", func(ctx context.Context) error {
		var callErr error
		rel, callErr = m.client.ClassifyRelevance(ctx, text, history)
		return callErr
	})
	if err != nil {
		m.logger.Warn("relevance check degraded to UNKNOWN", zap.Error(err))
		return m.record(Decision{Intent: model.IntentUnknown, Relevant: true, Degraded: true})
	}

	// Off-topic or unconvincing relevance short-circuits stage two.
	if !rel.IsRelevant || rel.Confidence < m.cfg.RelevanceThreshold {
		return m.record(Decision{
			Intent:              model.IntentUnknown,
			Relevant:            false,
			RelevanceConfidence: rel.Confidence,
			Topics:              rel.RelatedTopics,
			Reasoning:           rel.Reasoning,
		})
	}

	var judgment *classifier.IntentJudgment
	err = m.withRetry(ctx, "intent", func(ctx context.Context) error {
		var callErr error
		judgment, callErr = m.client.ClassifyIntent(ctx, text, history)
		return callErr
	})
	if err != nil {
		m.logger.Warn("intent classification degraded to UNKNOWN", zap.Error(err))
		return m.record(Decision{Intent: model.IntentUnknown, Relevant: true, Degraded: true,
			RelevanceConfidence: rel.Confidence, Topics: rel.RelatedTopics})
	}

	decided := model.ParseIntent(judgment.Label)
	// Local policy overrides the service's point estimate at low confidence.
	if judgment.Confidence < m.cfg.IntentThreshold {
		decided = model.IntentUnknown
	}

	return m.record(Decision{
		Intent:              decided,
		Confidence:          judgment.Confidence,
		Relevant:            true,
		RelevanceConfidence: rel.Confidence,
		Topics:              judgment.Topics,
		Reasoning:           judgment.Reasoning,
	})
}

// IsFollowUp determines whether the message continues the previous topic.
// Primary path is a dedicated classifier call; on failure or timeout the
// heuristic takes over.
func (m *Manager) IsFollowUp(ctx context.Context, text string, history []model.Turn) bool {
	if len(history) == 0 {
		return false
	}

	callCtx, cancel := context.WithTimeout(ctx, m.cfg.RetryTimeout)
	defer cancel()

	judgment, err := m.client.DetectFollowUp(callCtx, text, lastPair(history))
	if err != nil {
		m.logger.Debug("follow-up detection fell back to heuristic", zap.Error(err))
		return m.heuristicFollowUp(text)
	}
	return judgment.IsFollowUp
}

// lastPair returns at most the final user/assistant exchange, which is all
// the follow-up judgment needs.
func lastPair(history []model.Turn) []model.Turn {
	if len(history) <= 2 {
		return history
	}
	return history[len(history)-2:]
}

// withRetry runs one classifier call with the primary timeout, then exactly
// one retry with the shortened timeout.
func (m *Manager) withRetry(ctx context.Context, op string, call func(ctx context.Context) error) error {
	start := time.Now()

	attemptCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	err := call(attemptCtx)
	cancel()
	if err == nil {
		metrics.ClassifierDuration.WithLabelValues(op, "ok").Observe(time.Since(start).Seconds())
		return nil
	}

	m.logger.Warn("classifier call failed, retrying once",
		zap.String("operation", op), zap.Error(err))

	retryCtx, cancel := context.WithTimeout(ctx, m.cfg.RetryTimeout)
	err = call(retryCtx)
	cancel()

	status := "ok"
	if err != nil {
		status = "degraded"
	}
	metrics.ClassifierDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

func (m *Manager) record(d Decision) Decision {
	metrics.IntentClassificationsTotal.
		WithLabelValues(string(d.Intent), strconv.FormatBool(d.Degraded)).Inc()
	return d
}

// followUpPhrases are openers that usually continue the previous topic.
var followUpPhrases = []string{
	"tell me more", "how about", "what about", "can you explain",
	"such as", "for example", "like what", "in what way",
	"how does", "how do", "how can", "how would",
	"what is", "what are", "why is", "why are",
}

// anaphoricPronouns reference the prior topic without naming a new one.
var anaphoricPronouns = []string{"it", "that", "this", "they", "them", "those", "these"}

// heuristicFollowUp is the degraded path: short messages, bare questions and
// anaphoric references count as follow-ups.
func (m *Manager) heuristicFollowUp(text string) bool {
	trimmed := strings.TrimSpace(text)
	words := strings.Fields(strings.ToLower(trimmed))

	if len(words) < m.cfg.ShortMessageWords {
		return true
	}
	if strings.HasSuffix(trimmed, "?") {
		return true
	}

	lower := strings.ToLower(trimmed)
	for _, phrase := range followUpPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	for _, pronoun := range anaphoricPronouns {
		for _, w := range words {
			if w == pronoun && !mentionsNewEntity(trimmed) {
				return true
			}
		}
	}
	return false
}

// mentionsNewEntity reports whether the message names a capitalized entity
// beyond the sentence start, which suggests a topic change.
func mentionsNewEntity(text string) bool {
	words := strings.Fields(text)
	for i, w := range words {
		if i == 0 {
			continue
		}
		r := []rune(w)
		if len(r) > 1 && r[0] >= 'A' && r[0] <= 'Z' {
			return true
		}
	}
	return false
}
