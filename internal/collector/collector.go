// Package collector decides, each turn, whether to ask for or extract a
// profile attribute, and drives onboarding sequencing.
package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/converso-ai/dialogue-engine/internal/classifier"
	"github.com/converso-ai/dialogue-engine/internal/model"
	"github.com/converso-ai/dialogue-engine/pkg/logger"
	"github.com/converso-ai/dialogue-engine/pkg/metrics"
)

// Config holds the collection policy knobs.
type Config struct {
	// CollectionThreshold is the confidence below which an attribute counts
	// as missing.
	CollectionThreshold float64
	// OnboardingMaxAttempts bounds how often one core attribute is asked
	// before its default is accepted.
	OnboardingMaxAttempts int
	// ExtractionTimeout bounds the implicit extraction call.
	ExtractionTimeout time.Duration
}

// skipPhrases mark an explicit refusal to answer a collection question.
var skipPhrases = []string{
	"skip", "pass", "no thanks", "rather not", "prefer not",
	"don't want", "do not want", "nevermind", "never mind",
}

// collectionQuestions are the fixed per-attribute question texts.
var collectionQuestions = map[model.AttributeName]string{
	model.AttrName:                "Before we dive in, I'd love to know your name so I can address you properly.",
	model.AttrTechnicalLevel:      "To tailor my responses to your background, could you tell me your level of experience with Large Language Models? (Beginner/Intermediate/Advanced)",
	model.AttrInterestArea:        "What aspects of LLMs are you most interested in learning about? Research advances, practical applications, or something else?",
	model.AttrProjectStage:        "Are you currently working on an LLM project? If so, what stage are you in? (Planning/Development/Optimization)",
	model.AttrComparisonCriterion: "When evaluating different LLM options, what's most important to you? (Accuracy/Speed/Cost)",
	model.AttrDepthPreference:     "How detailed would you like my explanations to be? Brief overviews, standard explanations, or in-depth technical details?",
}

// Collector is the per-session information collection policy. It tracks
// which attributes were already asked this session so no attribute is ever
// requested twice, regardless of confidence.
type Collector struct {
	extractor classifier.Client
	cfg       Config
	logger    *logger.Logger

	asked    map[model.AttributeName]bool
	attempts map[model.AttributeName]int
}

// New creates a collector for one session.
func New(extractor classifier.Client, cfg Config, log *logger.Logger) *Collector {
	if cfg.CollectionThreshold <= 0 {
		cfg.CollectionThreshold = 0.6
	}
	if cfg.OnboardingMaxAttempts <= 0 {
		cfg.OnboardingMaxAttempts = 2
	}
	if cfg.ExtractionTimeout <= 0 {
		cfg.ExtractionTimeout = 10 * time.Second
	}
	return &Collector{
		extractor: extractor,
		cfg:       cfg,
		logger:    log,
		asked:     make(map[model.AttributeName]bool),
		attempts:  make(map[model.AttributeName]int),
	}
}

// IsInOnboarding is a pure function of profile completeness: any core
// attribute still below the collection threshold keeps onboarding open, so
// the answer stays consistent across a restart mid-onboarding.
func (c *Collector) IsInOnboarding(profile *model.UserProfile) bool {
	_, ok := c.NextOnboardingAttribute(profile)
	return ok
}

// NextOnboardingAttribute returns the first core attribute that still needs
// collecting. Attributes whose attempt budget is exhausted are defaulted and
// skipped.
func (c *Collector) NextOnboardingAttribute(profile *model.UserProfile) (model.AttributeName, bool) {
	for _, attr := range model.CoreAttributes {
		if profile.AttributeConfidence(attr) >= c.cfg.CollectionThreshold {
			continue
		}
		if c.asked[attr] && c.attempts[attr] >= c.cfg.OnboardingMaxAttempts {
			continue
		}
		return attr, true
	}
	return "", false
}

// CheckOpportunity decides whether an information-collection opportunity
// exists for the classified intent: the intent's required attribute is below
// threshold and has not been asked this session.
func (c *Collector) CheckOpportunity(profile *model.UserProfile, intent model.Intent) (bool, model.AttributeName) {
	attr, ok := model.RequiredAttribute(intent)
	if !ok {
		return false, ""
	}
	if c.asked[attr] {
		return false, ""
	}
	if profile.AttributeConfidence(attr) >= c.cfg.CollectionThreshold {
		return false, ""
	}
	return true, attr
}

// Question returns the collection question for an attribute, personalized
// with the user's name when known, and records the ask.
func (c *Collector) Question(profile *model.UserProfile, attr model.AttributeName) string {
	c.asked[attr] = true
	c.attempts[attr]++

	question, ok := collectionQuestions[attr]
	if !ok {
		question = fmt.Sprintf("Could you tell me about your %s? This helps me provide more relevant information.",
			strings.ReplaceAll(string(attr), "_", " "))
	}

	if attr != model.AttrName && profile.AttributeConfidence(model.AttrName) >= model.ExplicitFloor {
		question = profile.AttributeValue(model.AttrName) + ", " + strings.ToLower(question[:1]) + question[1:]
	}
	return question
}

// IsSkip reports whether the message declines to answer the pending question.
func IsSkip(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "no" {
		return true
	}
	for _, phrase := range skipPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// HandleExplicitAnswer treats the message as a literal answer to the pending
// question. Recognized answers are stored as explicit observations;
// unrecognized text is kept raw at default confidence rather than rejected.
// A skip substitutes the attribute default at the default-confidence ceiling
// and the attribute is never asked again this session.
func (c *Collector) HandleExplicitAnswer(profile *model.UserProfile, attr model.AttributeName, text string) error {
	if IsSkip(text) {
		c.logger.Info("user declined attribute collection",
			zap.String("attribute", string(attr)))
		// A declined attribute is settled: spend the remaining attempt
		// budget so it is never asked again this session.
		c.asked[attr] = true
		c.attempts[attr] = c.cfg.OnboardingMaxAttempts
		return profile.UpdateAttribute(attr, model.DefaultValue(attr), model.DefaultCeiling, model.SourceDefault)
	}

	value, recognized := Normalize(attr, text)
	if !recognized {
		metrics.AttributeUpdatesTotal.WithLabelValues(string(attr), string(model.SourceImplicit)).Inc()
		return profile.UpdateAttribute(attr, value, model.DefaultCeiling, model.SourceImplicit)
	}

	metrics.AttributeUpdatesTotal.WithLabelValues(string(attr), string(model.SourceExplicit)).Inc()
	return profile.UpdateAttribute(attr, value, model.ExplicitFloor, model.SourceExplicit)
}

// ExtractImplicit scans the message for incidental attribute evidence and
// applies it under the merge rule. Extraction failures skip the implicit
// update for this turn; they are never surfaced to the conversation.
func (c *Collector) ExtractImplicit(ctx context.Context, profile *model.UserProfile, text string) []model.AttributeName {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.ExtractionTimeout)
	defer cancel()

	extraction, err := c.extractor.ExtractAttributes(callCtx, text)
	if err != nil {
		c.logger.Warn("implicit extraction skipped", zap.Error(err))
		return nil
	}

	var updated []model.AttributeName
	for _, update := range extraction.Updates() {
		value, recognized := Normalize(update.Attribute, update.Value)
		if !recognized && update.Attribute != model.AttrName {
			continue
		}
		confidence := clampMedium(update.Confidence)
		before := profile.Attributes[update.Attribute]
		if err := profile.UpdateAttribute(update.Attribute, value, confidence, model.SourceImplicit); err != nil {
			c.logger.Warn("implicit update rejected", zap.Error(err))
			continue
		}
		if profile.Attributes[update.Attribute] != before {
			metrics.AttributeUpdatesTotal.WithLabelValues(string(update.Attribute), string(model.SourceImplicit)).Inc()
			updated = append(updated, update.Attribute)
		}
	}
	return updated
}

// clampMedium keeps implicit confidences in the medium band so they can
// never displace an explicit observation.
func clampMedium(confidence float64) float64 {
	const lo, hi = 0.4, 0.8
	if confidence < lo {
		return lo
	}
	if confidence > hi {
		return hi
	}
	return confidence
}
