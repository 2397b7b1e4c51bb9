// Package model defines data structures for the dialogue orchestration engine.
package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidAttribute is returned when an unknown attribute name is used.
var ErrInvalidAttribute = errors.New("invalid profile attribute")

// AttributeSource describes how a profile attribute value was obtained.
type AttributeSource string

const (
	// SourceExplicit means the user directly answered a collection question.
	SourceExplicit AttributeSource = "explicit"
	// SourceImplicit means the value was inferred from free text.
	SourceImplicit AttributeSource = "implicit"
	// SourceDefault means the value was never observed.
	SourceDefault AttributeSource = "default"
)

// Confidence bounds enforced per source.
const (
	// ExplicitFloor is the minimum confidence assigned to explicit answers.
	ExplicitFloor = 0.9
	// DefaultCeiling is the maximum confidence a defaulted value may carry.
	DefaultCeiling = 0.3
)

// AttributeName identifies one of the fixed profile attribute slots.
type AttributeName string

const (
	AttrName                AttributeName = "name"
	AttrTechnicalLevel      AttributeName = "technical_level"
	AttrInterestArea        AttributeName = "interest_area"
	AttrProjectStage        AttributeName = "project_stage"
	AttrComparisonCriterion AttributeName = "comparison_criterion"
	AttrDepthPreference     AttributeName = "depth_preference"
)

// CoreAttributes are collected during onboarding, in this order.
var CoreAttributes = []AttributeName{AttrName, AttrTechnicalLevel, AttrInterestArea}

// AllAttributes is the closed set of attribute slots, in collection order.
var AllAttributes = []AttributeName{
	AttrName,
	AttrTechnicalLevel,
	AttrInterestArea,
	AttrProjectStage,
	AttrComparisonCriterion,
	AttrDepthPreference,
}

// attributeDefaults holds the value substituted when an attribute is never
// observed or the user declines to answer. Name has no sensible default.
var attributeDefaults = map[AttributeName]string{
	AttrName:                "",
	AttrTechnicalLevel:      "intermediate",
	AttrInterestArea:        "research",
	AttrProjectStage:        "development",
	AttrComparisonCriterion: "accuracy",
	AttrDepthPreference:     "standard",
}

// ValidAttribute reports whether name is one of the fixed attribute slots.
func ValidAttribute(name AttributeName) bool {
	_, ok := attributeDefaults[name]
	return ok
}

// DefaultValue returns the default value for an attribute slot.
func DefaultValue(name AttributeName) string {
	return attributeDefaults[name]
}

// ProfileAttribute is a single confidence-scored attribute observation.
type ProfileAttribute struct {
	Value       string          `json:"value"`
	Confidence  float64         `json:"confidence"`
	LastUpdated time.Time       `json:"last_updated"`
	Source      AttributeSource `json:"source"`
}

// TopicEntry records one classified intent in the topic history.
type TopicEntry struct {
	Intent    Intent    `json:"intent"`
	Timestamp time.Time `json:"timestamp"`
}

// UserProfile holds everything the engine knows about one user. Exactly one
// in-memory UserProfile exists per user id for the lifetime of a session;
// the durable copy between sessions belongs to the profile store.
type UserProfile struct {
	UserID           string                             `json:"user_id"`
	Attributes       map[AttributeName]ProfileAttribute `json:"attributes"`
	InteractionCount int                                `json:"interaction_count"`
	FirstSeen        time.Time                          `json:"first_seen"`
	LastSeen         time.Time                          `json:"last_seen"`
	TopicHistory     []TopicEntry                       `json:"topic_history"`
}

// NewUserProfile creates a default-initialized profile for a user id. Every
// attribute slot starts with its default value at default-source confidence.
func NewUserProfile(userID string) *UserProfile {
	now := time.Now().UTC()
	attrs := make(map[AttributeName]ProfileAttribute, len(AllAttributes))
	for _, name := range AllAttributes {
		attrs[name] = ProfileAttribute{
			Value:       attributeDefaults[name],
			Confidence:  0,
			LastUpdated: now,
			Source:      SourceDefault,
		}
	}
	return &UserProfile{
		UserID:     userID,
		Attributes: attrs,
		FirstSeen:  now,
		LastSeen:   now,
	}
}

// UpdateAttribute applies the merge rule: a new observation replaces the
// stored value only if its confidence is at least the stored confidence, or
// its source is explicit (explicit always wins). Confidence is clamped to
// the per-source bounds. Unknown attribute names are rejected.
func (p *UserProfile) UpdateAttribute(name AttributeName, value string, confidence float64, source AttributeSource) error {
	if !ValidAttribute(name) {
		return fmt.Errorf("%w: %q", ErrInvalidAttribute, name)
	}

	switch source {
	case SourceExplicit:
		if confidence < ExplicitFloor {
			confidence = ExplicitFloor
		}
	case SourceDefault:
		if confidence > DefaultCeiling {
			confidence = DefaultCeiling
		}
	}

	current := p.Attributes[name]
	if source != SourceExplicit && confidence < current.Confidence {
		return nil
	}

	p.Attributes[name] = ProfileAttribute{
		Value:       value,
		Confidence:  confidence,
		LastUpdated: time.Now().UTC(),
		Source:      source,
	}
	p.LastSeen = time.Now().UTC()
	return nil
}

// AttributeValue returns the stored value for an attribute slot, falling
// back to the slot default when the slot is empty.
func (p *UserProfile) AttributeValue(name AttributeName) string {
	if attr, ok := p.Attributes[name]; ok && attr.Value != "" {
		return attr.Value
	}
	return attributeDefaults[name]
}

// AttributeConfidence returns the stored confidence for an attribute slot.
func (p *UserProfile) AttributeConfidence(name AttributeName) float64 {
	return p.Attributes[name].Confidence
}

// TrackInteraction bumps interaction bookkeeping and appends the classified
// intent to the topic history. The history is append-only.
func (p *UserProfile) TrackInteraction(intent Intent) {
	p.InteractionCount++
	p.LastSeen = time.Now().UTC()
	if intent != "" {
		p.TopicHistory = append(p.TopicHistory, TopicEntry{Intent: intent, Timestamp: time.Now().UTC()})
	}
}

// Snapshot returns a deep copy safe to hand outside the owning session.
func (p *UserProfile) Snapshot() UserProfile {
	cp := *p
	cp.Attributes = make(map[AttributeName]ProfileAttribute, len(p.Attributes))
	for k, v := range p.Attributes {
		cp.Attributes[k] = v
	}
	cp.TopicHistory = append([]TopicEntry(nil), p.TopicHistory...)
	return cp
}
