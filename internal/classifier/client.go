// Package classifier defines the classification service contract: structured
// intent/domain judgments over user text, with confidence scores. The engine
// only depends on this interface; latency and availability of the backing
// service are handled by the intent policy layer.
package classifier

import (
	"context"
	"errors"

	"github.com/converso-ai/dialogue-engine/internal/model"
)

// ErrTimeout is returned when a classification call exceeds its deadline.
var ErrTimeout = errors.New("classifier: call timed out")

// RelevanceJudgment is the first-stage domain relevance check.
type RelevanceJudgment struct {
	IsRelevant    bool     `json:"is_relevant"`
	Confidence    float64  `json:"confidence"`
	RelatedTopics []string `json:"related_topics"`
	Reasoning     string   `json:"reasoning"`
}

// IntentJudgment is the second-stage intent classification.
type IntentJudgment struct {
	Label      string   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Topics     []string `json:"topics"`
}

// FollowUpJudgment reports whether a message continues the previous topic.
type FollowUpJudgment struct {
	IsFollowUp bool    `json:"is_follow_up"`
	Confidence float64 `json:"confidence"`
}

// Extraction carries incidental attribute evidence found in free text.
// Empty fields mean no evidence.
type Extraction struct {
	Name                string  `json:"name"`
	TechnicalLevel      string  `json:"technical_level"`
	InterestArea        string  `json:"interest_area"`
	ProjectStage        string  `json:"project_stage"`
	ComparisonCriterion string  `json:"comparison_criterion"`
	DepthPreference     string  `json:"depth_preference"`
	Confidence          float64 `json:"confidence"`
}

// Update is one attribute observation derived from an extraction.
type Update struct {
	Attribute  model.AttributeName
	Value      string
	Confidence float64
}

// Updates flattens the non-empty extraction fields into attribute updates.
func (e *Extraction) Updates() []Update {
	conf := e.Confidence
	if conf <= 0 {
		conf = 0.6
	}
	fields := []struct {
		attr  model.AttributeName
		value string
	}{
		{model.AttrName, e.Name},
		{model.AttrTechnicalLevel, e.TechnicalLevel},
		{model.AttrInterestArea, e.InterestArea},
		{model.AttrProjectStage, e.ProjectStage},
		{model.AttrComparisonCriterion, e.ComparisonCriterion},
		{model.AttrDepthPreference, e.DepthPreference},
	}
	var updates []Update
	for _, f := range fields {
		if f.value != "" {
			updates = append(updates, Update{Attribute: f.attr, Value: f.value, Confidence: conf})
		}
	}
	return updates
}

// Client is the interface the classification service must satisfy. Every
// call must respect the context deadline.
type Client interface {
	// ClassifyRelevance judges whether the message is in-domain at all.
	ClassifyRelevance(ctx context.Context, text string, history []model.Turn) (*RelevanceJudgment, error)

	// ClassifyIntent classifies an in-domain message into an intent label.
	ClassifyIntent(ctx context.Context, text string, history []model.Turn) (*IntentJudgment, error)

	// DetectFollowUp judges whether the message continues the prior topic.
	DetectFollowUp(ctx context.Context, text string, history []model.Turn) (*FollowUpJudgment, error)

	// ExtractAttributes scans free text for incidental profile evidence.
	ExtractAttributes(ctx context.Context, text string) (*Extraction, error)
}
