package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserProfileDefaults(t *testing.T) {
	p := NewUserProfile("u1")

	assert.Equal(t, "u1", p.UserID)
	assert.Len(t, p.Attributes, len(AllAttributes))
	for _, name := range AllAttributes {
		attr := p.Attributes[name]
		assert.Equal(t, SourceDefault, attr.Source)
		assert.Zero(t, attr.Confidence)
	}
	assert.Equal(t, "intermediate", p.AttributeValue(AttrTechnicalLevel))
}

func TestUpdateAttributeMergeRule(t *testing.T) {
	tests := []struct {
		name       string
		first      ProfileAttribute
		value      string
		confidence float64
		source     AttributeSource
		wantValue  string
	}{
		{
			name:       "higher confidence replaces",
			first:      ProfileAttribute{Value: "beginner", Confidence: 0.5, Source: SourceImplicit},
			value:      "advanced",
			confidence: 0.7,
			source:     SourceImplicit,
			wantValue:  "advanced",
		},
		{
			name:       "equal confidence replaces",
			first:      ProfileAttribute{Value: "beginner", Confidence: 0.5, Source: SourceImplicit},
			value:      "advanced",
			confidence: 0.5,
			source:     SourceImplicit,
			wantValue:  "advanced",
		},
		{
			name:       "lower confidence ignored",
			first:      ProfileAttribute{Value: "beginner", Confidence: 0.8, Source: SourceImplicit},
			value:      "advanced",
			confidence: 0.4,
			source:     SourceImplicit,
			wantValue:  "beginner",
		},
		{
			name:       "explicit always wins",
			first:      ProfileAttribute{Value: "beginner", Confidence: 1.0, Source: SourceImplicit},
			value:      "advanced",
			confidence: 0.1,
			source:     SourceExplicit,
			wantValue:  "advanced",
		},
		{
			name:       "default never displaces implicit",
			first:      ProfileAttribute{Value: "beginner", Confidence: 0.5, Source: SourceImplicit},
			value:      "intermediate",
			confidence: 0.9,
			source:     SourceDefault,
			wantValue:  "beginner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewUserProfile("u1")
			p.Attributes[AttrTechnicalLevel] = tt.first

			require.NoError(t, p.UpdateAttribute(AttrTechnicalLevel, tt.value, tt.confidence, tt.source))
			assert.Equal(t, tt.wantValue, p.Attributes[AttrTechnicalLevel].Value)
		})
	}
}

func TestUpdateAttributeClampsConfidence(t *testing.T) {
	p := NewUserProfile("u1")

	require.NoError(t, p.UpdateAttribute(AttrName, "Alice", 0.2, SourceExplicit))
	assert.GreaterOrEqual(t, p.Attributes[AttrName].Confidence, ExplicitFloor)

	require.NoError(t, p.UpdateAttribute(AttrDepthPreference, "brief", 0.95, SourceDefault))
	assert.LessOrEqual(t, p.Attributes[AttrDepthPreference].Confidence, DefaultCeiling)
}

func TestUpdateAttributeRejectsUnknownName(t *testing.T) {
	p := NewUserProfile("u1")
	err := p.UpdateAttribute("favorite_color", "blue", 0.9, SourceExplicit)
	assert.ErrorIs(t, err, ErrInvalidAttribute)
}

func TestTrackInteraction(t *testing.T) {
	p := NewUserProfile("u1")

	p.TrackInteraction(IntentFundamentals)
	p.TrackInteraction(IntentNews)

	assert.Equal(t, 2, p.InteractionCount)
	require.Len(t, p.TopicHistory, 2)
	assert.Equal(t, IntentFundamentals, p.TopicHistory[0].Intent)
	assert.Equal(t, IntentNews, p.TopicHistory[1].Intent)
}

func TestProfileJSONRoundTrip(t *testing.T) {
	p := NewUserProfile("u1")
	require.NoError(t, p.UpdateAttribute(AttrName, "Alice", 0.95, SourceExplicit))
	require.NoError(t, p.UpdateAttribute(AttrTechnicalLevel, "advanced", 0.7, SourceImplicit))
	p.TrackInteraction(IntentComparison)

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var got UserProfile
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, *p, got)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	p := NewUserProfile("u1")
	require.NoError(t, p.UpdateAttribute(AttrName, "Alice", 0.9, SourceExplicit))

	snap := p.Snapshot()
	require.NoError(t, p.UpdateAttribute(AttrName, "Bob", 0.95, SourceExplicit))

	assert.Equal(t, "Alice", snap.Attributes[AttrName].Value)
	assert.Equal(t, "Bob", p.Attributes[AttrName].Value)
}
