package model

// Envelope is the single per-turn decision handed to response generation.
// When RequiresGeneration is false, FixedMessage carries the complete reply
// (welcome, collection question, confirmation, ending).
type Envelope struct {
	State              ConversationState `json:"state"`
	Intent             Intent            `json:"intent,omitempty"`
	SpecificTopic      string            `json:"specific_topic,omitempty"`
	Profile            UserProfile       `json:"profile"`
	RequiresGeneration bool              `json:"requires_generation"`
	FixedMessage       string            `json:"fixed_message,omitempty"`

	// Template and Variables bind the generation-service contract: the
	// template identifier plus the variable bindings it expects.
	Template  string            `json:"template,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`

	// FollowUp reports whether the message continued the previous topic.
	FollowUp bool `json:"follow_up,omitempty"`
}

// Generation template identifiers, one per intent plus the fallback.
const (
	TemplateFundamentals   = "fundamentals"
	TemplateImplementation = "implementation"
	TemplateComparison     = "comparison"
	TemplateNews           = "news"
	TemplateFallback       = "fallback"
)

// TemplateFor returns the generation template identifier for an intent.
func TemplateFor(intent Intent) string {
	switch intent {
	case IntentFundamentals:
		return TemplateFundamentals
	case IntentImplementation:
		return TemplateImplementation
	case IntentComparison:
		return TemplateComparison
	case IntentNews:
		return TemplateNews
	default:
		return TemplateFallback
	}
}

// ProcessTurnRequest is the caller-facing request for one turn.
type ProcessTurnRequest struct {
	Text string `json:"text"`
}

// ProcessTurnResponse is the caller-facing result of one turn.
type ProcessTurnResponse struct {
	Envelope Envelope `json:"envelope"`
	Reply    string   `json:"reply"`
}

// SessionStatusResponse reports whether a session can still accept turns.
type SessionStatusResponse struct {
	UserID string            `json:"user_id"`
	State  ConversationState `json:"state"`
	Active bool              `json:"active"`
}
