package model

// ConversationState enumerates the states of the per-session state machine.
type ConversationState string

const (
	// StateIdle is the initial state before the first message of a session.
	StateIdle ConversationState = "IDLE"
	// StateOnboarding collects the core attributes from a first-time user.
	StateOnboarding ConversationState = "ONBOARDING"
	// StateInfoCollection waits for the answer to a single attribute
	// question while the original request is parked as a pending query.
	StateInfoCollection ConversationState = "INFO_COLLECTION"
	// StateProcessing classifies and routes the current message.
	StateProcessing ConversationState = "PROCESSING"
	// StateResponding hands a decision envelope to response generation.
	StateResponding ConversationState = "RESPONDING"
	// StateAwaitingConfirmation waits for the user to confirm ending.
	StateAwaitingConfirmation ConversationState = "AWAITING_CONFIRMATION"
	// StateEnding is terminal; no transition leaves it.
	StateEnding ConversationState = "ENDING"
)

// Terminal reports whether the state machine can still advance.
func (s ConversationState) Terminal() bool {
	return s == StateEnding
}
