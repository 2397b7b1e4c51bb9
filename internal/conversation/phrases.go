package conversation

import "strings"

var endDirectMatches = []string{"exit", "end", "bye", "goodbye", "quit", "stop"}

var endPhrases = []string{
	"exit conversation", "end conversation",
	"end the chat", "quit the chat", "stop the conversation", "stop talking",
	"that's all", "i'm done", "we're done",
}

var confirmationPhrases = []string{
	"yes", "yeah", "yep", "sure", "ok", "okay", "continue",
	"go ahead", "proceed", "that's right", "correct", "right",
	"do it", "sounds good", "please do", "absolutely",
}

var rejectionPhrases = []string{
	"no", "nope", "nah", "stop", "don't", "do not", "cancel",
	"skip", "nevermind", "forget it", "incorrect", "wrong",
}

// isEndRequest reports whether the message asks to end the conversation.
// Exact single-word matches are checked first, then longer phrases anywhere
// in the message, to keep false positives down on words like "stop".
func isEndRequest(message string) bool {
	message = strings.ToLower(strings.TrimSpace(message))
	for _, m := range endDirectMatches {
		if message == m {
			return true
		}
	}
	for _, phrase := range endPhrases {
		if strings.Contains(message, phrase) {
			return true
		}
	}
	// Affirmative answers that mention ending ("yes, end it please").
	affirmative := strings.Contains(message, "yes") || strings.Contains(message, "yeah") || strings.Contains(message, "sure")
	ending := strings.Contains(message, "end") || strings.Contains(message, "exit") || strings.Contains(message, "stop")
	return affirmative && ending
}

// isConfirmation reports whether the message affirms a pending confirmation.
func isConfirmation(message string) bool {
	return matchesPhrase(message, confirmationPhrases)
}

// isRejection reports whether the message declines a pending confirmation.
func isRejection(message string) bool {
	return matchesPhrase(message, rejectionPhrases)
}

func matchesPhrase(message string, phrases []string) bool {
	message = strings.ToLower(strings.TrimSpace(message))
	for _, phrase := range phrases {
		if message == phrase || strings.HasPrefix(message, phrase+" ") || strings.HasPrefix(message, phrase+",") {
			return true
		}
	}
	return false
}
