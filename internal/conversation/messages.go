package conversation

import "fmt"

const exitReminder = " You can also say 'exit' or 'end' at any time to end our conversation."

const welcomeMessage = "Welcome! I'm your specialized assistant for navigating the world of " +
	"large language models. I can help you understand LLM fundamentals, " +
	"provide implementation guidance, compare different models, or discuss " +
	"the latest trends in the field. What would you like to explore today?" + exitReminder

const confirmEndMessage = "Would you like to end our conversation here? Just say yes to wrap up, " +
	"or keep asking questions and we'll continue."

const apologyMessage = "Sorry, I ran into a problem handling that. Could you try asking again?"

func farewellMessage(name string) string {
	if name != "" {
		return fmt.Sprintf("Thank you for chatting, %s! It's been a pleasure assisting you with your "+
			"LLM questions. Feel free to reach out anytime for more help with language models. Have a great day!", name)
	}
	return "Thank you for chatting! It's been a pleasure assisting you with your " +
		"LLM questions. Feel free to reach out anytime for more help with language models. Have a great day!"
}

func onboardingCompleteMessage(name string) string {
	if name != "" {
		return fmt.Sprintf("Thanks for sharing that, %s! I'm ready when you are. "+
			"Ask me anything about large language models.", name)
	}
	return "Thanks for sharing that! I'm ready when you are. Ask me anything about large language models."
}
