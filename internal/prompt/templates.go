// Package prompt renders generation requests: a template identifier plus
// variable bindings and recent history become the chat messages sent to the
// generation provider.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/converso-ai/dialogue-engine/internal/llm"
	"github.com/converso-ai/dialogue-engine/internal/model"
)

var placeholderPattern = regexp.MustCompile(`\{[a-z_]+\}`)

// systemTemplates maps a template identifier to its system prompt. Variables
// appear as {name} placeholders.
var systemTemplates = map[string]string{
	model.TemplateFundamentals: `You are a specialized assistant for Large Language Models. You explain LLM concepts with clarity and accuracy.
The user has a {technical_level} level of expertise with LLMs.
If beginner: use analogies, avoid jargon, build intuition. If intermediate: balance technical detail with clear explanation. If advanced: give in-depth technical explanations with architecture specifics.
The user wants to know about "{specific_topic}". Address this topic directly.
Keep the response {depth_preference} in depth.`,

	model.TemplateImplementation: `You are a specialized assistant for Large Language Models, focused on practical implementation guidance.
The user's project is in the {project_stage} stage and they have a {technical_level} level of expertise.
The user wants help with "{specific_topic}". Give concrete, actionable guidance appropriate to their project stage.`,

	model.TemplateComparison: `You are a specialized assistant for Large Language Models, focused on comparing models and approaches.
The user's primary evaluation criterion is {comparison_criterion}.
The user wants a comparison regarding "{specific_topic}". Structure the comparison around their criterion, noting trade-offs against the others.`,

	model.TemplateNews: `You are a specialized assistant for Large Language Models, focused on recent developments.
The user's interest area is {interest_area}.
The user asked about "{specific_topic}". Summarize relevant recent developments, oriented toward their interest area.`,

	model.TemplateFallback: `You are a specialized assistant for Large Language Models. The user's message could not be classified into a specific topic area.
Answer helpfully if the message relates to LLMs; otherwise explain that you specialize in Large Language Models and suggest LLM topics you can help with (fundamentals, implementation, model comparison, recent developments).`,
}

// Render builds the chat messages for a generation call from a template
// identifier, variable bindings, and recent history. Unknown template ids
// fall back to the generic template.
func Render(templateID string, vars map[string]string, history []model.Turn) ([]llm.ChatMessage, error) {
	system, ok := systemTemplates[templateID]
	if !ok {
		system = systemTemplates[model.TemplateFallback]
	}

	// Check bindings against the template's own placeholders; bound values
	// may legitimately contain braces. A single-pass replacer keeps braces
	// inside substituted values untouched.
	placeholders := placeholderPattern.FindAllString(system, -1)
	oldnew := make([]string, 0, len(placeholders)*2)
	for _, placeholder := range placeholders {
		name := strings.Trim(placeholder, "{}")
		value, bound := vars[name]
		if !bound {
			return nil, fmt.Errorf("template %q has no binding for %s", templateID, name)
		}
		oldnew = append(oldnew, placeholder, value)
	}
	system = strings.NewReplacer(oldnew...).Replace(system)

	messages := []llm.ChatMessage{{Role: string(model.RoleSystem), Content: system}}
	for _, t := range history {
		role := string(t.Role)
		if t.Role == model.RoleSystem {
			continue
		}
		messages = append(messages, llm.ChatMessage{Role: role, Content: t.Content})
	}
	return messages, nil
}

// Variables assembles the standard variable bindings for a profile and topic.
func Variables(profile *model.UserProfile, topic string) map[string]string {
	return map[string]string{
		"name":                 profile.AttributeValue(model.AttrName),
		"technical_level":      profile.AttributeValue(model.AttrTechnicalLevel),
		"interest_area":        profile.AttributeValue(model.AttrInterestArea),
		"project_stage":        profile.AttributeValue(model.AttrProjectStage),
		"comparison_criterion": profile.AttributeValue(model.AttrComparisonCriterion),
		"depth_preference":     profile.AttributeValue(model.AttrDepthPreference),
		"specific_topic":       topic,
	}
}
