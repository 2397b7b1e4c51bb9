package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/converso-ai/dialogue-engine/internal/model"
)

const relevanceSystemPrompt = `You are a classifier for a specialized assistant that ONLY covers Large Language Models (LLMs) and closely associated AI technologies: model architectures, tokenization, embeddings, prompt engineering, fine-tuning, LLM applications, chatbots, retrieval systems used with LLMs, and LLM research.
Analyze the MEANING of the query, not just keywords. "How do I make my chatbot sound more human?" is in-domain even without the word "LLM".
Respond with JSON: {"is_relevant": bool, "confidence": float 0-1, "related_topics": [strings], "reasoning": string}.`

const intentSystemPrompt = `You classify in-domain user queries about Large Language Models into exactly one intent:
FUNDAMENTALS - conceptual questions about how LLMs work
IMPLEMENTATION - building, deploying or fine-tuning guidance
COMPARISON - evaluating or choosing between models
NEWS - recent developments and trends
UNKNOWN - none of the above
Respond with JSON: {"intent": string, "confidence": float 0-1, "reasoning": string, "topics": [strings]}.`

const followUpSystemPrompt = `Given the recent conversation and the current user message, determine whether the message is a follow-up that continues the previous topic rather than opening a new one.
Respond with JSON: {"is_follow_up": bool, "confidence": float 0-1}.`

const extractionSystemPrompt = `Extract any incidental user information from the message. Only report values actually evidenced by the text; leave everything else empty.
Fields: name; technical_level (beginner|intermediate|advanced); interest_area (research|applications); project_stage (planning|development|optimization); comparison_criterion (accuracy|speed|cost); depth_preference (brief|standard|detailed).
Respond with JSON: {"name": string, "technical_level": string, "interest_area": string, "project_stage": string, "comparison_criterion": string, "depth_preference": string, "confidence": float 0-1}.`

// OpenAIClient implements the classification contract on the OpenAI chat API
// with JSON-mode structured outputs.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI-backed classifier.
func NewOpenAIClient(apiKey, modelName string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  modelName,
	}, nil
}

// ClassifyRelevance judges whether the message is in-domain.
func (c *OpenAIClient) ClassifyRelevance(ctx context.Context, text string, history []model.Turn) (*RelevanceJudgment, error) {
	var out RelevanceJudgment
	if err := c.judge(ctx, relevanceSystemPrompt, text, history, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClassifyIntent classifies an in-domain message into an intent label.
func (c *OpenAIClient) ClassifyIntent(ctx context.Context, text string, history []model.Turn) (*IntentJudgment, error) {
	var out IntentJudgment
	if err := c.judge(ctx, intentSystemPrompt, text, history, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DetectFollowUp judges whether the message continues the prior topic.
func (c *OpenAIClient) DetectFollowUp(ctx context.Context, text string, history []model.Turn) (*FollowUpJudgment, error) {
	var out FollowUpJudgment
	if err := c.judge(ctx, followUpSystemPrompt, text, history, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExtractAttributes scans free text for incidental profile evidence.
func (c *OpenAIClient) ExtractAttributes(ctx context.Context, text string) (*Extraction, error) {
	var out Extraction
	if err := c.judge(ctx, extractionSystemPrompt, text, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// judge runs one structured-output classification call and decodes the
// JSON response into result.
func (c *OpenAIClient) judge(ctx context.Context, system, text string, history []model.Turn, result any) error {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
	}
	if len(history) > 0 {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Recent conversation:\n" + renderHistory(history),
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return fmt.Errorf("classification call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return errors.New("classification call returned no choices")
	}

	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), result); err != nil {
		return fmt.Errorf("failed to decode classification response: %w", err)
	}
	return nil
}

func renderHistory(history []model.Turn) string {
	var b strings.Builder
	for _, t := range history {
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	return b.String()
}
