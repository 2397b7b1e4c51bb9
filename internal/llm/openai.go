package llm

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient is the OpenAI generation client.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	return &OpenAIClient{client: openai.NewClient(apiKey)}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Models returns available models.
func (c *OpenAIClient) Models() []string {
	return []string{
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4-turbo",
		"gpt-4",
		"gpt-3.5-turbo",
	}
}

func (c *OpenAIClient) buildRequest(req *CompletionRequest, stream bool) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = "gpt-4o"
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
		Stream:      stream,
	}
}

// Complete sends a completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req, false))
	if err != nil {
		return nil, err
	}

	var content, stopReason string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		stopReason = string(resp.Choices[0].FinishReason)
	}

	return &CompletionResponse{
		Content:    content,
		Model:      resp.Model,
		TokensIn:   resp.Usage.PromptTokens,
		TokensOut:  resp.Usage.CompletionTokens,
		StopReason: stopReason,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// CompleteStream starts a streaming completion.
func (c *OpenAIClient) CompleteStream(ctx context.Context, req *CompletionRequest) (*Stream, error) {
	start := time.Now()

	streamCtx, cancel := context.WithCancel(ctx)

	providerStream, err := c.client.CreateChatCompletionStream(streamCtx, c.buildRequest(req, true))
	if err != nil {
		cancel()
		return nil, err
	}

	out := NewStream(cancel)

	go func() {
		defer providerStream.Close()
		defer cancel()

		var content, stopReason string
		index := 0

		for {
			response, err := providerStream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				out.Finish(nil, err)
				return
			}

			if len(response.Choices) > 0 {
				delta := response.Choices[0].Delta.Content
				if delta != "" {
					if !out.Push(streamCtx, Fragment{Text: delta, Index: index}) {
						out.Finish(nil, nil)
						return
					}
					content += delta
					index++
				}
				if response.Choices[0].FinishReason != "" {
					stopReason = string(response.Choices[0].FinishReason)
				}
			}
		}

		// OpenAI streaming does not report token usage; estimate from length.
		out.Finish(&CompletionResponse{
			Content:    content,
			Model:      req.Model,
			TokensIn:   len(content) / 4,
			TokensOut:  len(content) / 4,
			StopReason: stopReason,
			LatencyMs:  time.Since(start).Milliseconds(),
		}, nil)
	}()

	return out, nil
}
