package llm

import (
	"context"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient is the Anthropic generation client.
type AnthropicClient struct {
	client *anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}
	return &AnthropicClient{client: anthropic.NewClient(option.WithAPIKey(apiKey))}, nil
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Models returns available models.
func (c *AnthropicClient) Models() []string {
	return []string{
		"claude-3-5-sonnet-20241022",
		"claude-3-5-haiku-20241022",
		"claude-3-opus-20240229",
	}
}

func (c *AnthropicClient) buildParams(req *CompletionRequest) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	messages := make([]anthropic.MessageParam, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = anthropic.MessageParam{
			Role: anthropic.F(anthropic.MessageParamRole(msg.Role)),
			Content: anthropic.F([]anthropic.ContentBlockParamUnion{
				anthropic.TextBlockParam{
					Type: anthropic.F(anthropic.TextBlockParamTypeText),
					Text: anthropic.F(msg.Content),
				},
			}),
		}
	}

	return anthropic.MessageNewParams{
		Model:     anthropic.F(model),
		MaxTokens: anthropic.F(int64(maxTokens)),
		Messages:  anthropic.F(messages),
	}
}

// Complete sends a completion request.
func (c *AnthropicClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	resp, err := c.client.Messages.New(ctx, c.buildParams(req))
	if err != nil {
		return nil, err
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content += block.Text
		}
	}

	return &CompletionResponse{
		Content:    content,
		Model:      resp.Model,
		TokensIn:   int(resp.Usage.InputTokens),
		TokensOut:  int(resp.Usage.OutputTokens),
		StopReason: string(resp.StopReason),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// CompleteStream starts a streaming completion.
func (c *AnthropicClient) CompleteStream(ctx context.Context, req *CompletionRequest) (*Stream, error) {
	start := time.Now()

	streamCtx, cancel := context.WithCancel(ctx)
	providerStream := c.client.Messages.NewStreaming(streamCtx, c.buildParams(req))

	out := NewStream(cancel)

	go func() {
		defer cancel()

		var content, stopReason string
		var tokensOut int
		index := 0

		for providerStream.Next() {
			event := providerStream.Current()

			switch event.Type {
			case anthropic.MessageStreamEventTypeContentBlockDelta:
				if delta, ok := event.Delta.(anthropic.ContentBlockDeltaEventDelta); ok && delta.Type == "text_delta" {
					token := delta.Text
					if !out.Push(streamCtx, Fragment{Text: token, Index: index}) {
						out.Finish(nil, nil)
						return
					}
					content += token
					index++
				}
			case anthropic.MessageStreamEventTypeMessageDelta:
				if delta, ok := event.Delta.(anthropic.MessageDeltaEventDelta); ok {
					stopReason = string(delta.StopReason)
				}
				tokensOut = int(event.Usage.OutputTokens)
			}
		}

		if err := providerStream.Err(); err != nil {
			out.Finish(nil, err)
			return
		}

		out.Finish(&CompletionResponse{
			Content:    content,
			Model:      req.Model,
			TokensIn:   len(content) / 4,
			TokensOut:  tokensOut,
			StopReason: stopReason,
			LatencyMs:  time.Since(start).Milliseconds(),
		}, nil)
	}()

	return out, nil
}
