// Package llm provides generation service clients. Streaming responses are
// exposed as cancellable lazy sequences of fragments rather than callbacks,
// so truncation on cancellation is a first-class outcome.
package llm

import (
	"context"
	"io"
	"strings"
	"sync"
)

// CompletionRequest represents a generation request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// ChatMessage represents a chat message for the LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a complete generation response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for generation providers.
type Client interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// CompleteStream starts a streaming completion. The returned Stream is a
	// finite, non-restartable sequence of fragments.
	CompleteStream(ctx context.Context, req *CompletionRequest) (*Stream, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// Fragment is one streamed piece of generated text.
type Fragment struct {
	Text  string
	Index int
}

// Stream is a lazy, finite, non-restartable sequence of text fragments.
// Recv returns io.EOF after the final fragment; Cancel stops consumption and
// marks the sequence partial. Text accumulates only fragments actually
// delivered through Recv.
type Stream struct {
	fragments chan Fragment
	cancel    context.CancelFunc

	mu      sync.Mutex
	err     error
	partial bool
	text    strings.Builder
	resp    *CompletionResponse
}

// NewStream creates a stream fed through Push and Finish. Client
// implementations own the producer side; consumers only see Recv and Cancel.
func NewStream(cancel context.CancelFunc) *Stream {
	return &Stream{
		fragments: make(chan Fragment),
		cancel:    cancel,
	}
}

// Recv returns the next fragment, or io.EOF when the sequence is exhausted.
func (s *Stream) Recv() (Fragment, error) {
	f, ok := <-s.fragments
	if !ok {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.err != nil {
			return Fragment{}, s.err
		}
		return Fragment{}, io.EOF
	}
	s.mu.Lock()
	s.text.WriteString(f.Text)
	s.mu.Unlock()
	return f, nil
}

// Cancel stops the stream. Fragments already delivered remain valid; the
// sequence is marked partial.
func (s *Stream) Cancel() {
	s.mu.Lock()
	s.partial = true
	s.mu.Unlock()
	s.cancel()
}

// Partial reports whether the sequence terminated before completion.
func (s *Stream) Partial() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partial
}

// Text returns the concatenation of fragments delivered so far.
func (s *Stream) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// Response returns provider metadata, available once Recv returned io.EOF
// on a completed (non-partial) stream.
func (s *Stream) Response() *CompletionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resp
}

// Producer-side helpers used by provider implementations.

// Push delivers one fragment; it returns false once the consumer cancelled.
func (s *Stream) Push(ctx context.Context, f Fragment) bool {
	select {
	case s.fragments <- f:
		return true
	case <-ctx.Done():
		s.mu.Lock()
		s.partial = true
		s.mu.Unlock()
		return false
	}
}

// Finish terminates the sequence, recording metadata on success.
func (s *Stream) Finish(resp *CompletionResponse, err error) {
	s.mu.Lock()
	s.resp = resp
	if err != nil && !s.partial {
		s.err = err
		s.partial = true
	}
	s.mu.Unlock()
	close(s.fragments)
}

// Provider is the type of generation provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewClient creates a new generation client based on provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return NewOpenAIClient(apiKey)
	}
}
