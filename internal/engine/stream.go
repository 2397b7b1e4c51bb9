package engine

import (
	"sync"

	"github.com/converso-ai/dialogue-engine/internal/llm"
)

// TurnStream wraps a generation stream and commits the delivered fragments
// to the session once the sequence terminates. Cancelling mid-stream keeps
// the fragments already delivered; the committed turn is marked truncated.
type TurnStream struct {
	inner  *llm.Stream
	once   sync.Once
	commit func(delivered string, partial bool)
}

// Recv returns the next fragment, or io.EOF when the reply is complete.
func (s *TurnStream) Recv() (llm.Fragment, error) {
	f, err := s.inner.Recv()
	if err != nil {
		s.once.Do(func() { s.commit(s.inner.Text(), s.inner.Partial()) })
	}
	return f, err
}

// Cancel stops consumption and commits what was delivered so far.
func (s *TurnStream) Cancel() {
	s.inner.Cancel()
	s.once.Do(func() { s.commit(s.inner.Text(), true) })
}

// Partial reports whether the reply terminated before completion.
func (s *TurnStream) Partial() bool {
	return s.inner.Partial()
}

// Text returns the fragments delivered so far.
func (s *TurnStream) Text() string {
	return s.inner.Text()
}
