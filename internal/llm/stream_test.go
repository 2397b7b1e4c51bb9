package llm

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func produce(ctx context.Context, s *Stream, fragments ...string) {
	go func() {
		for i, text := range fragments {
			if !s.Push(ctx, Fragment{Text: text, Index: i}) {
				s.Finish(nil, ctx.Err())
				return
			}
		}
		s.Finish(&CompletionResponse{Content: "", Model: "test"}, nil)
	}()
}

func TestStreamDeliversAllFragments(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStream(cancel)
	produce(ctx, s, "hel", "lo ", "world")

	var got []string
	for {
		f, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, f.Text)
	}

	assert.Equal(t, []string{"hel", "lo ", "world"}, got)
	assert.Equal(t, "hello world", s.Text())
	assert.False(t, s.Partial())
	require.NotNil(t, s.Response())
	assert.Equal(t, "test", s.Response().Model)
}

func TestStreamCancelKeepsDeliveredFragments(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStream(cancel)
	produce(ctx, s, "one ", "two ", "three ", "four")

	f, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "one ", f.Text)

	s.Cancel()

	// Drain whatever remains; the stream must terminate.
	for {
		if _, err := s.Recv(); err != nil {
			break
		}
	}

	assert.True(t, s.Partial())
	// Text holds only fragments actually delivered through Recv, in order.
	assert.True(t, strings.HasPrefix("one two three four", s.Text()))
}

func TestStreamProducerErrorSurfacesAfterFragments(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStream(cancel)
	bang := errors.New("upstream hiccup")
	go func() {
		s.Push(ctx, Fragment{Text: "partial", Index: 0})
		s.Finish(nil, bang)
	}()

	f, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "partial", f.Text)

	_, err = s.Recv()
	assert.ErrorIs(t, err, bang)
	assert.True(t, s.Partial())
}
