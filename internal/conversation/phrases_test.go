package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEndRequest(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"bye", true},
		{"Goodbye", true},
		{"exit", true},
		{"that's all for today", true},
		{"i'm done, thanks", true},
		{"please end the chat", true},
		{"yes, end it", true},
		{"what is a transformer?", false},
		{"how do I stop my model overfitting?", false},
		{"tell me about early stopping", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isEndRequest(tt.message), "message %q", tt.message)
	}
}

func TestIsConfirmation(t *testing.T) {
	assert.True(t, isConfirmation("yes"))
	assert.True(t, isConfirmation("Yeah, sounds good"))
	assert.True(t, isConfirmation("go ahead"))
	assert.False(t, isConfirmation("no"))
	assert.False(t, isConfirmation("what about quantization?"))
}

func TestIsRejection(t *testing.T) {
	assert.True(t, isRejection("no"))
	assert.True(t, isRejection("nope, keep going"))
	assert.True(t, isRejection("nevermind"))
	assert.False(t, isRejection("yes"))
	assert.False(t, isRejection("compare gpt-4 and claude"))
}

func TestSubstantive(t *testing.T) {
	assert.True(t, substantive("What is a transformer?"))
	assert.True(t, substantive("tell me about mixture of experts"))
	assert.False(t, substantive("hi"))
	assert.False(t, substantive("hello there"))
}
