package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), DefaultConfig(), "")
	assert.Error(t, err)
}

func TestNewClient_UnsupportedProvider(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{Provider: "other"}, "key")
	assert.Error(t, err)
}

func TestExtractTextFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("{\"summary\": "), genai.Text("\"ok\"}")}},
		}},
	}
	text, err := extractTextFromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"summary": "ok"}`, text)
}

func TestExtractTextFromResponse_Empty(t *testing.T) {
	cases := []*genai.GenerateContentResponse{
		nil,
		{},
		{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}},
		{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Text("   ")}}}}},
	}
	for _, resp := range cases {
		_, err := extractTextFromResponse(resp)
		assert.True(t, errors.Is(err, ErrEmptyResponse))
	}
}

func TestCallError(t *testing.T) {
	err := &CallError{Model: "gemini-2.5-flash", Cause: context.DeadlineExceeded}
	assert.Contains(t, err.Error(), "gemini-2.5-flash")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
