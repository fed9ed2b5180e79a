package parser

import (
	"context"
	"errors"
	"testing"

	"resume-parser-go/pkg/llm"

	einoschema "github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMRefinerParsesResponses(t *testing.T) {
	testCases := []struct {
		name     string
		response string
		wantKey  string
		wantVal  interface{}
	}{
		{"plain object", `{"id": "r1", "skills": ["go"]}`, "id", "r1"},
		{"code fence", "```json\n{\"id\": \"r2\"}\n```", "id", "r2"},
		{"prose around", "Here is the result:\n{\"id\": \"r3\", \"note\": \"a } brace\"}\nThanks!", "note", "a } brace"},
		{"byte order mark", "\ufeff{\"id\": \"r4\"}", "id", "r4"},
		{"nested objects", `{"personalInfo": {"contact": {"email": "x@y.z"}}, "id": "r5"}`, "id", "r5"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewLLMRefiner(llm.NewMockChatClient(tc.response, nil), zerolog.Nop())
			got, err := r.Refine(context.Background(), map[string]interface{}{"id": "orig"})
			require.NoError(t, err)
			assert.Equal(t, tc.wantVal, got[tc.wantKey])
		})
	}
}

func TestLLMRefinerRejectsInvalidOutput(t *testing.T) {
	testCases := []struct {
		name     string
		response string
	}{
		{"array", `["a", "b"]`},
		{"no json", "sorry, I cannot help"},
		{"unbalanced", `{"id": "r1"`},
		{"empty", "   "},
		{"null", "null"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewLLMRefiner(llm.NewMockChatClient(tc.response, nil), zerolog.Nop())
			got, err := r.Refine(context.Background(), map[string]interface{}{})
			assert.Error(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestLLMRefinerModelError(t *testing.T) {
	boom := errors.New("rate limited")
	r := NewLLMRefiner(llm.NewMockChatClient("", boom), zerolog.Nop())
	_, err := r.Refine(context.Background(), map[string]interface{}{})
	assert.ErrorIs(t, err, boom)
}

func TestLLMRefinerUnavailable(t *testing.T) {
	r := NewLLMRefiner(nil, zerolog.Nop())
	assert.False(t, r.IsAvailable())
	_, err := r.Refine(context.Background(), map[string]interface{}{})
	assert.ErrorIs(t, err, ErrRefinerUnavailable)

	var nilRefiner *LLMRefiner
	assert.False(t, nilRefiner.IsAvailable())
}

func TestLLMRefinerPrompt(t *testing.T) {
	mock := llm.NewMockChatClient(`{}`, nil)
	r := NewLLMRefiner(mock, zerolog.Nop())
	_, err := r.Refine(context.Background(), map[string]interface{}{"skills": []string{"python"}})
	require.NoError(t, err)

	msgs := mock.GetReceivedMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, einoschema.System, msgs[0].Role)
	assert.Equal(t, refinerSystemPrompt, msgs[0].Content)
	assert.Equal(t, einoschema.User, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "return a JSON object with same keys")
	assert.Contains(t, msgs[1].Content, `{"skills":["python"]}`)
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":"\"}"}`, extractJSONObject(`x {"a":"\"}"} y`))
	assert.Equal(t, `{"a":{"b":1}}`, extractJSONObject(`{"a":{"b":1}} {"c":2}`))
	assert.Equal(t, "", extractJSONObject("no braces"))
}
