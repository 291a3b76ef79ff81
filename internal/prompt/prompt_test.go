package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawdbot/claudebridge/internal/llm/openai"
)

func TestToolsActive(t *testing.T) {
	tool := openai.Tool{Type: "function", Function: openai.ToolFunction{Name: "t"}}

	assert.False(t, ToolsActive(&openai.ChatRequest{}))
	assert.True(t, ToolsActive(&openai.ChatRequest{Tools: []openai.Tool{tool}}))
	assert.False(t, ToolsActive(&openai.ChatRequest{Tools: []openai.Tool{tool}, ToolChoice: "none"}))
	assert.True(t, ToolsActive(&openai.ChatRequest{Tools: []openai.Tool{tool}, ToolChoice: "auto"}))
	assert.True(t, ToolsActive(&openai.ChatRequest{
		Tools:      []openai.Tool{tool},
		ToolChoice: map[string]any{"type": "function"},
	}))
}

func TestFlattenSystemAndUser(t *testing.T) {
	out := Flatten([]openai.Message{
		{Role: "system", Content: "Be terse."},
		{Role: "user", Content: "Hello"},
	})
	assert.Equal(t, "<system>Be terse.</system>\nHello\n", out)
}

func TestFlattenAssistantPlain(t *testing.T) {
	out := Flatten([]openai.Message{
		{Role: "user", Content: "Hi"},
		{Role: "assistant", Content: "Hello!"},
		{Role: "user", Content: "Again"},
	})
	assert.Contains(t, out, "<previous_response>Hello!</previous_response>")
	assert.True(t, strings.HasSuffix(out, "Again\n"))
}

func TestFlattenAssistantWithToolCalls(t *testing.T) {
	out := Flatten([]openai.Message{
		{Role: "user", Content: "Weather?"},
		{
			Role:    "assistant",
			Content: "Checking.",
			ToolCalls: []openai.ToolCall{{
				ID:   "call_abc",
				Type: "function",
				Function: openai.ToolCallFunction{
					Name:      "get_weather",
					Arguments: `{"city":"Berlin"}`,
				},
			}},
		},
	})
	assert.Contains(t, out, "<previous_response>\nChecking.\n<tool_call>\n")
	assert.Contains(t, out, `"id": "call_abc"`)
	assert.Contains(t, out, `"name": "get_weather"`)
	// Stringified arguments are re-parsed into an object for the transcript.
	assert.Contains(t, out, `"city": "Berlin"`)
	assert.Contains(t, out, "</tool_call>\n</previous_response>")
}

func TestFlattenCollapsesConsecutiveToolResults(t *testing.T) {
	out := Flatten([]openai.Message{
		{Role: "user", Content: "Go"},
		{Role: "tool", ToolCallID: "call_1", Content: "out one"},
		{Role: "tool", ToolCallID: "call_2", Content: "out two"},
		{Role: "user", Content: "Thanks"},
	})

	assert.Equal(t, 1, strings.Count(out, "<tool_results>"))
	assert.Equal(t, 2, strings.Count(out, "<tool_result>\n"))
	assert.Contains(t, out, "<tool_call_id>call_1</tool_call_id>\n<output>out one</output>")
	assert.Contains(t, out, "<tool_call_id>call_2</tool_call_id>\n<output>out two</output>")
}

func TestBuildIsDeterministic(t *testing.T) {
	request := &openai.ChatRequest{
		Messages: []openai.Message{
			{Role: "system", Content: "sys"},
			{Role: "user", Content: "hi"},
		},
		Tools: []openai.Tool{{
			Type: "function",
			Function: openai.ToolFunction{
				Name:       "t",
				Parameters: map[string]any{"type": "object"},
			},
		}},
	}

	first := Build(request)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, Build(request))
	}
	assert.True(t, strings.HasPrefix(first, "<tools_available>"))
	assert.Contains(t, first, "<system>sys</system>")
}

func TestBuildWithoutToolsHasNoManifest(t *testing.T) {
	request := &openai.ChatRequest{
		Messages: []openai.Message{{Role: "user", Content: "hi"}},
	}
	assert.Equal(t, "hi\n", Build(request))
}

func TestContentText(t *testing.T) {
	assert.Equal(t, "plain", ContentText("plain"))
	assert.Equal(t, "", ContentText(nil))

	parts := []any{
		map[string]any{"type": "text", "text": "one"},
		map[string]any{"type": "image_url", "image_url": map[string]any{}},
		map[string]any{"type": "text", "text": "two"},
	}
	assert.Equal(t, "one\ntwo", ContentText(parts))

	assert.Equal(t, "inner", ContentText(map[string]any{"text": "inner"}))
	assert.Equal(t, `{"k":"v"}`, ContentText(map[string]any{"k": "v"}))
	assert.Equal(t, "42", ContentText(42))
}
