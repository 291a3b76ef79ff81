package streamjson

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyInit(t *testing.T) {
	line := []byte(`{"type":"system","subtype":"init","session_id":"abc","model":"claude-opus-4"}`)
	event, ok := Classify(line)
	require.True(t, ok)
	require.Equal(t, KindInit, event.Kind)
	require.NotNil(t, event.Init)
	assert.Equal(t, "abc", event.Init.SessionID)
	assert.Equal(t, "claude-opus-4", event.Init.Model)
}

func TestClassifySystemNonInit(t *testing.T) {
	event, ok := Classify([]byte(`{"type":"system","subtype":"hook_started"}`))
	require.True(t, ok)
	assert.Equal(t, KindSystem, event.Kind)
}

func TestClassifyContentDelta(t *testing.T) {
	line := []byte(`{"type":"stream_event","event":{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}},"session_id":"abc"}`)
	event, ok := Classify(line)
	require.True(t, ok)
	require.Equal(t, KindContentDelta, event.Kind)
	assert.Equal(t, "Hello", event.DeltaText)
}

func TestClassifyStreamEventWithoutText(t *testing.T) {
	cases := []string{
		`{"type":"stream_event","event":{"type":"content_block_start","index":0}}`,
		`{"type":"stream_event","event":{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"a\""}}}`,
		`{"type":"stream_event","event":{"type":"message_stop"}}`,
	}
	for _, line := range cases {
		event, ok := Classify([]byte(line))
		require.True(t, ok, line)
		assert.Equal(t, KindStreamEvent, event.Kind, line)
		assert.Empty(t, event.DeltaText, line)
	}
}

func TestClassifyAssistant(t *testing.T) {
	line := []byte(`{"type":"assistant","message":{"role":"assistant","model":"claude-opus-4-5","content":[{"type":"text","text":"Hi"}],"stop_reason":"end_turn"},"session_id":"abc","uuid":"u1"}`)
	event, ok := Classify(line)
	require.True(t, ok)
	require.Equal(t, KindAssistant, event.Kind)
	require.NotNil(t, event.Assistant)
	assert.Equal(t, "claude-opus-4-5", event.Assistant.Message.Model)
	assert.Equal(t, "Hi", ExtractText(event.Assistant.Message.Content))
	assert.NotNil(t, event.Assistant.Message.StopReason)
}

func TestClassifyResult(t *testing.T) {
	line := []byte(`{"type":"result","subtype":"success","is_error":false,"duration_ms":1200,"num_turns":1,"result":"Hello there","session_id":"abc","usage":{"input_tokens":10,"output_tokens":20},"modelUsage":{"claude-opus-4-5":{"inputTokens":10}},"uuid":"u2"}`)
	event, ok := Classify(line)
	require.True(t, ok)
	require.Equal(t, KindResult, event.Kind)
	require.NotNil(t, event.Result)
	assert.Equal(t, "Hello there", event.Result.Result)
	require.NotNil(t, event.Result.Usage)
	assert.Equal(t, 10, event.Result.Usage.InputTokens)
	assert.Equal(t, 20, event.Result.Usage.OutputTokens)
	assert.Equal(t, "claude-opus-4-5", FirstModelUsageKey(event.Result.ModelUsage))
}

func TestClassifyUnknownType(t *testing.T) {
	event, ok := Classify([]byte(`{"type":"user","message":{}}`))
	require.True(t, ok)
	assert.Equal(t, KindOther, event.Kind)
}

func TestClassifyRejectsNonJSON(t *testing.T) {
	_, ok := Classify([]byte("warning: something on stdout"))
	assert.False(t, ok)

	_, ok = Classify([]byte("   "))
	assert.False(t, ok)
}

func TestExtractText(t *testing.T) {
	assert.Equal(t, "plain", ExtractText("plain"))

	blocks := []any{
		map[string]any{"type": "text", "text": "one"},
		map[string]any{"type": "tool_use", "name": "ignored"},
		map[string]any{"type": "text", "text": "two"},
	}
	assert.Equal(t, "onetwo", ExtractText(blocks))

	assert.Equal(t, "", ExtractText(nil))
	assert.Equal(t, "", ExtractText(42))
}

func TestFirstModelUsageKeyOrder(t *testing.T) {
	// Document order matters: the primary model is emitted first.
	raw := json.RawMessage(`{"claude-opus-4-5":{"inputTokens":1},"claude-haiku-4":{"inputTokens":2}}`)
	assert.Equal(t, "claude-opus-4-5", FirstModelUsageKey(raw))
}

func TestFirstModelUsageKeyEdgeCases(t *testing.T) {
	assert.Equal(t, "", FirstModelUsageKey(nil))
	assert.Equal(t, "", FirstModelUsageKey(json.RawMessage(`{}`)))
	assert.Equal(t, "", FirstModelUsageKey(json.RawMessage(`[]`)))
	assert.Equal(t, "", FirstModelUsageKey(json.RawMessage(`not json`)))
}
