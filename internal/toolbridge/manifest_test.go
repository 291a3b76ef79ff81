package toolbridge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawdbot/claudebridge/internal/llm/openai"
)

func TestBuildManifestEmpty(t *testing.T) {
	assert.Equal(t, "", BuildManifest(nil))
}

func TestBuildManifestRendersTools(t *testing.T) {
	tools := []openai.Tool{
		{
			Type: "function",
			Function: openai.ToolFunction{
				Name:        "get_weather",
				Description: "Look up current weather",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"city": map[string]any{"type": "string"},
					},
				},
			},
		},
		{
			Type:     "function",
			Function: openai.ToolFunction{Name: "noop"},
		},
	}

	manifest := BuildManifest(tools)

	assert.True(t, strings.HasPrefix(manifest, "<tools_available>\n"))
	assert.Contains(t, manifest, "<name>get_weather</name>")
	assert.Contains(t, manifest, "<description>Look up current weather</description>")
	assert.Contains(t, manifest, `"city"`)
	assert.Contains(t, manifest, "<name>noop</name>")
	assert.Contains(t, manifest, "<parameters>\n{}\n</parameters>")
	assert.Contains(t, manifest, "<tool_call_instructions>")
	assert.Contains(t, manifest, "</tool_call_instructions>")

	// Schemas render identically on every call.
	require.Equal(t, manifest, BuildManifest(tools))
}

func TestManifestRoundTripsThroughParser(t *testing.T) {
	// A call emitted in the documented form must parse back out.
	response := "Checking.\n<tool_call>\n{\"name\": \"get_weather\", \"arguments\": {\"city\": \"Oslo\"}}\n</tool_call>"
	result := Parse(response, nil)
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "get_weather", result.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"city":"Oslo"}`, result.ToolCalls[0].Function.Arguments)
}
