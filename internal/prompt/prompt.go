// Package prompt translates OpenAI chat-completions requests into the flat
// prompt string accepted by the Claude Code CLI. The translation is pure:
// equal (messages, tools) inputs always yield byte-equal prompts.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clawdbot/claudebridge/internal/llm/openai"
	"github.com/clawdbot/claudebridge/internal/toolbridge"
)

// ToolsActive reports whether the request enables tool calling: a non-empty
// tools array with a tool_choice other than "none".
func ToolsActive(request *openai.ChatRequest) bool {
	if len(request.Tools) == 0 {
		return false
	}
	if choice, ok := request.ToolChoice.(string); ok && choice == "none" {
		return false
	}
	return true
}

// Build renders the full prompt for a request: the tool manifest preamble
// when tools are active, followed by the flattened message transcript.
func Build(request *openai.ChatRequest) string {
	var builder strings.Builder
	if ToolsActive(request) {
		builder.WriteString(toolbridge.BuildManifest(request.Tools))
		builder.WriteString("\n")
	}
	builder.WriteString(Flatten(request.Messages))
	return builder.String()
}

// Flatten renders the message history into the CLI's textual transcript.
func Flatten(messages []openai.Message) string {
	var segments []string

	for index := 0; index < len(messages); index++ {
		message := messages[index]
		switch message.Role {
		case "system":
			segments = append(segments, "<system>"+ContentText(message.Content)+"</system>")
		case "user":
			segments = append(segments, ContentText(message.Content))
		case "assistant":
			segments = append(segments, flattenAssistant(message))
		case "tool":
			// A run of consecutive tool messages collapses into one block.
			run := []openai.Message{message}
			for index+1 < len(messages) && messages[index+1].Role == "tool" {
				index++
				run = append(run, messages[index])
			}
			segments = append(segments, flattenToolResults(run))
		}
	}

	return strings.Join(segments, "\n") + "\n"
}

// flattenAssistant renders a prior assistant turn, lowering tool calls back
// into the <tool_call> wire form so context survives across turns.
func flattenAssistant(message openai.Message) string {
	var builder strings.Builder
	builder.WriteString("<previous_response>")
	text := ContentText(message.Content)
	if len(message.ToolCalls) == 0 {
		builder.WriteString(text)
		builder.WriteString("</previous_response>")
		return builder.String()
	}

	builder.WriteString("\n")
	if text != "" {
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	for _, call := range message.ToolCalls {
		builder.WriteString("<tool_call>\n")
		builder.WriteString(renderHistoricalCall(call))
		builder.WriteString("\n</tool_call>\n")
	}
	builder.WriteString("</previous_response>")
	return builder.String()
}

// renderHistoricalCall serializes a prior tool call as a JSON object with
// arguments re-parsed from their stringified form for readability.
func renderHistoricalCall(call openai.ToolCall) string {
	var arguments any
	if err := json.Unmarshal([]byte(call.Function.Arguments), &arguments); err != nil {
		arguments = call.Function.Arguments
	}
	payload := map[string]any{
		"id":        call.ID,
		"name":      call.Function.Name,
		"arguments": arguments,
	}
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"id": %q, "name": %q}`, call.ID, call.Function.Name)
	}
	return string(encoded)
}

// flattenToolResults renders a run of tool messages as one results block.
func flattenToolResults(run []openai.Message) string {
	var builder strings.Builder
	builder.WriteString("<tool_results>\n")
	for _, message := range run {
		builder.WriteString("<tool_result>\n")
		builder.WriteString("<tool_call_id>")
		builder.WriteString(message.ToolCallID)
		builder.WriteString("</tool_call_id>\n")
		builder.WriteString("<output>")
		builder.WriteString(ContentText(message.Content))
		builder.WriteString("</output>\n")
		builder.WriteString("</tool_result>\n")
	}
	builder.WriteString("</tool_results>")
	return builder.String()
}

// ContentText extracts text from a message content value: a plain string, a
// list of typed parts (text parts joined with newlines), an object carrying
// a text field, or any other value JSON-stringified as a fallback.
func ContentText(content any) string {
	switch typed := content.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []any:
		var parts []string
		for _, item := range typed {
			part, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if part["type"] != "text" {
				continue
			}
			if text, ok := part["text"].(string); ok {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "\n")
	case map[string]any:
		if text, ok := typed["text"].(string); ok {
			return text
		}
		return stringifyContent(typed)
	default:
		return stringifyContent(typed)
	}
}

// stringifyContent JSON-encodes arbitrary content as a last resort.
func stringifyContent(content any) string {
	encoded, err := json.Marshal(content)
	if err != nil {
		return fmt.Sprintf("%v", content)
	}
	return string(encoded)
}
