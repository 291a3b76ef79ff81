package toolbridge

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clawdbot/claudebridge/internal/llm/openai"
)

// toolCallPattern matches <tool_call> blocks whose body is a JSON object.
// The match is non-greedy so adjacent blocks stay separate.
var toolCallPattern = regexp.MustCompile(`(?s)<tool_call>\s*(\{.*?\})\s*</tool_call>`)

// callBody is the JSON payload the model emits inside a <tool_call> block.
type callBody struct {
	// ID optionally echoes a caller-supplied tool call id.
	ID string `json:"id,omitempty"`
	// Name is the tool function name.
	Name string `json:"name"`
	// Arguments is either an object or a pre-stringified JSON value.
	Arguments any `json:"arguments"`
}

// ParseResult carries the outcome of scanning model output for tool calls.
type ParseResult struct {
	// ToolCalls lists extracted calls in document order.
	ToolCalls []openai.ToolCall
	// Text is the residual text with all blocks removed, nil when empty.
	Text *string
}

// Parse scans final model output for <tool_call> blocks. Malformed blocks
// are skipped, never fatal: remaining calls are still honored.
func Parse(output string, logger *zap.Logger) ParseResult {
	matches := toolCallPattern.FindAllStringSubmatch(output, -1)

	var calls []openai.ToolCall
	for _, match := range matches {
		var body callBody
		if err := json.Unmarshal([]byte(match[1]), &body); err != nil {
			if logger != nil {
				logger.Warn("skipping malformed tool_call block", zap.Error(err))
			}
			continue
		}
		if body.Name == "" {
			if logger != nil {
				logger.Warn("skipping tool_call block without a name")
			}
			continue
		}
		calls = append(calls, openai.ToolCall{
			ID:   callID(body.ID),
			Type: "function",
			Function: openai.ToolCallFunction{
				Name:      body.Name,
				Arguments: canonicalArguments(body.Arguments),
			},
		})
	}

	residual := strings.TrimSpace(toolCallPattern.ReplaceAllString(output, ""))
	result := ParseResult{ToolCalls: calls}
	if residual != "" {
		result.Text = &residual
	}
	return result
}

// canonicalArguments re-serializes arguments to a JSON string regardless of
// whether the model emitted an object or an already-stringified value.
// OpenAI semantics require string arguments.
func canonicalArguments(arguments any) string {
	switch typed := arguments.(type) {
	case nil:
		return "{}"
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return "{}"
		}
		if json.Valid([]byte(trimmed)) {
			return trimmed
		}
		encoded, err := json.Marshal(typed)
		if err != nil {
			return "{}"
		}
		return string(encoded)
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return "{}"
		}
		return string(encoded)
	}
}

// callID returns the model-echoed id, or mints a call_-prefixed 24-char
// lowercase hex id when absent.
func callID(echoed string) string {
	if echoed != "" {
		return echoed
	}
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "call_" + hex[:24]
}
