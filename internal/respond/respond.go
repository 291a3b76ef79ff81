// Package respond builds OpenAI-shaped responses and SSE chunks from
// upstream CLI events. Everything here is a pure projection; HTTP writing
// stays in the server package.
package respond

import (
	"strings"

	"github.com/google/uuid"

	"github.com/clawdbot/claudebridge/internal/llm/openai"
	"github.com/clawdbot/claudebridge/internal/streamjson"
)

// FallbackModel is reported when a result carries no per-model usage.
const FallbackModel = "claude-sonnet-4"

// chunkObject and completionObject are the OpenAI object discriminators.
const (
	chunkObject      = "chat.completion.chunk"
	completionObject = "chat.completion"
)

// FinishStop and FinishToolCalls are the only finish reasons produced.
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
)

// NewRequestID returns a 24-character lowercase hex id derived from a UUID.
func NewRequestID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return hex[:24]
}

// NormalizeModel collapses inbound model strings to the three normalized
// identifiers by substring match, preserving unknown names unchanged.
func NormalizeModel(model string) string {
	lowered := strings.ToLower(model)
	switch {
	case strings.Contains(lowered, "opus"):
		return "claude-opus-4"
	case strings.Contains(lowered, "sonnet"):
		return "claude-sonnet-4"
	case strings.Contains(lowered, "haiku"):
		return "claude-haiku-4"
	default:
		return model
	}
}

// ModelIDs lists the normalized model identifiers served by /v1/models.
func ModelIDs() []string {
	return []string{"claude-opus-4", "claude-sonnet-4", "claude-haiku-4"}
}

// TextChunk builds a chunk carrying a content fragment. The assistant role
// is set on the first chunk only.
func TextChunk(id string, created int64, model string, text string, first bool) openai.ChunkResponse {
	delta := openai.ChunkDelta{Content: text}
	if first {
		delta.Role = "assistant"
	}
	return openai.ChunkResponse{
		ID:      "chatcmpl-" + id,
		Object:  chunkObject,
		Created: created,
		Model:   model,
		Choices: []openai.ChunkChoice{{Index: 0, Delta: delta}},
	}
}

// AssistantChunk projects a complete assistant event into one chunk: the
// concatenated text parts as content, role iff first, and finish_reason
// "stop" iff the message carries a non-null stop reason.
func AssistantChunk(id string, created int64, event *streamjson.AssistantEvent, first bool) openai.ChunkResponse {
	text := streamjson.ExtractText(event.Message.Content)
	chunk := TextChunk(id, created, NormalizeModel(event.Message.Model), text, first)
	if event.Message.StopReason != nil {
		reason := FinishStop
		chunk.Choices[0].FinishReason = &reason
	}
	return chunk
}

// DoneChunk builds the terminating chunk: empty delta, finish_reason set.
func DoneChunk(id string, created int64, model string, finishReason string) openai.ChunkResponse {
	reason := finishReason
	return openai.ChunkResponse{
		ID:      "chatcmpl-" + id,
		Object:  chunkObject,
		Created: created,
		Model:   model,
		Choices: []openai.ChunkChoice{{Index: 0, Delta: openai.ChunkDelta{}, FinishReason: &reason}},
	}
}

// ToolCallChunks builds the buffered-replay chunk sequence for extracted
// tool calls: an optional leading text chunk, one chunk per call, and a
// terminating chunk with finish_reason "tool_calls".
func ToolCallChunks(
	id string,
	created int64,
	model string,
	calls []openai.ToolCall,
	residual *string,
) []openai.ChunkResponse {
	var chunks []openai.ChunkResponse

	roleSent := false
	if residual != nil && *residual != "" {
		chunks = append(chunks, TextChunk(id, created, model, *residual, true))
		roleSent = true
	}

	for index, call := range calls {
		delta := openai.ChunkDelta{
			ToolCalls: []openai.ChunkToolCall{{
				Index:    index,
				ID:       call.ID,
				Type:     "function",
				Function: call.Function,
			}},
		}
		if !roleSent {
			delta.Role = "assistant"
			roleSent = true
		}
		chunks = append(chunks, openai.ChunkResponse{
			ID:      "chatcmpl-" + id,
			Object:  chunkObject,
			Created: created,
			Model:   model,
			Choices: []openai.ChunkChoice{{Index: 0, Delta: delta}},
		})
	}

	chunks = append(chunks, DoneChunk(id, created, model, FinishToolCalls))
	return chunks
}

// ResultResponse projects the terminal result event into a full completion.
// The model comes from the first modelUsage key, falling back to a sonnet
// identifier; usage totals are input + output, zero when absent.
func ResultResponse(id string, created int64, result *streamjson.ResultEvent) openai.ChatResponse {
	model := FallbackModel
	if key := streamjson.FirstModelUsageKey(result.ModelUsage); key != "" {
		model = NormalizeModel(key)
	}

	content := result.Result
	return openai.ChatResponse{
		ID:      "chatcmpl-" + id,
		Object:  completionObject,
		Created: created,
		Model:   model,
		Choices: []openai.ChatChoice{{
			Index:        0,
			Message:      openai.ResponseMessage{Role: "assistant", Content: &content},
			FinishReason: FinishStop,
		}},
		Usage: usageFrom(result.Usage),
	}
}

// ToolCallResponse builds the non-streaming tools-mode response: residual
// text (or null) plus the extracted calls, finish_reason "tool_calls".
func ToolCallResponse(
	id string,
	created int64,
	model string,
	calls []openai.ToolCall,
	residual *string,
	usage *streamjson.Usage,
) openai.ChatResponse {
	return openai.ChatResponse{
		ID:      "chatcmpl-" + id,
		Object:  completionObject,
		Created: created,
		Model:   model,
		Choices: []openai.ChatChoice{{
			Index: 0,
			Message: openai.ResponseMessage{
				Role:      "assistant",
				Content:   residual,
				ToolCalls: calls,
			},
			FinishReason: FinishToolCalls,
		}},
		Usage: usageFrom(usage),
	}
}

// TextResponse builds a plain non-streaming response from buffered text.
func TextResponse(id string, created int64, model string, text string, usage *streamjson.Usage) openai.ChatResponse {
	content := text
	return openai.ChatResponse{
		ID:      "chatcmpl-" + id,
		Object:  completionObject,
		Created: created,
		Model:   model,
		Choices: []openai.ChatChoice{{
			Index:        0,
			Message:      openai.ResponseMessage{Role: "assistant", Content: &content},
			FinishReason: FinishStop,
		}},
		Usage: usageFrom(usage),
	}
}

// usageFrom derives OpenAI usage counts from Anthropic-style token counts.
func usageFrom(usage *streamjson.Usage) openai.Usage {
	if usage == nil {
		return openai.Usage{}
	}
	return openai.Usage{
		PromptTokens:     usage.InputTokens,
		CompletionTokens: usage.OutputTokens,
		TotalTokens:      usage.InputTokens + usage.OutputTokens,
	}
}
