// Package streamjson defines the line-delimited JSON event grammar emitted
// by the Claude Code CLI in --print --output-format stream-json mode, and a
// classifier that turns raw lines into typed events.
package streamjson

import (
	"bytes"
	"encoding/json"
	"strings"
)

// EventKind labels a classified stream-json line.
type EventKind string

const (
	// KindInit is the system initialization announcement.
	KindInit EventKind = "init"
	// KindSystem covers system subtypes other than init (hooks, status).
	KindSystem EventKind = "system"
	// KindContentDelta is a content_block_delta stream event carrying text.
	KindContentDelta EventKind = "content_delta"
	// KindStreamEvent is any other fine-grained stream_event frame.
	KindStreamEvent EventKind = "stream_event"
	// KindAssistant is a complete assistant message.
	KindAssistant EventKind = "assistant"
	// KindResult is the terminal result event.
	KindResult EventKind = "result"
	// KindOther is a parsed frame of an unrecognized type.
	KindOther EventKind = "other"
)

// Message represents the high-level message payload used in stream-json events.
type Message struct {
	// Role is one of user, assistant, or system.
	Role string `json:"role"`
	// Model is the model identifier on assistant messages.
	Model string `json:"model,omitempty"`
	// Content is either a string or a list of content blocks.
	Content any `json:"content"`
	// StopReason indicates why generation stopped, when present.
	StopReason any `json:"stop_reason,omitempty"`
	// Usage reports token counts for the message, when present.
	Usage *Usage `json:"usage,omitempty"`
}

// Usage carries Anthropic-style token counts.
type Usage struct {
	// InputTokens counts prompt tokens.
	InputTokens int `json:"input_tokens"`
	// OutputTokens counts generated tokens.
	OutputTokens int `json:"output_tokens"`
}

// InitEvent represents the system init announcement.
type InitEvent struct {
	// Type is always "system".
	Type string `json:"type"`
	// Subtype is always "init".
	Subtype string `json:"subtype"`
	// SessionID is the upstream session identifier.
	SessionID string `json:"session_id"`
	// Model is the active model identifier.
	Model string `json:"model"`
	// Tools lists the CLI's own tool names.
	Tools []string `json:"tools,omitempty"`
	// SlashCommands lists available slash commands.
	SlashCommands []string `json:"slash_commands,omitempty"`
}

// AssistantEvent represents a stream-json assistant message event.
type AssistantEvent struct {
	// Type is always "assistant".
	Type string `json:"type"`
	// Message carries the assistant message payload.
	Message Message `json:"message"`
	// SessionID scopes the event to a session.
	SessionID string `json:"session_id"`
	// UUID uniquely identifies the event.
	UUID string `json:"uuid"`
}

// ResultEvent represents the terminal stream-json result.
type ResultEvent struct {
	// Type is always "result".
	Type string `json:"type"`
	// Subtype describes success or error conditions.
	Subtype string `json:"subtype"`
	// IsError reports whether the result indicates an error.
	IsError bool `json:"is_error"`
	// DurationMS is the total runtime in milliseconds.
	DurationMS int64 `json:"duration_ms"`
	// DurationAPIMS is the total API time in milliseconds.
	DurationAPIMS int64 `json:"duration_api_ms"`
	// NumTurns is the number of assistant turns processed.
	NumTurns int `json:"num_turns"`
	// Result contains the final concatenated assistant text.
	Result string `json:"result,omitempty"`
	// SessionID scopes the event to a session.
	SessionID string `json:"session_id"`
	// TotalCostUSD reports the estimated total cost.
	TotalCostUSD float64 `json:"total_cost_usd"`
	// Usage contains aggregated token counts.
	Usage *Usage `json:"usage,omitempty"`
	// ModelUsage holds raw per-model usage, keyed by model identifier.
	ModelUsage json.RawMessage `json:"modelUsage,omitempty"`
	// UUID uniquely identifies the event.
	UUID string `json:"uuid"`
	// Errors holds error messages for error subtypes.
	Errors []string `json:"errors,omitempty"`
}

// StreamEvent wraps a fine-grained streaming frame.
type StreamEvent struct {
	// Type is always "stream_event".
	Type string `json:"type"`
	// Event contains the streaming payload.
	Event StreamPayload `json:"event"`
	// SessionID scopes the event to a session.
	SessionID string `json:"session_id"`
}

// StreamPayload is the inner payload of a stream_event frame.
type StreamPayload struct {
	// Type identifies the inner event, e.g. content_block_delta.
	Type string `json:"type"`
	// Index is the content block index.
	Index int `json:"index"`
	// Delta contains the incremental update.
	Delta StreamDelta `json:"delta"`
}

// StreamDelta represents a delta payload for streaming text.
type StreamDelta struct {
	// Type is the delta type, typically "text_delta".
	Type string `json:"type"`
	// Text is the streamed text chunk.
	Text string `json:"text,omitempty"`
	// PartialJSON carries input_json_delta fragments.
	PartialJSON string `json:"partial_json,omitempty"`
}

// Event is the classified form of one stream-json line.
type Event struct {
	// Kind labels the event.
	Kind EventKind
	// DeltaText is the text fragment for KindContentDelta.
	DeltaText string
	// Init is populated for KindInit.
	Init *InitEvent
	// Assistant is populated for KindAssistant.
	Assistant *AssistantEvent
	// Result is populated for KindResult.
	Result *ResultEvent
	// Raw retains the original line for every classified event.
	Raw string
}

// envelope is the minimal shape used to dispatch on event type.
type envelope struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
}

// Classify parses one non-empty stream-json line into a typed event.
// The second return value is false when the line is not valid JSON;
// framing must never abort on such lines.
func Classify(line []byte) (Event, bool) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return Event{}, false
	}

	var head envelope
	if err := json.Unmarshal(trimmed, &head); err != nil {
		return Event{}, false
	}

	event := Event{Kind: KindOther, Raw: string(trimmed)}
	switch head.Type {
	case "system":
		if head.Subtype == "init" {
			var init InitEvent
			if err := json.Unmarshal(trimmed, &init); err == nil {
				event.Kind = KindInit
				event.Init = &init
				return event, true
			}
		}
		// Hook and other system subtypes are carried through unparsed.
		event.Kind = KindSystem
		return event, true
	case "stream_event":
		var stream StreamEvent
		if err := json.Unmarshal(trimmed, &stream); err != nil {
			return event, true
		}
		if stream.Event.Type == "content_block_delta" && stream.Event.Delta.Text != "" {
			event.Kind = KindContentDelta
			event.DeltaText = stream.Event.Delta.Text
			return event, true
		}
		event.Kind = KindStreamEvent
		return event, true
	case "assistant":
		var assistant AssistantEvent
		if err := json.Unmarshal(trimmed, &assistant); err != nil {
			return event, true
		}
		event.Kind = KindAssistant
		event.Assistant = &assistant
		return event, true
	case "result":
		var result ResultEvent
		if err := json.Unmarshal(trimmed, &result); err != nil {
			return event, true
		}
		event.Kind = KindResult
		event.Result = &result
		return event, true
	}
	return event, true
}

// ExtractText extracts text content from an Anthropic-style content value.
func ExtractText(content any) string {
	switch typed := content.(type) {
	case string:
		return typed
	case []any:
		var builder strings.Builder
		for _, item := range typed {
			block, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if block["type"] == "text" {
				if text, ok := block["text"].(string); ok {
					builder.WriteString(text)
				}
			}
		}
		return builder.String()
	default:
		return ""
	}
}

// FirstModelUsageKey returns the first key of a raw modelUsage object in
// document order, or "" when the object is absent or empty. JSON object
// order is significant here: the CLI emits the primary model first.
func FirstModelUsageKey(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	token, err := decoder.Token()
	if err != nil {
		return ""
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return ""
	}
	token, err = decoder.Token()
	if err != nil {
		return ""
	}
	key, ok := token.(string)
	if !ok {
		return ""
	}
	return key
}
