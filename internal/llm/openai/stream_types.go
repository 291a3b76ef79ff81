package openai

// ChunkResponse is the OpenAI-compatible SSE chunk payload.
type ChunkResponse struct {
	// ID is the completion id, shared by all chunks of one response.
	ID string `json:"id"`
	// Object is always "chat.completion.chunk".
	Object string `json:"object"`
	// Created is the creation time in epoch seconds.
	Created int64 `json:"created"`
	// Model is the normalized model identifier.
	Model string `json:"model"`
	// Choices carries incremental delta updates.
	Choices []ChunkChoice `json:"choices"`
}

// ChunkChoice represents a streaming choice delta.
type ChunkChoice struct {
	// Index is the choice index.
	Index int `json:"index"`
	// Delta holds the incremental message update.
	Delta ChunkDelta `json:"delta"`
	// FinishReason signals why generation stopped, null until the end.
	FinishReason *string `json:"finish_reason"`
}

// ChunkDelta represents incremental message content.
type ChunkDelta struct {
	// Role sets the assistant role on the first delta only.
	Role string `json:"role,omitempty"`
	// Content holds streamed text.
	Content string `json:"content,omitempty"`
	// ToolCalls streams tool call entries in buffered-replay mode.
	ToolCalls []ChunkToolCall `json:"tool_calls,omitempty"`
}

// ChunkToolCall represents one tool call entry inside a chunk delta.
type ChunkToolCall struct {
	// Index identifies the tool call position.
	Index int `json:"index"`
	// ID is the tool call id.
	ID string `json:"id,omitempty"`
	// Type is the tool call type (typically "function").
	Type string `json:"type,omitempty"`
	// Function contains the tool name and serialized arguments.
	Function ToolCallFunction `json:"function"`
}
