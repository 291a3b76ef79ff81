package openai

// ChatRequest matches the OpenAI-compatible chat/completions request.
type ChatRequest struct {
	// Model is the requested model identifier.
	Model string `json:"model"`
	// Messages is the ordered conversation history.
	Messages []Message `json:"messages"`
	// Tools advertises available tool functions.
	Tools []Tool `json:"tools,omitempty"`
	// ToolChoice directs tool usage (e.g., "auto", "none").
	ToolChoice any `json:"tool_choice,omitempty"`
	// Stream toggles server-sent events in the response.
	Stream bool `json:"stream,omitempty"`
	// User is an opaque end-user identifier, used as the session key.
	User string `json:"user,omitempty"`
	// Temperature is accepted for compatibility and ignored by the CLI.
	Temperature *float64 `json:"temperature,omitempty"`
	// MaxTokens is accepted for compatibility and ignored by the CLI.
	MaxTokens *int `json:"max_tokens,omitempty"`
}

// Message represents a chat message.
type Message struct {
	// Role is one of system, user, assistant, or tool.
	Role string `json:"role"`
	// Content carries message text or structured payloads.
	Content any `json:"content,omitempty"`
	// ToolCalls lists tool invocations requested by the assistant.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolCallID associates a tool response to a prior call.
	ToolCallID string `json:"tool_call_id,omitempty"`
	// Name optionally identifies a function or assistant.
	Name string `json:"name,omitempty"`
}

// Tool describes a callable function for the model.
type Tool struct {
	// Type must be "function" for OpenAI-compatible tools.
	Type string `json:"type"`
	// Function describes the callable function contract.
	Function ToolFunction `json:"function"`
}

// ToolFunction defines a function for tool calling.
type ToolFunction struct {
	// Name is the unique identifier for the function.
	Name string `json:"name"`
	// Description provides a natural language summary.
	Description string `json:"description,omitempty"`
	// Parameters is a JSON Schema object describing inputs.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	// ID is the unique tool call id.
	ID string `json:"id"`
	// Type is the tool type, typically "function".
	Type string `json:"type"`
	// Function includes the name and serialized arguments.
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction is the function call payload.
type ToolCallFunction struct {
	// Name identifies which tool to invoke.
	Name string `json:"name"`
	// Arguments contains a JSON string to be parsed by the tool.
	Arguments string `json:"arguments"`
}

// ChatResponse matches the OpenAI-compatible chat/completions response.
type ChatResponse struct {
	// ID is the completion id, prefixed "chatcmpl-".
	ID string `json:"id"`
	// Object is always "chat.completion".
	Object string `json:"object"`
	// Created is the creation time in epoch seconds.
	Created int64 `json:"created"`
	// Model is the normalized model identifier.
	Model string `json:"model"`
	// Choices contains the assistant messages.
	Choices []ChatChoice `json:"choices"`
	// Usage reports token counts.
	Usage Usage `json:"usage"`
}

// ChatChoice represents a single completion choice.
type ChatChoice struct {
	// Index is the choice index.
	Index int `json:"index"`
	// Message is the assistant response.
	Message ResponseMessage `json:"message"`
	// FinishReason indicates why generation stopped.
	FinishReason string `json:"finish_reason"`
}

// ResponseMessage is the assistant message in a non-streaming response.
type ResponseMessage struct {
	// Role is always "assistant".
	Role string `json:"role"`
	// Content is the assistant text, or null when only tool calls remain.
	Content *string `json:"content"`
	// ToolCalls lists extracted tool invocations.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Usage represents token usage info.
type Usage struct {
	// PromptTokens counts input tokens.
	PromptTokens int `json:"prompt_tokens"`
	// CompletionTokens counts output tokens.
	CompletionTokens int `json:"completion_tokens"`
	// TotalTokens is the sum of prompt and completion tokens.
	TotalTokens int `json:"total_tokens"`
}

// ErrorEnvelope is the top-level OpenAI-style error response.
type ErrorEnvelope struct {
	// Error holds the error detail payload.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error message, type, and code.
type ErrorDetail struct {
	// Message is a human-readable description.
	Message string `json:"message"`
	// Type is the error class, e.g. "invalid_request_error".
	Type string `json:"type"`
	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`
}

// Model describes an entry in the /v1/models listing.
type Model struct {
	// ID is the normalized model identifier.
	ID string `json:"id"`
	// Object is always "model".
	Object string `json:"object"`
	// Created is the listing creation time in epoch seconds.
	Created int64 `json:"created"`
	// OwnedBy names the model owner.
	OwnedBy string `json:"owned_by"`
}

// ModelList is the /v1/models response body.
type ModelList struct {
	// Object is always "list".
	Object string `json:"object"`
	// Data contains the available models.
	Data []Model `json:"data"`
}
