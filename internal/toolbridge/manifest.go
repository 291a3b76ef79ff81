// Package toolbridge simulates OpenAI-style function calling over a CLI
// that exposes no native tool blocks. Tools are declared to the model
// through an XML-tagged prompt preamble, and tool invocations are parsed
// back out of free-form model output.
package toolbridge

import (
	"encoding/json"
	"strings"

	"github.com/clawdbot/claudebridge/internal/llm/openai"
)

// callInstructions is the fixed calling convention appended after the tool
// manifest. The <tool_call> grammar is a wire format shared with deployed
// clients; do not change it.
const callInstructions = `<tool_call_instructions>
To call a tool, emit a block of the exact form:

<tool_call>
{"name": "tool_name", "arguments": {...}}
</tool_call>

Rules:
- You may emit multiple <tool_call> blocks in one response.
- The JSON body must be an object with "name" (string) and "arguments" (object).
- Only call tools listed in <tools_available>.
- You may write brief reasoning text before your tool calls, but nothing may follow them.
</tool_call_instructions>`

// BuildManifest renders the tool manifest preamble injected ahead of the
// flattened conversation when tool calling is active.
func BuildManifest(tools []openai.Tool) string {
	if len(tools) == 0 {
		return ""
	}

	var builder strings.Builder
	builder.WriteString("<tools_available>\n")
	for _, tool := range tools {
		builder.WriteString("<tool>\n")
		builder.WriteString("<name>")
		builder.WriteString(tool.Function.Name)
		builder.WriteString("</name>\n")
		builder.WriteString("<description>")
		builder.WriteString(tool.Function.Description)
		builder.WriteString("</description>\n")
		builder.WriteString("<parameters>\n")
		builder.WriteString(renderParameters(tool.Function.Parameters))
		builder.WriteString("\n</parameters>\n")
		builder.WriteString("</tool>\n")
	}
	builder.WriteString("</tools_available>\n\n")
	builder.WriteString(callInstructions)
	builder.WriteString("\n")
	return builder.String()
}

// renderParameters pretty-prints a JSON schema, or "{}" when absent.
func renderParameters(parameters map[string]any) string {
	if len(parameters) == 0 {
		return "{}"
	}
	pretty, err := json.MarshalIndent(parameters, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(pretty)
}
