package prompt

import "strings"

// ModelAlias is one of the CLI's model aliases.
type ModelAlias string

const (
	// AliasOpus selects the opus model family.
	AliasOpus ModelAlias = "opus"
	// AliasSonnet selects the sonnet model family.
	AliasSonnet ModelAlias = "sonnet"
	// AliasHaiku selects the haiku model family.
	AliasHaiku ModelAlias = "haiku"
)

// modelTable maps canonical names and short aliases to CLI aliases.
// The table is closed; resolution never guesses beyond prefix stripping.
var modelTable = map[string]ModelAlias{
	"opus":              AliasOpus,
	"claude-opus-4":     AliasOpus,
	"claude-opus-4-1":   AliasOpus,
	"claude-opus-4-5":   AliasOpus,
	"claude-3-opus":     AliasOpus,
	"sonnet":            AliasSonnet,
	"claude-sonnet-4":   AliasSonnet,
	"claude-sonnet-4-5": AliasSonnet,
	"claude-3-5-sonnet": AliasSonnet,
	"claude-3-7-sonnet": AliasSonnet,
	"haiku":             AliasHaiku,
	"claude-haiku-4":    AliasHaiku,
	"claude-haiku-4-5":  AliasHaiku,
	"claude-3-5-haiku":  AliasHaiku,
}

// ResolveModel maps an inbound model identifier to a CLI alias. Prefixed
// names ("<provider>/<name>") are stripped and retried once; anything still
// unrecognized defaults to opus.
func ResolveModel(model string) ModelAlias {
	normalized := strings.ToLower(strings.TrimSpace(model))
	if alias, ok := modelTable[normalized]; ok {
		return alias
	}
	if index := strings.IndexByte(normalized, '/'); index >= 0 {
		if alias, ok := modelTable[normalized[index+1:]]; ok {
			return alias
		}
	}
	return AliasOpus
}
