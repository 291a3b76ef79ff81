package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveModel(t *testing.T) {
	cases := []struct {
		in   string
		want ModelAlias
	}{
		{"opus", AliasOpus},
		{"claude-opus-4", AliasOpus},
		{"Claude-Opus-4-1", AliasOpus},
		{"sonnet", AliasSonnet},
		{"claude-sonnet-4-5", AliasSonnet},
		{"claude-3-5-sonnet", AliasSonnet},
		{"haiku", AliasHaiku},
		{"claude-3-5-haiku", AliasHaiku},
		{"anthropic/claude-sonnet-4", AliasSonnet},
		{"openrouter/claude-haiku-4-5", AliasHaiku},
		{"", AliasOpus},
		{"gpt-4o", AliasOpus},
		{"  claude-opus-4  ", AliasOpus},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ResolveModel(tc.in), tc.in)
	}
}
