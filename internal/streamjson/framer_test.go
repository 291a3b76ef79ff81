package streamjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineFramerSplitsCompletedLines(t *testing.T) {
	var framer LineFramer
	lines := framer.Push([]byte("one\ntwo\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, "one", string(lines[0]))
	assert.Equal(t, "two", string(lines[1]))
}

func TestLineFramerRetainsPartial(t *testing.T) {
	var framer LineFramer
	lines := framer.Push([]byte(`{"type":"res`))
	assert.Empty(t, lines)

	lines = framer.Push([]byte("ult\"}\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, `{"type":"result"}`, string(lines[0]))
}

func TestLineFramerDropsBlankLines(t *testing.T) {
	var framer LineFramer
	lines := framer.Push([]byte("a\n\n  \nb\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, "a", string(lines[0]))
	assert.Equal(t, "b", string(lines[1]))
}

func TestLineFramerFlush(t *testing.T) {
	var framer LineFramer
	framer.Push([]byte("tail without newline"))

	line, ok := framer.Flush()
	require.True(t, ok)
	assert.Equal(t, "tail without newline", string(line))

	_, ok = framer.Flush()
	assert.False(t, ok)
}
