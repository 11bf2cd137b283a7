package kb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkTextEmpty(t *testing.T) {
	assert.Nil(t, ChunkText("", DefaultChunkSize, DefaultOverlap))
	assert.Nil(t, ChunkText("   \n\t  ", DefaultChunkSize, DefaultOverlap))
}

func TestChunkTextShortTextSingleChunk(t *testing.T) {
	chunks := ChunkText("We sell coffee and pastries.", DefaultChunkSize, DefaultOverlap)
	require.Len(t, chunks, 1)
	assert.Equal(t, "We sell coffee and pastries.", chunks[0])
}

func TestChunkTextCollapsesWhitespace(t *testing.T) {
	chunks := ChunkText("refund   policy:\n\nfull refund\twithin 7 days", DefaultChunkSize, DefaultOverlap)
	require.Len(t, chunks, 1)
	assert.Equal(t, "refund policy: full refund within 7 days", chunks[0])
}

func TestChunkTextOverlappingWindows(t *testing.T) {
	text := strings.Repeat("a", 25)
	chunks := ChunkText(text, 10, 4)

	// Step is 6, so windows start at 0, 6, 12 and 18, the last one
	// absorbing the 7-char tail.
	require.Len(t, chunks, 4)
	assert.Equal(t, strings.Repeat("a", 10), chunks[0])
	assert.Equal(t, strings.Repeat("a", 10), chunks[1])
	assert.Equal(t, strings.Repeat("a", 7), chunks[3])
}

func TestChunkTextBoundsOverlapWithinWindow(t *testing.T) {
	// An overlap as large as the window would never advance; it falls
	// back to the default instead.
	text := strings.Repeat("b", 2000)
	chunks := ChunkText(text, 900, 900)
	assert.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 900)
	}
}

func TestChunkTextCoversWholeInput(t *testing.T) {
	text := strings.Repeat("opening hours monday to friday ", 80)
	chunks := ChunkText(text, DefaultChunkSize, DefaultOverlap)
	require.NotEmpty(t, chunks)

	last := chunks[len(chunks)-1]
	clean := strings.Join(strings.Fields(text), " ")
	assert.True(t, strings.HasSuffix(clean, last))
}
