package kb

import "strings"

const (
	// DefaultChunkSize / DefaultOverlap are the fixed window used when
	// slicing tenant knowledge text for indexing.
	DefaultChunkSize = 900
	DefaultOverlap   = 150
)

// ChunkText splits free text into ordered, overlapping chunks.
// Whitespace is collapsed first so chunk boundaries are stable across
// uploads that only differ in formatting. Empty input yields no chunks.
func ChunkText(text string, chunkSize, overlap int) []string {
	clean := strings.Join(strings.Fields(text), " ")
	if clean == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultOverlap
	}

	step := chunkSize - overlap
	var chunks []string
	for i := 0; i < len(clean); i += step {
		end := i + chunkSize
		if end > len(clean) {
			end = len(clean)
		}
		chunk := strings.TrimSpace(clean[i:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(clean) {
			break
		}
	}
	return chunks
}
