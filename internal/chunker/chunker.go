package chunker

const (
	// DefaultSize and DefaultOverlap are the ingestion defaults; config may
	// override them per deployment.
	DefaultSize    = 800
	DefaultOverlap = 100
)

// Split cuts text into overlapping spans of up to size runes. Spans start at
// offsets 0, step, 2*step, ... where step = size - overlap; the step is
// clamped to at least 1 rune so the split always terminates. The last span is
// truncated to the remaining length. Empty text yields no spans.
//
// Split is pure: identical input and parameters always produce an identical
// sequence, which makes re-ingesting the same document restart-safe.
func Split(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	step := size - overlap
	if step < 1 {
		step = 1
	}

	runes := []rune(text)
	var spans []string
	for i := 0; i < len(runes); i += step {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		spans = append(spans, string(runes[i:end]))
	}
	return spans
}
