package chunk

import "strings"

// boundaryFraction is how far into a window a sentence or line break must
// sit before it is preferred over a hard cut. Breaking earlier than this
// would produce overly small chunks.
const boundaryFraction = 0.7

// Config controls the chunking behaviour.
type Config struct {
	MaxSize int // Maximum characters per chunk.
	Overlap int // Character overlap between consecutive chunks.
}

// Chunker splits long text into overlapping, sentence-aware segments.
type Chunker struct {
	cfg Config
}

// New returns a Chunker with the given configuration.
// Zero-value fields are replaced with sensible defaults.
func New(cfg Config) *Chunker {
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 1000
	}
	if cfg.Overlap == 0 {
		cfg.Overlap = 200
	}
	return &Chunker{cfg: cfg}
}

// Split chunks text using the Chunker's configuration.
func (c *Chunker) Split(text string) []string {
	return Split(text, c.cfg.MaxSize, c.cfg.Overlap)
}

// Split divides text into ordered, non-empty segments of at most maxSize
// characters. Windows prefer to end at the last sentence terminator or
// newline past 70% of the window so chunks stay semantically coherent;
// consecutive windows share up to overlap characters.
//
// The next window always starts at least one character past the previous
// one, so the split terminates even when overlap >= maxSize. Whitespace-only
// input yields no chunks; text that already fits in one window is returned
// as-is, untrimmed.
func Split(text string, maxSize, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= maxSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + maxSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			window := string(runes[start:end])
			if cut := lastBreak(window); cut >= 0 && float64(cut+1) > boundaryFraction*float64(maxSize) {
				end = start + cut + 1
			}
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if piece == "" {
			// Trailing whitespace-only remainder: treat as end of input.
			break
		}
		chunks = append(chunks, piece)

		advance := (end - start) - overlap
		if advance < 1 {
			advance = 1
		}
		start += advance
	}

	return chunks
}

// lastBreak returns the rune index of the last sentence terminator or
// newline in window, or -1 if there is none.
func lastBreak(window string) int {
	idx := -1
	for i, r := range window {
		if r == '.' || r == '\n' {
			idx = i
		}
	}
	// Convert byte-agnostic loop index to rune index.
	if idx < 0 {
		return -1
	}
	return len([]rune(window[:idx]))
}
