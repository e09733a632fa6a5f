package indexer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
	"github.com/pkoukk/tiktoken-go"

	"github.com/arturoeanton/go-context-gateway/internal/domain"
)

// Chunker splits file content into embedding-sized spans with exact line
// ranges. Boundaries prefer syntactic units: heading lines for prose, blank
// lines at brace depth zero for code, and a fixed sliding window with line
// overlap for everything else.
type Chunker struct {
	encoder      *tiktoken.Tiktoken
	targetTokens int
	overlapLines int
}

// NewChunker creates a chunker. The cl100k_base encoding matches the OpenAI
// text-embedding-3 family used for indexing.
func NewChunker(targetTokens, overlapLines int) (*Chunker, error) {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("get tiktoken encoder: %w", err)
	}
	if targetTokens <= 0 {
		targetTokens = 400
	}
	if overlapLines < 0 {
		overlapLines = 0
	}
	return &Chunker{
		encoder:      encoder,
		targetTokens: targetTokens,
		overlapLines: overlapLines,
	}, nil
}

// Chunk splits one file into chunks. IDs are derived from (file path, chunk
// index), so re-chunking identical content yields identical chunks. A file
// smaller than the target size yields exactly one chunk covering the file.
func (c *Chunker) Chunk(filePath, content string) []domain.Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	language := enry.GetLanguage(filepath.Base(filePath), []byte(content))

	lines := strings.Split(content, "\n")
	// A trailing newline produces one empty pseudo-line; it is not a real line.
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var spans []span
	switch {
	case isProse(filePath):
		spans = c.splitAt(lines, headingBoundaries(lines))
	case language != "":
		spans = c.splitAt(lines, codeBoundaries(lines))
	default:
		spans = c.slidingWindow(lines)
	}

	chunks := make([]domain.Chunk, 0, len(spans))
	for i, sp := range spans {
		text := strings.Join(lines[sp.start:sp.end], "\n")
		chunks = append(chunks, domain.Chunk{
			ID:          domain.ChunkID(filePath, i),
			FilePath:    filePath,
			ChunkIndex:  i,
			StartLine:   sp.start + 1,
			EndLine:     sp.end,
			Content:     text,
			Language:    language,
			ContentHash: domain.HashContent([]byte(text)),
		})
	}
	return chunks
}

// span is a half-open line range [start, end) into the file's line slice.
type span struct {
	start, end int
}

// splitAt packs lines into chunks of roughly targetTokens, cutting at the
// nearest preceding boundary once the target is exceeded. Boundary indices
// mark lines where a new chunk may begin.
func (c *Chunker) splitAt(lines []string, boundaries map[int]bool) []span {
	var spans []span

	start := 0
	lastBoundary := -1
	tokens := 0

	for i, line := range lines {
		if boundaries[i] && i > start {
			lastBoundary = i
		}

		tokens += c.countTokens(line)
		if tokens < c.targetTokens {
			continue
		}

		cut := i + 1
		if lastBoundary > start {
			cut = lastBoundary
		}
		spans = append(spans, span{start: start, end: cut})
		start = cut
		lastBoundary = -1
		tokens = c.countLineRange(lines, start, i+1)
	}

	if start < len(lines) {
		spans = append(spans, span{start: start, end: len(lines)})
	}
	return spans
}

// slidingWindow cuts fixed-size chunks with overlapLines of shared context
// between consecutive chunks, so text spanning a cut is not lost.
func (c *Chunker) slidingWindow(lines []string) []span {
	var spans []span

	start := 0
	for start < len(lines) {
		tokens := 0
		end := start
		for end < len(lines) && tokens < c.targetTokens {
			tokens += c.countTokens(lines[end])
			end++
		}
		spans = append(spans, span{start: start, end: end})
		if end >= len(lines) {
			break
		}
		next := end - c.overlapLines
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

func (c *Chunker) countTokens(text string) int {
	return len(c.encoder.Encode(text, nil, nil))
}

func (c *Chunker) countLineRange(lines []string, start, end int) int {
	total := 0
	for _, line := range lines[start:end] {
		total += c.countTokens(line)
	}
	return total
}

// headingBoundaries marks section-heading lines in prose or markup files.
func headingBoundaries(lines []string) map[int]bool {
	boundaries := make(map[int]bool)
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			boundaries[i] = true
		}
	}
	return boundaries
}

// codeBoundaries marks blank lines at brace depth zero, approximating the
// gaps between top-level function and class bodies. The chunk begins on the
// line after the gap.
func codeBoundaries(lines []string) map[int]bool {
	boundaries := make(map[int]bool)
	depth := 0
	for i, line := range lines {
		if depth == 0 && strings.TrimSpace(line) == "" && i+1 < len(lines) {
			boundaries[i+1] = true
		}
		for _, r := range line {
			switch r {
			case '{':
				depth++
			case '}':
				if depth > 0 {
					depth--
				}
			}
		}
	}
	return boundaries
}

// isProse reports whether the file is prose/markup rather than source code.
func isProse(filePath string) bool {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".md", ".rst", ".adoc", ".txt":
		return true
	}
	return false
}
