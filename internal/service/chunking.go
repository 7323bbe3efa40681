package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/codmer/pulsedoc/internal/domain"
)

// ChunkConfig controls how extracted document text is split for embedding.
type ChunkConfig struct {
	MaxChars int
	Overlap  int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars: 1200,
		Overlap:  200,
	}
}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Chunker splits text into paragraph-aligned segments that carry the tail
// of the previous segment and links to both neighbours.
type Chunker struct {
	cfg ChunkConfig
}

func NewChunker(cfg ChunkConfig) *Chunker {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultChunkConfig().MaxChars
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	return &Chunker{cfg: cfg}
}

func (c *Chunker) Chunk(text string) []domain.ChunkSegment {
	return ChunkWith(text, c.cfg)
}

// ChunkWith is deterministic: the same text and config always produce the
// same segments. Paragraphs longer than MaxChars are kept whole.
func ChunkWith(text string, cfg ChunkConfig) []domain.ChunkSegment {
	clean := strings.TrimSpace(strings.ReplaceAll(text, "\r", ""))
	if clean == "" {
		return []domain.ChunkSegment{}
	}

	var contents []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		contents = appendWithOverlap(contents, current.String(), cfg.Overlap)
		current.Reset()
		currentLen = 0
	}

	for _, paragraph := range paragraphBreak.Split(clean, -1) {
		trimmed := strings.TrimSpace(paragraph)
		if trimmed == "" {
			continue
		}
		n := utf8.RuneCountInString(trimmed)

		if currentLen > 0 && currentLen+n+2 > cfg.MaxChars {
			flush()
		}
		if currentLen > 0 {
			current.WriteString("\n\n")
			currentLen += 2
		}
		current.WriteString(trimmed)
		currentLen += n
	}
	if currentLen > 0 {
		flush()
	}

	segments := make([]domain.ChunkSegment, len(contents))
	for i, content := range contents {
		segments[i] = domain.ChunkSegment{Index: i, Content: content}
		if i > 0 {
			prev := contents[i-1]
			segments[i].PrevContent = &prev
		}
		if i < len(contents)-1 {
			next := contents[i+1]
			segments[i].NextContent = &next
		}
	}
	return segments
}

// appendWithOverlap prefixes content with the last overlap runes of the
// previous chunk. Short chunks are appended unchanged.
func appendWithOverlap(chunks []string, content string, overlap int) []string {
	if len(chunks) == 0 || overlap <= 0 || utf8.RuneCountInString(content) <= overlap {
		return append(chunks, content)
	}

	prev := []rune(chunks[len(chunks)-1])
	start := max(len(prev)-overlap, 0)
	tail := string(prev[start:])
	if !strings.HasPrefix(content, tail) {
		content = tail + "\n" + content
	}
	return append(chunks, content)
}
