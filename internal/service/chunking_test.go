package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkWith_BlankInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\r\n\r\n", "\n\t\n"} {
		segments := ChunkWith(text, DefaultChunkConfig())
		require.NotNil(t, segments)
		assert.Empty(t, segments)
	}
}

func TestChunkWith_SingleParagraph(t *testing.T) {
	segments := ChunkWith("  Margherita pizza - 9.50\r\n", DefaultChunkConfig())

	require.Len(t, segments, 1)
	assert.Equal(t, 0, segments[0].Index)
	assert.Equal(t, "Margherita pizza - 9.50", segments[0].Content)
	assert.Nil(t, segments[0].PrevContent)
	assert.Nil(t, segments[0].NextContent)
}

func TestChunkWith_JoinsParagraphsUnderLimit(t *testing.T) {
	text := "Starters\n\n  \nSoup of the day\n\nMains"
	segments := ChunkWith(text, ChunkConfig{MaxChars: 100, Overlap: 10})

	require.Len(t, segments, 1)
	assert.Equal(t, "Starters\n\nSoup of the day\n\nMains", segments[0].Content)
}

func TestChunkWith_FlushesAndOverlaps(t *testing.T) {
	a := strings.Repeat("a", 30)
	b := strings.Repeat("b", 30)
	c := strings.Repeat("c", 30)
	text := a + "\n\n" + b + "\n\n" + c

	segments := ChunkWith(text, ChunkConfig{MaxChars: 40, Overlap: 5})

	require.Len(t, segments, 3)
	assert.Equal(t, a, segments[0].Content)
	assert.Equal(t, "aaaaa\n"+b, segments[1].Content)
	assert.Equal(t, "bbbbb\n"+c, segments[2].Content)
}

func TestChunkWith_ShortChunkSkipsOverlap(t *testing.T) {
	text := strings.Repeat("x", 30) + "\n\n" + "tiny"

	segments := ChunkWith(text, ChunkConfig{MaxChars: 20, Overlap: 10})

	require.Len(t, segments, 2)
	assert.Equal(t, "tiny", segments[1].Content)
}

func TestChunkWith_OverlongParagraphIsNotSplit(t *testing.T) {
	long := strings.Repeat("word ", 100)
	segments := ChunkWith(long, ChunkConfig{MaxChars: 50, Overlap: 0})

	require.Len(t, segments, 1)
	assert.Equal(t, strings.TrimSpace(long), segments[0].Content)
}

func TestChunkWith_NeighbourLinks(t *testing.T) {
	paragraphs := make([]string, 6)
	for i := range paragraphs {
		paragraphs[i] = strings.Repeat(string(rune('a'+i)), 25)
	}
	segments := ChunkWith(strings.Join(paragraphs, "\n\n"), ChunkConfig{MaxChars: 30, Overlap: 4})

	require.Len(t, segments, 6)
	for i, seg := range segments {
		assert.Equal(t, i, seg.Index)
		if i == 0 {
			assert.Nil(t, seg.PrevContent)
		} else {
			require.NotNil(t, seg.PrevContent)
			assert.Equal(t, segments[i-1].Content, *seg.PrevContent)
		}
		if i == len(segments)-1 {
			assert.Nil(t, seg.NextContent)
		} else {
			require.NotNil(t, seg.NextContent)
			assert.Equal(t, segments[i+1].Content, *seg.NextContent)
		}
	}
}

func TestChunkWith_Deterministic(t *testing.T) {
	text := strings.Repeat("Chicken curry 12.00\n\nFish fry 9.00\n\nSambar 4.50\n\n", 40)
	cfg := ChunkConfig{MaxChars: 120, Overlap: 20}

	assert.Equal(t, ChunkWith(text, cfg), ChunkWith(text, cfg))
}

func TestChunkWith_CountsRunes(t *testing.T) {
	text := strings.Repeat("é", 10) + "\n\n" + strings.Repeat("ü", 10)

	segments := ChunkWith(text, ChunkConfig{MaxChars: 22, Overlap: 0})

	require.Len(t, segments, 1)
}

func TestNewChunker_Defaults(t *testing.T) {
	chunker := NewChunker(ChunkConfig{})
	assert.Equal(t, DefaultChunkConfig().MaxChars, chunker.cfg.MaxChars)

	segments := chunker.Chunk("hello\n\nworld")
	require.Len(t, segments, 1)
}
