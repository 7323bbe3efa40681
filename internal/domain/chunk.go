package domain

import "time"

// ChunkSegment is one piece of chunker output before it is persisted.
// Prev and Next hold the neighbouring segments' content, nil at the edges.
type ChunkSegment struct {
	Index       int
	Content     string
	PrevContent *string
	NextContent *string
}

// Chunk is a persisted segment of a document. Scope keys are copied from
// the document so similarity queries need no join.
type Chunk struct {
	ID                 string
	DocumentID         string
	Scope              Scope
	Index              int
	Content            string
	PrevContent        *string
	NextContent        *string
	Embedding          []float32 // nil when embedding failed at ingestion
	EmbeddingDimension int
	CreatedAt          time.Time
}

// HasEmbedding reports whether the chunk takes part in similarity search.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}
