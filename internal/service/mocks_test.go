package service

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/codmer/pulsedoc/internal/domain"
)

type MockUUIDGenerator struct {
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		uuid := m.uuids[m.callCount]
		m.callCount++
		return uuid
	}
	return "default-uuid"
}

type MockEmbeddingProvider struct {
	mock.Mock
}

func (m *MockEmbeddingProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbeddingProvider) Dimensions(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

type MockChunkStore struct {
	mock.Mock
}

func (m *MockChunkStore) Save(ctx context.Context, chunk *domain.Chunk) error {
	args := m.Called(ctx, chunk)
	return args.Error(0)
}

func (m *MockChunkStore) FindNearest(ctx context.Context, scope domain.Scope, embedding []float32, limit int) ([]*domain.Chunk, error) {
	args := m.Called(ctx, scope, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chunk), args.Error(1)
}

// countingRecorder is a CacheRecorder that tallies lookups per cache.
type countingRecorder struct {
	mu     sync.Mutex
	hits   map[string]int
	misses map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{hits: map[string]int{}, misses: map[string]int{}}
}

func (r *countingRecorder) CacheHit(cache string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits[cache]++
}

func (r *countingRecorder) CacheMiss(cache string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses[cache]++
}
