package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/codmer/pulsedoc/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockChunkBackfillRepository struct {
	mock.Mock
}

func (m *MockChunkBackfillRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.Chunk, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chunk), args.Error(1)
}

func (m *MockChunkBackfillRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(errors.New("transient"))

	worker := NewWorker(mockProcessor, 100*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestEmbeddingBackfill_NoPendingChunks(t *testing.T) {
	mockRepo := new(MockChunkBackfillRepository)
	mockEmbedder := new(MockEmbedder)

	mockRepo.On("ListMissingEmbeddings", mock.Anything, DefaultBackfillBatchSize).Return([]*domain.Chunk{}, nil)

	backfill := NewEmbeddingBackfill(mockRepo, mockEmbedder, 0, nil)
	err := backfill.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockEmbedder.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

func TestEmbeddingBackfill_RepairsChunks(t *testing.T) {
	mockRepo := new(MockChunkBackfillRepository)
	mockEmbedder := new(MockEmbedder)

	chunks := []*domain.Chunk{
		{ID: "chunk-1", DocumentID: "doc-1", Content: "Pizza 9.00"},
		{ID: "chunk-2", DocumentID: "doc-1", Content: "Coke 2.00"},
	}
	mockRepo.On("ListMissingEmbeddings", mock.Anything, 10).Return(chunks, nil)
	mockEmbedder.On("Embed", mock.Anything, "Pizza 9.00").Return([]float32{1, 0}, nil)
	mockEmbedder.On("Embed", mock.Anything, "Coke 2.00").Return([]float32{0, 1}, nil)
	mockRepo.On("UpdateEmbedding", mock.Anything, "chunk-1", []float32{1, 0}).Return(nil)
	mockRepo.On("UpdateEmbedding", mock.Anything, "chunk-2", []float32{0, 1}).Return(nil)

	backfill := NewEmbeddingBackfill(mockRepo, mockEmbedder, 10, nil)
	err := backfill.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockEmbedder.AssertExpectations(t)
}

func TestEmbeddingBackfill_StopsAtFirstEmbeddingFailure(t *testing.T) {
	mockRepo := new(MockChunkBackfillRepository)
	mockEmbedder := new(MockEmbedder)

	chunks := []*domain.Chunk{
		{ID: "chunk-1", Content: "Pizza 9.00"},
		{ID: "chunk-2", Content: "Coke 2.00"},
	}
	mockRepo.On("ListMissingEmbeddings", mock.Anything, 10).Return(chunks, nil)
	mockEmbedder.On("Embed", mock.Anything, "Pizza 9.00").Return(nil, errors.New("circuit open"))

	backfill := NewEmbeddingBackfill(mockRepo, mockEmbedder, 10, nil)
	err := backfill.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockEmbedder.AssertNotCalled(t, "Embed", mock.Anything, "Coke 2.00")
	mockRepo.AssertNotCalled(t, "UpdateEmbedding", mock.Anything, mock.Anything, mock.Anything)
}

func TestEmbeddingBackfill_UpdateError(t *testing.T) {
	mockRepo := new(MockChunkBackfillRepository)
	mockEmbedder := new(MockEmbedder)

	mockRepo.On("ListMissingEmbeddings", mock.Anything, 10).Return([]*domain.Chunk{{ID: "chunk-1", Content: "Pizza"}}, nil)
	mockEmbedder.On("Embed", mock.Anything, "Pizza").Return([]float32{1}, nil)
	mockRepo.On("UpdateEmbedding", mock.Anything, "chunk-1", []float32{1}).Return(errors.New("database error"))

	backfill := NewEmbeddingBackfill(mockRepo, mockEmbedder, 10, nil)
	err := backfill.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "chunk-1")
}

func TestEmbeddingBackfill_RepositoryError(t *testing.T) {
	mockRepo := new(MockChunkBackfillRepository)
	mockEmbedder := new(MockEmbedder)

	mockRepo.On("ListMissingEmbeddings", mock.Anything, 10).Return(nil, errors.New("database error"))

	backfill := NewEmbeddingBackfill(mockRepo, mockEmbedder, 10, nil)
	err := backfill.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch chunks without embedding")
	mockRepo.AssertExpectations(t)
}
