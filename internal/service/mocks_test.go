package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/vita-labs/recallai/internal/domain"
	"github.com/vita-labs/recallai/internal/extract"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) TryAcquire(ctx context.Context, unitID string) (domain.AcquireResult, error) {
	args := m.Called(ctx, unitID)
	return args.Get(0).(domain.AcquireResult), args.Error(1)
}

func (m *MockLedger) Commit(ctx context.Context, unitID string) error {
	args := m.Called(ctx, unitID)
	return args.Error(0)
}

func (m *MockLedger) Release(ctx context.Context, unitID string) error {
	args := m.Called(ctx, unitID)
	return args.Error(0)
}

func (m *MockLedger) Forget(ctx context.Context, unitID string) error {
	args := m.Called(ctx, unitID)
	return args.Error(0)
}

type MockChunkStore struct {
	mock.Mock
}

func (m *MockChunkStore) UpsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

type MockDeadLetters struct {
	mock.Mock
}

func (m *MockDeadLetters) Append(ctx context.Context, entry *domain.DeadLetterEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) ExtractAll(ctx context.Context, unitID string, refs []domain.AttachmentRef) []extract.Result {
	args := m.Called(ctx, unitID, refs)
	return args.Get(0).([]extract.Result)
}

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) SearchNearest(ctx context.Context, embedding []float32, limit int) ([]*domain.ChunkCandidate, error) {
	args := m.Called(ctx, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChunkCandidate), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateAnswer(ctx context.Context, contextText, question string) (string, error) {
	args := m.Called(ctx, contextText, question)
	return args.String(0), args.Error(1)
}

type MockChunkAdmin struct {
	mock.Mock
}

func (m *MockChunkAdmin) DeleteByUnitID(ctx context.Context, unitID string) (int64, error) {
	args := m.Called(ctx, unitID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChunkAdmin) RedactByUnitID(ctx context.Context, unitID string) (int64, error) {
	args := m.Called(ctx, unitID)
	return args.Get(0).(int64), args.Error(1)
}

type MockAttachmentDeleter struct {
	mock.Mock
}

func (m *MockAttachmentDeleter) DeleteByUnit(ctx context.Context, unitID string) error {
	args := m.Called(ctx, unitID)
	return args.Error(0)
}

type MockFeedbackStore struct {
	mock.Mock
}

func (m *MockFeedbackStore) Append(ctx context.Context, entry *domain.FeedbackEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
