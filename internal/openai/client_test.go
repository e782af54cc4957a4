package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbeddingAPI is a mock for the embedding API
type MockEmbeddingAPI struct {
	mock.Mock
}

func (m *MockEmbeddingAPI) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockCompletionAPI is a mock for the completion API
type MockCompletionAPI struct {
	mock.Mock
}

func (m *MockCompletionAPI) CreateCompletion(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func vectorOf(dim int, fill float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestClient_GenerateEmbedding_Success(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{embeddings: mockAPI, dimensions: 1536}

	ctx := context.Background()
	expected := vectorOf(1536, 0.25)
	mockAPI.On("CreateEmbeddings", ctx, []string{"hello"}).Return([][]float32{expected}, nil)

	embedding, err := client.GenerateEmbedding(ctx, "hello")

	assert.NoError(t, err)
	assert.Equal(t, expected, embedding)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_EmptyText(t *testing.T) {
	client := NewClient("")

	embedding, err := client.GenerateEmbedding(context.Background(), "")

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_GenerateEmbeddings_SplitsBatches(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{embeddings: mockAPI, dimensions: 4}

	ctx := context.Background()
	texts := make([]string, 150)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}

	first := make([][]float32, 100)
	for i := range first {
		first[i] = vectorOf(4, float32(i))
	}
	second := make([][]float32, 50)
	for i := range second {
		second[i] = vectorOf(4, float32(100+i))
	}

	mockAPI.On("CreateEmbeddings", ctx, texts[:100]).Return(first, nil).Once()
	mockAPI.On("CreateEmbeddings", ctx, texts[100:]).Return(second, nil).Once()

	vectors, err := client.GenerateEmbeddings(ctx, texts)

	require.NoError(t, err)
	require.Len(t, vectors, 150)
	// order must be preserved across sub-batches
	assert.Equal(t, vectorOf(4, 0), vectors[0])
	assert.Equal(t, vectorOf(4, 99), vectors[99])
	assert.Equal(t, vectorOf(4, 100), vectors[100])
	assert.Equal(t, vectorOf(4, 149), vectors[149])
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbeddings_WrongDimensions(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{embeddings: mockAPI, dimensions: 1536}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"short"}).Return([][]float32{vectorOf(8, 1)}, nil)

	_, err := client.GenerateEmbeddings(ctx, []string{"short"})

	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestClient_GenerateEmbeddings_APIError(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{embeddings: mockAPI, dimensions: 1536}

	ctx := context.Background()
	apiErr := errors.New("API rate limit exceeded")
	mockAPI.On("CreateEmbeddings", ctx, []string{"x"}).Return(nil, apiErr)

	vectors, err := client.GenerateEmbeddings(ctx, []string{"x"})

	assert.Error(t, err)
	assert.Nil(t, vectors)
	assert.Contains(t, err.Error(), "failed to create embeddings")
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateAnswer_Success(t *testing.T) {
	mockAPI := new(MockCompletionAPI)
	client := &Client{completions: mockAPI}

	ctx := context.Background()
	mockAPI.On("CreateCompletion", ctx, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "using only the context below") &&
			strings.Contains(prompt, "when do we deploy?")
	})).Return("The deploy runs on Fridays [msg-1].", nil)

	answer, err := client.GenerateAnswer(ctx, "msg-1: deploys happen on fridays", "when do we deploy?")

	assert.NoError(t, err)
	assert.Equal(t, "The deploy runs on Fridays [msg-1].", answer)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateAnswer_EmptyQuestion(t *testing.T) {
	client := NewClient("key")

	_, err := client.GenerateAnswer(context.Background(), "some context", "")

	assert.Equal(t, ErrEmptyText, err)
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key")

	assert.NotNil(t, client)
	assert.NotNil(t, client.embeddings)
	assert.NotNil(t, client.completions)
	assert.Equal(t, DefaultEmbeddingDimensions, client.dimensions)
}
