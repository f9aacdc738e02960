package openai

import (
	"context"
	"errors"
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

func (m *MockCompletionAPI) CreateCompletion(ctx context.Context, instruction, prompt string) (string, error) {
	args := m.Called(ctx, instruction, prompt)
	return args.String(0), args.Error(1)
}

func embeddingOfDim(dim int, fill float32) []float32 {
	e := make([]float32, dim)
	for i := range e {
		e[i] = fill
	}
	return e
}

func TestClient_GenerateEmbeddings_Success(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{embeddings: mockAPI, dimensions: DefaultEmbeddingDimensions}

	ctx := context.Background()
	texts := []string{"first chunk", "second chunk"}
	expected := [][]float32{
		embeddingOfDim(DefaultEmbeddingDimensions, 0.1),
		embeddingOfDim(DefaultEmbeddingDimensions, 0.2),
	}

	mockAPI.On("CreateEmbeddings", ctx, texts).Return(expected, nil)

	embeddings, err := client.GenerateEmbeddings(ctx, texts)

	require.NoError(t, err)
	assert.Equal(t, expected, embeddings)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbeddings_EmptyBatch(t *testing.T) {
	client := NewClient("")

	_, err := client.GenerateEmbeddings(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = client.GenerateEmbeddings(context.Background(), []string{"ok", ""})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestClient_GenerateEmbeddings_WrongDimensions(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{embeddings: mockAPI, dimensions: DefaultEmbeddingDimensions}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"text"}).Return([][]float32{embeddingOfDim(8, 0.5)}, nil)

	_, err := client.GenerateEmbeddings(ctx, []string{"text"})

	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestClient_GenerateEmbeddings_APIError(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{embeddings: mockAPI, dimensions: DefaultEmbeddingDimensions}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"text"}).Return(nil, errors.New("rate limited"))

	_, err := client.GenerateEmbeddings(ctx, []string{"text"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestClient_GenerateEmbedding_Single(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{embeddings: mockAPI, dimensions: DefaultEmbeddingDimensions}

	ctx := context.Background()
	expected := embeddingOfDim(DefaultEmbeddingDimensions, 0.3)
	mockAPI.On("CreateEmbeddings", ctx, []string{"What is the capital of France?"}).
		Return([][]float32{expected}, nil)

	embedding, err := client.GenerateEmbedding(ctx, "What is the capital of France?")

	require.NoError(t, err)
	assert.Equal(t, expected, embedding)
}

func TestClient_GenerateAnswer_Success(t *testing.T) {
	mockAPI := new(MockCompletionAPI)
	client := &Client{completions: mockAPI}

	ctx := context.Background()
	mockAPI.On("CreateCompletion", ctx, "You are a RAG assistant.", "Question: ...").
		Return("Paris.", nil)

	answer, err := client.GenerateAnswer(ctx, "You are a RAG assistant.", "Question: ...")

	require.NoError(t, err)
	assert.Equal(t, "Paris.", answer)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateAnswer_EmptyPrompt(t *testing.T) {
	client := NewClient("")

	_, err := client.GenerateAnswer(context.Background(), "instruction", "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestClient_GenerateAnswer_APIError(t *testing.T) {
	mockAPI := new(MockCompletionAPI)
	client := &Client{completions: mockAPI}

	ctx := context.Background()
	mockAPI.On("CreateCompletion", ctx, "instruction", "prompt").Return("", errors.New("model overloaded"))

	_, err := client.GenerateAnswer(ctx, "instruction", "prompt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}
