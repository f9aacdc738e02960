package service

import (
	"context"
	"fmt"

	"github.com/sourcebook-ai/sourcebook/internal/domain"
	"github.com/sourcebook-ai/sourcebook/internal/vectorstore"
	"github.com/stretchr/testify/mock"
)

// MockSourceRepository is a mock implementation of SourceRepositoryInterface
type MockSourceRepository struct {
	mock.Mock
}

func (m *MockSourceRepository) Create(ctx context.Context, s *domain.Source) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSourceRepository) GetByID(ctx context.Context, id string) (*domain.Source, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Source), args.Error(1)
}

func (m *MockSourceRepository) List(ctx context.Context) ([]*domain.Source, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Source), args.Error(1)
}

func (m *MockSourceRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

// MockMessageRepository is a mock implementation of MessageRepositoryInterface
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) List(ctx context.Context) ([]*domain.Message, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) Finalize(ctx context.Context, messageID, answer string, citations []*domain.Citation) error {
	args := m.Called(ctx, messageID, answer, citations)
	return args.Error(0)
}

func (m *MockMessageRepository) MarkFailed(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

// MockEmbedder is a mock implementation of EmbedderInterface
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

// MockQuestionEmbedder is a mock implementation of QuestionEmbedderInterface
type MockQuestionEmbedder struct {
	mock.Mock
}

func (m *MockQuestionEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockCompleter is a mock implementation of CompleterInterface
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) GenerateAnswer(ctx context.Context, instruction, prompt string) (string, error) {
	args := m.Called(ctx, instruction, prompt)
	return args.String(0), args.Error(1)
}

// MockVectorIndex is a mock implementation of VectorIndexInterface
type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) Upsert(ctx context.Context, entries []vectorstore.Entry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockVectorIndex) Query(ctx context.Context, embedding []float32, k int) ([]vectorstore.Hit, error) {
	args := m.Called(ctx, embedding, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vectorstore.Hit), args.Error(1)
}

// MockResolver is a mock implementation of ContentResolverInterface
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

// MockArchiver is a mock implementation of ArchiverInterface
type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) PutObject(ctx context.Context, key, contentType string, body []byte) error {
	args := m.Called(ctx, key, contentType, body)
	return args.Error(0)
}

// seqUUIDGenerator yields deterministic ids: uuid-1, uuid-2, ...
type seqUUIDGenerator struct {
	n int
}

func (g *seqUUIDGenerator) NewString() string {
	g.n++
	return fmt.Sprintf("uuid-%d", g.n)
}
