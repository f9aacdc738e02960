package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sourcebook-ai/sourcebook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.Source, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Source), args.Error(1)
}

type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) Query(ctx context.Context, question string) (*domain.Message, error) {
	args := m.Called(ctx, question)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

type MockSourceLister struct {
	mock.Mock
}

func (m *MockSourceLister) List(ctx context.Context) ([]*domain.Source, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Source), args.Error(1)
}

type MockMessageLister struct {
	mock.Mock
}

func (m *MockMessageLister) List(ctx context.Context) ([]*domain.Message, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func TestIngestHandler_Note(t *testing.T) {
	svc := new(MockIngestService)
	handler := NewIngestHandler(svc)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	source := domain.NewSource("src-1", domain.SourceTypeNote, "France", "Paris is the capital.", "", now)
	svc.On("Ingest", mock.Anything, domain.IngestRequest{
		Type:  domain.SourceTypeNote,
		Title: "France",
		Text:  "Paris is the capital.",
	}).Return(source, nil)

	body := bytes.NewBufferString(`{"type":"note","title":"France","text":"Paris is the capital."}`)
	req := httptest.NewRequest(http.MethodPost, "/ingest", body)
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success bool           `json:"success"`
		Data    SourceResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "src-1", resp.Data.ID)
	assert.Equal(t, "note", resp.Data.Type)
	assert.Empty(t, resp.Data.URL)
	svc.AssertExpectations(t)
}

func TestIngestHandler_InvalidJSON(t *testing.T) {
	svc := new(MockIngestService)
	handler := NewIngestHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}

func TestIngestHandler_ValidationError(t *testing.T) {
	svc := new(MockIngestService)
	handler := NewIngestHandler(svc)

	svc.On("Ingest", mock.Anything, mock.Anything).
		Return(nil, domain.NewDomainError(domain.ErrCodeValidation, "title is required"))

	req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewBufferString(`{"type":"note","text":"x"}`))
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "title is required")
}

func TestIngestHandler_UpstreamError(t *testing.T) {
	svc := new(MockIngestService)
	handler := NewIngestHandler(svc)

	svc.On("Ingest", mock.Anything, mock.Anything).Return(nil, domain.ErrEmbeddingFailed)

	req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewBufferString(`{"type":"note","title":"t","text":"x"}`))
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestQueryHandler_Success(t *testing.T) {
	svc := new(MockQueryService)
	handler := NewQueryHandler(svc)

	message := &domain.Message{
		ID:       "msg-1",
		Question: "What is the capital of France?",
		Answer:   "Paris.",
		Status:   domain.MessageStatusAnswered,
	}
	svc.On("Query", mock.Anything, "What is the capital of France?").Return(message, nil)

	body := bytes.NewBufferString(`{"question":"What is the capital of France?"}`)
	req := httptest.NewRequest(http.MethodPost, "/query", body)
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success bool          `json:"success"`
		Data    QueryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "msg-1", resp.Data.MessageID)
	assert.Equal(t, "Paris.", resp.Data.Answer)
}

func TestQueryHandler_EmptyQuestion(t *testing.T) {
	svc := new(MockQueryService)
	handler := NewQueryHandler(svc)

	svc.On("Query", mock.Anything, "").Return(nil, domain.ErrEmptyQuestion)

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSourcesHandler_List(t *testing.T) {
	lister := new(MockSourceLister)
	handler := NewSourcesHandler(lister)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lister.On("List", mock.Anything).Return([]*domain.Source{
		domain.NewSource("src-1", domain.SourceTypeNote, "First", "text one", "", now),
		domain.NewSource("src-2", domain.SourceTypeURL, "Second", "text two", "https://example.com", now),
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []SourceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "src-1", resp[0].ID)
	assert.Equal(t, "https://example.com", resp[1].URL)
}

func TestSourcesHandler_List_Empty(t *testing.T) {
	lister := new(MockSourceLister)
	handler := NewSourcesHandler(lister)

	lister.On("List", mock.Anything).Return([]*domain.Source{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestSourcesHandler_List_Error(t *testing.T) {
	lister := new(MockSourceLister)
	handler := NewSourcesHandler(lister)

	lister.On("List", mock.Anything).Return(nil, errors.New("connection reset"))

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestMessagesHandler_List(t *testing.T) {
	lister := new(MockMessageLister)
	handler := NewMessagesHandler(lister)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lister.On("List", mock.Anything).Return([]*domain.Message{
		{
			ID:        "msg-1",
			Question:  "Q1",
			Answer:    "A1",
			Status:    domain.MessageStatusAnswered,
			CreatedAt: now,
			Citations: []*domain.Citation{
				{MessageID: "msg-1", SourceID: "src-1", Snippet: "snippet", CitationIndex: 1},
			},
		},
		{ID: "msg-2", Question: "Q2", Status: domain.MessageStatusPending, CreatedAt: now},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/messages", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "answered", resp[0].Status)
	require.Len(t, resp[0].Citations, 1)
	assert.Equal(t, "src-1", resp[0].Citations[0].SourceID)
	assert.Equal(t, "pending", resp[1].Status)
	assert.Empty(t, resp[1].Citations)
}
