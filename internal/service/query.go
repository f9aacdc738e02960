package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sourcebook-ai/sourcebook/internal/domain"
	"github.com/sourcebook-ai/sourcebook/internal/telemetry"
	"github.com/sourcebook-ai/sourcebook/internal/vectorstore"
)

// RetrievalK is how many chunks are retrieved per question.
const RetrievalK = 5

// SnippetMaxChars bounds the citation snippet length.
const SnippetMaxChars = 300

// ragInstruction constrains the completion model to the retrieved
// sources. The wording is deliberately stable across releases.
const ragInstruction = "You are a RAG assistant. Answer ONLY using the provided sources. If the answer is not present, just say you don't know."

// MessageRepositoryInterface defines the repository interface for message persistence
type MessageRepositoryInterface interface {
	Create(ctx context.Context, m *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	List(ctx context.Context) ([]*domain.Message, error)
	Finalize(ctx context.Context, messageID, answer string, citations []*domain.Citation) error
	MarkFailed(ctx context.Context, messageID string) error
}

// QuestionEmbedderInterface embeds a single query text.
type QuestionEmbedderInterface interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// CompleterInterface generates an answer from an instruction and prompt.
type CompleterInterface interface {
	GenerateAnswer(ctx context.Context, instruction, prompt string) (string, error)
}

// QueryService answers questions over the ingested corpus and records
// every attempt as a Message row.
type QueryService struct {
	messageRepo MessageRepositoryInterface
	sourceRepo  SourceRepositoryInterface
	embedder    QuestionEmbedderInterface
	completer   CompleterInterface
	index       VectorIndexInterface
	uuidGen     UUIDGenerator
}

// NewQueryService creates a new QueryService instance
func NewQueryService(
	messageRepo MessageRepositoryInterface,
	sourceRepo SourceRepositoryInterface,
	embedder QuestionEmbedderInterface,
	completer CompleterInterface,
	index VectorIndexInterface,
) *QueryService {
	return &QueryService{
		messageRepo: messageRepo,
		sourceRepo:  sourceRepo,
		embedder:    embedder,
		completer:   completer,
		index:       index,
		uuidGen:     &DefaultUUIDGenerator{},
	}
}

// NewQueryServiceWithUUIDGen creates a new QueryService with custom UUID generator (for testing)
func NewQueryServiceWithUUIDGen(
	messageRepo MessageRepositoryInterface,
	sourceRepo SourceRepositoryInterface,
	embedder QuestionEmbedderInterface,
	completer CompleterInterface,
	index VectorIndexInterface,
	uuidGen UUIDGenerator,
) *QueryService {
	s := NewQueryService(messageRepo, sourceRepo, embedder, completer, index)
	s.uuidGen = uuidGen
	return s
}

// Query answers a question using retrieved chunks and persists the
// answer with its citations. The pending Message row is created before
// any external call so every attempt leaves an audit record. A failure
// after that point marks the row failed, best-effort.
func (s *QueryService) Query(ctx context.Context, question string) (*domain.Message, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.Query", telemetry.SpanAttributes{
		Operation: "query",
	})
	defer span.End()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	message := domain.NewMessage(s.uuidGen.NewString(), question, time.Now().UTC())
	if err := s.messageRepo.Create(ctx, message); err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to create message", err)
	}

	answered, err := s.answer(ctx, message)
	if err != nil {
		span.SetError(err)
		if markErr := s.messageRepo.MarkFailed(ctx, message.ID); markErr != nil {
			log.Printf("query: failed to mark message %s failed: %v", message.ID, markErr)
		}
		return nil, err
	}
	return answered, nil
}

func (s *QueryService) answer(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	embedding, err := s.embedder.GenerateEmbedding(ctx, message.Question)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "embedding service call failed", err)
	}

	hits, err := s.index.Query(ctx, embedding, RetrievalK)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "vector store operation failed", err)
	}

	prompt := buildPrompt(message.Question, hits)

	answer, err := s.completer.GenerateAnswer(ctx, ragInstruction, prompt)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "completion service call failed", err)
	}

	citations, err := s.linkCitations(ctx, message.ID, hits, message.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := s.messageRepo.Finalize(ctx, message.ID, answer, citations); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to finalize message", err)
	}

	message.Answer = answer
	message.Status = domain.MessageStatusAnswered
	message.Citations = citations
	return message, nil
}

// buildPrompt labels each retrieved chunk with its 1-based rank and its
// best human label (title, else url) and appends the question.
func buildPrompt(question string, hits []vectorstore.Hit) string {
	var b strings.Builder
	for i, hit := range hits {
		label := hit.Metadata[vectorstore.MetaTitle]
		if label == "" {
			label = hit.Metadata[vectorstore.MetaURL]
		}
		if label != "" {
			fmt.Fprintf(&b, "SOURCE %d (%s)\n%s\n\n", i+1, label, hit.Document)
		} else {
			fmt.Fprintf(&b, "SOURCE %d\n%s\n\n", i+1, hit.Document)
		}
	}
	return fmt.Sprintf("Question: %s\n\nSources:\n%s", question, b.String())
}

// linkCitations derives one citation candidate per hit and drops any
// whose source id is missing or no longer resolves to a stored source.
func (s *QueryService) linkCitations(ctx context.Context, messageID string, hits []vectorstore.Hit, createdAt time.Time) ([]*domain.Citation, error) {
	var ids []string
	for _, hit := range hits {
		if id := hit.Metadata[vectorstore.MetaSourceID]; id != "" {
			ids = append(ids, id)
		}
	}
	existing, err := s.sourceRepo.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to resolve citation sources", err)
	}

	var citations []*domain.Citation
	for i, hit := range hits {
		sourceID := hit.Metadata[vectorstore.MetaSourceID]
		if sourceID == "" || !existing[sourceID] {
			continue
		}
		citations = append(citations, &domain.Citation{
			MessageID:     messageID,
			SourceID:      sourceID,
			Snippet:       snippet(hit.Document, SnippetMaxChars),
			CitationIndex: i + 1,
			CreatedAt:     createdAt,
		})
	}
	return citations, nil
}

// snippet returns a prefix of at most max runes without splitting a
// multi-byte character.
func snippet(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max])
}
