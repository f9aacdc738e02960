package service

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sourcebook-ai/sourcebook/internal/acquire"
	"github.com/sourcebook-ai/sourcebook/internal/domain"
	"github.com/sourcebook-ai/sourcebook/internal/storage"
	"github.com/sourcebook-ai/sourcebook/internal/telemetry"
	"github.com/sourcebook-ai/sourcebook/internal/vectorstore"
)

// SourceRepositoryInterface defines the repository interface for source persistence
type SourceRepositoryInterface interface {
	Create(ctx context.Context, s *domain.Source) error
	GetByID(ctx context.Context, id string) (*domain.Source, error)
	List(ctx context.Context) ([]*domain.Source, error)
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

// EmbedderInterface produces one embedding per input text, in order.
type EmbedderInterface interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndexInterface is the write/read surface of the chunk index.
type VectorIndexInterface interface {
	Upsert(ctx context.Context, entries []vectorstore.Entry) error
	Query(ctx context.Context, embedding []float32, k int) ([]vectorstore.Hit, error)
}

// ContentResolverInterface resolves a url into raw text.
type ContentResolverInterface interface {
	Resolve(ctx context.Context, url string) (string, error)
}

// ArchiverInterface stores acquired raw content for later inspection.
// Satisfied by *storage.S3Client.
type ArchiverInterface interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// IngestConfig tunes the ingest pipeline.
type IngestConfig struct {
	Chunk IngestChunkConfig
	// StrictAcquisition makes an exhausted acquisition chain fail the
	// ingest instead of storing the sentinel text.
	StrictAcquisition bool
}

// IngestChunkConfig aliases ChunkConfig for configuration wiring.
type IngestChunkConfig = ChunkConfig

// IngestService runs the full ingest pipeline: acquire, normalize,
// persist, chunk, embed, index.
type IngestService struct {
	sourceRepo SourceRepositoryInterface
	resolver   ContentResolverInterface
	tokenizer  Tokenizer
	embedder   EmbedderInterface
	index      VectorIndexInterface
	archiver   ArchiverInterface // nil disables archiving
	cfg        IngestConfig
	uuidGen    UUIDGenerator
}

// NewIngestService creates a new IngestService instance. archiver may
// be nil when no object storage is configured.
func NewIngestService(
	sourceRepo SourceRepositoryInterface,
	resolver ContentResolverInterface,
	tokenizer Tokenizer,
	embedder EmbedderInterface,
	index VectorIndexInterface,
	archiver ArchiverInterface,
	cfg IngestConfig,
) *IngestService {
	return &IngestService{
		sourceRepo: sourceRepo,
		resolver:   resolver,
		tokenizer:  tokenizer,
		embedder:   embedder,
		index:      index,
		archiver:   archiver,
		cfg:        cfg,
		uuidGen:    &DefaultUUIDGenerator{},
	}
}

// NewIngestServiceWithUUIDGen creates a new IngestService with custom UUID generator (for testing)
func NewIngestServiceWithUUIDGen(
	sourceRepo SourceRepositoryInterface,
	resolver ContentResolverInterface,
	tokenizer Tokenizer,
	embedder EmbedderInterface,
	index VectorIndexInterface,
	archiver ArchiverInterface,
	cfg IngestConfig,
	uuidGen UUIDGenerator,
) *IngestService {
	s := NewIngestService(sourceRepo, resolver, tokenizer, embedder, index, archiver, cfg)
	s.uuidGen = uuidGen
	return s
}

// Ingest acquires, normalizes, stores and indexes one piece of content.
// The Source row is written before any chunk reaches the vector index,
// so every indexed chunk always resolves to a stored source. There is
// no compensation on partial failure: a failed embed or upsert leaves
// the Source row behind without chunks.
func (s *IngestService) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.Source, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.Ingest", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	text, err := s.acquireText(ctx, req)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	normalized := NormalizeText(text)

	source := domain.NewSource(
		s.uuidGen.NewString(),
		req.Type,
		req.Title,
		normalized,
		req.URL,
		time.Now().UTC(),
	)
	if err := domain.ValidateSource(source); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid source", err)
	}

	if err := s.sourceRepo.Create(ctx, source); err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to store source", err)
	}

	// Best-effort: the archive is an audit trail, not part of the
	// ingest contract.
	if s.archiver != nil && req.Type == domain.SourceTypeURL {
		key := storage.ArchiveKey(source.ID)
		if err := s.archiver.PutObject(ctx, key, "text/plain; charset=utf-8", []byte(normalized)); err != nil {
			log.Printf("ingest: failed to archive raw content for source %s: %v", source.ID, err)
		}
	}

	if err := s.indexChunks(ctx, source); err != nil {
		span.SetError(err)
		return nil, err
	}

	return source, nil
}

// acquireText returns the text to ingest for the request variant.
func (s *IngestService) acquireText(ctx context.Context, req domain.IngestRequest) (string, error) {
	if req.Type == domain.SourceTypeNote {
		return req.Text, nil
	}

	text, err := s.resolver.Resolve(ctx, req.URL)
	if err != nil {
		if s.cfg.StrictAcquisition {
			return "", domain.NewDomainErrorWithCause(domain.ErrCodeAcquisition, "no content could be acquired for url", err)
		}
		log.Printf("ingest: acquisition exhausted for %s, storing sentinel", req.URL)
		return acquire.NoContentSentinel, nil
	}
	return text, nil
}

// indexChunks splits the source text into token windows, embeds them
// in one batch and upserts them into the vector index.
func (s *IngestService) indexChunks(ctx context.Context, source *domain.Source) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.indexChunks", telemetry.SpanAttributes{
		SourceID:  source.ID,
		Operation: "index_chunks",
	})
	defer span.End()

	chunks, err := ChunkByTokens(s.tokenizer, source.RawText, s.cfg.Chunk)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "chunking failed", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	embeddings, err := s.embedder.GenerateEmbeddings(ctx, chunks)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "embedding service call failed", err)
	}

	timestamp := source.CreatedAt.Format(time.RFC3339)
	entries := make([]vectorstore.Entry, len(chunks))
	for i, chunk := range chunks {
		metadata := map[string]string{
			vectorstore.MetaSourceID:   source.ID,
			vectorstore.MetaChunkIndex: strconv.Itoa(i),
			vectorstore.MetaTimestamp:  timestamp,
			vectorstore.MetaSourceType: string(source.Type),
			vectorstore.MetaTitle:      source.Title,
		}
		if source.SourceURL != "" {
			metadata[vectorstore.MetaURL] = source.SourceURL
		}
		entries[i] = vectorstore.Entry{
			ID:        s.uuidGen.NewString(),
			Document:  chunk,
			Embedding: embeddings[i],
			Metadata:  metadata,
		}
	}

	if err := s.index.Upsert(ctx, entries); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "vector store operation failed", err)
	}

	return nil
}
