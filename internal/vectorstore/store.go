// Package vectorstore adapts the chromem vector database to the chunk
// upsert/query contract the ingestion and query pipelines rely on.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// DefaultCollection is the collection holding every chunk entry.
const DefaultCollection = "rag_collection"

// Metadata keys stored with every chunk. The source_id entry is the
// only durable link from a vector hit back to its relational Source.
const (
	MetaSourceID   = "source_id"
	MetaChunkIndex = "chunk_index"
	MetaTimestamp  = "timestamp"
	MetaSourceType = "source_type"
	MetaTitle      = "title"
	MetaURL        = "url"
)

// Entry is one chunk to upsert: parallel id, document text, embedding
// and metadata.
type Entry struct {
	ID        string
	Document  string
	Embedding []float32
	Metadata  map[string]string
}

// Hit is one ranked query result.
type Hit struct {
	ID         string
	Document   string
	Metadata   map[string]string
	Similarity float32
}

// Store wraps a chromem database with lazy collection creation.
// Safe for concurrent use.
type Store struct {
	db   *chromem.DB
	name string

	mu  sync.Mutex
	col *chromem.Collection
}

// NewPersistent opens (or creates) a persistent store under dir.
func NewPersistent(dir, collection string) (*Store, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store at %s: %w", dir, err)
	}
	return &Store{db: db, name: collection}, nil
}

// NewInMemory creates an ephemeral store, used in tests.
func NewInMemory(collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{db: chromem.NewDB(), name: collection}
}

// ensure lazily creates the collection on first use.
func (s *Store) ensure() (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.col != nil {
		return s.col, nil
	}

	col, err := s.db.GetOrCreateCollection(s.name, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection %s: %w", s.name, err)
	}
	s.col = col
	return col, nil
}

// Upsert writes a batch of chunk entries. IDs must be globally unique
// per chunk so ingests never overwrite each other's entries.
func (s *Store) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	col, err := s.ensure()
	if err != nil {
		return err
	}

	ids := make([]string, len(entries))
	embeddings := make([][]float32, len(entries))
	metadatas := make([]map[string]string, len(entries))
	contents := make([]string, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("entry %d has no id", i)
		}
		ids[i] = e.ID
		embeddings[i] = e.Embedding
		metadatas[i] = e.Metadata
		contents[i] = e.Document
	}

	if err := col.Add(ctx, ids, embeddings, metadatas, contents); err != nil {
		return fmt.Errorf("vector upsert failed: %w", err)
	}
	return nil
}

// Query returns the top-k nearest chunks for the embedding, best
// first. k is clamped to the collection size; an empty collection
// yields no hits.
func (s *Store) Query(ctx context.Context, embedding []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, errors.New("k must be positive")
	}

	col, err := s.ensure()
	if err != nil {
		return nil, err
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := col.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			ID:         r.ID,
			Document:   r.Content,
			Metadata:   r.Metadata,
			Similarity: r.Similarity,
		}
	}
	return hits, nil
}

// noEmbedding satisfies chromem's embedding hook. Every entry carries
// a precomputed embedding, so the hook must never be reached.
func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("vectorstore: embeddings must be precomputed")
}
