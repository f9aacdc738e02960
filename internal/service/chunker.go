package service

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultTokenEncoding is the BPE encoding used for chunking.
const DefaultTokenEncoding = "cl100k_base"

// Tokenizer encodes text to token ids and back. Production code uses
// the tiktoken BPE tokenizer; tests substitute a deterministic fake.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// ChunkConfig controls token-window chunking.
type ChunkConfig struct {
	ChunkSize int
	Overlap   int
}

// DefaultChunkConfig provides the default window of 500 tokens with an
// 80 token overlap.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize: 500,
		Overlap:   80,
	}
}

// Validate rejects configurations with a non-positive or degenerate
// stride. Overlap >= ChunkSize would make the window never advance.
func (c ChunkConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("overlap cannot be negative, got %d", c.Overlap)
	}
	if c.Overlap >= c.ChunkSize {
		return fmt.Errorf("overlap (%d) must be smaller than chunk size (%d)", c.Overlap, c.ChunkSize)
	}
	return nil
}

// ChunkByTokens splits text into overlapping token windows. Each window
// holds up to ChunkSize tokens and the start offset advances by
// ChunkSize-Overlap, so every token of the input is covered and the
// final chunk may be shorter. Output is deterministic for a given
// tokenizer and config; empty input yields no chunks.
func ChunkByTokens(tok Tokenizer, text string, cfg ChunkConfig) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tokens := tok.Encode(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	stride := cfg.ChunkSize - cfg.Overlap
	chunks := make([]string, 0, (len(tokens)+stride-1)/stride)

	for start := 0; start < len(tokens); start += stride {
		end := start + cfg.ChunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tok.Decode(tokens[start:end]))
		if end == len(tokens) {
			// A further window would add no uncovered tokens.
			break
		}
	}

	return chunks, nil
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer returns a Tokenizer backed by the named tiktoken
// BPE encoding.
func NewTiktokenTokenizer(encoding string) (Tokenizer, error) {
	if encoding == "" {
		encoding = DefaultTokenEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer encoding %q: %w", encoding, err)
	}
	return &tiktokenTokenizer{enc: enc}, nil
}

func (t *tiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
