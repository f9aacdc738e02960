package domain

import (
	"fmt"
	"net/url"
	"time"
)

// SourceType represents the kind of content a source was ingested from
type SourceType string

const (
	SourceTypeNote SourceType = "note"
	SourceTypeURL  SourceType = "url"
)

// Source represents one successfully ingested piece of content.
// A Source is immutable after creation; its chunks live in the vector
// index and reference it by ID.
type Source struct {
	ID        string
	Type      SourceType
	Title     string
	RawText   string
	SourceURL string // set iff Type == SourceTypeURL
	CreatedAt time.Time
}

// IngestRequest is the discriminated ingest payload: a note carries
// literal text, a url carries an address to acquire content from.
// Validate enforces the per-variant required fields.
type IngestRequest struct {
	Type  SourceType
	Title string
	Text  string // note variant
	URL   string // url variant
}

// NewSource creates a new Source instance
func NewSource(id string, sourceType SourceType, title, rawText, sourceURL string, createdAt time.Time) *Source {
	return &Source{
		ID:        id,
		Type:      sourceType,
		Title:     title,
		RawText:   rawText,
		SourceURL: sourceURL,
		CreatedAt: createdAt,
	}
}

// ValidateSource validates a Source instance
func ValidateSource(s *Source) error {
	if s == nil {
		return fmt.Errorf("source cannot be nil")
	}

	if s.ID == "" {
		return fmt.Errorf("source ID is required")
	}

	if !isValidSourceType(s.Type) {
		return fmt.Errorf("source Type is invalid: %s", s.Type)
	}

	if s.Type == SourceTypeURL && s.SourceURL == "" {
		return fmt.Errorf("source SourceURL is required for url sources")
	}

	if s.Type == SourceTypeNote && s.SourceURL != "" {
		return fmt.Errorf("source SourceURL must be empty for note sources")
	}

	return nil
}

// Validate checks the ingest payload against its declared variant.
func (r *IngestRequest) Validate() error {
	if r.Title == "" {
		return NewDomainError(ErrCodeValidation, "title is required")
	}

	switch r.Type {
	case SourceTypeNote:
		if r.Text == "" {
			return NewDomainError(ErrCodeValidation, "text is required for note sources")
		}
		if r.URL != "" {
			return NewDomainError(ErrCodeValidation, "url must be empty for note sources")
		}
	case SourceTypeURL:
		if r.URL == "" {
			return NewDomainError(ErrCodeValidation, "url is required for url sources")
		}
		parsed, err := url.Parse(r.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return NewDomainError(ErrCodeValidation, "url must be absolute")
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return NewDomainError(ErrCodeValidation, "url scheme must be http or https")
		}
		if r.Text != "" {
			return NewDomainError(ErrCodeValidation, "text must be empty for url sources")
		}
	default:
		return NewDomainError(ErrCodeValidation, fmt.Sprintf("invalid source type: %q", r.Type))
	}

	return nil
}

// isValidSourceType checks if a SourceType is valid
func isValidSourceType(t SourceType) bool {
	switch t {
	case SourceTypeNote, SourceTypeURL:
		return true
	}
	return false
}
