package domain

import (
	"fmt"
	"time"
)

// MessageStatus represents the lifecycle state of a query message
type MessageStatus string

const (
	// MessageStatusPending is set when the row is created, before any
	// external model call is made.
	MessageStatusPending MessageStatus = "pending"
	// MessageStatusAnswered is set once the answer and its citations
	// have been persisted.
	MessageStatusAnswered MessageStatus = "answered"
	// MessageStatusFailed is set when the pipeline fails after the row
	// was created, so pending rows are never left dangling.
	MessageStatusFailed MessageStatus = "failed"
)

// Message represents one query attempt. The row is created eagerly so
// every attempt leaves an audit record even if the model call fails.
type Message struct {
	ID        string
	Question  string
	Answer    string // empty until answered
	Status    MessageStatus
	CreatedAt time.Time
	Citations []*Citation
}

// Citation links an answered message back to the source whose chunk
// grounded the answer. CitationIndex is the 1-based retrieval rank.
type Citation struct {
	MessageID     string
	SourceID      string
	Snippet       string
	CitationIndex int
	CreatedAt     time.Time
}

// NewMessage creates a new Message in the pending state
func NewMessage(id, question string, createdAt time.Time) *Message {
	return &Message{
		ID:        id,
		Question:  question,
		Status:    MessageStatusPending,
		CreatedAt: createdAt,
	}
}

// ValidateMessage validates a Message instance
func ValidateMessage(m *Message) error {
	if m == nil {
		return fmt.Errorf("message cannot be nil")
	}

	if m.ID == "" {
		return fmt.Errorf("message ID is required")
	}

	if m.Question == "" {
		return fmt.Errorf("message Question is required")
	}

	if !isValidMessageStatus(m.Status) {
		return fmt.Errorf("message Status is invalid: %s", m.Status)
	}

	if m.Status == MessageStatusAnswered && m.Answer == "" {
		return fmt.Errorf("answered message must have an Answer")
	}

	return nil
}

// ValidateCitation validates a Citation instance
func ValidateCitation(c *Citation) error {
	if c == nil {
		return fmt.Errorf("citation cannot be nil")
	}

	if c.MessageID == "" {
		return fmt.Errorf("citation MessageID is required")
	}

	if c.SourceID == "" {
		return fmt.Errorf("citation SourceID is required")
	}

	if c.CitationIndex < 1 {
		return fmt.Errorf("citation CitationIndex must be 1-based")
	}

	return nil
}

// isValidMessageStatus checks if a MessageStatus is valid
func isValidMessageStatus(s MessageStatus) bool {
	switch s {
	case MessageStatusPending, MessageStatusAnswered, MessageStatusFailed:
		return true
	}
	return false
}
