package handlers

import (
	"context"
	"net/http"

	"github.com/sourcebook-ai/sourcebook/internal/api"
	"github.com/sourcebook-ai/sourcebook/internal/domain"
)

type MessageLister interface {
	List(ctx context.Context) ([]*domain.Message, error)
}

type MessagesHandler struct {
	repo MessageLister
}

func NewMessagesHandler(repo MessageLister) *MessagesHandler {
	return &MessagesHandler{repo: repo}
}

type CitationResponse struct {
	SourceID      string `json:"source_id"`
	Snippet       string `json:"snippet"`
	CitationIndex int    `json:"citation_index"`
}

type MessageResponse struct {
	ID        string             `json:"id"`
	Question  string             `json:"question"`
	Answer    string             `json:"answer,omitempty"`
	Status    string             `json:"status"`
	CreatedAt string             `json:"created_at"`
	Citations []CitationResponse `json:"citations"`
}

func messageToResponse(m *domain.Message) *MessageResponse {
	citations := make([]CitationResponse, 0, len(m.Citations))
	for _, c := range m.Citations {
		citations = append(citations, CitationResponse{
			SourceID:      c.SourceID,
			Snippet:       c.Snippet,
			CitationIndex: c.CitationIndex,
		})
	}
	return &MessageResponse{
		ID:        m.ID,
		Question:  m.Question,
		Answer:    m.Answer,
		Status:    string(m.Status),
		CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05Z"),
		Citations: citations,
	}
}

// List handles GET /messages, returning messages oldest first with
// their citations in citation order
func (h *MessagesHandler) List(w http.ResponseWriter, r *http.Request) {
	messages, err := h.repo.List(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]*MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageToResponse(m))
	}
	api.JSON(w, http.StatusOK, out)
}
