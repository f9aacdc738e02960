package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sourcebook-ai/sourcebook/internal/api"
	"github.com/sourcebook-ai/sourcebook/internal/domain"
)

type IngestService interface {
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.Source, error)
}

type IngestHandler struct {
	svc IngestService
}

func NewIngestHandler(svc IngestService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

type IngestRequestBody struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Text  string `json:"text,omitempty"`
	URL   string `json:"url,omitempty"`
}

type SourceResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	URL       string `json:"url,omitempty"`
	CreatedAt string `json:"created_at"`
}

func sourceToResponse(s *domain.Source) *SourceResponse {
	return &SourceResponse{
		ID:        s.ID,
		Type:      string(s.Type),
		Title:     s.Title,
		Text:      s.RawText,
		URL:       s.SourceURL,
		CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// Ingest handles POST /ingest
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var body IngestRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	source, err := h.svc.Ingest(r.Context(), domain.IngestRequest{
		Type:  domain.SourceType(body.Type),
		Title: body.Title,
		Text:  body.Text,
		URL:   body.URL,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, sourceToResponse(source))
}
